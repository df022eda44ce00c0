package game

// Draw is the winner id reported when nobody outlasted the other.
const Draw = 0

// Decide applies the finish rules to the runners of a match in progress. It
// returns decided=false while more than one runner is alive.
//
// With exactly one runner alive, that runner wins. With none alive, the
// runner eliminated on the later tick wins and equal ticks are a draw. An
// empty or single-runner field with nobody alive is a draw.
func Decide(runners []*Runner) (winner int, decided bool) {
	if len(runners) == 0 {
		return Draw, true
	}
	var alive, dead []*Runner
	for _, r := range runners {
		if r.Alive {
			alive = append(alive, r)
		} else {
			dead = append(dead, r)
		}
	}
	switch {
	case len(alive) > 1:
		return 0, false
	case len(alive) == 1:
		return alive[0].ID, true
	case len(dead) < 2:
		return Draw, true
	}
	first, second := dead[0], dead[1]
	switch {
	case first.EliminatedTick == second.EliminatedTick:
		return Draw, true
	case first.EliminatedTick < second.EliminatedTick:
		return second.ID, true
	default:
		return first.ID, true
	}
}
