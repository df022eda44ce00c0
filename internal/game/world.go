package game

// Runner is the simulated state of one player's bird.
type Runner struct {
	ID             int
	Y              float64
	Velocity       float64
	Alive          bool
	Score          int
	EliminatedTick int64
}

// NewRunner returns a runner at the spawn point.
func NewRunner(id int) *Runner {
	r := &Runner{ID: id}
	r.reset()
	return r
}

func (r *Runner) reset() {
	r.Y = StartY
	r.Velocity = 0
	r.Alive = true
	r.Score = 0
	r.EliminatedTick = NotEliminated
}

// Fall integrates gravity over dt and applies the soft ceiling.
func (r *Runner) Fall(dt float64) {
	r.Velocity -= Gravity * dt
	r.Y += r.Velocity * dt
	if r.Y > WorldHeight-BirdHeight {
		r.Y = WorldHeight - BirdHeight
		r.Velocity = 0
	}
}

// Jump sets the upward velocity of an alive runner and reports whether it
// did.
func (r *Runner) Jump() bool {
	if !r.Alive {
		return false
	}
	r.Velocity = JumpVelocity
	return true
}

// Eliminate stops the runner at tick. Eliminating twice is a no-op and
// reports false.
func (r *Runner) Eliminate(tick int64) bool {
	if !r.Alive {
		return false
	}
	r.Alive = false
	r.Velocity = 0
	r.EliminatedTick = tick
	return true
}

// Pipe is an obstacle column scrolling from right to left.
type Pipe struct {
	X          float64
	GapCenterY float64
	scored     [MaxPlayers + 1]bool
}

// GapBottom is the lowest passable y inside the gap.
func (p *Pipe) GapBottom() float64 {
	return p.GapCenterY - PipeGapHeight/2
}

// GapTop is the highest passable y inside the gap.
func (p *Pipe) GapTop() float64 {
	return p.GapBottom() + PipeGapHeight
}

// Scored reports whether the pipe already counted for playerID.
func (p *Pipe) Scored(playerID int) bool {
	if playerID < 0 || playerID >= len(p.scored) {
		return false
	}
	return p.scored[playerID]
}

func (p *Pipe) markScored(playerID int) {
	if playerID >= 0 && playerID < len(p.scored) {
		p.scored[playerID] = true
	}
}

// Scroll moves the pipe left over dt and reports whether it is still on
// screen.
func (p *Pipe) Scroll(dt float64) bool {
	p.X -= PipeSpeed * dt
	return p.X+PipeWidth >= 0
}

// overlaps reports horizontal overlap between the pipe and the birds'
// shared column at StartX.
func (p *Pipe) overlaps() bool {
	return StartX+BirdWidth >= p.X && StartX <= p.X+PipeWidth
}

// World is the mutable match state. It is not safe for concurrent use; the
// room owns it from a single goroutine.
type World struct {
	Runners []*Runner
	Pipes   []*Pipe
	Tick    int64
}

// Reset prepares a fresh match. The runners are moved back to the spawn
// point and adopted in the given order.
func (w *World) Reset(runners ...*Runner) {
	w.Runners = w.Runners[:0]
	for _, r := range runners {
		r.reset()
		w.Runners = append(w.Runners, r)
	}
	w.Pipes = nil
	w.Tick = 0
}

// Runner returns the runner for id, or nil.
func (w *World) Runner(id int) *Runner {
	for _, r := range w.Runners {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Remove drops the runner for id, if present.
func (w *World) Remove(id int) {
	for i, r := range w.Runners {
		if r.ID == id {
			w.Runners = append(w.Runners[:i], w.Runners[i+1:]...)
			return
		}
	}
}

// Spawn appends a pipe at the right edge of the world.
func (w *World) Spawn(gapCenterY float64) *Pipe {
	p := &Pipe{X: WorldWidth, GapCenterY: gapCenterY}
	w.Pipes = append(w.Pipes, p)
	return p
}

// Jump applies an upward impulse to an alive runner. It reports whether the
// impulse was applied.
func (w *World) Jump(id int) bool {
	r := w.Runner(id)
	return r != nil && r.Jump()
}

// StepResult describes what changed during one Step.
type StepResult struct {
	Eliminated []int
	Scored     bool
}

// Changed reports whether the step altered anything visible in the room
// snapshot.
func (s StepResult) Changed() bool {
	return s.Scored || len(s.Eliminated) > 0
}

// Step advances the simulation by dt seconds and stamps eliminations with
// tick. Birds move first, then pipes, then collisions and scoring are
// resolved per alive runner.
func (w *World) Step(dt float64, tick int64) StepResult {
	w.Tick = tick
	var result StepResult

	for _, r := range w.Runners {
		if r.Alive {
			r.Fall(dt)
		}
	}
	w.Pipes = ScrollPipes(w.Pipes, dt)

	for _, r := range w.Runners {
		if !r.Alive {
			continue
		}
		if r.Y <= GroundHeight {
			r.Eliminate(tick)
			result.Eliminated = append(result.Eliminated, r.ID)
			continue
		}
		for _, p := range w.Pipes {
			if !p.Scored(r.ID) && p.X+PipeWidth < StartX {
				p.markScored(r.ID)
				r.Score++
				result.Scored = true
			}
			if p.overlaps() && (r.Y < p.GapBottom() || r.Y+BirdHeight > p.GapTop()) {
				r.Eliminate(tick)
				result.Eliminated = append(result.Eliminated, r.ID)
				break
			}
		}
	}
	return result
}

// ScrollPipes advances every pipe and drops those fully past the left edge,
// reusing the backing array.
func ScrollPipes(pipes []*Pipe, dt float64) []*Pipe {
	kept := pipes[:0]
	for _, p := range pipes {
		if p.Scroll(dt) {
			kept = append(kept, p)
		}
	}
	clear(pipes[len(kept):])
	return kept
}
