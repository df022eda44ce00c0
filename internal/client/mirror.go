package client

import (
	"time"

	"github.com/ArenasTI/Flappy-Bird/internal/game"
)

// Outcome is the local view of a finished match.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeWin
	OutcomeLoss
	OutcomeDraw
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	case OutcomeDraw:
		return "draw"
	default:
		return "pending"
	}
}

// Mirror is a Listener that keeps the predicted world a renderer draws:
// both birds integrated locally with the shared constants, the pipes the
// server spawned, and the scores and outcome it announced.
//
// A Mirror is not safe for concurrent use. Register it with a session whose
// Scheduler runs on the same goroutine that calls Update.
type Mirror struct {
	now     func() time.Time
	localID int

	birds  [game.MaxPlayers + 1]*game.Runner
	pipes  []*game.Pipe
	scores [game.MaxPlayers + 1]int

	started bool
	startAt time.Time

	finished             bool
	outcome              Outcome
	opponentDisconnected bool
	status               string
	problem              string
}

// NewMirror returns a mirror for the local player id (0 if not yet known).
// now defaults to time.Now.
func NewMirror(localID int, now func() time.Time) *Mirror {
	if now == nil {
		now = time.Now
	}
	m := &Mirror{now: now, localID: localID}
	for id := 1; id <= game.MaxPlayers; id++ {
		m.birds[id] = game.NewRunner(id)
	}
	return m
}

func (m *Mirror) Connected(playerID int) {
	m.localID = playerID
}

func (m *Mirror) RoomUpdate(update RoomUpdate) {
	for _, p := range update.Players {
		if p.ID >= 1 && p.ID <= game.MaxPlayers {
			m.scores[p.ID] = p.Score
		}
	}
}

func (m *Mirror) StartGame(_, spawnY float64, delay time.Duration) {
	for _, bird := range m.birds[1:] {
		bird.Y = spawnY
		bird.Velocity = 0
		bird.Alive = true
		bird.EliminatedTick = game.NotEliminated
	}
	m.pipes = nil
	m.scores = [game.MaxPlayers + 1]int{}
	m.finished = false
	m.outcome = OutcomePending
	m.opponentDisconnected = false
	m.status, m.problem = "", ""
	m.started = false
	m.startAt = m.now().Add(max(delay, 0))
}

func (m *Mirror) RemoteJump(playerID int) {
	if m.finished || !m.started || playerID == m.localID {
		return
	}
	if bird := m.bird(playerID); bird != nil {
		bird.Jump()
	}
}

func (m *Mirror) SpawnPipe(gapCenterY float64) {
	if m.finished {
		return
	}
	m.pipes = append(m.pipes, &game.Pipe{X: game.WorldWidth, GapCenterY: gapCenterY})
}

func (m *Mirror) Eliminated(playerID int) {
	if m.finished {
		return
	}
	if bird := m.bird(playerID); bird != nil {
		bird.Eliminate(0)
	}
}

func (m *Mirror) GameFinished(winnerID int) {
	m.finished = true
	m.started = false
	switch {
	case m.opponentDisconnected:
		m.outcome = OutcomeWin
	case winnerID == game.Draw:
		m.outcome = OutcomeDraw
	case winnerID == m.localID:
		m.outcome = OutcomeWin
	default:
		m.outcome = OutcomeLoss
	}
}

func (m *Mirror) PlayerLeft(playerID int) {
	if playerID == m.localID {
		return
	}
	m.finished = true
	m.started = false
	m.outcome = OutcomeWin
	m.opponentDisconnected = true
	m.status, m.problem = "", ""
}

func (m *Mirror) ServerClosed(reason string) {
	m.stop("Match closed", reason)
}

func (m *Mirror) Error(message string) {
	m.stop("Connection error", message)
}

func (m *Mirror) stop(status, problem string) {
	if m.opponentDisconnected {
		return
	}
	m.finished = true
	m.started = false
	m.outcome = OutcomePending
	m.status, m.problem = status, problem
}

// Update advances the prediction by one rendered frame of dt seconds. Until
// the start delay has passed nothing moves.
func (m *Mirror) Update(dt float64) {
	if m.finished {
		return
	}
	if !m.started {
		if m.now().Before(m.startAt) {
			return
		}
		m.started = true
	}
	for _, bird := range m.birds[1:] {
		if bird.Alive {
			bird.Fall(dt)
		}
	}
	m.pipes = game.ScrollPipes(m.pipes, dt)
}

// LocalJump applies a jump to the local bird and reports whether the caller
// should forward it to the server.
func (m *Mirror) LocalJump() bool {
	if m.finished || !m.started {
		return false
	}
	bird := m.bird(m.localID)
	return bird != nil && bird.Jump()
}

func (m *Mirror) bird(id int) *game.Runner {
	if id < 1 || id > game.MaxPlayers {
		return nil
	}
	return m.birds[id]
}

// Bird returns a copy of a bird's predicted state.
func (m *Mirror) Bird(id int) (game.Runner, bool) {
	bird := m.bird(id)
	if bird == nil {
		return game.Runner{}, false
	}
	return *bird, true
}

// Pipes returns the predicted pipe positions.
func (m *Mirror) Pipes() []game.Pipe {
	out := make([]game.Pipe, 0, len(m.pipes))
	for _, p := range m.pipes {
		out = append(out, *p)
	}
	return out
}

// Score is the last score the server reported for id.
func (m *Mirror) Score(id int) int {
	if id < 1 || id > game.MaxPlayers {
		return 0
	}
	return m.scores[id]
}

func (m *Mirror) LocalID() int               { return m.localID }
func (m *Mirror) Started() bool              { return m.started }
func (m *Mirror) Finished() bool             { return m.finished }
func (m *Mirror) Outcome() Outcome           { return m.outcome }
func (m *Mirror) OpponentDisconnected() bool { return m.opponentDisconnected }

// Status returns the headline and detail shown when the match ended
// abnormally.
func (m *Mirror) Status() (status, detail string) {
	return m.status, m.problem
}
