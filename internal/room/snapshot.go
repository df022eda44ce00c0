package room

import (
	"time"

	"github.com/ArenasTI/Flappy-Bird/internal/proto"
)

// Snapshot is an immutable copy of the room for readers outside the owning
// goroutine.
type Snapshot struct {
	State        proto.RoomState  `json:"state"`
	LastWinnerID int              `json:"lastWinnerId"`
	MatchID      string           `json:"matchId,omitempty"`
	Tick         int64            `json:"tick"`
	Pipes        int              `json:"pipes"`
	Players      []PlayerSnapshot `json:"players"`
}

// PlayerSnapshot describes one registered player.
type PlayerSnapshot struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Ready        bool    `json:"ready"`
	RematchReady bool    `json:"rematchReady"`
	Alive        bool    `json:"alive"`
	Score        int     `json:"score"`
	Y            float64 `json:"y"`
	IdleMs       int64   `json:"idleMs"`
}

// Snapshot copies the current state.
func (r *Room) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		State:        r.state,
		LastWinnerID: r.lastWinner,
		MatchID:      r.matchID,
		Tick:         r.tick,
		Pipes:        len(r.world.Pipes),
		Players:      make([]PlayerSnapshot, 0, r.dir.Len()),
	}
	for _, p := range r.dir.Players() {
		snap.Players = append(snap.Players, PlayerSnapshot{
			ID:           p.ID,
			Name:         p.Name,
			Address:      p.Addr.String(),
			Ready:        p.Ready,
			RematchReady: p.RematchReady,
			Alive:        p.Runner.Alive,
			Score:        p.Runner.Score,
			Y:            p.Runner.Y,
			IdleMs:       now.Sub(p.LastSeen).Milliseconds(),
		})
	}
	return snap
}
