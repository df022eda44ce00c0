package client

import (
	"fmt"
	"time"

	"github.com/ArenasTI/Flappy-Bird/internal/proto"
)

// Listener receives the semantic events of a session. Calls arrive through
// the session's Scheduler, never concurrently with each other when the
// scheduler is a Queue.
type Listener interface {
	Connected(playerID int)
	RoomUpdate(update RoomUpdate)
	StartGame(spawnX, spawnY float64, delay time.Duration)
	RemoteJump(playerID int)
	SpawnPipe(gapCenterY float64)
	Eliminated(playerID int)
	GameFinished(winnerID int)
	PlayerLeft(playerID int)
	ServerClosed(reason string)
	Error(message string)
}

// RoomUpdate is the decoded ROOM snapshot.
type RoomUpdate struct {
	State        proto.RoomState
	LastWinnerID int
	Players      []proto.PlayerEntry
}

// NopListener ignores every event. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) Connected(int)                             {}
func (NopListener) RoomUpdate(RoomUpdate)                     {}
func (NopListener) StartGame(float64, float64, time.Duration) {}
func (NopListener) RemoteJump(int)                            {}
func (NopListener) SpawnPipe(float64)                         {}
func (NopListener) Eliminated(int)                            {}
func (NopListener) GameFinished(int)                          {}
func (NopListener) PlayerLeft(int)                            {}
func (NopListener) ServerClosed(string)                       {}
func (NopListener) Error(string)                              {}

// FormatPlayer renders a lobby line such as "P1 - Alice [READY] [S:3] [ALIVE]".
func FormatPlayer(p proto.PlayerEntry) string {
	ready := "[WAIT]"
	if p.Ready {
		ready = "[READY]"
	}
	alive := "[OUT]"
	if p.Alive {
		alive = "[ALIVE]"
	}
	return fmt.Sprintf("P%d - %s %s [S:%d] %s", p.ID, p.Name, ready, p.Score, alive)
}
