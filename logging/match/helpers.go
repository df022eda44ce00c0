package match

import (
	"context"
	"time"

	"github.com/hako/durafmt"

	"github.com/ArenasTI/Flappy-Bird/logging"
)

const (
	// EventStarted is emitted when both players are ready and a match begins.
	EventStarted logging.EventType = "match.started"
	// EventPipeSpawned is emitted for every pipe added to the course.
	EventPipeSpawned logging.EventType = "match.pipe_spawned"
	// EventPlayerEliminated is emitted once per player per match.
	EventPlayerEliminated logging.EventType = "match.player_eliminated"
	// EventFinished is emitted when a winner or draw is decided.
	EventFinished logging.EventType = "match.finished"
)

// Finish reasons.
const (
	ReasonEliminated = "eliminated"
	ReasonDisconnect = "disconnect"
)

// StartedPayload captures the synchronized start parameters.
type StartedPayload struct {
	SpawnX       float64 `json:"spawnX"`
	SpawnY       float64 `json:"spawnY"`
	StartDelayMs int64   `json:"startDelayMs"`
	Rematch      bool    `json:"rematch"`
}

type PipeSpawnedPayload struct {
	GapCenterY float64 `json:"gapCenterY"`
}

// EliminatedPayload captures the final score of the eliminated player.
type EliminatedPayload struct {
	Score int `json:"score"`
}

// FinishedPayload captures the outcome. WinnerID 0 is a draw.
type FinishedPayload struct {
	WinnerID int    `json:"winnerId"`
	Reason   string `json:"reason"`
	Duration string `json:"duration"`
}

func Started(ctx context.Context, pub logging.Publisher, matchID string, payload StartedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventStarted,
		Actor:    logging.RoomRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
		TraceID:  matchID,
	})
}

func PipeSpawned(ctx context.Context, pub logging.Publisher, matchID string, tick uint64, payload PipeSpawnedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPipeSpawned,
		Tick:     tick,
		Actor:    logging.RoomRef(),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryMatch,
		Payload:  payload,
		TraceID:  matchID,
	})
}

func PlayerEliminated(ctx context.Context, pub logging.Publisher, matchID string, tick uint64, playerID int, payload EliminatedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerEliminated,
		Tick:     tick,
		Actor:    logging.PlayerRef(playerID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload:  payload,
		TraceID:  matchID,
	})
}

// Finished publishes the outcome. elapsed is measured from the end of the
// grace period; a negative value means the match never left it.
func Finished(ctx context.Context, pub logging.Publisher, matchID string, tick uint64, winnerID int, reason string, elapsed time.Duration) {
	if pub == nil {
		return
	}
	if elapsed < 0 {
		elapsed = 0
	}
	event := logging.Event{
		Type:     EventFinished,
		Tick:     tick,
		Actor:    logging.RoomRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryMatch,
		Payload: FinishedPayload{
			WinnerID: winnerID,
			Reason:   reason,
			Duration: durafmt.Parse(elapsed.Truncate(time.Millisecond)).LimitFirstN(2).String(),
		},
		TraceID: matchID,
	}
	if winnerID > 0 {
		event.Targets = []logging.EntityRef{logging.PlayerRef(winnerID)}
	}
	pub.Publish(ctx, event)
}
