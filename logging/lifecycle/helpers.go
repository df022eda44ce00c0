package lifecycle

import (
	"context"

	"github.com/ArenasTI/Flappy-Bird/logging"
)

const (
	// EventPlayerJoined is emitted when a new address is given a slot.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerRejoined is emitted when a known address repeats HELLO.
	EventPlayerRejoined logging.EventType = "lifecycle.player_rejoined"
	// EventPlayerLeft is emitted when a slot is released.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
)

const (
	ReasonLeave   = "leave"
	ReasonTimeout = "timeout"
)

type PlayerJoinedPayload struct {
	Name   string `json:"name"`
	Remote string `json:"remote"`
}

// PlayerLeftPayload captures why a slot was released.
type PlayerLeftPayload struct {
	Reason string `json:"reason"`
}

func PlayerJoined(ctx context.Context, pub logging.Publisher, playerID int, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Actor:    logging.PlayerRef(playerID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

func PlayerRejoined(ctx context.Context, pub logging.Publisher, playerID int, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerRejoined,
		Actor:    logging.PlayerRef(playerID),
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

func PlayerLeft(ctx context.Context, pub logging.Publisher, playerID int, payload PlayerLeftPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerLeft,
		Actor:    logging.PlayerRef(playerID),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
