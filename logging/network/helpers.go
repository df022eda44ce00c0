package network

import (
	"context"

	"github.com/ArenasTI/Flappy-Bird/logging"
)

const (
	// EventMessageRejected is emitted when a datagram is answered with ERROR.
	EventMessageRejected logging.EventType = "network.message_rejected"
	// EventServerClosed is emitted once when the server broadcasts its shutdown.
	EventServerClosed logging.EventType = "network.server_closed"
)

// RejectedPayload captures the error code and the offending peer.
type RejectedPayload struct {
	Code    string `json:"code"`
	Command string `json:"command,omitempty"`
}

type ServerClosedPayload struct {
	Players int `json:"players"`
}

func MessageRejected(ctx context.Context, pub logging.Publisher, remote string, payload RejectedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMessageRejected,
		Actor:    logging.EntityRef{ID: remote, Kind: logging.EntityKindPeer},
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}

func ServerClosed(ctx context.Context, pub logging.Publisher, payload ServerClosedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventServerClosed,
		Actor:    logging.RoomRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryNetwork,
		Payload:  payload,
	})
}
