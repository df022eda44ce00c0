package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/ArenasTI/Flappy-Bird/logging"
)

// Console writes one human readable line per event.
type Console struct {
	logger *log.Logger
}

func NewConsole(w io.Writer) *Console {
	return &Console{logger: log.New(w, "", log.LstdFlags)}
}

func (s *Console) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] severity=%s actor=%s", event.Type, event.Severity, formatEntity(event.Actor))
	if event.Tick > 0 {
		fmt.Fprintf(&b, " tick=%d", event.Tick)
	}
	if len(event.Targets) > 0 {
		parts := make([]string, 0, len(event.Targets))
		for _, target := range event.Targets {
			parts = append(parts, formatEntity(target))
		}
		fmt.Fprintf(&b, " targets=%s", strings.Join(parts, ","))
	}
	if event.TraceID != "" {
		fmt.Fprintf(&b, " match=%s", event.TraceID)
	}
	if event.Payload != nil {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			fmt.Fprintf(&b, " payload=%v", event.Payload)
		} else {
			fmt.Fprintf(&b, " payload=%s", data)
		}
	}
	s.logger.Print(b.String())
	return nil
}

func (s *Console) Close(context.Context) error {
	return nil
}

func formatEntity(ref logging.EntityRef) string {
	if ref.ID == "" {
		return string(ref.Kind)
	}
	if ref.Kind == "" {
		return ref.ID
	}
	return fmt.Sprintf("%s:%s", ref.Kind, ref.ID)
}
