package monitor

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ArenasTI/Flappy-Bird/internal/proto"
	"github.com/ArenasTI/Flappy-Bird/internal/room"
	"github.com/ArenasTI/Flappy-Bird/internal/server"
)

type staticSource struct {
	snap server.Snapshot
}

func (s staticSource) Snapshot() server.Snapshot { return s.snap }

var startedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler() *Handler {
	source := staticSource{snap: server.Snapshot{
		Port:      proto.DefaultPort,
		StartedAt: startedAt,
		Room: room.Snapshot{
			State: proto.RoomWaiting,
			Players: []room.PlayerSnapshot{
				{ID: 1, Name: "Alice", Ready: true, Alive: true},
			},
		},
	}}
	return NewHandler(source, HandlerConfig{
		FeedInterval: 10 * time.Millisecond,
		LANAddress:   "192.168.1.20",
		Now:          func() time.Time { return startedAt.Add(90 * time.Second) },
	})
}

func TestHealth(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestDiagnosticsDocument(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/diagnostics", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var doc Diagnostics
	if err := json.Unmarshal(resp.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to decode diagnostics: %v", err)
	}
	if doc.Status != "ok" || doc.UptimeMillis != 90_000 {
		t.Fatalf("unexpected diagnostics header: %+v", doc)
	}
	if !strings.Contains(doc.Uptime, "minute") {
		t.Fatalf("uptime not humanized: %q", doc.Uptime)
	}
	if doc.LANAddress != "192.168.1.20" || doc.Server.Port != proto.DefaultPort {
		t.Fatalf("server fields missing: %+v", doc)
	}
	if len(doc.Server.Room.Players) != 1 || doc.Server.Room.Players[0].Name != "Alice" {
		t.Fatalf("room players missing: %+v", doc.Server.Room)
	}
}

func TestDiagnosticsRejectsWrites(t *testing.T) {
	handler := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/diagnostics", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.Code)
	}
}

func TestFeedPushesDiagnostics(t *testing.T) {
	srv := httptest.NewServer(newTestHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial feed: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var doc Diagnostics
		if err := conn.ReadJSON(&doc); err != nil {
			t.Fatalf("read push %d: %v", i, err)
		}
		if doc.Server.Room.State != proto.RoomWaiting {
			t.Fatalf("push %d carried state %q", i, doc.Server.Room.State)
		}
	}
}
