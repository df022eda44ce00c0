// Package monitor exposes a running room server over HTTP for operators and
// monitoring UIs: a health probe, a JSON diagnostics document and a
// websocket feed that pushes the same document periodically.
package monitor

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hako/durafmt"

	"github.com/ArenasTI/Flappy-Bird/internal/server"
	"github.com/ArenasTI/Flappy-Bird/internal/telemetry"
)

const (
	writeWait           = 10 * time.Second
	defaultFeedInterval = 500 * time.Millisecond
)

// Source is the read side of a running server.
type Source interface {
	Snapshot() server.Snapshot
}

// Diagnostics is the document served by /diagnostics and pushed on /ws.
type Diagnostics struct {
	Status       string          `json:"status" jsonschema:"enum=ok"`
	ServerTime   int64           `json:"serverTime" jsonschema:"description=Unix milliseconds when the document was built"`
	Uptime       string          `json:"uptime" jsonschema:"description=Human readable time since the room opened"`
	UptimeMillis int64           `json:"uptimeMillis"`
	LANAddress   string          `json:"lanAddress,omitempty" jsonschema:"description=Address players on the local network connect to"`
	Server       server.Snapshot `json:"server"`
}

type HandlerConfig struct {
	Logger telemetry.Logger
	// FeedInterval is the /ws push period.
	FeedInterval time.Duration
	// LANAddress is advertised to operators so players know where to join.
	LANAddress string
	Now        func() time.Time
}

type Handler struct {
	source   Source
	logger   telemetry.Logger
	interval time.Duration
	lan      string
	now      func() time.Time
	upgrader websocket.Upgrader
	mux      *nethttp.ServeMux
}

func NewHandler(source Source, cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	interval := cfg.FeedInterval
	if interval <= 0 {
		interval = defaultFeedInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	h := &Handler{
		source:   source,
		logger:   logger,
		interval: interval,
		lan:      cfg.LANAddress,
		now:      now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
		mux: nethttp.NewServeMux(),
	}

	h.mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	h.mux.HandleFunc("/diagnostics", h.serveDiagnostics)
	h.mux.HandleFunc("/ws", h.serveFeed)
	return h
}

func (h *Handler) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	h.mux.ServeHTTP(w, r)
}

// Diagnostics builds the current document.
func (h *Handler) Diagnostics() Diagnostics {
	now := h.now()
	snap := h.source.Snapshot()
	uptime := max(now.Sub(snap.StartedAt), 0)
	return Diagnostics{
		Status:       "ok",
		ServerTime:   now.UnixMilli(),
		Uptime:       durafmt.Parse(uptime.Truncate(time.Second)).LimitFirstN(2).String(),
		UptimeMillis: uptime.Milliseconds(),
		LANAddress:   h.lan,
		Server:       snap,
	}
}

func (h *Handler) serveDiagnostics(w nethttp.ResponseWriter, r *nethttp.Request) {
	if r.Method != nethttp.MethodGet {
		nethttp.Error(w, "method not allowed", nethttp.StatusMethodNotAllowed)
		return
	}
	data, err := json.Marshal(h.Diagnostics())
	if err != nil {
		nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
