package monitor

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/gorilla/websocket"
)

// serveFeed pushes Diagnostics until the viewer goes away. Viewers never
// send anything meaningful; the read loop only notices the close.
func (h *Handler) serveFeed(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("monitor upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.push(conn); err != nil {
			h.logger.Printf("monitor feed to %s ended: %v", r.RemoteAddr, err)
			return
		}
		select {
		case <-gone:
			return
		case <-r.Context().Done():
			message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopping")
			conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
			return
		case <-ticker.C:
		}
	}
}

func (h *Handler) push(conn *websocket.Conn) error {
	data, err := json.Marshal(h.Diagnostics())
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}
