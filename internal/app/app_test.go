package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ArenasTI/Flappy-Bird/internal/config"
	"github.com/ArenasTI/Flappy-Bird/internal/telemetry"
	"github.com/ArenasTI/Flappy-Bird/logging"
	"github.com/ArenasTI/Flappy-Bird/logging/lifecycle"
)

func TestRunServesRoomAndMonitor(t *testing.T) {
	eventLog := filepath.Join(t.TempDir(), "events.jsonl")
	settings := config.Config{
		UDPPort:     0,
		MonitorAddr: "127.0.0.1:0",
		LogJSONPath: eventLog,
		LogLevel:    logging.SeverityInfo,
		Seed:        7,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan Info, 1)
	result := make(chan error, 1)
	go func() {
		result <- Run(ctx, Config{
			Settings: settings,
			Logger:   telemetry.LoggerFunc(t.Logf),
			Console:  io.Discard,
			Ready:    func(info Info) { ready <- info },
		})
	}()

	var info Info
	select {
	case info = <-ready:
	case err := <-result:
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatalf("run never became ready")
	}

	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: int(info.UDP.Port())})
	if err != nil {
		t.Fatalf("dial room: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("HELLO:Tester")); err != nil {
		t.Fatalf("send hello: %v", err)
	}
	buf := make([]byte, 1024)
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if got := string(buf[:n]); got != "WELCOME:1" {
		t.Fatalf("expected WELCOME:1, got %q", got)
	}

	resp, err := http.Get("http://" + info.Monitor + "/health")
	if err != nil {
		t.Fatalf("monitor health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("monitor health status %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	sawClosed := false
	for !sawClosed {
		n, err := conn.Read(buf)
		if err != nil {
			break
		}
		sawClosed = string(buf[:n]) == "SERVER_CLOSED"
	}
	if !sawClosed {
		t.Fatalf("player was not told the server closed")
	}

	data, err := os.ReadFile(eventLog)
	if err != nil {
		t.Fatalf("read event log: %v", err)
	}
	if !strings.Contains(string(data), string(lifecycle.EventPlayerJoined)) {
		t.Fatalf("event log missing join: %s", data)
	}
}

func TestRunFailsOnBusyMonitorAddress(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()

	err = Run(context.Background(), Config{
		Settings: config.Config{MonitorAddr: busy.Addr().String()},
		Logger:   telemetry.LoggerFunc(t.Logf),
		Console:  io.Discard,
	})
	if err == nil || !strings.Contains(err.Error(), "monitor listen") {
		t.Fatalf("expected monitor listen error, got %v", err)
	}
}
