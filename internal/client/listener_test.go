package client

import (
	"fmt"
	"testing"
	"time"
)

var (
	_ Listener = NopListener{}
	_ Listener = (*Mirror)(nil)
	_ Listener = (*recorder)(nil)
)

// recorder renders every callback as a short string on a channel.
type recorder struct {
	events chan string
}

func newRecorder() *recorder {
	return &recorder{events: make(chan string, 128)}
}

func (r *recorder) push(format string, args ...any) {
	r.events <- fmt.Sprintf(format, args...)
}

func (r *recorder) Connected(id int) { r.push("connected:%d", id) }
func (r *recorder) RoomUpdate(u RoomUpdate) {
	r.push("room:%s:%d:%d", u.State, u.LastWinnerID, len(u.Players))
}
func (r *recorder) StartGame(x, y float64, d time.Duration) { r.push("start:%.2f:%.2f:%s", x, y, d) }
func (r *recorder) RemoteJump(id int)                       { r.push("jump:%d", id) }
func (r *recorder) SpawnPipe(c float64)                     { r.push("spawn:%.2f", c) }
func (r *recorder) Eliminated(id int)                       { r.push("eliminated:%d", id) }
func (r *recorder) GameFinished(id int)                     { r.push("fin:%d", id) }
func (r *recorder) PlayerLeft(id int)                       { r.push("left:%d", id) }
func (r *recorder) ServerClosed(reason string)              { r.push("closed:%s", reason) }
func (r *recorder) Error(message string)                    { r.push("error:%s", message) }

// next returns the next event or fails after timeout.
func (r *recorder) next(t *testing.T, timeout time.Duration) string {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case <-time.After(timeout):
		t.Fatalf("no listener event within %s", timeout)
		return ""
	}
}

// waitFor skips events until want arrives.
func (r *recorder) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case e := <-r.events:
			if e == want {
				return
			}
		case <-deadline:
			t.Fatalf("never saw event %q", want)
		}
	}
}

func (r *recorder) empty() bool {
	return len(r.events) == 0
}
