package room

import (
	"math"
	"net/netip"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ArenasTI/Flappy-Bird/internal/game"
	"github.com/ArenasTI/Flappy-Bird/internal/proto"
	"github.com/ArenasTI/Flappy-Bird/logging/lifecycle"
	"github.com/ArenasTI/Flappy-Bird/logging/match"
	"github.com/ArenasTI/Flappy-Bird/logging/network"
	"github.com/ArenasTI/Flappy-Bird/logging/sinks"
)

var (
	alice = netip.MustParseAddrPort("10.0.0.1:40000")
	bob   = netip.MustParseAddrPort("10.0.0.1:40001")
	carol = netip.MustParseAddrPort("10.0.0.2:40000")
	base  = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
)

type delivery struct {
	to   netip.AddrPort
	wire string
}

type recordingOutbox struct {
	sent []delivery
}

func (o *recordingOutbox) Send(to netip.AddrPort, msg proto.Message) {
	o.sent = append(o.sent, delivery{to: to, wire: string(proto.Encode(msg))})
}

func (o *recordingOutbox) count(to netip.AddrPort, wire string) int {
	n := 0
	for _, d := range o.sent {
		if d.to == to && d.wire == wire {
			n++
		}
	}
	return n
}

func (o *recordingOutbox) countPrefix(to netip.AddrPort, prefix string) int {
	n := 0
	for _, d := range o.sent {
		if d.to == to && strings.HasPrefix(d.wire, prefix) {
			n++
		}
	}
	return n
}

func (o *recordingOutbox) last(to netip.AddrPort, prefix string) string {
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].to == to && strings.HasPrefix(o.sent[i].wire, prefix) {
			return o.sent[i].wire
		}
	}
	return ""
}

func (o *recordingOutbox) reset() {
	o.sent = nil
}

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

type denyAll struct{}

func (denyAll) Allow() bool { return false }

func newTestRoom(t *testing.T) (*Room, *recordingOutbox, *sinks.Memory) {
	t.Helper()
	out := &recordingOutbox{}
	events := sinks.NewMemory()
	ids := 0
	r := New(DefaultConfig(), Deps{
		Outbox:    out,
		Rand:      constRand(0.5),
		Publisher: events,
		NewMatchID: func() string {
			ids++
			return "match-" + strconv.Itoa(ids)
		},
	})
	return r, out, events
}

// startedRoom registers alice and bob and readies both at base+10ms.
func startedRoom(t *testing.T) (*Room, *recordingOutbox, *sinks.Memory, time.Time) {
	t.Helper()
	r, out, events := newTestRoom(t)
	r.Handle(alice, proto.Hello{Name: "Alice"}, base)
	r.Handle(bob, proto.Hello{Name: "Bob"}, base)
	started := base.Add(10 * time.Millisecond)
	r.Handle(alice, proto.Ready{Ready: true}, started)
	r.Handle(bob, proto.Ready{Ready: true}, started)
	if r.State() != proto.RoomPlaying {
		t.Fatalf("expected PLAYING, got %s", r.State())
	}
	return r, out, events, started
}

// runUntilFinished drives the loop at the server's poll cadence from the end
// of the grace period.
func runUntilFinished(t *testing.T, r *Room, from time.Time, onPoll func(time.Time)) time.Time {
	t.Helper()
	now := from
	r.Advance(now.Add(-time.Millisecond))
	for i := 0; i < 500 && r.State() == proto.RoomPlaying; i++ {
		now = now.Add(16 * time.Millisecond)
		if onPoll != nil {
			onPoll(now)
		}
		r.Advance(now)
	}
	if r.State() == proto.RoomPlaying {
		t.Fatalf("match never finished")
	}
	return now
}

func TestHelloAssignsLowestFreeSlot(t *testing.T) {
	r, out, _ := newTestRoom(t)

	r.Handle(alice, proto.Hello{Name: "Alice"}, base)
	r.Handle(bob, proto.Hello{Name: "Bob"}, base)
	r.Handle(carol, proto.Hello{Name: "Carol"}, base)

	if out.count(alice, "WELCOME:1") != 1 || out.count(bob, "WELCOME:2") != 1 {
		t.Fatalf("unexpected welcomes: %+v", out.sent)
	}
	if out.count(carol, "ERROR:SERVER_FULL") != 1 {
		t.Fatalf("third player should be rejected")
	}
	if got := out.last(alice, "ROOM:"); got != "ROOM:WAITING:0:2:1,Alice,0,0,1|2,Bob,0,0,1" {
		t.Fatalf("unexpected room snapshot %q", got)
	}

	r.Handle(alice, proto.Leave{PlayerID: 1}, base)
	if out.count(bob, "CLIENT_LEFT:1") != 1 {
		t.Fatalf("bob should be told alice left")
	}
	r.Handle(carol, proto.Hello{Name: "Carol"}, base)
	if out.count(carol, "WELCOME:1") != 1 {
		t.Fatalf("carol should take the freed slot 1")
	}
}

func TestRepeatedHelloRefreshesRegistration(t *testing.T) {
	r, out, events := newTestRoom(t)

	r.Handle(alice, proto.Hello{Name: "Alice"}, base)
	later := base.Add(time.Second)
	r.Handle(alice, proto.Hello{Name: "Ally:|,"}, later)

	if r.Directory().Len() != 1 {
		t.Fatalf("re-HELLO must not allocate a slot, have %d", r.Directory().Len())
	}
	p := r.Directory().FindByID(1)
	if p.Name != "Ally" || !p.LastSeen.Equal(later) {
		t.Fatalf("registration not refreshed: %+v", p)
	}
	if out.count(alice, "WELCOME:1") != 2 {
		t.Fatalf("expected WELCOME re-sent")
	}
	if len(events.OfType(lifecycle.EventPlayerRejoined)) != 1 {
		t.Fatalf("expected a rejoin event")
	}
}

func TestHelloWithBlankNameGetsDefault(t *testing.T) {
	r, _, _ := newTestRoom(t)
	r.Handle(alice, proto.Hello{Name: "   "}, base)
	if got := r.Directory().FindByID(1).Name; got != proto.DefaultPlayerName {
		t.Fatalf("name = %q", got)
	}
}

func TestUnknownSenderIsRejected(t *testing.T) {
	r, out, events := newTestRoom(t)

	r.Handle(carol, proto.Ready{Ready: true}, base)
	r.Handle(carol, proto.Ping{}, base)
	r.HandleMalformed(carol, "DANCE", base)

	if out.count(carol, "ERROR:INVALID_MSG") != 2 {
		t.Fatalf("expected two INVALID_MSG replies, got %+v", out.sent)
	}
	if out.count(carol, "PONG") != 1 {
		t.Fatalf("PING from unknown sender must be answered")
	}
	if r.Directory().Len() != 0 || r.State() != proto.RoomWaiting {
		t.Fatalf("unknown sender mutated the room")
	}
	if len(events.OfType(network.EventMessageRejected)) != 2 {
		t.Fatalf("expected rejection events")
	}
}

func TestRejectionsAreRateLimited(t *testing.T) {
	out := &recordingOutbox{}
	r := New(DefaultConfig(), Deps{Outbox: out, Rand: constRand(0), Rejects: denyAll{}})
	r.Handle(carol, proto.Jump{}, base)
	if len(out.sent) != 0 {
		t.Fatalf("limited rejection still sent: %+v", out.sent)
	}
}

func TestMalformedFromKnownSenderKeepsItAlive(t *testing.T) {
	r, out, _ := newTestRoom(t)
	r.Handle(alice, proto.Hello{Name: "Alice"}, base)
	out.reset()

	r.HandleMalformed(alice, "JUNK", base.Add(1500*time.Millisecond))
	r.SweepTimeouts(base.Add(2 * time.Second))

	if r.Directory().Len() != 1 || len(out.sent) != 0 {
		t.Fatalf("known sender should be refreshed silently")
	}
}

func TestReadyStartsMatchExactlyOnce(t *testing.T) {
	r, out, events := newTestRoom(t)
	r.Handle(alice, proto.Hello{Name: "Alice"}, base)
	r.Handle(bob, proto.Hello{Name: "Bob"}, base)

	r.Handle(alice, proto.Ready{Ready: true}, base)
	if r.State() != proto.RoomWaiting {
		t.Fatalf("one ready player must not start the match")
	}
	p := r.Directory().FindByID(2)
	p.Runner.Score = 4
	p.Runner.Y = 12

	r.Handle(bob, proto.Ready{Ready: true}, base)
	r.Handle(bob, proto.Ready{Ready: true}, base)

	for _, addr := range []netip.AddrPort{alice, bob} {
		if n := out.count(addr, "START_GAME:24.00:100.00:1200"); n != 1 {
			t.Fatalf("%s got %d START_GAME", addr, n)
		}
	}
	for _, pl := range r.Directory().Players() {
		if pl.Runner.Score != 0 || !pl.Runner.Alive || pl.Runner.Y != game.StartY || pl.Runner.EliminatedTick != game.NotEliminated {
			t.Fatalf("player %d not reset: %+v", pl.ID, pl.Runner)
		}
	}
	started := events.OfType(match.EventStarted)
	if len(started) != 1 || started[0].TraceID != "match-1" {
		t.Fatalf("unexpected start events %+v", started)
	}
}

func TestReadyZeroUnreadies(t *testing.T) {
	r, _, _ := newTestRoom(t)
	r.Handle(alice, proto.Hello{Name: "Alice"}, base)
	r.Handle(alice, proto.Ready{Ready: true}, base)
	r.Handle(alice, proto.Ready{Ready: false}, base)
	if r.Directory().FindByID(1).Ready {
		t.Fatalf("READY:0 should clear the flag")
	}
}

func TestGracePeriodAndJump(t *testing.T) {
	r, out, _, started := startedRoom(t)
	runner := r.Directory().FindByID(1).Runner
	graceEnds := started.Add(game.StartDelay)

	r.Advance(started.Add(600 * time.Millisecond))
	r.Handle(alice, proto.Jump{}, started.Add(600*time.Millisecond))
	if runner.Y != game.StartY || out.countPrefix(bob, "JUMP:") != 0 {
		t.Fatalf("nothing may move during the grace period")
	}

	r.Advance(graceEnds.Add(-time.Millisecond))
	r.Advance(graceEnds)
	r.Advance(graceEnds.Add(9 * time.Millisecond))
	if runner.Y >= game.StartY {
		t.Fatalf("gravity should pull the bird down, y=%f", runner.Y)
	}
	if want := -game.Gravity * game.FixedStep; math.Abs(runner.Velocity-want) > 1e-9 {
		t.Fatalf("velocity = %f, want %f", runner.Velocity, want)
	}

	r.Handle(alice, proto.Jump{}, graceEnds.Add(10*time.Millisecond))
	if runner.Velocity != game.JumpVelocity {
		t.Fatalf("jump velocity = %f", runner.Velocity)
	}
	if out.count(alice, "JUMP:1") != 1 || out.count(bob, "JUMP:1") != 1 {
		t.Fatalf("jump must be relayed to both players")
	}

	r.Advance(graceEnds.Add(20 * time.Millisecond))
	if runner.Velocity >= game.JumpVelocity {
		t.Fatalf("gravity should decelerate after the jump, vel=%f", runner.Velocity)
	}
}

func TestSimultaneousFallIsDraw(t *testing.T) {
	r, out, events, started := startedRoom(t)
	runUntilFinished(t, r, started.Add(game.StartDelay), nil)

	if r.State() != proto.RoomFinished || r.LastWinner() != game.Draw {
		t.Fatalf("expected a draw, got state %s winner %d", r.State(), r.LastWinner())
	}
	for _, addr := range []netip.AddrPort{alice, bob} {
		if out.count(addr, "ELIMINATED:1") != 1 || out.count(addr, "ELIMINATED:2") != 1 {
			t.Fatalf("each elimination must be broadcast exactly once")
		}
		if out.count(addr, "FIN:0") != 1 {
			t.Fatalf("expected FIN:0 once")
		}
	}
	for _, p := range r.Directory().Players() {
		if p.Ready || p.RematchReady {
			t.Fatalf("flags must be cleared on finish: %+v", p)
		}
	}
	if got := len(events.OfType(match.EventFinished)); got != 1 {
		t.Fatalf("finished events = %d", got)
	}
}

func TestSurvivorWins(t *testing.T) {
	r, out, _, started := startedRoom(t)
	runner := r.Directory().FindByID(1).Runner

	runUntilFinished(t, r, started.Add(game.StartDelay), func(now time.Time) {
		if runner.Alive && runner.Y < game.StartY && runner.Velocity < 0 {
			r.Handle(alice, proto.Jump{}, now)
		}
	})

	if r.LastWinner() != 1 || out.count(bob, "FIN:1") != 1 {
		t.Fatalf("alice kept flying and should win, winner=%d", r.LastWinner())
	}
}

func TestLaterEliminationTickWins(t *testing.T) {
	r, out, _, started := startedRoom(t)
	graceEnds := started.Add(game.StartDelay)
	r.Advance(graceEnds.Add(-time.Millisecond))

	first := r.Directory().FindByID(1).Runner
	second := r.Directory().FindByID(2).Runner
	first.Alive, first.EliminatedTick = false, 80
	second.Alive, second.EliminatedTick = false, 50

	r.Advance(graceEnds.Add(16 * time.Millisecond))
	if out.count(alice, "FIN:1") != 1 || r.LastWinner() != 1 {
		t.Fatalf("player eliminated at tick 80 should win, winner=%d", r.LastWinner())
	}
}

func TestRematchNeedsBothVotes(t *testing.T) {
	r, out, events, started := startedRoom(t)

	r.Handle(alice, proto.Rematch{Vote: true}, started)
	if r.Directory().FindByID(1).RematchReady {
		t.Fatalf("rematch votes are ignored outside FINISHED")
	}

	finishedAt := runUntilFinished(t, r, started.Add(game.StartDelay), nil)
	for _, p := range r.Directory().Players() {
		p.Runner.Score = 3
	}
	out.reset()

	r.Handle(alice, proto.Rematch{Vote: true}, finishedAt)
	if r.State() != proto.RoomFinished || out.countPrefix(alice, "START_GAME") != 0 {
		t.Fatalf("one vote must not restart the match")
	}
	r.Handle(bob, proto.Rematch{Vote: true}, finishedAt)
	if r.State() != proto.RoomPlaying || out.count(bob, "START_GAME:24.00:100.00:1200") != 1 {
		t.Fatalf("both votes should restart the match")
	}
	if got := out.last(alice, "ROOM:"); got != "ROOM:PLAYING:0:2:1,Alice,0,0,1|2,Bob,0,0,1" {
		t.Fatalf("scores not reset in %q", got)
	}
	started2 := events.OfType(match.EventStarted)
	if len(started2) != 2 || started2[1].TraceID != "match-2" {
		t.Fatalf("expected a second match id, got %+v", started2)
	}
	if payload, ok := started2[1].Payload.(match.StartedPayload); !ok || !payload.Rematch {
		t.Fatalf("second start should be flagged as rematch")
	}
}

func TestTimeoutEvictsOnce(t *testing.T) {
	r, out, _ := newTestRoom(t)
	r.Handle(alice, proto.Hello{Name: "Alice"}, base)
	r.Handle(bob, proto.Hello{Name: "Bob"}, base)
	r.Handle(alice, proto.Ping{}, base.Add(time.Second))

	r.SweepTimeouts(base.Add(1799 * time.Millisecond))
	if r.Directory().Len() != 2 {
		t.Fatalf("nobody is stale yet")
	}

	r.SweepTimeouts(base.Add(1800 * time.Millisecond))
	r.SweepTimeouts(base.Add(1900 * time.Millisecond))
	if out.count(alice, "CLIENT_LEFT:2") != 1 {
		t.Fatalf("expected exactly one CLIENT_LEFT:2, got %d", out.count(alice, "CLIENT_LEFT:2"))
	}
	if r.Directory().FindByID(2) != nil || r.Directory().FindByID(1) == nil {
		t.Fatalf("wrong player evicted")
	}
	if got := out.last(alice, "ROOM:"); got != "ROOM:WAITING:0:1:1,Alice,0,0,1" {
		t.Fatalf("unexpected room after eviction %q", got)
	}
}

func TestDisconnectDuringMatchAwardsSurvivor(t *testing.T) {
	r, out, _, started := startedRoom(t)

	r.Handle(alice, proto.Leave{PlayerID: 1}, started.Add(100*time.Millisecond))

	if out.count(bob, "CLIENT_LEFT:1") != 1 || out.count(bob, "FIN:2") != 1 {
		t.Fatalf("bob should be told alice left and that he won")
	}
	if r.State() != proto.RoomWaiting || r.LastWinner() != 2 {
		t.Fatalf("expected WAITING with winner 2, got %s/%d", r.State(), r.LastWinner())
	}
	if got := out.last(bob, "ROOM:"); got != "ROOM:WAITING:2:1:2,Bob,0,0,1" {
		t.Fatalf("unexpected room %q", got)
	}
	if out.count(alice, "FIN:2") != 0 {
		t.Fatalf("the leaver is no longer addressed")
	}
}

func TestTimeoutOfBothDuringMatchIsDraw(t *testing.T) {
	r, out, _, started := startedRoom(t)
	out.reset()
	r.SweepTimeouts(started.Add(2 * time.Second))
	if r.State() != proto.RoomWaiting || r.LastWinner() != game.Draw {
		t.Fatalf("expected WAITING after a draw, got %s/%d", r.State(), r.LastWinner())
	}
	if len(out.sent) != 0 {
		t.Fatalf("nobody is left to address: %+v", out.sent)
	}
}

func TestEmptyRoomMessage(t *testing.T) {
	r, _, _ := newTestRoom(t)
	if got := string(proto.Encode(r.RoomMessage())); got != "ROOM:WAITING:0:0:" {
		t.Fatalf("empty room encodes as %q", got)
	}
}

func TestSpawnFollowsSchedule(t *testing.T) {
	r, out, _, started := startedRoom(t)
	graceEnds := started.Add(game.StartDelay)
	firstSpawn := graceEnds.Add(game.RandomSpawnInterval(constRand(0.5)))

	r.Advance(graceEnds.Add(-time.Millisecond))
	now := graceEnds
	for now.Before(firstSpawn) {
		r.Advance(now)
		for _, p := range r.Directory().Players() {
			p.Runner.Y, p.Runner.Velocity = game.StartY, 0
		}
		now = now.Add(16 * time.Millisecond)
	}
	if out.countPrefix(alice, "SPAWN:") != 0 {
		t.Fatalf("spawned before schedule")
	}
	r.Advance(now)
	if out.count(alice, "SPAWN:100.00") != 1 {
		t.Fatalf("expected one SPAWN at the scheduled time: %+v", out.last(alice, "SPAWN"))
	}
	if snap := r.Snapshot(now); snap.Pipes != 1 || snap.MatchID != "match-1" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestShutdownNotifiesPlayers(t *testing.T) {
	r, out, events := newTestRoom(t)
	r.Handle(alice, proto.Hello{Name: "Alice"}, base)
	r.Shutdown()
	if out.count(alice, "SERVER_CLOSED") != 1 {
		t.Fatalf("expected SERVER_CLOSED")
	}
	if len(events.OfType(network.EventServerClosed)) != 1 {
		t.Fatalf("expected a server closed event")
	}
}
