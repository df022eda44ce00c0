// Package client is the player side of the room protocol: a session that
// joins a server over UDP, keeps the connection alive and turns server
// datagrams into Listener calls.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ArenasTI/Flappy-Bird/internal/proto"
	"github.com/ArenasTI/Flappy-Bird/internal/telemetry"
)

// Options describe a join attempt.
type Options struct {
	Name string
	Host string
	Port int

	// Listener receives events from the first datagram on. It may be
	// replaced later with SetListener.
	Listener Listener
	// Scheduler defaults to Immediate.
	Scheduler Scheduler
	Logger    telemetry.Logger
	// Config defaults to DefaultConfig when zero.
	Config Config
}

type intentKind int

const (
	intentReady intentKind = iota
	intentJump
	intentRematch
)

type intent struct {
	kind  intentKind
	ready bool
}

type listenerBox struct {
	Listener
}

// Session is one connection to a room server. All socket I/O and protocol
// state changes happen on the session goroutine; the exported methods only
// queue intents for it.
type Session struct {
	cfg    Config
	name   string
	server netip.AddrPort
	conn   *net.UDPConn
	sched  Scheduler
	errLog telemetry.Logger

	listener  atomic.Pointer[listenerBox]
	localID   atomic.Int64
	connected atomic.Bool

	intents   chan intent
	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

// Join validates opts, opens a socket and starts the session goroutine,
// which sends HELLO right away. Validation failures are returned before any
// socket is opened. Connection failures are reported later through the
// listener.
func Join(ctx context.Context, opts Options) (*Session, error) {
	if err := Validate(opts.Name, opts.Host, opts.Port); err != nil {
		return nil, err
	}
	server, err := resolve(ctx, opts.Host, opts.Port)
	if err != nil {
		return nil, err
	}

	network := "udp6"
	if server.Addr().Is4() {
		network = "udp4"
	}
	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		return nil, fmt.Errorf("client: open socket: %w", err)
	}

	s := newSession(opts, server, conn)
	go s.run()
	return s, nil
}

func newSession(opts Options, server netip.AddrPort, conn *net.UDPConn) *Session {
	cfg := opts.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = Immediate
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	name := proto.SanitizeName(opts.Name)
	if name == "" {
		name = proto.DefaultPlayerName
	}
	s := &Session{
		cfg:     cfg,
		name:    name,
		server:  server,
		conn:    conn,
		sched:   sched,
		errLog:  telemetry.Throttle(logger, time.Second),
		intents: make(chan intent, 32),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.SetListener(opts.Listener)
	return s
}

// SetListener replaces the event consumer. Events already scheduled but not
// yet run are delivered to the newest listener; nil drops them.
func (s *Session) SetListener(l Listener) {
	if l == nil {
		s.listener.Store(nil)
		return
	}
	s.listener.Store(&listenerBox{Listener: l})
}

// LocalPlayerID is the slot assigned by WELCOME, or 0.
func (s *Session) LocalPlayerID() int {
	return int(s.localID.Load())
}

// Connected reports whether WELCOME has been received and the session is
// still running.
func (s *Session) Connected() bool {
	return s.connected.Load()
}

// Done is closed once the session goroutine has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Server is the resolved server address.
func (s *Session) Server() netip.AddrPort {
	return s.server
}

// SetReady marks the local player ready or not.
func (s *Session) SetReady(ready bool) error {
	return s.enqueue(intent{kind: intentReady, ready: ready})
}

// Jump asks the server to apply a jump to the local bird.
func (s *Session) Jump() error {
	return s.enqueue(intent{kind: intentJump})
}

// RequestRematch votes for another match once the current one finished.
func (s *Session) RequestRematch() error {
	return s.enqueue(intent{kind: intentRematch})
}

func (s *Session) enqueue(in intent) error {
	select {
	case <-s.done:
		return ErrClosed
	case <-s.closing:
		return ErrClosed
	default:
	}
	select {
	case s.intents <- in:
	default:
		// A full queue means the loop is behind; dropping matches UDP.
		return nil
	}
	s.wake()
	return nil
}

// wake interrupts the pending read so the loop picks up intents now.
func (s *Session) wake() {
	_ = s.conn.SetReadDeadline(time.Now())
}

// Close leaves the room and stops the session, sending LEAVE first when
// connected. It waits for the session goroutine and is safe to call more
// than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.wake()
	})
	<-s.done
	return nil
}

func (s *Session) run() {
	defer close(s.done)
	defer s.conn.Close()
	defer s.connected.Store(false)

	joinedAt := time.Now()
	lastHeard := joinedAt
	var lastPing time.Time
	s.send(proto.Hello{Name: s.name})

	buf := make([]byte, proto.MaxDatagramSize)
	for {
		// The deadline is set before intents are drained so a wake that
		// races with it still interrupts the read below.
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReceiveTimeout)); err != nil && errors.Is(err, net.ErrClosed) {
			return
		}
		select {
		case <-s.closing:
			s.leave()
			return
		default:
		}
		s.drainIntents()

		n, _, err := s.conn.ReadFromUDPAddrPort(buf)
		now := time.Now()
		switch {
		case err == nil:
			lastHeard = now
			if s.handle(buf[:n]) {
				return
			}
		case errors.Is(err, os.ErrDeadlineExceeded):
		case errors.Is(err, net.ErrClosed):
			return
		default:
			s.errLog.Printf("receive from %s: %v", s.server, err)
		}

		if now.Sub(lastPing) >= s.cfg.PingInterval {
			s.send(proto.Ping{})
			lastPing = now
		}
		if !s.connected.Load() && now.Sub(joinedAt) >= s.cfg.ConnectTimeout {
			s.dispatch(func(l Listener) { l.Error(MsgCouldNotJoin) })
			return
		}
		if s.connected.Load() && now.Sub(lastHeard) >= s.cfg.ServerTimeout {
			s.dispatch(func(l Listener) { l.ServerClosed(MsgLostConnection) })
			s.leave()
			return
		}
	}
}

func (s *Session) drainIntents() {
	for {
		select {
		case in := <-s.intents:
			s.apply(in)
		default:
			return
		}
	}
}

// apply sends one intent. Intents before WELCOME are dropped.
func (s *Session) apply(in intent) {
	if !s.connected.Load() {
		return
	}
	switch in.kind {
	case intentReady:
		s.send(proto.Ready{Ready: in.ready})
	case intentJump:
		s.send(proto.Jump{PlayerID: s.LocalPlayerID()})
	case intentRematch:
		s.send(proto.Rematch{Vote: true})
	}
}

func (s *Session) leave() {
	if id := s.LocalPlayerID(); s.connected.Load() && id > 0 {
		s.send(proto.Leave{PlayerID: id})
	}
}

func (s *Session) send(msg proto.Message) {
	if _, err := s.conn.WriteToUDPAddrPort(proto.Encode(msg), s.server); err != nil {
		if errors.Is(err, net.ErrClosed) {
			return
		}
		s.errLog.Printf("send %s to %s: %v", msg.Command(), s.server, err)
	}
}

// dispatch schedules call for the listener current at run time.
func (s *Session) dispatch(call func(Listener)) {
	if s.listener.Load() == nil {
		return
	}
	s.sched.Post(func() {
		if box := s.listener.Load(); box != nil {
			call(box.Listener)
		}
	})
}

func (s *Session) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "session %q -> %s", s.name, s.server)
	if id := s.LocalPlayerID(); id > 0 {
		fmt.Fprintf(&b, " as P%d", id)
	}
	return b.String()
}
