// Package server runs the room behind a UDP socket. A single goroutine owns
// the room: it receives one datagram with a short deadline, sweeps stale
// players and then advances the match, in that order, forever.
package server

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/netip"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ArenasTI/Flappy-Bird/internal/proto"
	"github.com/ArenasTI/Flappy-Bird/internal/room"
	"github.com/ArenasTI/Flappy-Bird/internal/telemetry"
	"github.com/ArenasTI/Flappy-Bird/logging"
)

var (
	// ErrClosed is returned by Run on a server that was already closed.
	ErrClosed = errors.New("server: closed")
	// ErrRunning is returned when Run is called twice.
	ErrRunning = errors.New("server: already running")
)

// Config controls the socket and the room timing.
type Config struct {
	Port        int
	ReadTimeout time.Duration
	Room        room.Config
	// RejectsPerSecond bounds INVALID_MSG replies to unknown senders.
	RejectsPerSecond float64
	RejectBurst      int
	// Seed fixes the pipe generator. Zero seeds from the clock.
	Seed uint64
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Port:             proto.DefaultPort,
		ReadTimeout:      16 * time.Millisecond,
		Room:             room.DefaultConfig(),
		RejectsPerSecond: 20,
		RejectBurst:      10,
	}
}

// Deps are optional collaborators.
type Deps struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
}

// Snapshot is the monitor view of a running server.
type Snapshot struct {
	Port      int                        `json:"port"`
	StartedAt time.Time                  `json:"startedAt"`
	Room      room.Snapshot              `json:"room"`
	Traffic   telemetry.CountersSnapshot `json:"traffic"`
}

type Server struct {
	cfg      Config
	conn     *net.UDPConn
	room     *room.Room
	logger   telemetry.Logger
	errLog   telemetry.Logger
	counters *telemetry.Counters
	started  time.Time

	snapshot atomic.Pointer[Snapshot]
	running  atomic.Bool

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{}
}

// Listen binds the UDP socket and prepares an idle room.
func Listen(cfg Config, deps Deps) (*Server, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("server: invalid port %d", cfg.Port)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultConfig().ReadTimeout
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: cfg.Port})
	if err != nil {
		return nil, fmt.Errorf("server: listen: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	s := &Server{
		cfg:      cfg,
		conn:     conn,
		logger:   logger,
		errLog:   telemetry.Throttle(logger, time.Second),
		counters: &telemetry.Counters{},
		started:  time.Now(),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	var rejects room.Limiter
	if cfg.RejectsPerSecond > 0 {
		rejects = rate.NewLimiter(rate.Limit(cfg.RejectsPerSecond), max(cfg.RejectBurst, 1))
	}
	s.room = room.New(cfg.Room, room.Deps{
		Outbox:    &udpOutbox{conn: conn, counters: s.counters, errLog: s.errLog},
		Rand:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Rejects:   rejects,
		Publisher: deps.Publisher,
	})
	s.publish(s.started)
	return s, nil
}

// Addr returns the bound local address.
func (s *Server) Addr() netip.AddrPort {
	return s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Snapshot returns the state published after the latest loop iteration.
func (s *Server) Snapshot() Snapshot {
	return *s.snapshot.Load()
}

// Counters exposes the traffic counters.
func (s *Server) Counters() *telemetry.Counters {
	return s.counters
}

// Run drives the poll loop until ctx is done or Close is called. On the way
// out every player is sent SERVER_CLOSED and the socket is closed.
func (s *Server) Run(ctx context.Context) error {
	select {
	case <-s.closing:
		return ErrClosed
	default:
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer close(s.done)
	stop := context.AfterFunc(ctx, s.signalClose)
	defer stop()

	s.logger.Printf("room listening on udp %s", s.conn.LocalAddr())
	buf := make([]byte, proto.MaxDatagramSize)
	for {
		select {
		case <-s.closing:
			s.shutdown()
			return nil
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.errLog.Printf("set read deadline: %v", err)
		}
		n, from, err := s.conn.ReadFromUDPAddrPort(buf)
		now := time.Now()
		switch {
		case err == nil:
			s.receive(buf[:n], from, now)
		case errors.Is(err, os.ErrDeadlineExceeded):
		case errors.Is(err, net.ErrClosed):
			return nil
		default:
			s.errLog.Printf("receive: %v", err)
		}

		s.room.SweepTimeouts(now)
		s.room.Advance(now)
		s.publish(now)
	}
}

func (s *Server) receive(payload []byte, from netip.AddrPort, now time.Time) {
	from = netip.AddrPortFrom(from.Addr().Unmap(), from.Port())
	s.counters.RecordIn(len(payload))
	msg, err := proto.Decode(payload)
	if err != nil {
		if errors.Is(err, proto.ErrEmpty) {
			return
		}
		s.counters.RecordDecodeFailure()
		s.room.HandleMalformed(from, leadingToken(payload), now)
		return
	}
	s.room.Handle(from, msg, now)
}

func leadingToken(payload []byte) string {
	for i, b := range payload {
		if b == ':' {
			return string(payload[:i])
		}
	}
	return string(payload)
}

func (s *Server) publish(now time.Time) {
	s.snapshot.Store(&Snapshot{
		Port:      int(s.Addr().Port()),
		StartedAt: s.started,
		Room:      s.room.Snapshot(now),
		Traffic:   s.counters.Snapshot(),
	})
}

func (s *Server) shutdown() {
	s.room.Shutdown()
	s.publish(time.Now())
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Printf("close socket: %v", err)
	}
	traffic := s.counters.Snapshot()
	s.logger.Printf("room closed: %d packets in (%s), %d out (%s)",
		traffic.PacketsIn, traffic.BytesInHuman, traffic.PacketsOut, traffic.BytesOutHuman)
}

func (s *Server) signalClose() {
	s.closeOnce.Do(func() { close(s.closing) })
}

// Close stops the loop after its current iteration and waits for the
// shutdown broadcast. Closing a server that never ran just releases the
// socket.
func (s *Server) Close() error {
	s.signalClose()
	if s.running.Load() {
		<-s.done
		return nil
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

type udpOutbox struct {
	conn     *net.UDPConn
	counters *telemetry.Counters
	errLog   telemetry.Logger
}

func (o *udpOutbox) Send(to netip.AddrPort, msg proto.Message) {
	n, err := o.conn.WriteToUDPAddrPort(proto.Encode(msg), to)
	if err != nil {
		o.counters.RecordSendFailure()
		o.errLog.Printf("send %s to %s: %v", msg.Command(), to, err)
		return
	}
	o.counters.RecordOut(n)
	if _, rejected := msg.(proto.Error); rejected {
		o.counters.RecordRejected()
	}
}
