// Package room implements the authoritative room: the session directory,
// the WAITING/PLAYING/FINISHED state machine and the fixed-step match loop.
//
// A Room is owned by a single goroutine. Every entry point takes the current
// time explicitly so tests can drive it without a clock.
package room

import (
	"context"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/ArenasTI/Flappy-Bird/internal/game"
	"github.com/ArenasTI/Flappy-Bird/internal/proto"
	"github.com/ArenasTI/Flappy-Bird/logging"
	"github.com/ArenasTI/Flappy-Bird/logging/lifecycle"
	"github.com/ArenasTI/Flappy-Bird/logging/match"
	"github.com/ArenasTI/Flappy-Bird/logging/network"
)

// Outbox delivers one message to one peer. Delivery is best effort.
type Outbox interface {
	Send(to netip.AddrPort, msg proto.Message)
}

// Limiter gates replies to unknown senders. *rate.Limiter satisfies it.
type Limiter interface {
	Allow() bool
}

// Config carries the room timing.
type Config struct {
	ClientTimeout time.Duration
	StartDelay    time.Duration
}

// DefaultConfig returns the production timing.
func DefaultConfig() Config {
	return Config{
		ClientTimeout: 1800 * time.Millisecond,
		StartDelay:    game.StartDelay,
	}
}

// Deps are the room's collaborators. Outbox and Rand are required.
type Deps struct {
	Outbox    Outbox
	Rand      game.Rand
	Rejects   Limiter
	Publisher logging.Publisher
	// NewMatchID defaults to uuid.NewString.
	NewMatchID func() string
}

type Room struct {
	cfg  Config
	deps Deps

	dir   *Directory
	world game.World

	state         proto.RoomState
	lastWinner    int
	matchID       string
	matchStartsAt time.Time
	nextSpawnAt   time.Time
	lastTick      time.Time
	accumulator   float64
	tick          int64
}

// New returns an empty room in WAITING.
func New(cfg Config, deps Deps) *Room {
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.NewMatchID == nil {
		deps.NewMatchID = uuid.NewString
	}
	return &Room{
		cfg:   cfg,
		deps:  deps,
		dir:   NewDirectory(game.MaxPlayers),
		state: proto.RoomWaiting,
	}
}

func (r *Room) State() proto.RoomState { return r.state }

func (r *Room) LastWinner() int { return r.lastWinner }

// Directory exposes the registered players for inspection.
func (r *Room) Directory() *Directory { return r.dir }

// Handle applies one decoded datagram from addr.
func (r *Room) Handle(from netip.AddrPort, msg proto.Message, now time.Time) {
	sender := r.dir.Touch(from, now)

	switch m := msg.(type) {
	case proto.Hello:
		r.hello(from, m.Name, now)
		return
	case proto.Ping:
		r.send(from, proto.Pong{})
		return
	}

	if sender == nil {
		r.reject(from, msg.Command())
		return
	}

	switch m := msg.(type) {
	case proto.Jump:
		r.jump(sender, now)
	case proto.Ready:
		sender.Ready = m.Ready
		r.broadcastRoom()
		r.evaluateStart(now)
	case proto.Rematch:
		if r.state != proto.RoomFinished {
			return
		}
		sender.RematchReady = m.Vote
		r.broadcastRoom()
		r.evaluateRematch(now)
	case proto.Leave:
		r.remove(sender, lifecycle.ReasonLeave, now)
	}
}

// HandleMalformed accounts for a datagram that failed to decode. Known
// senders stay alive; unknown senders are told the message was invalid.
func (r *Room) HandleMalformed(from netip.AddrPort, command string, now time.Time) {
	if r.dir.Touch(from, now) != nil {
		return
	}
	r.reject(from, proto.Command(command))
}

func (r *Room) hello(from netip.AddrPort, rawName string, now time.Time) {
	name := proto.PlayerName(rawName)
	player, created, err := r.dir.RegisterOrRefresh(from, name, now)
	if err != nil {
		r.send(from, proto.Error{Code: proto.ErrorServerFull})
		network.MessageRejected(context.Background(), r.deps.Publisher, from.String(), network.RejectedPayload{
			Code:    proto.ErrorServerFull,
			Command: string(proto.CmdHello),
		})
		return
	}

	r.send(from, proto.Welcome{PlayerID: player.ID})
	payload := lifecycle.PlayerJoinedPayload{Name: name, Remote: from.String()}
	if created {
		lifecycle.PlayerJoined(context.Background(), r.deps.Publisher, player.ID, payload)
		r.evaluateWaiting()
	} else {
		lifecycle.PlayerRejoined(context.Background(), r.deps.Publisher, player.ID, payload)
	}
	r.broadcastRoom()
}

func (r *Room) reject(from netip.AddrPort, command proto.Command) {
	if r.deps.Rejects != nil && !r.deps.Rejects.Allow() {
		return
	}
	r.send(from, proto.Error{Code: proto.ErrorInvalidMsg})
	network.MessageRejected(context.Background(), r.deps.Publisher, from.String(), network.RejectedPayload{
		Code:    proto.ErrorInvalidMsg,
		Command: string(command),
	})
}

func (r *Room) jump(sender *Player, now time.Time) {
	if r.state != proto.RoomPlaying || now.Before(r.matchStartsAt) {
		return
	}
	if !r.world.Jump(sender.ID) {
		return
	}
	r.broadcast(proto.Jump{PlayerID: sender.ID})
}

// SweepTimeouts evicts every player silent for at least the client timeout.
func (r *Room) SweepTimeouts(now time.Time) {
	expired := r.dir.Expired(now, r.cfg.ClientTimeout)
	if len(expired) == 0 {
		return
	}
	for _, p := range expired {
		r.dir.Remove(p.ID)
		r.world.Remove(p.ID)
		r.broadcast(proto.ClientLeft{PlayerID: p.ID})
		lifecycle.PlayerLeft(context.Background(), r.deps.Publisher, p.ID, lifecycle.PlayerLeftPayload{Reason: lifecycle.ReasonTimeout})
	}
	r.afterDisconnect(now)
	r.broadcastRoom()
}

func (r *Room) remove(p *Player, reason string, now time.Time) {
	if r.dir.Remove(p.ID) == nil {
		return
	}
	r.world.Remove(p.ID)
	r.broadcast(proto.ClientLeft{PlayerID: p.ID})
	lifecycle.PlayerLeft(context.Background(), r.deps.Publisher, p.ID, lifecycle.PlayerLeftPayload{Reason: reason})
	r.afterDisconnect(now)
	r.broadcastRoom()
}

// afterDisconnect settles a match that lost a player and drops back to
// WAITING once the room is no longer full.
func (r *Room) afterDisconnect(now time.Time) {
	if r.state == proto.RoomPlaying {
		switch r.dir.Len() {
		case 1:
			r.finish(r.dir.Players()[0].ID, match.ReasonDisconnect, now)
		case 0:
			r.finish(game.Draw, match.ReasonDisconnect, now)
		}
	}
	if !r.dir.Full() {
		r.state = proto.RoomWaiting
		r.matchStartsAt = time.Time{}
		for _, p := range r.dir.Players() {
			p.RematchReady = false
		}
	}
}

func (r *Room) evaluateWaiting() {
	if r.state == proto.RoomPlaying {
		return
	}
	if !r.dir.Full() {
		r.state = proto.RoomWaiting
	}
}

func (r *Room) evaluateStart(now time.Time) {
	if r.state != proto.RoomWaiting {
		return
	}
	if !r.dir.Full() {
		r.evaluateWaiting()
		return
	}
	for _, p := range r.dir.Players() {
		if !p.Ready {
			return
		}
	}
	r.start(now, false)
}

func (r *Room) evaluateRematch(now time.Time) {
	if r.state != proto.RoomFinished || !r.dir.Full() {
		return
	}
	for _, p := range r.dir.Players() {
		if !p.RematchReady {
			return
		}
	}
	r.start(now, true)
}

func (r *Room) start(now time.Time, rematch bool) {
	r.state = proto.RoomPlaying
	r.lastWinner = 0
	r.matchID = r.deps.NewMatchID()
	r.matchStartsAt = now.Add(r.cfg.StartDelay)
	r.lastTick = now
	r.accumulator = 0
	r.tick = 0
	r.nextSpawnAt = r.matchStartsAt.Add(game.RandomSpawnInterval(r.deps.Rand))

	players := r.dir.Players()
	runners := make([]*game.Runner, 0, len(players))
	for _, p := range players {
		p.Ready = false
		p.RematchReady = false
		runners = append(runners, p.Runner)
	}
	r.world.Reset(runners...)

	r.broadcast(proto.StartGame{
		SpawnX:     game.StartX,
		SpawnY:     game.StartY,
		StartDelay: r.cfg.StartDelay,
	})
	match.Started(context.Background(), r.deps.Publisher, r.matchID, match.StartedPayload{
		SpawnX:       game.StartX,
		SpawnY:       game.StartY,
		StartDelayMs: r.cfg.StartDelay.Milliseconds(),
		Rematch:      rematch,
	})
	r.broadcastRoom()
}

// Advance runs the match clock up to now: the pipe spawner against wall
// time, then as many fixed steps as the accumulated time allows. Nothing
// moves before the grace period ends.
func (r *Room) Advance(now time.Time) {
	if r.state != proto.RoomPlaying {
		return
	}
	if now.Before(r.matchStartsAt) {
		r.lastTick = now
		return
	}
	frame := now.Sub(r.lastTick).Seconds()
	if frame <= 0 {
		return
	}
	frame = min(frame, game.MaxFrameDelta)
	r.lastTick = now
	r.accumulator += frame

	changed := false
	if !now.Before(r.nextSpawnAt) {
		r.spawn(now)
		changed = true
	}

	for r.accumulator >= game.FixedStep && r.state == proto.RoomPlaying {
		r.accumulator -= game.FixedStep
		r.tick++
		if r.step(now) {
			changed = true
		}
	}

	if changed {
		r.broadcastRoom()
	}
}

func (r *Room) spawn(now time.Time) {
	center := game.RandomGapCenter(r.deps.Rand)
	r.world.Spawn(center)
	r.broadcast(proto.Spawn{GapCenterY: center})
	match.PipeSpawned(context.Background(), r.deps.Publisher, r.matchID, uint64(r.tick), match.PipeSpawnedPayload{GapCenterY: center})
	r.nextSpawnAt = now.Add(game.RandomSpawnInterval(r.deps.Rand))
}

func (r *Room) step(now time.Time) bool {
	result := r.world.Step(game.FixedStep, r.tick)
	for _, id := range result.Eliminated {
		r.broadcast(proto.Eliminated{PlayerID: id})
		score := 0
		if runner := r.world.Runner(id); runner != nil {
			score = runner.Score
		}
		match.PlayerEliminated(context.Background(), r.deps.Publisher, r.matchID, uint64(r.tick), id, match.EliminatedPayload{Score: score})
	}
	r.evaluateFinish(now)
	return result.Changed()
}

func (r *Room) evaluateFinish(now time.Time) {
	if r.state != proto.RoomPlaying || now.Before(r.matchStartsAt) {
		return
	}
	winner, decided := game.Decide(r.world.Runners)
	if decided {
		r.finish(winner, match.ReasonEliminated, now)
	}
}

func (r *Room) finish(winner int, reason string, now time.Time) {
	elapsed := now.Sub(r.matchStartsAt)
	r.state = proto.RoomFinished
	r.lastWinner = winner
	r.matchStartsAt = time.Time{}
	r.accumulator = 0
	for _, p := range r.dir.Players() {
		p.Ready = false
		p.RematchReady = false
	}
	r.broadcast(proto.Fin{WinnerID: winner})
	match.Finished(context.Background(), r.deps.Publisher, r.matchID, uint64(r.tick), winner, reason, elapsed)
	r.broadcastRoom()
}

// Shutdown tells every registered player the room is closing.
func (r *Room) Shutdown() {
	r.broadcast(proto.ServerClosed{})
	network.ServerClosed(context.Background(), r.deps.Publisher, network.ServerClosedPayload{Players: r.dir.Len()})
}

// RoomMessage renders the current ROOM snapshot.
func (r *Room) RoomMessage() proto.Room {
	players := r.dir.Players()
	entries := make([]proto.PlayerEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, proto.PlayerEntry{
			ID:    p.ID,
			Name:  p.Name,
			Ready: p.Ready,
			Score: p.Runner.Score,
			Alive: p.Runner.Alive,
		})
	}
	return proto.Room{
		State:        r.state,
		LastWinnerID: r.lastWinner,
		PlayerCount:  len(players),
		Players:      entries,
	}
}

func (r *Room) broadcastRoom() {
	r.broadcast(r.RoomMessage())
}

func (r *Room) broadcast(msg proto.Message) {
	for _, p := range r.dir.Players() {
		r.deps.Outbox.Send(p.Addr, msg)
	}
}

func (r *Room) send(to netip.AddrPort, msg proto.Message) {
	r.deps.Outbox.Send(to, msg)
}
