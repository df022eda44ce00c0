package room

import (
	"errors"
	"net/netip"
	"time"

	"github.com/ArenasTI/Flappy-Bird/internal/game"
)

// ErrFull is returned when every slot is held by another address.
var ErrFull = errors.New("room: all player slots are taken")

// Player is one registered connection. Its simulation state lives in Runner,
// which the world adopts at match start.
type Player struct {
	ID           int
	Name         string
	Addr         netip.AddrPort
	Ready        bool
	RematchReady bool
	LastSeen     time.Time
	Runner       *game.Runner
}

// Directory tracks registered players keyed by address and port, in join
// order. Ids are taken from 1..capacity, lowest free first.
type Directory struct {
	capacity int
	players  []*Player
}

// NewDirectory returns an empty directory with room for capacity players.
func NewDirectory(capacity int) *Directory {
	return &Directory{capacity: capacity}
}

// RegisterOrRefresh admits addr under name, or updates the name and
// liveness of an existing registration. created reports whether a new slot
// was allocated.
func (d *Directory) RegisterOrRefresh(addr netip.AddrPort, name string, now time.Time) (player *Player, created bool, err error) {
	if existing := d.FindByAddr(addr); existing != nil {
		existing.Name = name
		existing.LastSeen = now
		return existing, false, nil
	}
	id := d.nextFreeID()
	if id == 0 {
		return nil, false, ErrFull
	}
	player = &Player{
		ID:       id,
		Name:     name,
		Addr:     addr,
		LastSeen: now,
		Runner:   game.NewRunner(id),
	}
	d.players = append(d.players, player)
	return player, true, nil
}

func (d *Directory) nextFreeID() int {
	if len(d.players) >= d.capacity {
		return 0
	}
	for id := 1; id <= d.capacity; id++ {
		if d.FindByID(id) == nil {
			return id
		}
	}
	return 0
}

// FindByAddr returns the player registered from addr, or nil.
func (d *Directory) FindByAddr(addr netip.AddrPort) *Player {
	for _, p := range d.players {
		if p.Addr == addr {
			return p
		}
	}
	return nil
}

// FindByID returns the player holding slot id, or nil.
func (d *Directory) FindByID(id int) *Player {
	for _, p := range d.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Remove releases slot id and returns the removed player, or nil.
func (d *Directory) Remove(id int) *Player {
	for i, p := range d.players {
		if p.ID == id {
			d.players = append(d.players[:i], d.players[i+1:]...)
			return p
		}
	}
	return nil
}

// Touch refreshes the liveness of the player registered from addr and
// returns it, or nil for an unknown address.
func (d *Directory) Touch(addr netip.AddrPort, now time.Time) *Player {
	p := d.FindByAddr(addr)
	if p != nil {
		p.LastSeen = now
	}
	return p
}

// Expired lists players silent for at least timeout, in join order.
func (d *Directory) Expired(now time.Time, timeout time.Duration) []*Player {
	var expired []*Player
	for _, p := range d.players {
		if now.Sub(p.LastSeen) >= timeout {
			expired = append(expired, p)
		}
	}
	return expired
}

// Players returns the registered players in join order. The slice must not
// be modified.
func (d *Directory) Players() []*Player {
	return d.players
}

func (d *Directory) Len() int {
	return len(d.players)
}

// Full reports whether every slot is taken.
func (d *Directory) Full() bool {
	return len(d.players) == d.capacity
}
