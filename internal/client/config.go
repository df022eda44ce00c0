package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/ArenasTI/Flappy-Bird/internal/proto"
)

var (
	ErrInvalidName    = errors.New("client: player name is required")
	ErrInvalidAddress = errors.New("client: server address is invalid")
	ErrInvalidPort    = errors.New("client: port must be between 1 and 65535")
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("client: session closed")
)

// User-facing messages delivered through Listener.Error and
// Listener.ServerClosed.
const (
	MsgRoomFull       = "Room is full"
	MsgInvalidMessage = "Invalid message received"
	MsgUnknownError   = "Unknown error"
	MsgCouldNotJoin   = "Could not connect to the room"
	MsgLostConnection = "Lost connection to the server"
	MsgServerClosed   = "The server closed the room"
)

// Config carries the client poll loop timing.
type Config struct {
	ReceiveTimeout time.Duration
	ConnectTimeout time.Duration
	ServerTimeout  time.Duration
	PingInterval   time.Duration
}

// DefaultConfig returns the production timing.
func DefaultConfig() Config {
	return Config{
		ReceiveTimeout: 250 * time.Millisecond,
		ConnectTimeout: 4 * time.Second,
		ServerTimeout:  8 * time.Second,
		PingInterval:   500 * time.Millisecond,
	}
}

// Validate checks the join parameters without touching the network.
func Validate(name, host string, port int) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(host) == "" {
		return ErrInvalidAddress
	}
	if port < 1 || port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// resolve turns host into a server address, preferring IPv4.
func resolve(ctx context.Context, host string, port int) (netip.AddrPort, error) {
	host = strings.TrimSpace(host)
	if addr, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(addr.Unmap(), uint16(port)), nil
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip4", host)
	if err != nil || len(addrs) == 0 {
		addrs, err = net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	}
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(addrs) == 0 {
		return netip.AddrPort{}, fmt.Errorf("%w: no addresses for %q", ErrInvalidAddress, host)
	}
	return netip.AddrPortFrom(addrs[0].Unmap(), uint16(port)), nil
}

// ErrorText maps a server ERROR code to the message shown to players.
func ErrorText(code string) string {
	switch code {
	case proto.ErrorServerFull:
		return MsgRoomFull
	case proto.ErrorInvalidMsg:
		return MsgInvalidMessage
	case "":
		return MsgUnknownError
	default:
		return code
	}
}
