package proto

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrEmpty reports a payload that is empty or whitespace only.
	ErrEmpty = errors.New("proto: empty payload")
	// ErrUnknownCommand reports a leading token outside the command set.
	ErrUnknownCommand = errors.New("proto: unknown command")
	// ErrTruncated reports a known command missing a required field.
	ErrTruncated = errors.New("proto: truncated message")
)

const fieldSeparator = ":"

// Encode renders m as a single datagram payload.
func Encode(m Message) []byte {
	fields := m.fields()
	var b strings.Builder
	b.WriteString(string(m.Command()))
	for _, f := range fields {
		b.WriteString(fieldSeparator)
		b.WriteString(f)
	}
	return []byte(b.String())
}

func (m Hello) fields() []string   { return []string{m.Name} }
func (m Welcome) fields() []string { return []string{strconv.Itoa(m.PlayerID)} }

func (m Room) fields() []string {
	return []string{
		string(m.State),
		strconv.Itoa(m.LastWinnerID),
		strconv.Itoa(m.PlayerCount),
		EncodePlayers(m.Players),
	}
}

func (m Ready) fields() []string { return []string{flag(m.Ready)} }

func (m StartGame) fields() []string {
	return []string{
		FormatFixed(m.SpawnX),
		FormatFixed(m.SpawnY),
		strconv.FormatInt(m.StartDelay.Milliseconds(), 10),
	}
}

func (m Jump) fields() []string       { return []string{strconv.Itoa(m.PlayerID)} }
func (m Spawn) fields() []string      { return []string{FormatFixed(m.GapCenterY)} }
func (m Eliminated) fields() []string { return []string{strconv.Itoa(m.PlayerID)} }
func (m Fin) fields() []string        { return []string{strconv.Itoa(m.WinnerID)} }
func (m Leave) fields() []string      { return []string{strconv.Itoa(m.PlayerID)} }
func (m ClientLeft) fields() []string { return []string{strconv.Itoa(m.PlayerID)} }
func (ServerClosed) fields() []string { return nil }
func (m Error) fields() []string      { return []string{m.Code} }
func (Ping) fields() []string         { return nil }
func (Pong) fields() []string         { return nil }
func (m Rematch) fields() []string    { return []string{flag(m.Vote)} }

// splitLimits caps the number of parts each command is split into, so the
// last field keeps any separators it carries.
var splitLimits = map[Command]int{
	CmdHello:        2,
	CmdWelcome:      2,
	CmdRoom:         5,
	CmdReady:        2,
	CmdStartGame:    4,
	CmdJump:         2,
	CmdSpawn:        2,
	CmdEliminated:   2,
	CmdFin:          2,
	CmdLeave:        2,
	CmdClientLeft:   2,
	CmdServerClosed: 1,
	CmdError:        2,
	CmdPing:         1,
	CmdPong:         1,
	CmdRematch:      2,
}

// Decode parses one datagram payload. Numeric fields that fail to parse fall
// back to zero values instead of failing the message.
func Decode(payload []byte) (Message, error) {
	raw := strings.TrimSpace(string(payload))
	if raw == "" {
		return nil, ErrEmpty
	}

	name, _, _ := strings.Cut(raw, fieldSeparator)
	cmd := Command(name)
	limit, ok := splitLimits[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	parts := strings.SplitN(raw, fieldSeparator, limit)
	args := parts[1:]

	arg := func(i int) (string, bool) {
		if i < len(args) {
			return args[i], true
		}
		return "", false
	}
	require := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s needs %d field(s), got %d", ErrTruncated, cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case CmdHello:
		value, _ := arg(0)
		return Hello{Name: value}, nil
	case CmdWelcome:
		if err := require(1); err != nil {
			return nil, err
		}
		return Welcome{PlayerID: ParseInt(args[0], 0)}, nil
	case CmdRoom:
		if err := require(3); err != nil {
			return nil, err
		}
		list, _ := arg(3)
		return Room{
			State:        RoomState(strings.TrimSpace(args[0])),
			LastWinnerID: ParseInt(args[1], 0),
			PlayerCount:  ParseInt(args[2], 0),
			Players:      DecodePlayers(list),
		}, nil
	case CmdReady:
		value, present := arg(0)
		return Ready{Ready: !present || ParseBool(value)}, nil
	case CmdStartGame:
		if err := require(3); err != nil {
			return nil, err
		}
		return StartGame{
			SpawnX:     ParseFloat(args[0], 0),
			SpawnY:     ParseFloat(args[1], 0),
			StartDelay: time.Duration(ParseInt(args[2], 0)) * time.Millisecond,
		}, nil
	case CmdJump:
		// Clients may omit their id; the server knows the sender.
		value, _ := arg(0)
		return Jump{PlayerID: ParseInt(value, 0)}, nil
	case CmdSpawn:
		if err := require(1); err != nil {
			return nil, err
		}
		return Spawn{GapCenterY: ParseFloat(args[0], 0)}, nil
	case CmdEliminated:
		if err := require(1); err != nil {
			return nil, err
		}
		return Eliminated{PlayerID: ParseInt(args[0], 0)}, nil
	case CmdFin:
		if err := require(1); err != nil {
			return nil, err
		}
		return Fin{WinnerID: ParseInt(args[0], 0)}, nil
	case CmdLeave:
		value, _ := arg(0)
		return Leave{PlayerID: ParseInt(value, 0)}, nil
	case CmdClientLeft:
		if err := require(1); err != nil {
			return nil, err
		}
		return ClientLeft{PlayerID: ParseInt(args[0], 0)}, nil
	case CmdServerClosed:
		return ServerClosed{}, nil
	case CmdError:
		code, _ := arg(0)
		return Error{Code: strings.TrimSpace(code)}, nil
	case CmdPing:
		return Ping{}, nil
	case CmdPong:
		return Pong{}, nil
	case CmdRematch:
		value, present := arg(0)
		return Rematch{Vote: !present || ParseBool(value)}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// FormatFixed renders v with two decimals independent of locale.
func FormatFixed(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// ParseInt parses a decimal integer field, returning fallback on failure.
func ParseInt(raw string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}

// ParseFloat parses a decimal field, returning fallback on failure.
func ParseFloat(raw string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fallback
	}
	return v
}

// ParseBool accepts "1" and any casing of "true".
func ParseBool(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "1" || strings.EqualFold(raw, "true")
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
