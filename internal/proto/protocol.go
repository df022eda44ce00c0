// Package proto implements the colon-delimited datagram protocol shared by the
// room server and its clients.
package proto

import "time"

const (
	// DefaultPort is the UDP port the room server listens on.
	DefaultPort = 5555
	// MaxDatagramSize bounds every payload in either direction.
	MaxDatagramSize = 1024
	// MaxNameLength is the longest player name, in runes, after sanitizing.
	MaxNameLength = 20
	// DefaultPlayerName replaces names that sanitize to nothing.
	DefaultPlayerName = "Player"
)

// Command is the leading token of every datagram.
type Command string

const (
	CmdHello        Command = "HELLO"
	CmdWelcome      Command = "WELCOME"
	CmdRoom         Command = "ROOM"
	CmdReady        Command = "READY"
	CmdStartGame    Command = "START_GAME"
	CmdJump         Command = "JUMP"
	CmdSpawn        Command = "SPAWN"
	CmdRematch      Command = "REMATCH"
	CmdEliminated   Command = "ELIMINATED"
	CmdFin          Command = "FIN"
	CmdLeave        Command = "LEAVE"
	CmdClientLeft   Command = "CLIENT_LEFT"
	CmdServerClosed Command = "SERVER_CLOSED"
	CmdError        Command = "ERROR"
	CmdPing         Command = "PING"
	CmdPong         Command = "PONG"
)

// RoomState is the wire form of the room lifecycle.
type RoomState string

const (
	RoomWaiting  RoomState = "WAITING"
	RoomPlaying  RoomState = "PLAYING"
	RoomFinished RoomState = "FINISHED"
)

// Error codes carried by ERROR.
const (
	ErrorServerFull = "SERVER_FULL"
	ErrorInvalidMsg = "INVALID_MSG"
)

// Message is one decoded datagram. The concrete types below are the complete
// set; Decode never returns anything else.
type Message interface {
	Command() Command
	fields() []string
}

type Hello struct {
	Name string
}

type Welcome struct {
	PlayerID int
}

// Room is the full room snapshot broadcast after every state change.
type Room struct {
	State        RoomState
	LastWinnerID int
	PlayerCount  int
	Players      []PlayerEntry
}

// PlayerEntry is one element of the ROOM player list.
type PlayerEntry struct {
	ID    int
	Name  string
	Ready bool
	Score int
	Alive bool
}

type Ready struct {
	Ready bool
}

// StartGame carries the shared spawn point and the grace period before the
// simulation starts moving.
type StartGame struct {
	SpawnX     float64
	SpawnY     float64
	StartDelay time.Duration
}

type Jump struct {
	PlayerID int
}

type Spawn struct {
	GapCenterY float64
}

type Eliminated struct {
	PlayerID int
}

// Fin announces the outcome. WinnerID 0 is a draw.
type Fin struct {
	WinnerID int
}

type Leave struct {
	PlayerID int
}

type ClientLeft struct {
	PlayerID int
}

type ServerClosed struct{}

type Error struct {
	Code string
}

type Ping struct{}

type Pong struct{}

type Rematch struct {
	Vote bool
}

func (Hello) Command() Command        { return CmdHello }
func (Welcome) Command() Command      { return CmdWelcome }
func (Room) Command() Command         { return CmdRoom }
func (Ready) Command() Command        { return CmdReady }
func (StartGame) Command() Command    { return CmdStartGame }
func (Jump) Command() Command         { return CmdJump }
func (Spawn) Command() Command        { return CmdSpawn }
func (Eliminated) Command() Command   { return CmdEliminated }
func (Fin) Command() Command          { return CmdFin }
func (Leave) Command() Command        { return CmdLeave }
func (ClientLeft) Command() Command   { return CmdClientLeft }
func (ServerClosed) Command() Command { return CmdServerClosed }
func (Error) Command() Command        { return CmdError }
func (Ping) Command() Command         { return CmdPing }
func (Pong) Command() Command         { return CmdPong }
func (Rematch) Command() Command      { return CmdRematch }
