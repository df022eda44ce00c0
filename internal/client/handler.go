package client

import (
	"errors"

	"github.com/ArenasTI/Flappy-Bird/internal/proto"
)

// handle applies one datagram from the server and reports whether the
// session must stop.
func (s *Session) handle(payload []byte) (stop bool) {
	msg, err := proto.Decode(payload)
	if err != nil {
		if !errors.Is(err, proto.ErrEmpty) {
			s.errLog.Printf("drop datagram from %s: %v", s.server, err)
		}
		return false
	}

	switch m := msg.(type) {
	case proto.Welcome:
		if m.PlayerID <= 0 {
			return false
		}
		s.localID.Store(int64(m.PlayerID))
		s.connected.Store(true)
		s.dispatch(func(l Listener) { l.Connected(m.PlayerID) })
	case proto.Room:
		update := RoomUpdate{State: m.State, LastWinnerID: m.LastWinnerID, Players: m.Players}
		s.dispatch(func(l Listener) { l.RoomUpdate(update) })
	case proto.StartGame:
		s.dispatch(func(l Listener) { l.StartGame(m.SpawnX, m.SpawnY, m.StartDelay) })
	case proto.Jump:
		if m.PlayerID > 0 {
			s.dispatch(func(l Listener) { l.RemoteJump(m.PlayerID) })
		}
	case proto.Spawn:
		s.dispatch(func(l Listener) { l.SpawnPipe(m.GapCenterY) })
	case proto.Eliminated:
		if m.PlayerID > 0 {
			s.dispatch(func(l Listener) { l.Eliminated(m.PlayerID) })
		}
	case proto.Fin:
		s.dispatch(func(l Listener) { l.GameFinished(m.WinnerID) })
	case proto.ClientLeft:
		if m.PlayerID > 0 {
			s.dispatch(func(l Listener) { l.PlayerLeft(m.PlayerID) })
		}
	case proto.ServerClosed:
		s.connected.Store(false)
		s.dispatch(func(l Listener) { l.ServerClosed(MsgServerClosed) })
		return true
	case proto.Error:
		text := ErrorText(m.Code)
		s.dispatch(func(l Listener) { l.Error(text) })
	}
	return false
}
