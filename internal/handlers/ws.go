package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/middleware"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/caiocezartg/squad-finder-sub000/internal/realtime"
	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// serveWS upgrades the request and runs the socket until it closes. The
// session is checked after the upgrade so a rejected client still receives an
// UNAUTHORIZED frame before the close.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	remoteAddr := r.RemoteAddr

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.AllowedOrigins,
	})
	if err != nil {
		s.logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "handler finished")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	userID, err := s.sessions.Authenticate(middleware.TokenFromRequest(r, s.opts.SessionCookie))
	if err != nil {
		s.logger.WithField("remote", remoteAddr).Info("rejecting unauthenticated websocket")
		s.writeDirect(ctx, conn, realtime.ErrorMessage{Code: string(CodeUnauthorized), Message: unauthorizedErrText})
		conn.Close(InvalidAuthTokenError, "unauthorized")
		return
	}
	user, err := s.engine.User(ctx, userID)
	if err != nil {
		s.logger.WithField("user_id", userID).WithError(err).Error("failed to load websocket user")
		s.writeDirect(ctx, conn, realtime.ErrorMessage{Code: string(CodeInternal), Message: internalErrorText})
		conn.Close(UnknownUserError, "user unavailable")
		return
	}

	client := realtime.NewClient(user, s.opts.SendBuffer)
	s.hub.Register(client)
	defer s.hub.Unregister(client)
	middleware.LogWebSocketConnect(s.logger, remoteAddr, r.URL.Path)

	go s.writePump(ctx, cancel, conn, client)
	err = s.readPump(ctx, conn, client)
	cancel()
	middleware.LogWebSocketDisconnect(s.logger, remoteAddr, r.URL.Path, err)
}

// writeDirect writes one frame outside the pumps, for use before a client is registered.
func (s *Server) writeDirect(ctx context.Context, conn *websocket.Conn, msg realtime.ServerMessage) {
	frame, err := realtime.Encode(msg, time.Now())
	if err != nil {
		s.logger.WithError(err).Error("failed to encode websocket frame")
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, frame); err != nil {
		s.logger.WithError(err).Debug("failed to write websocket frame")
	}
}

// readPump decodes client frames until the socket fails or ctx ends. It
// returns nil on a normal close.
func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, client *realtime.Client) error {
	log := s.logger.WithFields(logrus.Fields{"user_id": client.UserID, "client_id": client.ID})

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			s.hub.SendTo(client, realtime.ErrorMessage{Code: string(CodeInvalidMessage), Message: "only text frames are accepted"})
			continue
		}
		msg, err := realtime.DecodeClientMessage(data)
		if err != nil {
			log.Debugf("invalid frame: %v", err)
			s.hub.SendTo(client, realtime.ErrorMessage{Code: string(CodeInvalidMessage), Message: err.Error()})
			continue
		}
		s.dispatch(ctx, client, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, client *realtime.Client, msg realtime.ClientMessage) {
	switch m := msg.(type) {
	case realtime.JoinRoom:
		s.wsJoinRoom(ctx, client, m.RoomCode)
	case realtime.LeaveRoom:
		if !s.hub.DetachFromRoom(client, m.RoomCode) {
			s.hub.SendTo(client, realtime.ErrorMessage{Code: string(CodeNotRoomMember), Message: "You are not in that room"})
		}
	case realtime.SubscribeLobby:
		s.hub.SubscribeLobby(client)
	case realtime.UnsubscribeLobby:
		s.hub.UnsubscribeLobby(client)
	case realtime.Ping:
		s.hub.SendTo(client, realtime.Pong{})
	}
}

// wsJoinRoom attaches the socket to a room the user already belongs to.
// Membership itself is only created through the REST join.
func (s *Server) wsJoinRoom(ctx context.Context, client *realtime.Client, code string) {
	room, err := s.engine.RoomByCode(ctx, code)
	if err != nil {
		s.wsFail(client, err)
		return
	}
	member, err := s.engine.IsMember(ctx, room.ID, client.UserID)
	if err != nil {
		s.wsFail(client, err)
		return
	}
	if !member {
		s.wsFail(client, &rooms.Error{Kind: rooms.KindNotMember, RoomID: room.ID, RoomCode: room.Code, UserID: client.UserID})
		return
	}
	roster, err := s.engine.Roster(ctx, room)
	if err != nil {
		s.wsFail(client, err)
		return
	}

	self := models.Player{ID: client.UserID, Name: client.Name, Image: client.Image, IsHost: room.HostID == client.UserID}
	for _, p := range roster {
		if p.ID == client.UserID {
			self = p
			break
		}
	}

	s.hub.AttachToRoom(client, room, roster, self)
	if !s.confirmRoomAlive(ctx, room) {
		return
	}
	if len(roster) >= room.MaxPlayers {
		s.hub.RoomReadyTo(client, room)
	}
}

// confirmRoomAlive re-reads the room after a socket attached to it. The room
// may have been deleted between the membership check and the attach, in
// which case its deletion broadcast missed this socket; the hub's set for it
// is closed and its sockets get room_deleted.
func (s *Server) confirmRoomAlive(ctx context.Context, room *models.Room) bool {
	current, err := s.engine.RoomByCode(ctx, room.Code)
	if err == nil && current.ID == room.ID {
		return true
	}
	if err != nil && rooms.KindOf(err) != rooms.KindNotFound {
		s.logger.WithField("room_code", room.Code).WithError(err).Warn("failed to re-check room after attach")
		return true
	}
	s.hub.CloseRoom(room.ID, room.Code)
	return false
}

func (s *Server) wsFail(client *realtime.Client, err error) {
	_, code, message := classify(err)
	if code == CodeInternal {
		s.logger.WithField("user_id", client.UserID).WithError(err).Error("websocket request failed")
	}
	s.hub.SendTo(client, realtime.ErrorMessage{Code: string(code), Message: message})
}

// writePump writes queued frames and pings the peer periodically. It cancels
// the connection context when it stops so the read pump exits too.
func (s *Server) writePump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(s.opts.PingPeriod)
	defer ticker.Stop()
	defer cancel()
	log := s.logger.WithFields(logrus.Fields{"user_id": client.UserID, "client_id": client.ID})

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			if client.Dropped() {
				log.Warn("closing websocket, send buffer overflowed")
				conn.Close(SendBufferFullError, "send buffer overflow")
			}
			return
		case frame := <-client.Send():
			writeCtx, writeCancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			writeCancel()
			if err != nil {
				log.Warnf("failed to write to websocket: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, s.opts.WriteTimeout*3)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				log.Warnf("failed to send ping: %v. Assuming disconnect.", err)
				return
			}
		}
	}
}
