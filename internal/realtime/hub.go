// Package realtime keeps the in-memory registry of live sockets and fans
// room lifecycle events out to them.
package realtime

import (
	"sync"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const roomReadyMessage = "Room is full! Head to Discord and start playing."

// Hub tracks which client is in which room and which clients watch the
// lobby. Every send happens under mu, so events reach a room's sockets in the
// order the hub processed them.
type Hub struct {
	mu      sync.Mutex
	clients map[*Client]struct{}
	rooms   map[string]*roomSockets // room code -> sockets
	lobby   map[*Client]struct{}

	logger *logrus.Logger
	now    func() time.Time
}

// roomSockets is the socket set of one room. Codes are reused once a room is
// gone, so the set remembers which room it belongs to.
type roomSockets struct {
	id      uuid.UUID
	clients map[*Client]struct{}
}

var _ rooms.Publisher = (*Hub)(nil)

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		rooms:   make(map[string]*roomSockets),
		lobby:   make(map[*Client]struct{}),
		logger:  logger,
		now:     time.Now,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Unregister removes the client from every set, tells its room it left and
// closes it. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	delete(h.clients, c)
	delete(h.lobby, c)
	h.detachLocked(c)
	c.close()
}

// roomLocked returns the socket set of the room with this id and code, or nil.
func (h *Hub) roomLocked(roomID uuid.UUID, code string) *roomSockets {
	rs := h.rooms[code]
	if rs == nil || rs.id != roomID {
		return nil
	}
	return rs
}

// takeRoomLocked removes the room's socket set and returns its sockets.
func (h *Hub) takeRoomLocked(roomID uuid.UUID, code string) []*Client {
	rs := h.roomLocked(roomID, code)
	if rs == nil {
		return nil
	}
	delete(h.rooms, code)
	out := members(rs.clients, nil)
	for _, c := range out {
		c.room = nil
	}
	return out
}

// AttachToRoom puts the client in room's socket set. A client is in at most
// one room; attaching elsewhere detaches it from the previous room first.
// The client gets the roster, the others in the room get one player_joined.
// A set left under the same code by a room that no longer exists is closed
// and its sockets get room_deleted.
func (h *Hub) AttachToRoom(c *Client, room *models.Room, roster []models.Player, self models.Player) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	already := c.room != nil && c.room.id == room.ID
	if c.room != nil && !already {
		h.detachLocked(c)
	}

	rs := h.rooms[room.Code]
	if rs != nil && rs.id != room.ID {
		staleID := rs.id
		stale := h.takeRoomLocked(staleID, room.Code)
		h.sendLocked(stale, RoomDeleted{RoomID: staleID, RoomCode: room.Code})
		rs = nil
	}
	if rs == nil {
		rs = &roomSockets{id: room.ID, clients: make(map[*Client]struct{})}
		h.rooms[room.Code] = rs
	}
	others := members(rs.clients, c)
	rs.clients[c] = struct{}{}
	c.room = &roomRef{id: room.ID, code: room.Code}

	h.sendLocked([]*Client{c}, RoomJoined{RoomID: room.ID, RoomCode: room.Code, Players: roster})
	if !already {
		h.sendLocked(others, PlayerJoined{Player: self})
	}

	h.logger.WithFields(logrus.Fields{
		"room_code": room.Code,
		"user_id":   c.UserID,
		"sockets":   len(rs.clients),
	}).Debug("socket attached to room")
}

// DetachFromRoom removes the client from the room with the given code. It
// reports false if the client was not attached to that room.
func (h *Hub) DetachFromRoom(c *Client, code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.room == nil || c.room.code != rooms.NormalizeCode(code) {
		return false
	}
	h.detachLocked(c)
	return true
}

func (h *Hub) detachLocked(c *Client) {
	if c.room == nil {
		return
	}
	ref := c.room
	c.room = nil

	rs := h.roomLocked(ref.id, ref.code)
	if rs == nil {
		return
	}
	delete(rs.clients, c)
	if len(rs.clients) == 0 {
		delete(h.rooms, ref.code)
		return
	}
	h.sendLocked(members(rs.clients, nil), PlayerLeft{PlayerID: c.UserID})
}

// DetachUser detaches every socket of userID from the room, for when the user
// left through the REST API. It returns how many sockets were detached.
func (h *Hub) DetachUser(roomID uuid.UUID, code string, userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs := h.roomLocked(roomID, code)
	if rs == nil {
		return 0
	}
	n := 0
	for _, c := range members(rs.clients, nil) {
		// A sibling may have been evicted by an earlier player_left.
		if c.UserID != userID || c.room == nil || c.room.id != roomID {
			continue
		}
		h.detachLocked(c)
		n++
	}
	return n
}

// CurrentRoom returns the code of the room the client is attached to, or "".
func (h *Hub) CurrentRoom(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.room == nil {
		return ""
	}
	return c.room.code
}

func (h *Hub) SubscribeLobby(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.lobby[c] = struct{}{}
	h.sendLocked([]*Client{c}, LobbySubscribed{Message: "Subscribed to lobby updates"})
}

func (h *Hub) UnsubscribeLobby(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.lobby, c)
}

// SendTo delivers a message to a single client.
func (h *Hub) SendTo(c *Client, msg ServerMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.sendLocked([]*Client{c}, msg)
}

// RoomCreated announces a new public room to lobby viewers.
func (h *Hub) RoomCreated(room models.RoomListing) {
	if room.IsPrivate {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(members(h.lobby, nil), RoomCreated{Room: room})
}

// RoomUpdated announces a member count change to lobby viewers.
func (h *Hub) RoomUpdated(roomID uuid.UUID, code string, memberCount int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(members(h.lobby, nil), RoomUpdated{RoomID: roomID, RoomCode: code, MemberCount: memberCount})
}

// RoomDeleted tells lobby viewers and every socket still in the room, then
// discards the room's socket set.
func (h *Hub) RoomDeleted(roomID uuid.UUID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	targets := members(h.lobby, nil)
	for _, c := range h.takeRoomLocked(roomID, code) {
		if _, watching := h.lobby[c]; !watching {
			targets = append(targets, c)
		}
	}
	h.sendLocked(targets, RoomDeleted{RoomID: roomID, RoomCode: code})
}

// CloseRoom sends room_deleted to the sockets still attached to a room that
// is already gone and discards its set. Lobby viewers are not told again.
func (h *Hub) CloseRoom(roomID uuid.UUID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sendLocked(h.takeRoomLocked(roomID, code), RoomDeleted{RoomID: roomID, RoomCode: code})
}

// RoomReady tells every socket in the room that it filled up.
func (h *Hub) RoomReady(room *models.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rs := h.roomLocked(room.ID, room.Code)
	if rs == nil {
		return
	}
	h.sendLocked(members(rs.clients, nil), roomReady(room))
}

// RoomReadyTo tells a single socket that its room is already full, for
// sockets that attach after the room filled up.
func (h *Hub) RoomReadyTo(c *Client, room *models.Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.room == nil || c.room.id != room.ID {
		return
	}
	h.sendLocked([]*Client{c}, roomReady(room))
}

func roomReady(room *models.Room) RoomReady {
	return RoomReady{RoomID: room.ID, RoomCode: room.Code, Message: roomReadyMessage}
}

// RoomSockets returns how many sockets are attached to the room.
func (h *Hub) RoomSockets(code string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rs := h.rooms[code]; rs != nil {
		return len(rs.clients)
	}
	return 0
}

// LobbyViewers returns how many sockets watch the lobby.
func (h *Hub) LobbyViewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.lobby)
}

// sendLocked encodes msg once and queues it on every target. Clients whose
// buffer is full are dropped.
func (h *Hub) sendLocked(targets []*Client, msg ServerMessage) {
	if len(targets) == 0 {
		return
	}
	frame, err := Encode(msg, h.now())
	if err != nil {
		h.logger.WithError(err).Error("failed to encode socket message")
		return
	}

	var slow []*Client
	for _, c := range targets {
		if !c.enqueue(frame) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		if _, ok := h.clients[c]; !ok {
			continue
		}
		h.logger.WithFields(logrus.Fields{"user_id": c.UserID, "client_id": c.ID}).Warn("send buffer full, dropping socket")
		c.dropped.Store(true)
		h.removeLocked(c)
	}
}

func members(set map[*Client]struct{}, except *Client) []*Client {
	out := make([]*Client, 0, len(set))
	for c := range set {
		if c != except {
			out = append(out, c)
		}
	}
	return out
}
