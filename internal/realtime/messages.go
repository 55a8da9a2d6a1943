package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

// MessageType is the "type" tag of a socket envelope.
type MessageType string

// Client to server.
const (
	TypeJoinRoom         MessageType = "join_room"
	TypeLeaveRoom        MessageType = "leave_room"
	TypeSubscribeLobby   MessageType = "subscribe_lobby"
	TypeUnsubscribeLobby MessageType = "unsubscribe_lobby"
	TypePing             MessageType = "ping"
)

// Server to client.
const (
	TypeRoomJoined      MessageType = "room_joined"
	TypePlayerJoined    MessageType = "player_joined"
	TypePlayerLeft      MessageType = "player_left"
	TypeRoomReady       MessageType = "room_ready"
	TypeRoomCreated     MessageType = "room_created"
	TypeRoomUpdated     MessageType = "room_updated"
	TypeRoomDeleted     MessageType = "room_deleted"
	TypeLobbySubscribed MessageType = "lobby_subscribed"
	TypeError           MessageType = "error"
	TypePong            MessageType = "pong"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ErrInvalidMessage wraps every decoding failure of a client frame.
var ErrInvalidMessage = errors.New("invalid message")

// ClientMessage is one of JoinRoom, LeaveRoom, SubscribeLobby,
// UnsubscribeLobby or Ping.
type ClientMessage interface {
	clientMessage()
}

type JoinRoom struct {
	RoomCode string `json:"roomCode"`
}

type LeaveRoom struct {
	RoomCode string `json:"roomCode"`
}

type SubscribeLobby struct{}

type UnsubscribeLobby struct{}

type Ping struct{}

func (JoinRoom) clientMessage()         {}
func (LeaveRoom) clientMessage()        {}
func (SubscribeLobby) clientMessage()   {}
func (UnsubscribeLobby) clientMessage() {}
func (Ping) clientMessage()             {}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMessage, fmt.Sprintf(format, args...))
}

// DecodeClientMessage parses one text frame into a ClientMessage.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, invalidf("malformed json")
	}

	switch env.Type {
	case TypeJoinRoom:
		var m JoinRoom
		if err := decodePayload(env.Payload, &m); err != nil {
			return nil, err
		}
		if strings.TrimSpace(m.RoomCode) == "" {
			return nil, invalidf("roomCode is required")
		}
		return m, nil
	case TypeLeaveRoom:
		var m LeaveRoom
		if err := decodePayload(env.Payload, &m); err != nil {
			return nil, err
		}
		if strings.TrimSpace(m.RoomCode) == "" {
			return nil, invalidf("roomCode is required")
		}
		return m, nil
	case TypeSubscribeLobby:
		return SubscribeLobby{}, nil
	case TypeUnsubscribeLobby:
		return UnsubscribeLobby{}, nil
	case TypePing:
		return Ping{}, nil
	case "":
		return nil, invalidf("missing type")
	default:
		return nil, invalidf("unknown type %q", env.Type)
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return invalidf("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidf("malformed payload")
	}
	return nil
}

// ServerMessage is a payload the server sends inside an Envelope.
type ServerMessage interface {
	messageType() MessageType
}

type RoomJoined struct {
	RoomID   uuid.UUID       `json:"roomId"`
	RoomCode string          `json:"roomCode"`
	Players  []models.Player `json:"players"`
}

type PlayerJoined struct {
	Player models.Player `json:"player"`
}

type PlayerLeft struct {
	PlayerID uuid.UUID `json:"playerId"`
}

type RoomReady struct {
	RoomID   uuid.UUID `json:"roomId"`
	RoomCode string    `json:"roomCode"`
	Message  string    `json:"message"`
}

type RoomCreated struct {
	Room models.RoomListing `json:"room"`
}

type RoomUpdated struct {
	RoomID      uuid.UUID `json:"roomId"`
	RoomCode    string    `json:"roomCode"`
	MemberCount int       `json:"memberCount"`
}

type RoomDeleted struct {
	RoomID   uuid.UUID `json:"roomId"`
	RoomCode string    `json:"roomCode"`
}

type LobbySubscribed struct {
	Message string `json:"message"`
}

type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Pong struct{}

func (RoomJoined) messageType() MessageType      { return TypeRoomJoined }
func (PlayerJoined) messageType() MessageType    { return TypePlayerJoined }
func (PlayerLeft) messageType() MessageType      { return TypePlayerLeft }
func (RoomReady) messageType() MessageType       { return TypeRoomReady }
func (RoomCreated) messageType() MessageType     { return TypeRoomCreated }
func (RoomUpdated) messageType() MessageType     { return TypeRoomUpdated }
func (RoomDeleted) messageType() MessageType     { return TypeRoomDeleted }
func (LobbySubscribed) messageType() MessageType { return TypeLobbySubscribed }
func (ErrorMessage) messageType() MessageType    { return TypeError }
func (Pong) messageType() MessageType            { return TypePong }

// Encode wraps msg in an Envelope stamped with at.
func Encode(msg ServerMessage, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.messageType(), err)
	}
	return json.Marshal(Envelope{Type: msg.messageType(), Timestamp: at.UTC(), Payload: payload})
}
