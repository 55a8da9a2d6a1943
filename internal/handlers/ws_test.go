package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/caiocezartg/squad-finder-sub000/internal/realtime"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) realtime.Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var env realtime.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))
}

func payload[T any](t *testing.T, env realtime.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Payload, &v))
	return v
}

func TestWS_RejectsUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn := dialWS(t, srv, "")
	msg := readEnvelope(t, conn)
	assert.Equal(t, realtime.TypeError, msg.Type)
	assert.Equal(t, string(CodeUnauthorized), payload[realtime.ErrorMessage](t, msg).Code)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, InvalidAuthTokenError, websocket.CloseStatus(err))
}

func TestWS_InvalidMessageKeepsConnection(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	_, token := env.user(t, "Ana")
	conn := dialWS(t, srv, token)

	for _, frame := range []string{`not json`, `{"type":"dance"}`, `{"type":"join_room","payload":{}}`} {
		writeFrame(t, conn, frame)
		msg := readEnvelope(t, conn)
		require.Equal(t, realtime.TypeError, msg.Type, frame)
		assert.Equal(t, string(CodeInvalidMessage), payload[realtime.ErrorMessage](t, msg).Code)
	}

	writeFrame(t, conn, `{"type":"ping"}`)
	assert.Equal(t, realtime.TypePong, readEnvelope(t, conn).Type)
}

func TestWS_LobbySubscribersReceiveEachCreationOnce(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	_, aliceToken := env.user(t, "Alice")
	_, bobToken := env.user(t, "Bob")
	_, hostToken := env.user(t, "Host")

	viewers := []*websocket.Conn{dialWS(t, srv, aliceToken), dialWS(t, srv, bobToken)}
	for _, conn := range viewers {
		writeFrame(t, conn, `{"type":"subscribe_lobby"}`)
		require.Equal(t, realtime.TypeLobbySubscribed, readEnvelope(t, conn).Type)
	}

	room := env.createRoom(t, hostToken, nil)
	env.createRoom(t, hostToken, map[string]any{"isPrivate": true})

	for _, conn := range viewers {
		msg := readEnvelope(t, conn)
		require.Equal(t, realtime.TypeRoomCreated, msg.Type)
		assert.Equal(t, room.Code, payload[realtime.RoomCreated](t, msg).Room.Code)

		// The next frame must be the pong, proving no duplicate and no private room.
		writeFrame(t, conn, `{"type":"ping"}`)
		assert.Equal(t, realtime.TypePong, readEnvelope(t, conn).Type)
	}
}

func TestWS_JoinRoomFlow(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	hostID, hostToken := env.user(t, "Host")
	guestID, guestToken := env.user(t, "Guest")
	_, outsiderToken := env.user(t, "Outsider")

	room := env.createRoom(t, hostToken, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/rooms/"+room.Code+"/join", guestToken, nil).Code)

	host := dialWS(t, srv, hostToken)
	writeFrame(t, host, `{"type":"join_room","payload":{"roomCode":"`+strings.ToLower(room.Code)+`"}}`)
	msg := readEnvelope(t, host)
	require.Equal(t, realtime.TypeRoomJoined, msg.Type)
	joined := payload[realtime.RoomJoined](t, msg)
	assert.Equal(t, room.Code, joined.RoomCode)
	require.Len(t, joined.Players, 2)
	assert.Equal(t, hostID, joined.Players[0].ID)
	assert.True(t, joined.Players[0].IsHost)

	guest := dialWS(t, srv, guestToken)
	writeFrame(t, guest, `{"type":"join_room","payload":{"roomCode":"`+room.Code+`"}}`)
	require.Equal(t, realtime.TypeRoomJoined, readEnvelope(t, guest).Type)

	msg = readEnvelope(t, host)
	require.Equal(t, realtime.TypePlayerJoined, msg.Type)
	assert.Equal(t, guestID, payload[realtime.PlayerJoined](t, msg).Player.ID)

	writeFrame(t, guest, `{"type":"leave_room","payload":{"roomCode":"`+room.Code+`"}}`)
	msg = readEnvelope(t, host)
	require.Equal(t, realtime.TypePlayerLeft, msg.Type)
	assert.Equal(t, guestID, payload[realtime.PlayerLeft](t, msg).PlayerID)

	outsider := dialWS(t, srv, outsiderToken)
	writeFrame(t, outsider, `{"type":"join_room","payload":{"roomCode":"`+room.Code+`"}}`)
	msg = readEnvelope(t, outsider)
	require.Equal(t, realtime.TypeError, msg.Type)
	assert.Equal(t, string(CodeNotRoomMember), payload[realtime.ErrorMessage](t, msg).Code)

	writeFrame(t, outsider, `{"type":"join_room","payload":{"roomCode":"NOPE00"}}`)
	msg = readEnvelope(t, outsider)
	assert.Equal(t, string(CodeRoomNotFound), payload[realtime.ErrorMessage](t, msg).Code)
}

func TestWS_HostLeaveDeletesRoomForSockets(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	_, hostToken := env.user(t, "Host")
	_, guestToken := env.user(t, "Guest")

	room := env.createRoom(t, hostToken, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/rooms/"+room.Code+"/join", guestToken, nil).Code)

	guest := dialWS(t, srv, guestToken)
	writeFrame(t, guest, `{"type":"join_room","payload":{"roomCode":"`+room.Code+`"}}`)
	require.Equal(t, realtime.TypeRoomJoined, readEnvelope(t, guest).Type)

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/rooms/"+room.Code+"/leave", hostToken, nil).Code)
	msg := readEnvelope(t, guest)
	require.Equal(t, realtime.TypeRoomDeleted, msg.Type)
	assert.Equal(t, 0, env.hub.RoomSockets(room.Code))
}

func TestWS_LateSocketAloneGetsRoomReady(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	_, hostToken := env.user(t, "Host")
	guestID, guestToken := env.user(t, "Guest")

	room := env.createRoom(t, hostToken, map[string]any{"maxPlayers": 2})
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/rooms/"+room.Code+"/join", guestToken, nil).Code)
	join := `{"type":"join_room","payload":{"roomCode":"` + room.Code + `"}}`

	host := dialWS(t, srv, hostToken)
	writeFrame(t, host, join)
	require.Equal(t, realtime.TypeRoomJoined, readEnvelope(t, host).Type)
	require.Equal(t, realtime.TypeRoomReady, readEnvelope(t, host).Type)

	guest := dialWS(t, srv, guestToken)
	writeFrame(t, guest, join)
	require.Equal(t, realtime.TypeRoomJoined, readEnvelope(t, guest).Type)
	require.Equal(t, realtime.TypeRoomReady, readEnvelope(t, guest).Type)

	msg := readEnvelope(t, host)
	require.Equal(t, realtime.TypePlayerJoined, msg.Type)
	assert.Equal(t, guestID, payload[realtime.PlayerJoined](t, msg).Player.ID)

	// No second room_ready may precede the pong.
	writeFrame(t, host, `{"type":"ping"}`)
	assert.Equal(t, realtime.TypePong, readEnvelope(t, host).Type)
}

func TestConfirmRoomAlive_ClosesSetOfDeletedRoom(t *testing.T) {
	env := newTestEnv(t)
	hostID, hostToken := env.user(t, "Host")
	_, guestToken := env.user(t, "Guest")
	listing := env.createRoom(t, hostToken, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/rooms/"+listing.Code+"/join", guestToken, nil).Code)

	ctx := context.Background()
	room, err := env.engine.RoomByCode(ctx, listing.Code)
	require.NoError(t, err)

	client := realtime.NewClient(models.User{ID: uuid.New(), Name: "Guest"}, 8)
	env.hub.Register(client)
	env.hub.AttachToRoom(client, room, nil, models.Player{ID: client.UserID})
	<-client.Send()
	assert.True(t, env.server.confirmRoomAlive(ctx, room))
	assert.Equal(t, 1, env.hub.RoomSockets(room.Code))

	// The host leaves without the hub hearing about it, as when the leave
	// lands between the membership check and the attach.
	_, err = env.engine.LeaveRoom(ctx, room.ID, hostID)
	require.NoError(t, err)

	assert.False(t, env.server.confirmRoomAlive(ctx, room))
	select {
	case frame := <-client.Send():
		assert.Contains(t, string(frame), `"type":"room_deleted"`)
	default:
		t.Fatal("socket attached to a deleted room should receive room_deleted")
	}
	assert.Zero(t, env.hub.RoomSockets(room.Code))
	assert.Equal(t, "", env.hub.CurrentRoom(client))
}

func TestRouter_WebsocketMuxKeepsRESTRoutes(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", "", nil).Code)

	w := env.do(t, http.MethodPost, "/ws", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorBody](t, w).Error.Code)
}
