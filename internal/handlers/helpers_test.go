package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/auth"
	"github.com/caiocezartg/squad-finder-sub000/internal/database/memdb"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/caiocezartg/squad-finder-sub000/internal/realtime"
	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var valorantID = uuid.MustParse("6f1c2a8e-3d1b-4c55-9a6e-1f0b8c7d2e01")

type testEnv struct {
	store    *memdb.Store
	engine   *rooms.Engine
	hub      *realtime.Hub
	sessions *auth.Sessions
	router   http.Handler
	server   *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memdb.New()
	store.PutGame(models.Game{ID: valorantID, Name: "Valorant", Slug: "valorant", MinPlayers: 2, MaxPlayers: 5})

	sessions, err := auth.NewSessions(time.Hour)
	require.NoError(t, err)

	engine := rooms.NewEngine(store, logger)
	hub := realtime.NewHub(logger)
	emitter := rooms.NewEmitter(engine, rooms.StoreSink{Store: store}, logger)
	srv := NewServer(engine, hub, emitter, sessions, store, logger, Options{
		PingPeriod: time.Minute,
		SendBuffer: 64,
		DevUsers:   store,
	})
	return &testEnv{store: store, engine: engine, hub: hub, sessions: sessions, router: srv.Router(), server: srv}
}

// user creates a user and returns its id and a session token.
func (e *testEnv) user(t *testing.T, name string) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	e.store.PutUser(models.User{ID: id, Name: name})
	token, err := e.sessions.Issue(id)
	require.NoError(t, err)
	return id, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) createRoom(t *testing.T, token string, body map[string]any) models.RoomListing {
	t.Helper()
	if body == nil {
		body = map[string]any{}
	}
	if _, ok := body["name"]; !ok {
		body["name"] = "Ranked grind"
	}
	if _, ok := body["gameId"]; !ok {
		body["gameId"] = valorantID
	}
	w := e.do(t, http.MethodPost, "/rooms", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.RoomListing](t, w)
}
