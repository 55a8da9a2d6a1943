package rooms_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/caiocezartg/squad-finder-sub000/internal/database/memdb"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	valorantID = uuid.MustParse("6f1c2a8e-3d1b-4c55-9a6e-1f0b8c7d2e01")
	amongUsID  = uuid.MustParse("6f1c2a8e-3d1b-4c55-9a6e-1f0b8c7d2e05")
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func seededStore() *memdb.Store {
	store := memdb.New()
	store.PutGame(models.Game{ID: valorantID, Name: "Valorant", Slug: "valorant", MinPlayers: 2, MaxPlayers: 5})
	store.PutGame(models.Game{ID: amongUsID, Name: "Among Us", Slug: "among-us", MinPlayers: 4, MaxPlayers: 15})
	return store
}

func newEngine(t *testing.T, store database.Store, opts ...rooms.Option) *rooms.Engine {
	t.Helper()
	return rooms.NewEngine(store, quietLogger(), opts...)
}

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func createRoom(t *testing.T, e *rooms.Engine, host uuid.UUID, maxPlayers *int) *models.Room {
	t.Helper()
	room, err := e.CreateRoom(context.Background(), rooms.CreateParams{
		Name:       "Ranked grind",
		GameID:     valorantID,
		MaxPlayers: maxPlayers,
		HostID:     host,
	})
	require.NoError(t, err)
	return room
}

// spyStore wraps a real store and records the writes made inside transactions.
type spyStore struct {
	*memdb.Store
	mock.Mock
}

func (s *spyStore) RunInTx(ctx context.Context, fn func(q database.Querier) error) error {
	return s.Store.RunInTx(ctx, func(q database.Querier) error {
		return fn(&spyQuerier{Querier: q, m: &s.Mock})
	})
}

type spyQuerier struct {
	database.Querier
	m *mock.Mock
}

func (q *spyQuerier) InsertRoom(ctx context.Context, room *models.Room) error {
	args := q.m.Called(room.Code)
	if err := args.Error(0); err != nil {
		return err
	}
	return q.Querier.InsertRoom(ctx, room)
}

func (q *spyQuerier) InsertMember(ctx context.Context, m *models.RoomMember) error {
	q.m.Called(m.RoomID, m.UserID)
	return q.Querier.InsertMember(ctx, m)
}

// recordingPublisher collects published events in order.
type recordingPublisher struct {
	mu      sync.Mutex
	deleted []rooms.DeletedRoom
	updated []int
	ready   []uuid.UUID
	created []models.RoomListing
}

func (p *recordingPublisher) RoomCreated(room models.RoomListing) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, room)
}

func (p *recordingPublisher) RoomUpdated(_ uuid.UUID, _ string, memberCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated = append(p.updated, memberCount)
}

func (p *recordingPublisher) RoomDeleted(id uuid.UUID, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, rooms.DeletedRoom{ID: id, Code: code})
}

func (p *recordingPublisher) RoomReady(room *models.Room) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = append(p.ready, room.ID)
}
