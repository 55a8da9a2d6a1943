// Package memdb is an in-memory implementation of database.Store. It backs
// the server when no DATABASE_URL is configured and is used by tests.
package memdb

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

// Store keeps every table in maps guarded by a single mutex. Transactions
// hold the mutex for their whole duration, so they are fully serialized.
type Store struct {
	mu sync.Mutex
	t  tables
}

type tables struct {
	rooms         map[uuid.UUID]models.Room
	codes         map[string]uuid.UUID
	members       map[uuid.UUID]map[uuid.UUID]models.RoomMember // roomID -> userID -> member
	users         map[uuid.UUID]models.User
	games         map[uuid.UUID]models.Game
	notifications map[uuid.UUID]models.Notification
}

var (
	_ database.Store   = (*Store)(nil)
	_ database.Querier = (*tx)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{t: tables{
		rooms:         make(map[uuid.UUID]models.Room),
		codes:         make(map[string]uuid.UUID),
		members:       make(map[uuid.UUID]map[uuid.UUID]models.RoomMember),
		users:         make(map[uuid.UUID]models.User),
		games:         make(map[uuid.UUID]models.Game),
		notifications: make(map[uuid.UUID]models.Notification),
	}}
}

func (t *tables) clone() tables {
	c := tables{
		rooms:         maps.Clone(t.rooms),
		codes:         maps.Clone(t.codes),
		members:       make(map[uuid.UUID]map[uuid.UUID]models.RoomMember, len(t.members)),
		users:         maps.Clone(t.users),
		games:         maps.Clone(t.games),
		notifications: maps.Clone(t.notifications),
	}
	for roomID, set := range t.members {
		c.members[roomID] = maps.Clone(set)
	}
	return c
}

// PutUser inserts or replaces a user. Users are owned by the auth provider,
// so this exists only for seeding.
func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.users[u.ID] = u
}

// PutGame inserts or replaces a catalog entry.
func (s *Store) PutGame(g models.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.games[g.ID] = g
}

// RunInTx implements database.Store. Changes made by fn are discarded if it fails.
func (s *Store) RunInTx(ctx context.Context, fn func(q database.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.t.clone()
	if err := fn(&tx{t: &s.t}); err != nil {
		s.t = snapshot
		return err
	}
	return nil
}

// Ping implements database.Store.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// locked runs fn against the tables while holding the store mutex.
func locked[T any](s *Store, fn func(q *tx) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&tx{t: &s.t})
}

// tx implements database.Querier on tables whose mutex is already held.
type tx struct {
	t *tables
}

func sortListings(list []models.RoomListing) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func (q *tx) listing(r models.Room) models.RoomListing {
	return models.RoomListing{Room: r, MemberCount: len(q.t.members[r.ID])}
}

func (q *tx) InsertRoom(_ context.Context, room *models.Room) error {
	if _, taken := q.t.codes[room.Code]; taken {
		return database.ErrDuplicateCode
	}
	r := *room
	if r.Tags == nil {
		r.Tags = []string{}
	}
	q.t.rooms[r.ID] = r
	q.t.codes[r.Code] = r.ID
	return nil
}

func (q *tx) GetRoom(_ context.Context, id uuid.UUID) (*models.Room, error) {
	r, ok := q.t.rooms[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &r, nil
}

func (q *tx) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	id, ok := q.t.codes[code]
	if !ok {
		return nil, database.ErrNotFound
	}
	return q.GetRoom(ctx, id)
}

func (q *tx) LockRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	return q.GetRoom(ctx, id)
}

func (q *tx) ListOpenRooms(_ context.Context) ([]models.RoomListing, error) {
	list := []models.RoomListing{}
	for _, r := range q.t.rooms {
		if r.Status == models.RoomStatusWaiting && !r.IsPrivate {
			list = append(list, q.listing(r))
		}
	}
	sortListings(list)
	return list, nil
}

func (q *tx) ListRoomsByHost(_ context.Context, userID uuid.UUID) ([]models.RoomListing, error) {
	list := []models.RoomListing{}
	for _, r := range q.t.rooms {
		if r.HostID == userID {
			list = append(list, q.listing(r))
		}
	}
	sortListings(list)
	return list, nil
}

func (q *tx) ListRoomsJoinedBy(_ context.Context, userID uuid.UUID) ([]models.RoomListing, error) {
	list := []models.RoomListing{}
	for roomID, set := range q.t.members {
		if _, ok := set[userID]; !ok {
			continue
		}
		r, ok := q.t.rooms[roomID]
		if !ok || r.HostID == userID {
			continue
		}
		list = append(list, q.listing(r))
	}
	sortListings(list)
	return list, nil
}

func (q *tx) ListIncompleteWaitingRooms(_ context.Context) ([]models.Room, error) {
	var rooms []models.Room
	for _, r := range q.t.rooms {
		if r.Status == models.RoomStatusWaiting && r.CompletedAt == nil {
			rooms = append(rooms, r)
		}
	}
	return rooms, nil
}

func (q *tx) ListRoomsUpdatedBefore(_ context.Context, cutoff time.Time) ([]models.Room, error) {
	var rooms []models.Room
	for _, r := range q.t.rooms {
		if r.UpdatedAt.Before(cutoff) {
			rooms = append(rooms, r)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].UpdatedAt.Before(rooms[j].UpdatedAt) })
	return rooms, nil
}

func (q *tx) MarkRoomCompleted(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r, ok := q.t.rooms[id]
	if !ok || r.CompletedAt != nil {
		return false, nil
	}
	r.CompletedAt = &at
	r.UpdatedAt = at
	q.t.rooms[id] = r
	return true, nil
}

func (q *tx) TouchRoom(_ context.Context, id uuid.UUID, at time.Time) error {
	r, ok := q.t.rooms[id]
	if !ok {
		return database.ErrNotFound
	}
	r.UpdatedAt = at
	q.t.rooms[id] = r
	return nil
}

func (q *tx) UpdateRoomDiscordLink(_ context.Context, id uuid.UUID, link *string, at time.Time) error {
	r, ok := q.t.rooms[id]
	if !ok {
		return database.ErrNotFound
	}
	r.DiscordLink = link
	r.UpdatedAt = at
	q.t.rooms[id] = r
	return nil
}

func (q *tx) DeleteRoom(_ context.Context, id uuid.UUID) error {
	r, ok := q.t.rooms[id]
	if !ok {
		return database.ErrNotFound
	}
	delete(q.t.rooms, id)
	delete(q.t.codes, r.Code)
	delete(q.t.members, id)
	return nil
}

func (q *tx) InsertMember(_ context.Context, m *models.RoomMember) error {
	if _, ok := q.t.rooms[m.RoomID]; !ok {
		return database.ErrNotFound
	}
	set, ok := q.t.members[m.RoomID]
	if !ok {
		set = make(map[uuid.UUID]models.RoomMember)
		q.t.members[m.RoomID] = set
	}
	if _, dup := set[m.UserID]; dup {
		return database.ErrDuplicateMember
	}
	set[m.UserID] = *m
	return nil
}

func (q *tx) GetMember(_ context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error) {
	m, ok := q.t.members[roomID][userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &m, nil
}

func (q *tx) DeleteMember(_ context.Context, roomID, userID uuid.UUID) (bool, error) {
	set := q.t.members[roomID]
	if _, ok := set[userID]; !ok {
		return false, nil
	}
	delete(set, userID)
	return true, nil
}

func (q *tx) DeleteMembers(_ context.Context, roomID uuid.UUID) (int64, error) {
	n := int64(len(q.t.members[roomID]))
	delete(q.t.members, roomID)
	return n, nil
}

func (q *tx) CountMembers(_ context.Context, roomID uuid.UUID) (int, error) {
	return len(q.t.members[roomID]), nil
}

func (q *tx) ListMembers(_ context.Context, roomID uuid.UUID) ([]models.RoomMember, error) {
	var list []models.RoomMember
	for _, m := range q.t.members[roomID] {
		list = append(list, m)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].ID.String() < list[j].ID.String()
		}
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list, nil
}

func (q *tx) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := q.t.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &u, nil
}

func (q *tx) GetUsers(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	users := make(map[uuid.UUID]models.User, len(ids))
	for _, id := range ids {
		if u, ok := q.t.users[id]; ok {
			users[id] = u
		}
	}
	return users, nil
}

func (q *tx) GetGame(_ context.Context, id uuid.UUID) (*models.Game, error) {
	g, ok := q.t.games[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &g, nil
}

func (q *tx) ListGames(_ context.Context) ([]models.Game, error) {
	games := []models.Game{}
	for _, g := range q.t.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Name < games[j].Name })
	return games, nil
}

func (q *tx) InsertNotification(_ context.Context, n *models.Notification) error {
	if _, exists := q.t.notifications[n.ID]; exists {
		return nil
	}
	q.t.notifications[n.ID] = *n
	return nil
}

func (q *tx) ListNotifications(_ context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	list := []models.Notification{}
	for _, n := range q.t.notifications {
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		list = append(list, n)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (q *tx) MarkNotificationRead(_ context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	n, ok := q.t.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
		q.t.notifications[id] = n
	}
	return true, nil
}

func (q *tx) DeleteNotification(_ context.Context, id, userID uuid.UUID) (bool, error) {
	n, ok := q.t.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	delete(q.t.notifications, id)
	return true, nil
}
