package memdb

import (
	"context"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

// The methods below run a single statement outside any transaction.

func (s *Store) InsertRoom(ctx context.Context, room *models.Room) error {
	_, err := locked(s, func(q *tx) (struct{}, error) { return struct{}{}, q.InsertRoom(ctx, room) })
	return err
}

func (s *Store) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	return locked(s, func(q *tx) (*models.Room, error) { return q.GetRoom(ctx, id) })
}

func (s *Store) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	return locked(s, func(q *tx) (*models.Room, error) { return q.GetRoomByCode(ctx, code) })
}

func (s *Store) LockRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	return s.GetRoom(ctx, id)
}

func (s *Store) ListOpenRooms(ctx context.Context) ([]models.RoomListing, error) {
	return locked(s, func(q *tx) ([]models.RoomListing, error) { return q.ListOpenRooms(ctx) })
}

func (s *Store) ListRoomsByHost(ctx context.Context, userID uuid.UUID) ([]models.RoomListing, error) {
	return locked(s, func(q *tx) ([]models.RoomListing, error) { return q.ListRoomsByHost(ctx, userID) })
}

func (s *Store) ListRoomsJoinedBy(ctx context.Context, userID uuid.UUID) ([]models.RoomListing, error) {
	return locked(s, func(q *tx) ([]models.RoomListing, error) { return q.ListRoomsJoinedBy(ctx, userID) })
}

func (s *Store) ListIncompleteWaitingRooms(ctx context.Context) ([]models.Room, error) {
	return locked(s, func(q *tx) ([]models.Room, error) { return q.ListIncompleteWaitingRooms(ctx) })
}

func (s *Store) ListRoomsUpdatedBefore(ctx context.Context, cutoff time.Time) ([]models.Room, error) {
	return locked(s, func(q *tx) ([]models.Room, error) { return q.ListRoomsUpdatedBefore(ctx, cutoff) })
}

func (s *Store) MarkRoomCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return locked(s, func(q *tx) (bool, error) { return q.MarkRoomCompleted(ctx, id, at) })
}

func (s *Store) TouchRoom(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := locked(s, func(q *tx) (struct{}, error) { return struct{}{}, q.TouchRoom(ctx, id, at) })
	return err
}

func (s *Store) UpdateRoomDiscordLink(ctx context.Context, id uuid.UUID, link *string, at time.Time) error {
	_, err := locked(s, func(q *tx) (struct{}, error) { return struct{}{}, q.UpdateRoomDiscordLink(ctx, id, link, at) })
	return err
}

func (s *Store) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	_, err := locked(s, func(q *tx) (struct{}, error) { return struct{}{}, q.DeleteRoom(ctx, id) })
	return err
}

func (s *Store) InsertMember(ctx context.Context, m *models.RoomMember) error {
	_, err := locked(s, func(q *tx) (struct{}, error) { return struct{}{}, q.InsertMember(ctx, m) })
	return err
}

func (s *Store) GetMember(ctx context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error) {
	return locked(s, func(q *tx) (*models.RoomMember, error) { return q.GetMember(ctx, roomID, userID) })
}

func (s *Store) DeleteMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	return locked(s, func(q *tx) (bool, error) { return q.DeleteMember(ctx, roomID, userID) })
}

func (s *Store) DeleteMembers(ctx context.Context, roomID uuid.UUID) (int64, error) {
	return locked(s, func(q *tx) (int64, error) { return q.DeleteMembers(ctx, roomID) })
}

func (s *Store) CountMembers(ctx context.Context, roomID uuid.UUID) (int, error) {
	return locked(s, func(q *tx) (int, error) { return q.CountMembers(ctx, roomID) })
}

func (s *Store) ListMembers(ctx context.Context, roomID uuid.UUID) ([]models.RoomMember, error) {
	return locked(s, func(q *tx) ([]models.RoomMember, error) { return q.ListMembers(ctx, roomID) })
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return locked(s, func(q *tx) (*models.User, error) { return q.GetUser(ctx, id) })
}

func (s *Store) GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	return locked(s, func(q *tx) (map[uuid.UUID]models.User, error) { return q.GetUsers(ctx, ids) })
}

func (s *Store) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return locked(s, func(q *tx) (*models.Game, error) { return q.GetGame(ctx, id) })
}

func (s *Store) ListGames(ctx context.Context) ([]models.Game, error) {
	return locked(s, func(q *tx) ([]models.Game, error) { return q.ListGames(ctx) })
}

func (s *Store) InsertNotification(ctx context.Context, n *models.Notification) error {
	_, err := locked(s, func(q *tx) (struct{}, error) { return struct{}{}, q.InsertNotification(ctx, n) })
	return err
}

func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	return locked(s, func(q *tx) ([]models.Notification, error) { return q.ListNotifications(ctx, userID, unreadOnly) })
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	return locked(s, func(q *tx) (bool, error) { return q.MarkNotificationRead(ctx, id, userID, at) })
}

func (s *Store) DeleteNotification(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	return locked(s, func(q *tx) (bool, error) { return q.DeleteNotification(ctx, id, userID) })
}
