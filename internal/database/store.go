// internal/database/store.go
package database

import (
	"context"
	"errors"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("database: record not found")
	// ErrDuplicateCode is returned when a room insert collides on the room code.
	ErrDuplicateCode = errors.New("database: room code already in use")
	// ErrDuplicateMember is returned when (room, user) already has a membership row.
	ErrDuplicateMember = errors.New("database: user is already a member of the room")
)

// Querier is the set of statements the service runs against the relational store.
// Both a Store and the handle passed to RunInTx satisfy it.
type Querier interface {
	InsertRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	// LockRoom reads a room and holds a row lock on it until the enclosing
	// transaction ends. Outside RunInTx it behaves like GetRoom.
	LockRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListOpenRooms(ctx context.Context) ([]models.RoomListing, error)
	ListRoomsByHost(ctx context.Context, userID uuid.UUID) ([]models.RoomListing, error)
	ListRoomsJoinedBy(ctx context.Context, userID uuid.UUID) ([]models.RoomListing, error)
	ListIncompleteWaitingRooms(ctx context.Context) ([]models.Room, error)
	ListRoomsUpdatedBefore(ctx context.Context, cutoff time.Time) ([]models.Room, error)
	// MarkRoomCompleted stamps completed_at if it is still null and reports
	// whether this call did the stamping.
	MarkRoomCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	TouchRoom(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdateRoomDiscordLink(ctx context.Context, id uuid.UUID, link *string, at time.Time) error
	DeleteRoom(ctx context.Context, id uuid.UUID) error

	InsertMember(ctx context.Context, member *models.RoomMember) error
	GetMember(ctx context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error)
	DeleteMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
	DeleteMembers(ctx context.Context, roomID uuid.UUID) (int64, error)
	CountMembers(ctx context.Context, roomID uuid.UUID) (int, error)
	ListMembers(ctx context.Context, roomID uuid.UUID) ([]models.RoomMember, error)

	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error)

	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	ListGames(ctx context.Context) ([]models.Game, error)

	InsertNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error)
	DeleteNotification(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

// Store is the room store used by the lifecycle engine.
type Store interface {
	Querier

	// RunInTx runs fn inside a single transaction. If fn returns an error the
	// transaction is rolled back and the error is returned unchanged.
	RunInTx(ctx context.Context, fn func(q Querier) error) error
	Ping(ctx context.Context) error
}
