package rooms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

// unknownPlayerName is shown for members whose user record is missing.
const unknownPlayerName = "Player"

// NormalizeCode upper-cases and trims a user supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RoomByCode looks a room up by its code, case-insensitively.
func (e *Engine) RoomByCode(ctx context.Context, code string) (*models.Room, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, &Error{Kind: KindNotFound, RoomCode: code}
	}
	room, err := e.store.GetRoomByCode(ctx, code)
	if errors.Is(err, database.ErrNotFound) {
		return nil, &Error{Kind: KindNotFound, RoomCode: code}
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", code, err)
	}
	return room, nil
}

// ListOpenRooms returns waiting public rooms, newest first.
func (e *Engine) ListOpenRooms(ctx context.Context) ([]models.RoomListing, error) {
	list, err := e.store.ListOpenRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open rooms: %w", err)
	}
	return list, nil
}

// MyRooms is the caller's view of their own rooms.
type MyRooms struct {
	Hosted []models.RoomListing `json:"hosted"`
	Joined []models.RoomListing `json:"joined"`
}

func (e *Engine) MyRooms(ctx context.Context, userID uuid.UUID) (*MyRooms, error) {
	hosted, err := e.store.ListRoomsByHost(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list hosted rooms: %w", err)
	}
	joined, err := e.store.ListRoomsJoinedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list joined rooms: %w", err)
	}
	return &MyRooms{Hosted: hosted, Joined: joined}, nil
}

// IsMember reports whether userID has a membership record in the room.
func (e *Engine) IsMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	_, err := e.store.GetMember(ctx, roomID, userID)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get member: %w", err)
	}
	return true, nil
}

func toPlayer(room *models.Room, userID uuid.UUID, u *models.User) models.Player {
	p := models.Player{ID: userID, Name: unknownPlayerName, IsHost: room.HostID == userID}
	if u != nil {
		p.Name = u.Name
		p.Image = u.Image
	}
	return p
}

// Roster returns the room's members as players, in join order.
func (e *Engine) Roster(ctx context.Context, room *models.Room) ([]models.Player, error) {
	members, err := e.store.ListMembers(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	ids := make([]uuid.UUID, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	users, err := e.store.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	players := make([]models.Player, 0, len(members))
	for _, m := range members {
		var u *models.User
		if found, ok := users[m.UserID]; ok {
			u = &found
		}
		players = append(players, toPlayer(room, m.UserID, u))
	}
	return players, nil
}

// User returns the caller's identity, or a placeholder if the provider has
// not synced it yet.
func (e *Engine) User(ctx context.Context, userID uuid.UUID) (models.User, error) {
	u, err := e.store.GetUser(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return models.User{ID: userID, Name: unknownPlayerName}, nil
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return *u, nil
}

func (e *Engine) Games(ctx context.Context) ([]models.Game, error) {
	games, err := e.store.ListGames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

func (e *Engine) Notifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	list, err := e.store.ListNotifications(ctx, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return list, nil
}

// MarkNotificationRead acknowledges a notification owned by userID.
func (e *Engine) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	ok, err := e.store.MarkNotificationRead(ctx, id, userID, e.clock())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !ok {
		return &Error{Kind: KindNotificationNotFound, UserID: userID, Err: fmt.Errorf("notification %s", id)}
	}
	return nil
}

// DismissNotification deletes a notification owned by userID.
func (e *Engine) DismissNotification(ctx context.Context, id, userID uuid.UUID) error {
	ok, err := e.store.DeleteNotification(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if !ok {
		return &Error{Kind: KindNotificationNotFound, UserID: userID, Err: fmt.Errorf("notification %s", id)}
	}
	return nil
}
