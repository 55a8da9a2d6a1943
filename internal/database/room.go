// internal/database/room.go
package database

import (
	"context"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const roomColumns = `
	r.id, r.code, r.name, r.host_id, r.game_id, r.status, r.max_players,
	r.discord_link, r.is_private, r.tags, r.language, r.completed_at,
	r.created_at, r.updated_at`

const memberCountColumn = `
	(SELECT COUNT(*) FROM room_members m WHERE m.room_id = r.id) AS member_count`

func scanRoom(row pgx.Row, extra ...any) (*models.Room, error) {
	var r models.Room
	dest := []any{
		&r.ID, &r.Code, &r.Name, &r.HostID, &r.GameID, &r.Status, &r.MaxPlayers,
		&r.DiscordLink, &r.IsPrivate, &r.Tags, &r.Language, &r.CompletedAt,
		&r.CreatedAt, &r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, translateError(err)
	}
	return &r, nil
}

// InsertRoom creates a new room row.
func (q *queries) InsertRoom(ctx context.Context, room *models.Room) error {
	sql := `
	INSERT INTO rooms (
		id, code, name, host_id, game_id, status, max_players,
		discord_link, is_private, tags, language, completed_at,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	tags := room.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := q.db.Exec(ctx, sql,
		room.ID, room.Code, room.Name, room.HostID, room.GameID, room.Status, room.MaxPlayers,
		room.DiscordLink, room.IsPrivate, tags, room.Language, room.CompletedAt,
		room.CreatedAt, room.UpdatedAt,
	)
	return translateError(err)
}

// GetRoom fetches a room by ID.
func (q *queries) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	sql := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.id = $1`
	return scanRoom(q.db.QueryRow(ctx, sql, id))
}

// GetRoomByCode fetches a room by its (already normalized) code.
func (q *queries) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	sql := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.code = $1`
	return scanRoom(q.db.QueryRow(ctx, sql, code))
}

// LockRoom fetches a room and holds its row lock until the transaction ends.
// Concurrent joins on the same room serialize here.
func (q *queries) LockRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	sql := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.id = $1 FOR UPDATE`
	return scanRoom(q.db.QueryRow(ctx, sql, id))
}

func (q *queries) listRoomListings(ctx context.Context, sql string, args ...any) ([]models.RoomListing, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := []models.RoomListing{}
	for rows.Next() {
		var count int
		r, err := scanRoom(rows, &count)
		if err != nil {
			return nil, err
		}
		listings = append(listings, models.RoomListing{Room: *r, MemberCount: count})
	}
	return listings, rows.Err()
}

// ListOpenRooms returns waiting, public rooms, newest first.
func (q *queries) ListOpenRooms(ctx context.Context) ([]models.RoomListing, error) {
	sql := `
	SELECT ` + roomColumns + `,` + memberCountColumn + `
	FROM rooms r
	WHERE r.status = 'waiting' AND r.is_private = FALSE
	ORDER BY r.created_at DESC
	`
	return q.listRoomListings(ctx, sql)
}

// ListRoomsByHost returns rooms hosted by userID.
func (q *queries) ListRoomsByHost(ctx context.Context, userID uuid.UUID) ([]models.RoomListing, error) {
	sql := `
	SELECT ` + roomColumns + `,` + memberCountColumn + `
	FROM rooms r
	WHERE r.host_id = $1
	ORDER BY r.created_at DESC
	`
	return q.listRoomListings(ctx, sql, userID)
}

// ListRoomsJoinedBy returns rooms userID is a member of but does not host.
func (q *queries) ListRoomsJoinedBy(ctx context.Context, userID uuid.UUID) ([]models.RoomListing, error) {
	sql := `
	SELECT ` + roomColumns + `,` + memberCountColumn + `
	FROM rooms r
	JOIN room_members rm ON rm.room_id = r.id
	WHERE rm.user_id = $1 AND r.host_id <> $1
	ORDER BY rm.joined_at DESC
	`
	return q.listRoomListings(ctx, sql, userID)
}

func (q *queries) listRooms(ctx context.Context, sql string, args ...any) ([]models.Room, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *r)
	}
	return rooms, rows.Err()
}

// ListIncompleteWaitingRooms returns waiting rooms that have no completion stamp.
func (q *queries) ListIncompleteWaitingRooms(ctx context.Context) ([]models.Room, error) {
	sql := `
	SELECT ` + roomColumns + `
	FROM rooms r
	WHERE r.status = 'waiting' AND r.completed_at IS NULL
	`
	return q.listRooms(ctx, sql)
}

// ListRoomsUpdatedBefore returns rooms whose last activity precedes cutoff.
func (q *queries) ListRoomsUpdatedBefore(ctx context.Context, cutoff time.Time) ([]models.Room, error) {
	sql := `
	SELECT ` + roomColumns + `
	FROM rooms r
	WHERE r.updated_at < $1
	ORDER BY r.updated_at
	`
	return q.listRooms(ctx, sql, cutoff)
}

// MarkRoomCompleted stamps completed_at exactly once.
func (q *queries) MarkRoomCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	sql := `
	UPDATE rooms
	SET completed_at = $2, updated_at = $2
	WHERE id = $1 AND completed_at IS NULL
	`
	ct, err := q.db.Exec(ctx, sql, id, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// TouchRoom bumps updated_at, which is the room's last-activity time.
func (q *queries) TouchRoom(ctx context.Context, id uuid.UUID, at time.Time) error {
	ct, err := q.db.Exec(ctx, `UPDATE rooms SET updated_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRoomDiscordLink replaces the room's Discord invite link.
func (q *queries) UpdateRoomDiscordLink(ctx context.Context, id uuid.UUID, link *string, at time.Time) error {
	sql := `UPDATE rooms SET discord_link = $2, updated_at = $3 WHERE id = $1`
	ct, err := q.db.Exec(ctx, sql, id, link, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRoom removes a room row. Members go with it through ON DELETE CASCADE.
func (q *queries) DeleteRoom(ctx context.Context, id uuid.UUID) error {
	ct, err := q.db.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
