package database

import (
	"context"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

// InsertMember creates a membership row. A repeated (room, user) pair yields ErrDuplicateMember.
func (q *queries) InsertMember(ctx context.Context, m *models.RoomMember) error {
	sql := `
	INSERT INTO room_members (id, room_id, user_id, joined_at)
	VALUES ($1, $2, $3, $4)
	`
	_, err := q.db.Exec(ctx, sql, m.ID, m.RoomID, m.UserID, m.JoinedAt)
	return translateError(err)
}

// GetMember fetches the membership row of userID in roomID.
func (q *queries) GetMember(ctx context.Context, roomID, userID uuid.UUID) (*models.RoomMember, error) {
	sql := `
	SELECT id, room_id, user_id, joined_at
	FROM room_members
	WHERE room_id = $1 AND user_id = $2
	`
	var m models.RoomMember
	err := q.db.QueryRow(ctx, sql, roomID, userID).Scan(&m.ID, &m.RoomID, &m.UserID, &m.JoinedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &m, nil
}

// DeleteMember removes one membership row and reports whether it existed.
func (q *queries) DeleteMember(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	ct, err := q.db.Exec(ctx, `DELETE FROM room_members WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// DeleteMembers removes every membership row of a room.
func (q *queries) DeleteMembers(ctx context.Context, roomID uuid.UUID) (int64, error) {
	ct, err := q.db.Exec(ctx, `DELETE FROM room_members WHERE room_id = $1`, roomID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

// CountMembers returns the number of membership rows of a room.
func (q *queries) CountMembers(ctx context.Context, roomID uuid.UUID) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM room_members WHERE room_id = $1`, roomID).Scan(&n)
	return n, err
}

// ListMembers returns a room's members in join order.
func (q *queries) ListMembers(ctx context.Context, roomID uuid.UUID) ([]models.RoomMember, error) {
	sql := `
	SELECT id, room_id, user_id, joined_at
	FROM room_members
	WHERE room_id = $1
	ORDER BY joined_at, id
	`
	rows, err := q.db.Query(ctx, sql, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.RoomMember
	for rows.Next() {
		var m models.RoomMember
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
