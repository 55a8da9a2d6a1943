// internal/database/notification.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

// InsertNotification stores one notification record.
func (q *queries) InsertNotification(ctx context.Context, n *models.Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}
	sql := `
	INSERT INTO user_notifications (id, user_id, type, title, message, data, read_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING
	`
	_, err = q.db.Exec(ctx, sql, n.ID, n.UserID, n.Type, n.Title, n.Message, data, n.ReadAt, n.CreatedAt)
	return translateError(err)
}

// ListNotifications returns a user's notifications, newest first.
func (q *queries) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]models.Notification, error) {
	sql := `
	SELECT id, user_id, type, title, message, data, read_at, created_at
	FROM user_notifications
	WHERE user_id = $1 AND ($2 = FALSE OR read_at IS NULL)
	ORDER BY created_at DESC
	`
	rows, err := q.db.Query(ctx, sql, userID, unreadOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []models.Notification{}
	for rows.Next() {
		var (
			n    models.Notification
			data []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, fmt.Errorf("notification %s has malformed data: %w", n.ID, err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

// MarkNotificationRead sets read_at on a notification owned by userID.
func (q *queries) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (bool, error) {
	sql := `
	UPDATE user_notifications
	SET read_at = COALESCE(read_at, $3)
	WHERE id = $1 AND user_id = $2
	`
	ct, err := q.db.Exec(ctx, sql, id, userID, at)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// DeleteNotification removes a notification owned by userID.
func (q *queries) DeleteNotification(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	ct, err := q.db.Exec(ctx, `DELETE FROM user_notifications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
