package database

import (
	"context"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

func (q *queries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := q.db.QueryRow(ctx, `SELECT id, name, image FROM users WHERE id = $1`, id).Scan(&u.ID, &u.Name, &u.Image)
	if err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}

// GetUsers fetches the given users keyed by ID. Unknown IDs are simply absent.
func (q *queries) GetUsers(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	users := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	rows, err := q.db.Query(ctx, `SELECT id, name, image FROM users WHERE id = ANY($1::uuid[])`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Image); err != nil {
			return nil, err
		}
		users[u.ID] = u
	}
	return users, rows.Err()
}
