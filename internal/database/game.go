package database

import (
	"context"

	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

func (q *queries) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	sql := `SELECT id, name, slug, min_players, max_players, cover_url FROM games WHERE id = $1`
	var g models.Game
	err := q.db.QueryRow(ctx, sql, id).Scan(&g.ID, &g.Name, &g.Slug, &g.MinPlayers, &g.MaxPlayers, &g.CoverURL)
	if err != nil {
		return nil, translateError(err)
	}
	return &g, nil
}

func (q *queries) ListGames(ctx context.Context) ([]models.Game, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name, slug, min_players, max_players, cover_url FROM games ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := []models.Game{}
	for rows.Next() {
		var g models.Game
		if err := rows.Scan(&g.ID, &g.Name, &g.Slug, &g.MinPlayers, &g.MaxPlayers, &g.CoverURL); err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
