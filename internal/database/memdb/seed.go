package memdb

import (
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

// CatalogGames is the game catalog the Postgres migration seeds, for stores
// started without a database.
func CatalogGames() []models.Game {
	return []models.Game{
		{ID: uuid.MustParse("6f1c2a8e-3d1b-4c55-9a6e-1f0b8c7d2e01"), Name: "Valorant", Slug: "valorant", MinPlayers: 2, MaxPlayers: 5},
		{ID: uuid.MustParse("6f1c2a8e-3d1b-4c55-9a6e-1f0b8c7d2e02"), Name: "League of Legends", Slug: "league-of-legends", MinPlayers: 2, MaxPlayers: 5},
		{ID: uuid.MustParse("6f1c2a8e-3d1b-4c55-9a6e-1f0b8c7d2e03"), Name: "Counter-Strike 2", Slug: "counter-strike-2", MinPlayers: 2, MaxPlayers: 5},
		{ID: uuid.MustParse("6f1c2a8e-3d1b-4c55-9a6e-1f0b8c7d2e04"), Name: "Fortnite", Slug: "fortnite", MinPlayers: 2, MaxPlayers: 4},
		{ID: uuid.MustParse("6f1c2a8e-3d1b-4c55-9a6e-1f0b8c7d2e05"), Name: "Among Us", Slug: "among-us", MinPlayers: 4, MaxPlayers: 15},
	}
}
