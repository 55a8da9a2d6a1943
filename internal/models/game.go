package models

import "github.com/google/uuid"

// Game is an entry of the static game catalog.
type Game struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	MinPlayers int       `json:"minPlayers"`
	MaxPlayers int       `json:"maxPlayers"`
	CoverURL   *string   `json:"coverUrl"`
}
