package models

import "github.com/google/uuid"

// User is an identity owned by the external auth provider. Read-only here.
type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Image *string   `json:"image"`
}

// Player is the public projection of a room member sent to clients.
type Player struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Image  *string   `json:"image"`
	IsHost bool      `json:"isHost"`
}
