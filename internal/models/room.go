// internal/models/room.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus is the coarse lifecycle state of a room.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusFinished RoomStatus = "finished"
)

// Room is a matchmaking lobby with a fixed capacity and a shareable code.
type Room struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	HostID      uuid.UUID  `json:"hostId"`
	GameID      uuid.UUID  `json:"gameId"`
	Status      RoomStatus `json:"status"`
	MaxPlayers  int        `json:"maxPlayers"`
	DiscordLink *string    `json:"discordLink"`
	IsPrivate   bool       `json:"isPrivate"`
	Tags        []string   `json:"tags"`
	Language    *string    `json:"language"`

	// CompletedAt is stamped once, when membership first reaches MaxPlayers.
	CompletedAt *time.Time `json:"completedAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// IsCompleted reports whether the room has been locked by reaching capacity.
func (r *Room) IsCompleted() bool {
	return r.CompletedAt != nil
}

// RoomListing is a room together with its current member count, as shown in room lists.
type RoomListing struct {
	Room
	MemberCount int `json:"memberCount"`
}

// RoomMember is the join record of a user in a room. (RoomID, UserID) is unique.
type RoomMember struct {
	ID       uuid.UUID `json:"id"`
	RoomID   uuid.UUID `json:"roomId"`
	UserID   uuid.UUID `json:"userId"`
	JoinedAt time.Time `json:"joinedAt"`
}
