// internal/models/notification.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType is the closed set of in-app notification kinds.
type NotificationType string

const (
	NotificationRoomReady NotificationType = "room_ready"
)

// RoomReadyData is a point-in-time snapshot of a room at the moment it filled up.
// It is never updated afterwards, even if the room's Discord link changes.
type RoomReadyData struct {
	RoomID      uuid.UUID `json:"roomId"`
	RoomCode    string    `json:"roomCode"`
	RoomName    string    `json:"roomName"`
	GameName    string    `json:"gameName"`
	Players     []string  `json:"players"`
	DiscordLink *string   `json:"discordLink"`
}

// Notification is a durable "your squad is ready" record for one user.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"userId"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Data      RoomReadyData    `json:"data"`
	ReadAt    *time.Time       `json:"readAt"`
	CreatedAt time.Time        `json:"createdAt"`
}
