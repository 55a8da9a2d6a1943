package rooms

import (
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
)

// Publisher receives lifecycle events for realtime fan-out.
type Publisher interface {
	RoomCreated(room models.RoomListing)
	RoomUpdated(roomID uuid.UUID, code string, memberCount int)
	RoomDeleted(roomID uuid.UUID, code string)
	RoomReady(room *models.Room)
}
