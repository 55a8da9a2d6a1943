package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	roomReadyTitle  = "Your squad is ready!"
	unknownGameName = "Unknown game"
)

// NotificationSink persists or forwards a notification record.
type NotificationSink interface {
	Deliver(ctx context.Context, n *models.Notification) error
}

// StoreSink writes notifications straight into the store.
type StoreSink struct {
	Store database.Querier
}

func (s StoreSink) Deliver(ctx context.Context, n *models.Notification) error {
	return s.Store.InsertNotification(ctx, n)
}

// Emitter records a "room ready" notification for every member of a room
// that just filled up.
type Emitter struct {
	engine *Engine
	sink   NotificationSink
	logger *logrus.Logger
}

func NewEmitter(engine *Engine, sink NotificationSink, logger *logrus.Logger) *Emitter {
	return &Emitter{engine: engine, sink: sink, logger: logger}
}

// EmitRoomReady snapshots the room and delivers one notification per distinct
// member. Deliveries are independent; it returns how many succeeded and the
// first failure, if any.
func (em *Emitter) EmitRoomReady(ctx context.Context, roomID uuid.UUID) (int, error) {
	store := em.engine.store
	room, err := store.GetRoom(ctx, roomID)
	if err != nil {
		return 0, fmt.Errorf("emit room ready: load room %s: %w", roomID, err)
	}
	log := em.logger.WithFields(logrus.Fields{"room_id": room.ID, "room_code": room.Code, "component": "notifier"})

	gameName := unknownGameName
	game, err := store.GetGame(ctx, room.GameID)
	switch {
	case err == nil:
		gameName = game.Name
	case errors.Is(err, database.ErrNotFound):
		log.Warn("room references a missing game")
	default:
		return 0, fmt.Errorf("emit room ready: load game: %w", err)
	}

	players, err := em.engine.Roster(ctx, room)
	if err != nil {
		return 0, fmt.Errorf("emit room ready: %w", err)
	}
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}

	data := models.RoomReadyData{
		RoomID:      room.ID,
		RoomCode:    room.Code,
		RoomName:    room.Name,
		GameName:    gameName,
		Players:     names,
		DiscordLink: room.DiscordLink,
	}
	message := fmt.Sprintf("%s for %s is full. Time to play!", room.Name, gameName)

	var (
		delivered int
		firstErr  error
		seen      = make(map[uuid.UUID]bool, len(players))
		now       = em.engine.clock()
	)
	for _, p := range players {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		n := &models.Notification{
			ID:        uuid.New(),
			UserID:    p.ID,
			Type:      models.NotificationRoomReady,
			Title:     roomReadyTitle,
			Message:   message,
			Data:      data,
			CreatedAt: now,
		}
		if err := em.sink.Deliver(ctx, n); err != nil {
			log.WithField("user_id", p.ID).WithError(err).Error("failed to deliver notification")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		delivered++
	}
	log.Infof("delivered %d room ready notifications", delivered)
	return delivered, firstErr
}

// Emit is EmitRoomReady with errors logged instead of returned, for use on
// its own goroutine.
func (em *Emitter) Emit(ctx context.Context, roomID uuid.UUID) {
	if _, err := em.EmitRoomReady(ctx, roomID); err != nil {
		em.logger.WithField("room_id", roomID).WithError(err).Error("room ready notifications incomplete")
	}
}

var _ NotificationSink = StoreSink{}
