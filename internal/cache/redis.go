// Package cache moves room-ready notifications through a Redis list so the
// join path never waits on notification writes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/caiocezartg/squad-finder-sub000/internal/models"
	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list holding pending notifications.
const DefaultQueueName = "squad_notifications"

// Connect opens a client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NotificationQueue is a rooms.NotificationSink that pushes onto a Redis list.
type NotificationQueue struct {
	rdb  redis.Cmdable
	name string
}

var _ rooms.NotificationSink = (*NotificationQueue)(nil)

func NewNotificationQueue(rdb redis.Cmdable, name string) *NotificationQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &NotificationQueue{rdb: rdb, name: name}
}

// Deliver serializes n and RPUSHes it onto the queue.
func (q *NotificationQueue) Deliver(ctx context.Context, n *models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

// Worker drains the notification queue into the store.
type Worker struct {
	rdb         redis.Cmdable
	queue       string
	store       database.Querier
	logger      *logrus.Logger
	pollTimeout time.Duration
}

func NewWorker(rdb redis.Cmdable, queue string, store database.Querier, logger *logrus.Logger) *Worker {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Worker{
		rdb:         rdb,
		queue:       queue,
		store:       store,
		logger:      logger,
		pollTimeout: 3 * time.Second,
	}
}

// Run pops records with BLPOP until ctx is cancelled. Each record is inserted
// on its own; a bad or failing record is logged and dropped.
func (w *Worker) Run(ctx context.Context) {
	log := w.logger.WithFields(logrus.Fields{"component": "notification-worker", "queue": w.queue})
	log.Info("notification worker started")
	defer log.Info("notification worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		res, err := w.rdb.BLPop(ctx, w.pollTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			log.WithError(err).Error("BLPop failed")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		// res[0] is the list name, res[1] the payload.
		if len(res) < 2 {
			continue
		}
		if err := w.handle(ctx, []byte(res[1])); err != nil {
			log.WithError(err).Warn("dropping notification")
		}
	}
}

func (w *Worker) handle(ctx context.Context, payload []byte) error {
	var n models.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return fmt.Errorf("invalid notification record: %w", err)
	}
	if err := w.store.InsertNotification(ctx, &n); err != nil {
		return fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	w.logger.WithFields(logrus.Fields{
		"user_id":   n.UserID,
		"room_code": n.Data.RoomCode,
	}).Debug("notification stored")
	return nil
}
