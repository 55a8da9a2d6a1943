package rooms

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Sweeper periodically deletes rooms that have been idle past a threshold.
type Sweeper struct {
	engine           *Engine
	publisher        Publisher
	logger           *logrus.Logger
	interval         time.Duration
	thresholdMinutes int
}

func NewSweeper(engine *Engine, publisher Publisher, logger *logrus.Logger, interval time.Duration, thresholdMinutes int) *Sweeper {
	return &Sweeper{
		engine:           engine,
		publisher:        publisher,
		logger:           logger,
		interval:         interval,
		thresholdMinutes: thresholdMinutes,
	}
}

// Run reconciles unstamped full rooms once, then sweeps on every tick until
// ctx is cancelled. A failed cycle is logged and the schedule continues.
func (s *Sweeper) Run(ctx context.Context) {
	log := s.logger.WithField("component", "sweeper")

	stamped, err := s.engine.ReconcileCompletions(ctx)
	if err != nil {
		log.WithError(err).Error("startup reconciliation failed")
	} else if len(stamped) > 0 {
		log.Infof("reconciled %d full rooms", len(stamped))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Infof("sweeping rooms idle for %d minutes every %s", s.thresholdMinutes, s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single cycle and announces each deleted room.
func (s *Sweeper) SweepOnce(ctx context.Context) []DeletedRoom {
	deleted, err := s.engine.DeleteExpiredRooms(ctx, s.thresholdMinutes)
	if err != nil {
		s.logger.WithField("component", "sweeper").WithError(err).Error("sweep failed")
		return nil
	}
	for _, d := range deleted {
		s.publisher.RoomDeleted(d.ID, d.Code)
	}
	if len(deleted) > 0 {
		s.logger.WithField("component", "sweeper").Infof("deleted %d expired rooms", len(deleted))
	}
	return deleted
}
