// cmd/notifier drains the notification queue into Postgres. It is the same
// worker cmd/server runs when REDIS_ADDR is set, for deployments that keep
// queue draining out of the API process.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/caiocezartg/squad-finder-sub000/internal/cache"
	"github.com/caiocezartg/squad-finder-sub000/internal/config"
	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := cfg.Logger()

	if cfg.DatabaseURL == "" || cfg.RedisAddr == "" {
		logger.Fatal("notifier requires DATABASE_URL and REDIS_ADDR")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer pg.Close()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	cache.NewWorker(rdb, cfg.NotifyQueueName, pg, logger).Run(ctx)
	logger.Info("notifier stopped")
}
