// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/caiocezartg/squad-finder-sub000/internal/auth"
	"github.com/caiocezartg/squad-finder-sub000/internal/cache"
	"github.com/caiocezartg/squad-finder-sub000/internal/config"
	"github.com/caiocezartg/squad-finder-sub000/internal/database"
	"github.com/caiocezartg/squad-finder-sub000/internal/database/memdb"
	"github.com/caiocezartg/squad-finder-sub000/internal/handlers"
	"github.com/caiocezartg/squad-finder-sub000/internal/realtime"
	"github.com/caiocezartg/squad-finder-sub000/internal/rooms"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := cfg.Logger()
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store database.Store
		dev   *memdb.Store
	)
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		dev = memdb.New()
		for _, g := range memdb.CatalogGames() {
			dev.PutGame(g)
		}
		store = dev
	} else {
		pg, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("failed to connect to database: %v", err)
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatalf("failed to migrate database: %v", err)
		}
		store = pg
	}

	var sessions *auth.Sessions
	if cfg.SessionPublicKeyPath != "" {
		sessions, err = auth.LoadSessions(cfg.SessionPublicKeyPath, cfg.SessionTTL)
	} else {
		logger.Warn("SESSION_PUBLIC_KEY_PATH not set, generating an ephemeral session key")
		sessions, err = auth.NewSessions(cfg.SessionTTL)
	}
	if err != nil {
		logger.Fatalf("failed to set up sessions: %v", err)
	}

	engine := rooms.NewEngine(store, logger)
	hub := realtime.NewHub(logger)

	var wg sync.WaitGroup
	var sink rooms.NotificationSink = rooms.StoreSink{Store: store}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		sink = cache.NewNotificationQueue(rdb, cfg.NotifyQueueName)

		worker := cache.NewWorker(rdb, cfg.NotifyQueueName, store, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	}
	emitter := rooms.NewEmitter(engine, sink, logger)

	sweeper := rooms.NewSweeper(engine, hub, logger, cfg.SweepInterval, cfg.RoomExpirationMinutes)
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	opts := handlers.Options{
		SessionCookie:  cfg.SessionCookie,
		PingPeriod:     cfg.WSPingPeriod,
		WriteTimeout:   cfg.WSWriteTimeout,
		SendBuffer:     cfg.WSSendBuffer,
		AllowedOrigins: cfg.AllowedOrigins,
	}
	if dev != nil && cfg.SessionPublicKeyPath == "" {
		logger.Warn("development login enabled at POST /dev/session")
		opts.DevUsers = dev
	}
	srv := handlers.NewServer(engine, hub, emitter, sessions, store, logger, opts)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	wg.Wait()
}
