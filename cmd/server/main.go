// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/eights/internal/auth"
	"github.com/jason-s-yu/eights/internal/cache"
	"github.com/jason-s-yu/eights/internal/config"
	"github.com/jason-s-yu/eights/internal/database"
	"github.com/jason-s-yu/eights/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	level, _ := cfg.Level()
	logger.SetLevel(level)
	if cfg.Production() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	ttl, _ := cfg.TokenTTL()
	if err := auth.Init(ttl); err != nil {
		logger.WithError(err).Fatal("auth init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gs := handlers.NewGameServer(logger)
	gs.OpponentDelay = cfg.OpponentDelay

	if cfg.RedisAddr != "" {
		q, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB, cfg.HistorianQueueName)
		if err != nil {
			logger.WithError(err).Warn("redis unavailable, action history disabled")
		} else {
			defer q.Close()
			gs.History = q
			logger.WithField("queue", q.QueueName()).Info("publishing game actions")
		}
	}

	if cfg.DatabaseURL != "" {
		if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
			logger.WithError(err).Warn("database unavailable, results will not be stored")
		} else {
			defer database.Close()
			if err := database.EnsureSchema(ctx); err != nil {
				logger.WithError(err).Fatal("schema setup failed")
			}
		}
	}

	go gs.SweepIdle(ctx, cfg.SweepInterval, cfg.SessionIdleTimeout)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(logger, gs, cfg.Origins()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("shutdown incomplete")
		}
	}()

	logger.Infof("Running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("server exited")
	}
	logger.Info("server stopped")
}
