// cmd/historian/main.go drains the game action queue from Redis into Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/eights/internal/cache"
	"github.com/jason-s-yu/eights/internal/config"
	"github.com/jason-s-yu/eights/internal/database"
	"github.com/jason-s-yu/eights/internal/historian"
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

	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		logger.Fatal("historian needs both REDIS_ADDR and DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	q, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB, cfg.HistorianQueueName)
	if err != nil {
		logger.WithError(err).Fatal("redis connect failed")
	}
	defer q.Close()

	if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
		logger.WithError(err).Fatal("database connect failed")
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("schema setup failed")
	}

	hs := historian.NewService(q, database.ActionSink{}, cfg.HistorianBatchSize, cfg.HistorianFlush,
		logger.WithField("queue", q.QueueName()))
	hs.Run(ctx)
}
