package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/agrilink/sessiongate/internal/bootstrap"
	"github.com/agrilink/sessiongate/internal/migrate"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		slog.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger := bootstrap.InitLogger(cfg.IsDev)

	db, err := bootstrap.ConnectDB(cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}()

	if err = migrate.Run(ctx, db); err != nil {
		return err
	}

	redisClient, err := bootstrap.ConnectRedis(cfg.Redis, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.BuildServices(&bootstrap.ServiceDeps{
		Config:      &cfg,
		DB:          db,
		RedisClient: redisClient,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.Run(ctx, bootstrap.RunConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
	})
}
