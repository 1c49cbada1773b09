package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	// Register the pgx stdlib driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/agrilink/sessiongate/config"
)

// ConnectDB establishes a connection pool to the PostgreSQL profile store.
func ConnectDB(cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	// Build DSN using url.URL to safely handle special characters in credentials
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if logger != nil {
		logger.Info("database connected", "host", cfg.Host, "port", cfg.Port, "database", cfg.Name)
	}
	return db, nil
}

// ConnectRedis builds a Redis client for the dedup store, or nil when Redis
// is not configured (the process-local store is used instead).
func ConnectRedis(cfg config.RedisConfig, logger *slog.Logger) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if cerr := client.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close redis client: %w", cerr))
		}
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	if logger != nil {
		logger.Info("redis connected", "addr", cfg.Addr)
	}
	return client, nil
}
