package testutil

// Package testutil provides helpers for tests that need real infrastructure.
// Postgres and Redis backed tests are skipped when the corresponding service
// is not reachable, unless TEST_REQUIRE_INFRA=true forces a failure.

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/agrilink/sessiongate/internal/migrate"
)

func requireInfra() bool {
	return strings.EqualFold(os.Getenv("TEST_REQUIRE_INFRA"), "true")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SetupTestDB opens the test database, applies migrations, and truncates the
// profiles table. Tests are skipped when Postgres is not available.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("TEST_DB_HOST", "localhost")
	port := envOr("TEST_DB_PORT", "55432")

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(envOr("TEST_DB_USER", "sessiongate"), envOr("TEST_DB_PASSWORD", "sessiongate")),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + envOr("TEST_DB_NAME", "sessiongate_test"),
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		_ = db.Close()
		if requireInfra() {
			t.Fatalf("Postgres not available for testing: %v", pingErr)
		}
		t.Skipf("Postgres not available for testing: %v", pingErr)
	}

	if err := migrate.Run(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `TRUNCATE profiles`); err != nil {
		_ = db.Close()
		t.Fatalf("truncate profiles: %v", err)
	}

	t.Cleanup(func() {
		if cerr := db.Close(); cerr != nil {
			t.Logf("close test database: %v", cerr)
		}
	})
	return db
}

// SetupTestRedis creates a Redis client for testing. Tests are skipped when
// Redis is not available.
func SetupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := envOr("TEST_REDIS_ADDR", "localhost:6379")
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 9})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if requireInfra() {
			t.Fatalf("Redis not available for testing: %v", err)
		}
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		t.Fatalf("flush test redis db: %v", err)
	}

	t.Cleanup(func() {
		if cerr := client.Close(); cerr != nil {
			t.Logf("close test redis client: %v", cerr)
		}
	})
	return client
}

// UniqueEmail returns an email unique to the test run.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}
