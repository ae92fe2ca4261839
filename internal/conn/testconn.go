package conn

import (
	"context"
	"testing"

	redispkg "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// InitTest spins up ephemeral Postgres and Redis containers and
// returns a Conn wired to them, torn down via t.Cleanup. Unlike the
// teacher's InitTestConn (internal/data/test_conn.go), which clones a
// long-lived "dev_template" database, this module has no such fixture
// to clone — every test gets a fresh container instead.
func InitTest(t *testing.T) *Conn {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("ingestor_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
	)
	if err != nil {
		t.Fatalf("conn: start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("conn: postgres connection string: %v", err)
	}
	db, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("conn: connect to test postgres: %v", err)
	}
	t.Cleanup(db.Close)

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("conn: start redis container: %v", err)
	}
	t.Cleanup(func() { _ = redisContainer.Terminate(ctx) })

	redisURI, err := redisContainer.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("conn: redis connection string: %v", err)
	}
	opt, err := redispkg.ParseURL(redisURI)
	if err != nil {
		t.Fatalf("conn: parse redis uri: %v", err)
	}
	cache := redispkg.NewClient(opt)
	t.Cleanup(func() { _ = cache.Close() })

	return &Conn{DB: db, Cache: cache}
}
