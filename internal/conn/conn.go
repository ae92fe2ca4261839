// Package conn bootstraps the process-wide connections every collector
// shares: an ambient Postgres pool reachability-checked at startup, the
// Redis client backing runtime tick bookkeeping, and an HTTP client tuned for long-lived polling collectors. Grounded
// almost directly on utils/conn.go's InitConn, trimmed of its
// agent/vendor API client fields (this domain has no use for them) and
// generalized past a single hardcoded upstream (Polygon is kept as one
// concrete example HTTP/JSON upstream client, wired for collectors
// that want it).
//
// DB is deliberately not the connection Stream2Sql uploads through:
// each Sql sink's target database lives on whatever host its own
// auth.SQLCredential names, which need not be this process's own
// Postgres cluster, so Sql opens and owns its own pgxpool.Pool per
// sink instead of borrowing this one. DB stays ambient infrastructure
// (parallel to Cache) for whatever process-level bookkeeping a future
// collector needs against this process's own database.
package conn

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v4/pgxpool"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/sirupsen/logrus"
)

// Conn holds every ambient connection a Runtime or Stream needs.
type Conn struct {
	DB      *pgxpool.Pool
	Cache   *redis.Client
	HTTP    *http.Client
	Polygon *polygon.Client
}

// Init connects to Postgres and Redis, retrying until each succeeds,
// and returns the shared Conn plus a cleanup func. inContainer selects
// in-cluster hostnames ("db"/"cache") vs. localhost, matching how the
// teacher's compose-based dev environment and its host-side tooling
// differ only in hostname resolution.
func Init(inContainer bool) (*Conn, func()) {
	dbHost := getEnv("DB_HOST", "db")
	dbPort := getEnv("DB_PORT", "5432")
	dbUser := getEnv("DB_USER", "postgres")
	dbPassword := getEnv("DB_PASSWORD", "")

	redisHost := getEnv("REDIS_HOST", "cache")
	redisPort := getEnv("REDIS_PORT", "6379")
	redisPassword := getEnv("REDIS_PASSWORD", "")

	var dbURL, cacheURL string
	encodedPassword := url.QueryEscape(dbPassword)
	if inContainer {
		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s", dbUser, encodedPassword, dbHost, dbPort)
		cacheURL = fmt.Sprintf("%s:%s", redisHost, redisPort)
	} else {
		dbURL = fmt.Sprintf("postgres://%s:%s@localhost:%s", dbUser, encodedPassword, dbPort)
		cacheURL = fmt.Sprintf("localhost:%s", redisPort)
	}

	db := connectPostgres(dbURL)
	cache := connectRedis(cacheURL, redisPassword)

	httpClient := &http.Client{
		Timeout: 120 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:          200,
			MaxIdleConnsPerHost:   50,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   15 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
			ExpectContinueTimeout: 10 * time.Second,
			MaxConnsPerHost:       100,
		},
	}

	polygonKey := getEnv("POLYGON_API_KEY", "")
	var polygonClient *polygon.Client
	if polygonKey != "" {
		polygonClient = polygon.NewWithClient(polygonKey, httpClient)
	}

	c := &Conn{DB: db, Cache: cache, HTTP: httpClient, Polygon: polygonClient}
	cleanup := func() {
		c.DB.Close()
		c.Cache.Close()
	}
	return c, cleanup
}

func connectPostgres(dbURL string) *pgxpool.Pool {
	for {
		dbConn, err := pgxpool.Connect(context.Background(), dbURL)
		if err == nil {
			return dbConn
		}
		logrus.WithError(err).Warn("conn: waiting for database")
		time.Sleep(5 * time.Second)
	}
}

func connectRedis(cacheURL, password string) *redis.Client {
	for {
		opts := &redis.Options{
			Addr:            cacheURL,
			PoolSize:        20,
			MinIdleConns:    10,
			PoolTimeout:     60 * time.Second,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			MaxRetries:      5,
			MinRetryBackoff: 1 * time.Second,
			MaxRetryBackoff: 10 * time.Second,
			DialTimeout:     15 * time.Second,
		}
		if password != "" {
			opts.Password = password
		}
		cache := redis.NewClient(opts)
		if err := cache.Ping(context.Background()).Err(); err == nil {
			return cache
		}
		logrus.Warn("conn: waiting for cache")
		time.Sleep(5 * time.Second)
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
