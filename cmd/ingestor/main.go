// Command ingestor is the process entrypoint: it bootstraps the shared
// connections, registers every collector, and starts the Process
// Supervisor. Grounded on cmd/server/main.go's shape ("init conn,
// start the scheduler, then block"), with the scheduler replaced by
// supervisor.Run.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"ingestor/examples/securities"
	"ingestor/internal/auth"
	"ingestor/internal/conn"
	"ingestor/internal/supervisor"
)

func main() {
	c, cleanup := conn.Init(inContainer())
	defer cleanup()

	storeRoot := getEnv("STORE_ROOT", "/data/store")
	cacheDir := getEnv("CACHE_DIR", "/data/cache")
	debug := getEnv("DEBUG", "") != ""

	registerCollectors(c, storeRoot)

	sup := supervisor.New(c, cacheDir, storeRoot, debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logrus.Info("ingestor: starting process supervisor")
	if err := sup.Run(ctx); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Fatal("ingestor: supervisor exited")
	}
	logrus.Info("ingestor: shutdown complete")
}

// registerCollectors wires every collector package's Register call.
// Collectors whose auth credentials are not present on disk are
// skipped with a warning rather than aborting startup, since a single
// misconfigured collector should not take down the whole process.
func registerCollectors(c *conn.Conn, storeRoot string) {
	sqlCred, err := auth.LoadSQLCredential(getEnv("SQL_AUTH_PATH", "/data/auth/sql.json"))
	if err != nil {
		logrus.WithError(err).Warn("ingestor: securities collector disabled, sql credential unavailable")
		return
	}
	securities.Register(c, storeRoot, sqlCred)
}

func inContainer() bool {
	return getEnv("IN_CONTAINER", "") != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
