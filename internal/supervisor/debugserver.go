package supervisor

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// DefaultDebugAddr is the listen address for the debug-mode log
// websocket endpoint when Supervisor.DebugAddr is left unset.
const DefaultDebugAddr = ":6060"

var debugUpgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// runDebugServer serves the shared log hub over "/debug/logs": every
// client that upgrades is Register'd with Hub, so hub.Broadcast
// (driven by hubHook, spec §4.7's "shared log queue") actually reaches
// a listener instead of fanning out to an empty set. Grounded on the
// teacher's WSHandler/StartServer pair (internal/server/http.go) —
// same upgrader-with-CheckOrigin-true and http.Server-with-timeouts
// shape, trimmed of the auth/token handling this debug-only endpoint
// has no use for.
func (s *Supervisor) runDebugServer(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/logs", s.debugLogsHandler)

	addr := s.DebugAddr
	if addr == "" {
		addr = DefaultDebugAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if s.debugReady != nil {
		s.debugReady <- ln.Addr().String()
	}

	srv := &http.Server{
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming connection, no response deadline
		IdleTimeout:  240 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", ln.Addr().String()).Info("supervisor: debug log listener started")
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func (s *Supervisor) debugLogsHandler(w http.ResponseWriter, r *http.Request) {
	ws, err := debugUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("supervisor: debug log upgrade failed")
		return
	}
	defer ws.Close()

	s.Hub.Register(ws)
	defer s.Hub.Unregister(ws)

	// Drain and discard anything the client sends; this endpoint is
	// write-only from the server's side. Reading is what detects the
	// client going away (Register's write pump only notices a dead
	// peer on its next failed write).
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
