package supervisor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingestor/internal/apiform"
	"ingestor/internal/collector"
	"ingestor/internal/conn"
)

func TestRunSkipsDisabledCollectorsAndStartsEnabledOnes(t *testing.T) {
	c := conn.InitTest(t)

	started := make(chan string, 2)

	collector.Register(&collector.Spec{
		Name:   "supervisor_test_enabled",
		Period: time.Minute,
		Fetch: func(ctx context.Context) ([]interface{}, error) {
			started <- "enabled"
			<-ctx.Done()
			return nil, ctx.Err()
		},
		Form: func() *apiform.ApiForm { return &apiform.ApiForm{Name: "supervisor_test_enabled"} },
	})
	collector.Register(&collector.Spec{
		Name:   "supervisor_test_disabled",
		Period: 0,
		Fetch: func(ctx context.Context) ([]interface{}, error) {
			started <- "disabled"
			return nil, nil
		},
		Form: func() *apiform.ApiForm { return &apiform.ApiForm{Name: "supervisor_test_disabled"} },
	})

	sup := New(c, t.TempDir(), t.TempDir(), false)
	sup.LogDir = t.TempDir()
	assert.Nil(t, sup.Hub, "production mode never constructs a LogHub")

	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	select {
	case name := <-started:
		assert.Equal(t, "enabled", name)
	case <-time.After(3 * time.Second):
		t.Fatal("enabled collector's runtime never started a collect tick")
	}

	select {
	case name := <-started:
		t.Fatalf("disabled collector must never be started, but observed %q", name)
	case <-time.After(200 * time.Millisecond):
	}

	<-done
}

func TestRunDebugModeServesLogHubOverWebsocket(t *testing.T) {
	sup := New(conn.InitTest(t), t.TempDir(), t.TempDir(), true)
	sup.LogDir = t.TempDir()
	sup.DebugAddr = "127.0.0.1:0"
	ready := make(chan string, 1)
	sup.debugReady = ready

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()

	var addr string
	select {
	case addr = <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("debug server never started listening")
	}

	wsURL := "ws://" + addr + "/debug/logs"
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	sup.Hub.Broadcast([]byte("hello from the debug server"))

	require.NoError(t, client.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello from the debug server", string(msg))

	cancel()
	<-done
}

func TestNewDebugModeConstructsHub(t *testing.T) {
	c := conn.InitTest(t)
	sup := New(c, t.TempDir(), t.TempDir(), true)
	require.NotNil(t, sup.Hub)
}

func TestLogHubBroadcastDeliversToRegisteredListeners(t *testing.T) {
	hub := NewLogHub()

	server, client := websocketPipe(t)
	defer client.Close()
	defer server.Close()

	hub.Register(server)
	hub.Broadcast([]byte("hello"))

	_, msg, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg))

	hub.Unregister(server)
}

func TestLogHubNilIsNoOp(t *testing.T) {
	var hub *LogHub
	assert.NotPanics(t, func() {
		hub.Broadcast([]byte("x"))
		hub.Register(nil)
		hub.Unregister(nil)
	})
}

// websocketPipe spins up a real loopback websocket connection, since
// LogHub drives *websocket.Conn directly rather than an interface.
func websocketPipe(t *testing.T) (server, client *websocket.Conn) {
	t.Helper()
	upgrader := websocket.Upgrader{}
	connCh := make(chan *websocket.Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		connCh <- conn
	}))
	t.Cleanup(ts.Close)

	wsURL := "ws" + ts.URL[len("http"):]
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	server = <-connCh
	return server, client
}
