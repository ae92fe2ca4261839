package supervisor

import (
	"sync"

	"github.com/gorilla/websocket"
)

// LogHub fans debug-mode log lines out to every connected listener.
// Grounded on socket.Client's send-channel-plus-writePump pair
// (socket.go): each listener gets its own buffered channel and a
// dedicated goroutine draining it into the websocket connection, so a
// slow reader can never block the broadcaster.
type LogHub struct {
	mu        sync.RWMutex
	listeners map[*websocket.Conn]chan []byte
}

// NewLogHub builds an empty hub. A nil *LogHub is valid and Broadcast
// on it is a no-op — production mode (spec §4.7) simply never
// constructs one.
func NewLogHub() *LogHub {
	return &LogHub{listeners: make(map[*websocket.Conn]chan []byte)}
}

// Register attaches ws as a listener and starts its write pump. Call
// Unregister (typically deferred by the caller owning ws's lifecycle)
// to detach it.
func (h *LogHub) Register(ws *websocket.Conn) {
	if h == nil {
		return
	}
	send := make(chan []byte, 256)
	h.mu.Lock()
	h.listeners[ws] = send
	h.mu.Unlock()

	go func() {
		for line := range send {
			if err := ws.WriteMessage(websocket.TextMessage, line); err != nil {
				h.Unregister(ws)
				return
			}
		}
	}()
}

// Unregister detaches ws and closes its channel, stopping its pump.
func (h *LogHub) Unregister(ws *websocket.Conn) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if send, ok := h.listeners[ws]; ok {
		close(send)
		delete(h.listeners, ws)
	}
}

// Broadcast fans line out to every listener's buffered channel,
// dropping it for any listener whose channel is full rather than
// blocking the logger.
func (h *LogHub) Broadcast(line []byte) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, send := range h.listeners {
		select {
		case send <- line:
		default:
		}
	}
}
