// Package ws broadcasts scan lifecycle and stats events to every
// connected dashboard over WebSocket.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HelloFunc produces the hydration payloads sent to a client right
// after it connects. May be nil.
type HelloFunc func() []map[string]any

// client pairs a connection with its write lock. gorilla/websocket
// allows at most one writer per connection at a time, and broadcasts
// arrive concurrently from scan requests and the monitor loop.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) sendJSON(data map[string]any) error {
	msg, err := json.Marshal(data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Manager tracks active WebSocket connections and broadcasts events.
type Manager struct {
	mu      sync.RWMutex
	clients []*client
	logger  *slog.Logger
	hello   HelloFunc
}

// NewManager creates a Manager. hello is invoked per new connection.
func NewManager(hello HelloFunc, logger *slog.Logger) *Manager {
	return &Manager{hello: hello, logger: logger}
}

// HandleWS upgrades the connection and keeps it registered until the
// peer goes away. Inbound messages are ignored; the stream is one-way.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn}
	m.mu.Lock()
	m.clients = append(m.clients, c)
	m.mu.Unlock()

	if m.hello != nil {
		for _, payload := range m.hello() {
			if err := c.sendJSON(payload); err != nil {
				break
			}
		}
	}

	defer func() {
		m.remove(c)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends a message to every connected client, dropping
// connections whose writes fail.
func (m *Manager) Broadcast(data map[string]any) {
	m.mu.RLock()
	clients := make([]*client, len(m.clients))
	copy(clients, m.clients)
	m.mu.RUnlock()

	for _, c := range clients {
		if err := c.sendJSON(data); err != nil {
			m.remove(c)
			c.conn.Close()
		}
	}
}

// ConnectionCount returns the number of live connections.
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) remove(c *client) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.clients {
		if existing == c {
			m.clients = append(m.clients[:i], m.clients[i+1:]...)
			return
		}
	}
}
