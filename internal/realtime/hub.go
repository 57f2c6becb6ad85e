package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/metrics"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const writeTimeout = 5 * time.Second

// Event is the frame pushed to a live session
type Event struct {
	Kind         string               `json:"kind"`
	Notification *domain.Notification `json:"notification,omitempty"`
	UnreadCount  *int64               `json:"unreadCount,omitempty"`
}

// Connection wraps websocket.Conn with metadata
type Connection struct {
	conn     *websocket.Conn
	userKey  string
	writeMu  sync.Mutex
	lastSeen time.Time
	seenMu   sync.Mutex
}

// Touch records activity on the connection
func (c *Connection) Touch() {
	c.seenMu.Lock()
	c.lastSeen = time.Now()
	c.seenMu.Unlock()
}

func (c *Connection) idleFor() time.Duration {
	c.seenMu.Lock()
	defer c.seenMu.Unlock()
	return time.Since(c.lastSeen)
}

func (c *Connection) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(v)
}

func (c *Connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
}

// Hub tracks live websocket sessions per user and pushes new in-app
// notifications to them. Delivery is best effort.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*Connection]struct{} // userKey -> set of connections
	log         *logger.Logger
}

// NewHub creates an empty hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*Connection]struct{}),
		log:         log,
	}
}

// Add registers a connection for a user
func (h *Hub) Add(userID primitive.ObjectID, conn *websocket.Conn) *Connection {
	c := &Connection{conn: conn, userKey: userID.Hex(), lastSeen: time.Now()}

	h.mu.Lock()
	if _, ok := h.connections[c.userKey]; !ok {
		h.connections[c.userKey] = make(map[*Connection]struct{})
	}
	h.connections[c.userKey][c] = struct{}{}
	total := len(h.connections[c.userKey])
	h.mu.Unlock()

	metrics.RealtimeSessions.Inc()
	h.log.Debug("WS connected", "user_id", c.userKey, "sessions", total)
	return c
}

// Remove disconnects and removes a connection. Removing twice is a no-op.
func (h *Hub) Remove(c *Connection) {
	h.mu.Lock()
	conns, ok := h.connections[c.userKey]
	_, present := conns[c]
	if ok && present {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.connections, c.userKey)
		}
	}
	h.mu.Unlock()

	if !present {
		return
	}
	_ = c.conn.Close()
	metrics.RealtimeSessions.Dec()
	h.log.Debug("WS disconnected", "user_id", c.userKey)
}

func (h *Hub) sessions(userKey string) []*Connection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Connection, 0, len(h.connections[userKey]))
	for c := range h.connections[userKey] {
		out = append(out, c)
	}
	return out
}

// Publish sends a new notification to all live sessions of its recipient
func (h *Hub) Publish(n *domain.Notification) {
	h.send(n.UserID.Hex(), Event{Kind: "notification", Notification: n})
}

// PublishUnreadCount sends the user's unread count to all live sessions
func (h *Hub) PublishUnreadCount(userID primitive.ObjectID, count int64) {
	h.send(userID.Hex(), Event{Kind: "unread_count", UnreadCount: &count})
}

func (h *Hub) send(userKey string, ev Event) {
	for _, c := range h.sessions(userKey) {
		if err := c.writeJSON(ev); err != nil {
			h.log.Warn("Failed WS send", "user_id", userKey, "error", err)
			h.Remove(c)
		}
	}
}

// SessionCount returns the number of live sessions of a user
func (h *Hub) SessionCount(userID primitive.ObjectID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID.Hex()])
}

// Heartbeat pings all connections periodically and drops the ones that
// stopped answering. It returns when ctx is done.
func (h *Hub) Heartbeat(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		h.mu.RLock()
		var all []*Connection
		for _, conns := range h.connections {
			for c := range conns {
				all = append(all, c)
			}
		}
		h.mu.RUnlock()

		for _, c := range all {
			if c.idleFor() > 2*interval {
				h.Remove(c)
				continue
			}
			if err := c.ping(); err != nil {
				h.Remove(c)
			}
		}
	}
}

// CloseAll closes every live session
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Connection
	for _, conns := range h.connections {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		h.Remove(c)
	}
}
