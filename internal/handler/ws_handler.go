package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vhvplatform/go-marketplace-notifications/internal/middleware"
	"github.com/vhvplatform/go-marketplace-notifications/internal/realtime"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
)

const wsReadLimit = 4096

// RealtimeHandler upgrades callers to a websocket session on the hub
type RealtimeHandler struct {
	hub      *realtime.Hub
	inbox    Inbox
	upgrader websocket.Upgrader
	pongWait time.Duration
	log      *logger.Logger
}

// NewRealtimeHandler creates a new realtime handler. pongWait bounds how
// long a silent client is kept.
func NewRealtimeHandler(hub *realtime.Hub, inbox Inbox, pongWait time.Duration, log *logger.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		hub:   hub,
		inbox: inbox,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the gateway enforces origin policy
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		pongWait: pongWait,
		log:      log,
	}
}

// Connect upgrades the request and blocks reading until the client leaves
func (h *RealtimeHandler) Connect(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WS upgrade failed", "error", err, "user_id", userID.Hex())
		return
	}

	conn := h.hub.Add(userID, ws)
	defer h.hub.Remove(conn)

	if count, err := h.inbox.UnreadCount(c.Request.Context(), userID); err == nil {
		h.hub.PublishUnreadCount(userID, count)
	}

	ws.SetReadLimit(wsReadLimit)
	_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	ws.SetPongHandler(func(string) error {
		conn.Touch()
		return ws.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	// clients only send pings and acks; anything read counts as activity
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
		conn.Touch()
		_ = ws.SetReadDeadline(time.Now().Add(h.pongWait))
	}
}
