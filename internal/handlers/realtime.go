package handlers

import (
	"net/http"

	"jewgo-discovery/internal/hub"
	"jewgo-discovery/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type RealtimeHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(h *hub.Hub) *RealtimeHandler {
	return &RealtimeHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks belong to the gateway in front of this core.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Connect handles GET /api/realtime and upgrades the request to a websocket.
// The client subscribes to rooms after connecting; see hub.Connection.
func (h *RealtimeHandler) Connect(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.GlobalLogger.Errorf("Websocket upgrade failed: client_ip=%s, error=%v", c.ClientIP(), err)
		return
	}

	conn := hub.NewConnection(h.hub, ws)
	h.hub.Register(conn)

	go conn.WritePump()
	conn.ReadPump()
}
