package hub

import (
	"encoding/json"
	"sync"
	"time"

	"jewgo-discovery/internal/models"
	"jewgo-discovery/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxMessageSize = 4096

// Connection is one live realtime client. The hub owns its room memberships;
// the read and write pumps own the websocket.
type Connection struct {
	ID    string
	hub   *Hub
	ws    *websocket.Conn
	send  chan []byte
	rooms map[string]struct{}
	once  sync.Once
}

func NewConnection(h *Hub, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:    uuid.NewString(),
		hub:   h,
		ws:    ws,
		send:  make(chan []byte, h.sendBuffer),
		rooms: make(map[string]struct{}),
	}
}

func (c *Connection) closeSend() {
	c.once.Do(func() {
		close(c.send)
	})
}

// clientMessage is what subscribers send: subscribe/unsubscribe with a room
// key, or a heartbeat acknowledgement.
type clientMessage struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

// ReadPump consumes client messages until the connection dies. Any inbound
// message counts as liveness; a client that stays silent past the heartbeat
// timeout is torn down.
func (c *Connection) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.heartbeatTimeout))

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.GlobalLogger.Debugf("connection %s read error: %v", c.ID, err)
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.heartbeatTimeout))

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "subscribe":
			if msg.Room != "" {
				c.hub.Subscribe(c, msg.Room)
			}
		case "unsubscribe":
			if msg.Room != "" {
				c.hub.Unsubscribe(c, msg.Room)
			}
		case "heartbeat-ack":
			// Deadline already extended above.
		}
	}
}

// WritePump drains the send channel and emits periodic heartbeats. Writes
// are bounded by the send timeout; a failed write drops the connection
// without affecting the rest of its rooms.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.hub.heartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.sendTimeout))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.Unregister(c)
				return
			}

		case <-ticker.C:
			heartbeat, _ := json.Marshal(models.Event{
				Type:   models.MessageHeartbeat,
				SentAt: time.Now(),
			})
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.sendTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, heartbeat); err != nil {
				c.hub.Unregister(c)
				return
			}
		}
	}
}
