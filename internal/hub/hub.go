package hub

import (
	"encoding/json"
	"time"

	"jewgo-discovery/internal/models"
	"jewgo-discovery/pkg/logger"
	"jewgo-discovery/pkg/metrics"
)

// Hub owns the room membership table and fans events out to subscribed
// connections. A single event loop multiplexes registration, subscription,
// and publishing, which is what preserves publish order within a room. No
// ordering is guaranteed across rooms.
type Hub struct {
	register   chan *Connection
	unregister chan *Connection
	subscribe  chan subscription
	broadcast  chan envelope
	roomsReq   chan chan []string

	rooms map[string]map[*Connection]struct{}
	conns map[*Connection]struct{}

	stop chan struct{}
	done chan struct{}

	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	sendTimeout       time.Duration
	sendBuffer        int
}

type subscription struct {
	conn *Connection
	room string
	join bool
}

type envelope struct {
	room       string
	cellPrefix string
	msgType    string
	data       []byte
}

func New(heartbeatInterval, heartbeatTimeout, sendTimeout time.Duration, sendBuffer int) *Hub {
	return &Hub{
		register:          make(chan *Connection),
		unregister:        make(chan *Connection),
		subscribe:         make(chan subscription),
		broadcast:         make(chan envelope, 256),
		roomsReq:          make(chan chan []string),
		rooms:             make(map[string]map[*Connection]struct{}),
		conns:             make(map[*Connection]struct{}),
		stop:              make(chan struct{}),
		done:              make(chan struct{}),
		heartbeatInterval: heartbeatInterval,
		heartbeatTimeout:  heartbeatTimeout,
		sendTimeout:       sendTimeout,
		sendBuffer:        sendBuffer,
	}
}

// Run drives the event loop until Stop is called.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.conns[c] = struct{}{}
			metrics.HubConnections.Set(float64(len(h.conns)))

		case c := <-h.unregister:
			h.removeConnection(c)

		case sub := <-h.subscribe:
			if sub.join {
				h.joinRoom(sub.conn, sub.room)
			} else {
				h.leaveRoom(sub.conn, sub.room)
			}

		case env := <-h.broadcast:
			h.deliver(env)

		case reply := <-h.roomsReq:
			rooms := make([]string, 0, len(h.rooms))
			for room := range h.rooms {
				rooms = append(rooms, room)
			}
			reply <- rooms

		case <-h.stop:
			for c := range h.conns {
				h.removeConnection(c)
			}
			return
		}
	}
}

// Stop shuts the loop down and tears every connection down with it.
func (h *Hub) Stop() {
	close(h.stop)
	<-h.done
	logger.GlobalLogger.Println("Broadcast hub stopped")
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *Connection) {
	select {
	case h.register <- c:
	case <-h.stop:
	}
}

// Unregister removes a connection and all of its room memberships.
// Idempotent: unregistering an unknown connection is a no-op.
func (h *Hub) Unregister(c *Connection) {
	select {
	case h.unregister <- c:
	case <-h.stop:
	}
}

// Subscribe adds a connection to a room.
func (h *Hub) Subscribe(c *Connection, room string) {
	select {
	case h.subscribe <- subscription{conn: c, room: room, join: true}:
	case <-h.stop:
	}
}

// Unsubscribe removes a connection from a room.
func (h *Hub) Unsubscribe(c *Connection, room string) {
	select {
	case h.subscribe <- subscription{conn: c, room: room, join: false}:
	case <-h.stop:
	}
}

// PublishRoom delivers an event to every subscriber of one room, in publish
// order. Publishing to a room with no subscribers is a no-op.
func (h *Hub) PublishRoom(room string, event models.Event) {
	event.Room = room
	data, err := json.Marshal(event)
	if err != nil {
		logger.GlobalLogger.Errorf("failed to marshal event for room %s: %v", room, err)
		return
	}
	select {
	case h.broadcast <- envelope{room: room, msgType: event.Type, data: data}:
	case <-h.stop:
	}
}

// PublishCell delivers an event to every room whose key is anchored at the
// given geographic cell.
func (h *Hub) PublishCell(cell string, event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.GlobalLogger.Errorf("failed to marshal event for cell %s: %v", cell, err)
		return
	}
	select {
	case h.broadcast <- envelope{cellPrefix: cell + "|", msgType: event.Type, data: data}:
	case <-h.stop:
	}
}

// ActiveRooms snapshots the current room keys, for the status watcher.
func (h *Hub) ActiveRooms() []string {
	reply := make(chan []string, 1)
	select {
	case h.roomsReq <- reply:
		return <-reply
	case <-h.done:
		return nil
	}
}

func (h *Hub) joinRoom(c *Connection, room string) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Connection]struct{})
	}
	h.rooms[room][c] = struct{}{}
	c.rooms[room] = struct{}{}
	metrics.HubRooms.Set(float64(len(h.rooms)))
}

func (h *Hub) leaveRoom(c *Connection, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
	metrics.HubRooms.Set(float64(len(h.rooms)))
}

func (h *Hub) removeConnection(c *Connection) {
	if _, ok := h.conns[c]; !ok {
		return
	}
	for room := range c.rooms {
		h.leaveRoom(c, room)
	}
	delete(h.conns, c)
	c.closeSend()
	metrics.HubConnections.Set(float64(len(h.conns)))
}

// deliver fans an envelope out. A slow connection whose send buffer is full
// is dropped so it cannot block the rest of the room.
func (h *Hub) deliver(env envelope) {
	targets := make(map[*Connection]struct{})
	if env.room != "" {
		for c := range h.rooms[env.room] {
			targets[c] = struct{}{}
		}
	} else if env.cellPrefix != "" {
		for room, members := range h.rooms {
			if len(room) >= len(env.cellPrefix) && room[:len(env.cellPrefix)] == env.cellPrefix {
				for c := range members {
					targets[c] = struct{}{}
				}
			}
		}
	}
	if len(targets) == 0 {
		return
	}

	metrics.HubMessagesTotal.WithLabelValues(env.msgType).Inc()
	for c := range targets {
		select {
		case c.send <- env.data:
		default:
			metrics.HubDroppedConnectionsTotal.Inc()
			logger.GlobalLogger.Errorf("dropping slow connection %s", c.ID)
			h.removeConnection(c)
		}
	}
}
