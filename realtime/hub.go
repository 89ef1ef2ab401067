package realtime

import (
	"context"
	"strings"
	"sync"
	"time"

	"vidsense/logger"
	"vidsense/services"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 16
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub groups websocket connections into per-user rooms and forwards the
// events published on the user's Redis channel to every session in the
// room. The room a client joins is derived from its verified token, never
// from anything the client sends.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
	redis *redis.Client
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		rooms: map[string]map[*client]struct{}{},
		redis: redisClient,
	}
}

// Run subscribes to every user event channel and fans messages out to
// room members. It returns when ctx is canceled.
func (h *Hub) Run(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, services.UserEventPattern)
	defer pubsub.Close()

	for {
		select {
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			userID := strings.TrimPrefix(msg.Channel, "events:user:")
			h.Broadcast(userID, []byte(msg.Payload))
		case <-ctx.Done():
			return
		}
	}
}

// Join registers conn in userID's room and services it until the peer
// disconnects. The hub owns the connection from here on.
func (h *Hub) Join(userID string, conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	room, ok := h.rooms[userID]
	if !ok {
		room = map[*client]struct{}{}
		h.rooms[userID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	logger.Debugf("client joined room %s", userID)

	go c.writePump()
	go h.readPump(userID, c)
}

// Broadcast delivers payload to every session in userID's room. The
// Redis pump calls this for published events; callers may also deliver
// locally.
func (h *Hub) Broadcast(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[userID] {
		select {
		case c.send <- payload:
		default:
			// Slow consumer; drop the event rather than block the hub.
		}
	}
}

// RoomSize reports how many sessions are currently in userID's room.
func (h *Hub) RoomSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) leave(userID string, c *client) {
	h.mu.Lock()
	if room, ok := h.rooms[userID]; ok {
		if _, member := room[c]; member {
			delete(room, c)
			close(c.send)
			if len(room) == 0 {
				delete(h.rooms, userID)
			}
		}
	}
	h.mu.Unlock()
}

// readPump drains inbound frames to detect disconnects; clients have
// nothing meaningful to send.
func (h *Hub) readPump(userID string, c *client) {
	defer func() {
		h.leave(userID, c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
