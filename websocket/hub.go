package websocket

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
}

type envelope struct {
	userID  uuid.UUID
	payload any
}

// Hub fans entitlement events out to every open connection of a user.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan envelope
	done       chan struct{}
	stop       sync.Once

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*websocket.Conn]struct{}
	log     *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan envelope, 64),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]map[*websocket.Conn]struct{}),
		log:        log,
	}
}

// Register and Unregister return immediately once the hub is stopped.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues payload for userID. It drops the event instead of blocking
// when the hub is saturated.
func (h *Hub) Publish(userID uuid.UUID, payload any) {
	select {
	case h.broadcast <- envelope{userID: userID, payload: payload}:
	default:
		h.log.Warn("websocket hub saturated, dropping event", zap.String("user_id", userID.String()))
	}
}

func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Stop() { h.stop.Do(func() { close(h.done) }) }

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*websocket.Conn]struct{})
			}
			h.clients[client.UserID][client.Conn] = struct{}{}
			h.mu.Unlock()
			h.log.Debug("client registered", zap.String("user_id", client.UserID.String()))
		case client := <-h.unregister:
			h.remove(client.UserID, client.Conn)
			h.log.Debug("client unregistered", zap.String("user_id", client.UserID.String()))
		case msg := <-h.broadcast:
			h.mu.RLock()
			conns := make([]*websocket.Conn, 0, len(h.clients[msg.userID]))
			for conn := range h.clients[msg.userID] {
				conns = append(conns, conn)
			}
			h.mu.RUnlock()

			for _, conn := range conns {
				if err := conn.WriteJSON(msg.payload); err != nil {
					h.log.Warn("error sending event", zap.String("user_id", msg.userID.String()), zap.Error(err))
					conn.Close()
					h.remove(msg.userID, conn)
				}
			}
		}
	}
}

func (h *Hub) remove(userID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.clients, userID)
		}
	}
}
