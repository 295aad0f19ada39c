// Package events streams studio state changes to websocket clients
package events

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alchemorsel/studio/internal/domain/recipe"
	"github.com/alchemorsel/studio/internal/domain/shared"
	"github.com/alchemorsel/studio/internal/ports/inbound"
	"github.com/alchemorsel/studio/internal/ports/outbound"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 16
	broadcastQueue = 64
)

// StateMessage is sent to clients on connect and after every change
type StateMessage struct {
	Type      string               `json:"type"`
	RecipeID  *uuid.UUID           `json:"recipeId,omitempty"`
	Recipe    string               `json:"recipe,omitempty"`
	Message   string               `json:"message,omitempty"`
	State     *inbound.StudioState `json:"state,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

// StateFunc snapshots the studio state
type StateFunc func() inbound.StudioState

type client struct {
	conn *websocket.Conn
	send chan StateMessage
}

// Hub fans published events out to connected websocket clients. Publish
// never blocks: when the queue is full the event is dropped.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*client]bool
	state   StateFunc

	broadcast  chan shared.DomainEvent
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

var _ outbound.EventPublisher = (*Hub)(nil)

// NewHub creates a hub. checkOrigin may be nil to allow same-origin only.
func NewHub(checkOrigin func(r *http.Request) bool, logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin:     checkOrigin,
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger:     logger.Named("events"),
		clients:    make(map[*client]bool),
		broadcast:  make(chan shared.DomainEvent, broadcastQueue),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// Bind sets the state source attached to every message
func (h *Hub) Bind(state StateFunc) {
	h.mu.Lock()
	h.state = state
	h.mu.Unlock()
}

// Publish queues an event for broadcast
func (h *Hub) Publish(event shared.DomainEvent) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Event queue full, dropping event", zap.String("event", event.EventName()))
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run manages connections and broadcasting until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client connected", zap.Int("total", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("Client disconnected", zap.Int("total", total))

		case event := <-h.broadcast:
			message := h.message(event)
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Slow client
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ServeHTTP upgrades the connection and streams state messages
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan StateMessage, clientBuffer)}
	c.send <- h.message(nil)

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) message(event shared.DomainEvent) StateMessage {
	msg := StateMessage{Type: "hello", Timestamp: time.Now().UnixMilli()}
	if event != nil {
		msg.Type = event.EventName()
		msg.Timestamp = event.OccurredAt().UnixMilli()
		if le, ok := event.(recipe.LifecycleEvent); ok {
			if le.RecipeID != uuid.Nil {
				id := le.RecipeID
				msg.RecipeID = &id
			}
			msg.Recipe = le.Recipe
			msg.Message = le.Message
		}
	}

	h.mu.RLock()
	state := h.state
	h.mu.RUnlock()
	if state != nil {
		snapshot := state()
		msg.State = &snapshot
	}
	return msg
}

// readPump discards client messages and detects disconnects
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("WebSocket error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
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
