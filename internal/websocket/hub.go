package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/batgear/batstore-backend/internal/app/model"
	"github.com/batgear/batstore-backend/pkg/logger"
)

const clientBufferSize = 64

// OrderEvent is the frame pushed to admin dashboards
type OrderEvent struct {
	Type      string       `json:"type"`
	Order     *model.Order `json:"order"`
	Timestamp time.Time    `json:"timestamp"`
}

// Client is one connected admin session
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte
}

func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, clientBufferSize),
	}
}

// Hub fans order events out to every connected admin session
type Hub struct {
	clients   map[*Client]bool
	stopped   bool
	broadcast chan []byte
	done      chan struct{}
	stopOnce  sync.Once
	mu        sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*Client]bool),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
	}
}

// Run fans broadcasts out until Stop is called
func (h *Hub) Run() {
	for {
		select {
		case message := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for client := range h.clients {
				select {
				case client.Send <- message:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()
			for _, client := range slow {
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"user_id": client.UserID,
				})
				h.drop(client)
			}

		case <-h.done:
			return
		}
	}
}

func (h *Hub) drop(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		return true
	}
	return false
}

// PublishOrderEvent queues an order event for every admin session.
// Events are dropped when the broadcast queue is full.
func (h *Hub) PublishOrderEvent(eventType string, order *model.Order) {
	data, err := json.Marshal(OrderEvent{
		Type:      eventType,
		Order:     order,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to marshal order event", err, map[string]interface{}{
			"type": eventType,
		})
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logger.Warn("Broadcast channel full, order event dropped", map[string]interface{}{
			"type":     eventType,
			"order_id": order.ID,
		})
	}
}

// Register adds client to the feed. Once the hub is stopped the client is
// refused and its Send channel closed so its write pump exits.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		close(client.Send)
		return false
	}
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	logger.Info("Order feed client registered", map[string]interface{}{
		"user_id":        client.UserID,
		"total_sessions": total,
	})
	return true
}

func (h *Hub) Unregister(client *Client) {
	if h.drop(client) {
		logger.Info("Order feed client unregistered", map[string]interface{}{
			"user_id": client.UserID,
		})
	}
}

// ClientCount returns the number of connected sessions
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop closes every session and ends Run
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		h.mu.Lock()
		h.stopped = true
		for client := range h.clients {
			close(client.Send)
		}
		h.clients = make(map[*Client]bool)
		h.mu.Unlock()
		close(h.done)
	})
}
