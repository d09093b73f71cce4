package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"photobooth-api/internal/models"
)

// Client represents a WebSocket connection
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// Hub maintains active clients and broadcasts booth events to all of them
type Hub struct {
	Clients    map[*Client]bool
	Broadcast  chan *Message
	Register   chan *Client
	Unregister chan *Client
	Mu         sync.RWMutex

	done chan struct{}
}

// Message represents a WebSocket message
type Message struct {
	Type      string          `json:"type"`
	Level     models.Level    `json:"level,omitempty"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Message types
const (
	MSG_NOTIFICATION   = "notification"
	MSG_PHOTOS_CHANGED = "photos.changed"
)

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Broadcast:  make(chan *Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Notify queues a notification for every connected client. It never blocks;
// notices are dropped when the queue is full.
func (h *Hub) Notify(level models.Level, message string) {
	log.Printf("[Notify] %s: %s", level, message)
	h.publish(&Message{Type: MSG_NOTIFICATION, Level: level, Message: message})
}

// Publish queues an event with an optional JSON payload.
func (h *Hub) Publish(msgType string, data any) {
	msg := &Message{Type: msgType}
	if data != nil {
		msg.Data = mustMarshal(data)
	}
	h.publish(msg)
}

func (h *Hub) publish(msg *Message) {
	msg.Timestamp = time.Now()
	select {
	case h.Broadcast <- msg:
	default:
		log.Printf("[WebSocket] Broadcast queue full, dropping %s", msg.Type)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.Mu.RLock()
	defer h.Mu.RUnlock()
	return len(h.Clients)
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// register attaches c unless the hub has stopped.
func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

// unregister detaches c; after shutdown Run has already closed every client.
func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.Mu.Lock()
			for client := range h.Clients {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.Mu.Unlock()
			return

		case client := <-h.Register:
			h.Mu.Lock()
			h.Clients[client] = true
			h.Mu.Unlock()

		case client := <-h.Unregister:
			h.Mu.Lock()
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
			}
			h.Mu.Unlock()

		case message := <-h.Broadcast:
			payload := mustMarshal(message)

			h.Mu.Lock()
			for client := range h.Clients {
				select {
				case client.Send <- payload:
				default:
					// slow consumer
					delete(h.Clients, client)
					close(client.Send)
				}
			}
			h.Mu.Unlock()
		}
	}
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("Failed to marshal: %v", err)
		return []byte("{}")
	}
	return b
}
