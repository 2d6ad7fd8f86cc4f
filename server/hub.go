package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/certforge/certbatch/batch"
)

// Hub fans batch messages out to every connected websocket client.
type Hub struct {
	log *slog.Logger

	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.Mutex
}

// NewHub creates a hub; call Start before registering clients.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:        log,
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Start begins the hub loop on its own goroutine.
func (h *Hub) Start() {
	go func() {
		for {
			select {
			case client := <-h.register:
				h.mu.Lock()
				h.clients[client] = true
				total := len(h.clients)
				h.mu.Unlock()
				h.log.Info("websocket client connected", "clients", total)
			case client := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					client.Close()
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.log.Info("websocket client disconnected", "clients", total)
			case message := <-h.broadcast:
				h.mu.Lock()
				for client := range h.clients {
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						h.log.Error("failed to send to client", "error", err)
						client.Close()
						delete(h.clients, client)
					}
				}
				h.mu.Unlock()
			case <-h.done:
				h.mu.Lock()
				for client := range h.clients {
					client.Close()
				}
				h.clients = make(map[*websocket.Conn]bool)
				h.mu.Unlock()
				return
			}
		}
	}()
}

// Stop shuts the hub loop down and closes every connected client. Safe to
// call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Broadcast sends one batch message to all connected clients as JSON. After
// Stop it is a no-op.
func (h *Hub) Broadcast(msg batch.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("failed to marshal message", "kind", msg.Kind, "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

// RegisterClient adds a new websocket client.
func (h *Hub) RegisterClient(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
	}
}

// UnregisterClient removes a websocket client.
func (h *Hub) UnregisterClient(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}
