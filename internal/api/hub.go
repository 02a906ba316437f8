package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cadencehq/cadence/internal/logging"
)

// WebSocketMessage is the envelope pushed to connected clients
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WebSocketHub manages connected clients and broadcasts score updates
type WebSocketHub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan WebSocketMessage
	upgrader   websocket.Upgrader
	log        *logging.Logger

	mu sync.RWMutex
}

// NewWebSocketHub creates a new hub
func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan WebSocketMessage, 64),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local daemon, no cross-origin concerns
			},
		},
		log: logging.WithField("component", "websocket"),
	}
}

// Run processes register/unregister/broadcast events. Call in a goroutine.
func (h *WebSocketHub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			h.mu.Unlock()
			h.log.Debug("client connected (%d total)", h.ClientCount())

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteJSON(msg); err != nil {
					h.log.Warn("write failed, dropping client: %v", err)
					conn.Close()
					go func(c *websocket.Conn) { h.unregister <- c }(conn)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a message for all connected clients
func (h *WebSocketHub) Broadcast(msg WebSocketMessage) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Warn("broadcast queue full, dropping %s", msg.Type)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// handleWebSocket upgrades the connection and keeps it registered until
// the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsHub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.wsHub.log.Warn("upgrade failed: %v", err)
		return
	}

	s.wsHub.register <- conn

	// Drain client messages so pings are answered. The hub is push-only.
	go func() {
		defer func() { s.wsHub.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
