// Package observe implements the wire-level pieces a training-session
// observer consumes: a websocket broadcast hub for step/iteration
// snapshots, and a Prometheus metrics registrar.
package observe

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Snapshot is the JSON payload broadcast to observers on each step
// callback.
type Snapshot struct {
	Step      int     `json:"step"`
	Iteration int     `json:"iteration"`
	Loss      float64 `json:"loss"`
	L1Loss    float64 `json:"l1_loss"`
	L2Loss    float64 `json:"l2_loss"`
	Reward    float64 `json:"reward,omitempty"`
}

// client wraps one observer's outbound connection with a bounded send
// buffer, mirroring the register/unregister/broadcast-without-lock
// pattern used elsewhere for per-connection fan-out.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans a sequence of training snapshots out to any number of
// connected websocket observers. Registration and unregistration are
// channel operations so Run's event loop owns all mutation of the client set;
// Broadcast may be called concurrently from the trainer.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}

	register   chan *client
	unregister chan *client
	broadcast  chan []byte
}

// NewHub constructs an idle hub. Call Run in its own goroutine to start
// serving registrations and broadcasts.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
	}
}

// Register admits a websocket connection as an observer and starts its
// outbound write pump. Returns once the client has been accepted by
// Run's event loop.
func (h *Hub) Register(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, 16)}
	h.register <- c
	go h.writePump(c)
}

// Run drives the hub's event loop: client registration, unregistration,
// and broadcast fan-out. It never returns; call it in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*client, 0, len(h.clients))
			for c := range h.clients {
				targets = append(targets, c)
			}
			h.mu.RUnlock()
			for _, c := range targets {
				select {
				case c.send <- msg:
				default:
					slog.Warn("observer send buffer full, dropping client")
					go func(c *client) { h.unregister <- c }(c)
				}
			}
		}
	}
}

// Publish marshals snapshot to JSON and enqueues it for broadcast to
// every connected observer. Never blocks the caller on a slow observer.
func (h *Hub) Publish(snap Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("failed to marshal observer snapshot", "error", err)
		return
	}
	select {
	case h.broadcast <- data:
	default:
		slog.Warn("observer broadcast channel full, dropping snapshot")
	}
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.unregister <- c
			return
		}
	}
	c.conn.Close()
}
