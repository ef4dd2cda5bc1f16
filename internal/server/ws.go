package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hifihub/hubd/internal/state"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans published snapshots out to connected websocket clients. Polling
// the snapshot file stays the primary interface; the stream is a convenience
// for UIs that want push updates.
type Hub struct {
	clients map[*websocket.Conn]bool
	mu      sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]bool)}
}

// AddClient registers a connection.
func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
}

// RemoveClient unregisters and closes a connection.
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

// Broadcast sends a snapshot to every client, dropping the ones that fail.
func (h *Hub) Broadcast(snap state.Snapshot) {
	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	var failed []*websocket.Conn
	for _, conn := range clients {
		// A slow client must not hold up the daemon's publish path.
		conn.SetWriteDeadline(time.Now().Add(100 * time.Millisecond))
		if err := conn.WriteJSON(snap); err != nil {
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		h.RemoveClient(conn)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[HTTP] Websocket upgrade failed: %v", err)
		return
	}

	// Send the latest snapshot before registering with the hub: the hub may
	// broadcast at any moment, and the connection must never have two
	// concurrent writers.
	if err := conn.WriteJSON(s.snapshots.Read()); err != nil {
		conn.Close()
		return
	}

	s.hub.AddClient(conn)
	log.Printf("[HTTP] Websocket client connected: %s", conn.RemoteAddr())

	// Drain the connection to detect close; clients never send anything.
	go func() {
		defer s.hub.RemoveClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
