// Package server exposes the REST facade over the command queue, the
// playback snapshot and the queue mirror.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/hifihub/hubd/internal/cmdqueue"
	"github.com/hifihub/hubd/internal/mirror"
	"github.com/hifihub/hubd/internal/player"
	"github.com/hifihub/hubd/internal/state"
)

// Server wires the HTTP handlers to the queue, mirror and snapshot stores.
// Queue-mutating handlers dial their own short-lived player connections; the
// consumer daemon's connection is never shared.
type Server struct {
	addr      string
	queue     *cmdqueue.Queue
	snapshots *state.Store
	mirror    *mirror.Store
	journal   *state.Journal
	dial      func() (player.Client, error)
	hub       *Hub
}

// New creates a Server. dial is used for the direct player calls whose
// effect must be visible before the HTTP response returns.
func New(addr string, queue *cmdqueue.Queue, snapshots *state.Store, mirrorStore *mirror.Store, journal *state.Journal, dial func() (player.Client, error)) *Server {
	return &Server{
		addr:      addr,
		queue:     queue,
		snapshots: snapshots,
		mirror:    mirrorStore,
		journal:   journal,
		dial:      dial,
		hub:       NewHub(),
	}
}

// BroadcastHub returns the websocket hub, for wiring into the daemon's
// publish hook.
func (s *Server) BroadcastHub() *Hub {
	return s.hub
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/cmd", s.handleCmdWrite)
	mux.HandleFunc("GET /api/cmd/status", s.handleCmdStatus)
	mux.HandleFunc("GET /api/cmd/logs", s.handleCmdLogs)

	mux.HandleFunc("GET /api/state", s.handleState)

	mux.HandleFunc("POST /api/player/play", s.handlePlay)
	mux.HandleFunc("POST /api/player/pause", s.handlePause)
	mux.HandleFunc("POST /api/player/stop", s.enqueueHandler("stop"))
	mux.HandleFunc("POST /api/player/next", s.enqueueHandler("next"))
	mux.HandleFunc("POST /api/player/prev", s.enqueueHandler("prev"))
	mux.HandleFunc("POST /api/player/seek", s.handleSeek)
	mux.HandleFunc("POST /api/player/volume", s.handleVolume)
	mux.HandleFunc("POST /api/player/clear", s.handleClear)

	mux.HandleFunc("POST /api/player/add", s.handleAdd)
	mux.HandleFunc("POST /api/player/add-many", s.handleAddMany)
	mux.HandleFunc("POST /api/player/move", s.handleMove)
	mux.HandleFunc("POST /api/player/delete", s.handleDelete)
	mux.HandleFunc("GET /api/player/queue", s.handlePlayerQueue)

	mux.HandleFunc("GET /api/queue", s.handleQueueGet)
	mux.HandleFunc("POST /api/queue", s.handleQueueSet)
	mux.HandleFunc("POST /api/queue/sync", s.handleQueueSync)
	mux.HandleFunc("GET /api/queue/status", s.handleQueueStatus)
	mux.HandleFunc("GET /api/queue/entry", s.handleQueueEntry)

	mux.HandleFunc("GET /ws", s.handleWS)

	return mux
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Routes(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("[HTTP] Listening on %s", s.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ok writes the success envelope.
func ok(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"ok": true, "data": data}); err != nil {
		log.Printf("[HTTP] Error encoding JSON: %v", err)
	}
}

// fail writes the error envelope with the given status.
func fail(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": msg}); err != nil {
		log.Printf("[HTTP] Error encoding JSON: %v", err)
	}
}

// withPlayer dials a short-lived player connection for handlers whose effect
// must be visible before the response returns. Dial failures surface as 503.
func (s *Server) withPlayer(w http.ResponseWriter, fn func(c player.Client) error) bool {
	c, err := s.dial()
	if err != nil {
		fail(w, "player unreachable", http.StatusServiceUnavailable)
		return false
	}
	defer c.Close()

	if err := fn(c); err != nil {
		if errors.Is(err, player.ErrUnreachable) {
			fail(w, "player unreachable", http.StatusServiceUnavailable)
		} else {
			fail(w, err.Error(), http.StatusInternalServerError)
		}
		return false
	}
	return true
}
