package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/hifihub/hubd/internal/cmdqueue"
	"github.com/hifihub/hubd/internal/mirror"
	"github.com/hifihub/hubd/internal/player"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ok(w, map[string]string{"status": "up"})
}

// cmdRequest accepts either a single command or a batch.
type cmdRequest struct {
	Cmd  string   `json:"cmd"`
	Cmds []string `json:"cmds"`
}

func (s *Server) handleCmdWrite(w http.ResponseWriter, r *http.Request) {
	var req cmdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, "invalid request body", http.StatusBadRequest)
		return
	}

	lines := req.Cmds
	if req.Cmd != "" {
		lines = []string{req.Cmd}
	}

	written, err := s.queue.Enqueue(lines)
	if err != nil {
		if errors.Is(err, cmdqueue.ErrEmptyCommand) {
			fail(w, "missing cmd", http.StatusBadRequest)
			return
		}
		fail(w, fmt.Sprintf("write cmd failed: %v", err), http.StatusInternalServerError)
		return
	}
	ok(w, map[string]int{"written": written})
}

// enqueue writes one command line and reports the outcome on w.
func (s *Server) enqueue(w http.ResponseWriter, line string) {
	if _, err := s.queue.Enqueue([]string{line}); err != nil {
		if errors.Is(err, cmdqueue.ErrEmptyCommand) {
			fail(w, "missing cmd", http.StatusBadRequest)
			return
		}
		fail(w, fmt.Sprintf("enqueue failed: %v", err), http.StatusInternalServerError)
		return
	}
	ok(w, map[string]string{"queued": line})
}

// enqueueHandler returns a handler that enqueues a fixed command line.
func (s *Server) enqueueHandler(line string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.enqueue(w, line)
	}
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	line := "play"
	if pos := r.URL.Query().Get("pos"); pos != "" {
		n, err := strconv.Atoi(pos)
		if err != nil {
			fail(w, "invalid ?pos=", http.StatusBadRequest)
			return
		}
		line = fmt.Sprintf("play %d", n)
	}
	s.enqueue(w, line)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	val := r.URL.Query().Get("value")
	if val == "" {
		val = "1"
	}
	line := "pause"
	switch val {
	case "0", "false", "False", "off", "no":
		line = "resume"
	}
	s.enqueue(w, line)
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	pos := r.URL.Query().Get("pos")
	if pos == "" {
		fail(w, "missing ?pos=", http.StatusBadRequest)
		return
	}
	secs, err := strconv.ParseFloat(pos, 64)
	if err != nil {
		fail(w, "invalid ?pos=", http.StatusBadRequest)
		return
	}
	if secs < 0 {
		secs = 0
	}
	s.enqueue(w, "seek "+strconv.FormatFloat(secs, 'f', -1, 64))
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	val := r.URL.Query().Get("value")
	if val == "" {
		fail(w, "missing ?value=", http.StatusBadRequest)
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		fail(w, "invalid ?value=", http.StatusBadRequest)
		return
	}
	vol := int(f)
	if vol < 0 {
		vol = 0
	} else if vol > 100 {
		vol = 100
	}
	s.enqueue(w, fmt.Sprintf("volume %d", vol))
}

// handleClear enqueues the clear command and resets the mirror synchronously
// so tooling watching the mirror sees the queue empty immediately.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if _, err := s.queue.Enqueue([]string{"clear"}); err != nil {
		fail(w, fmt.Sprintf("clear failed: %v", err), http.StatusInternalServerError)
		return
	}
	stats, err := s.mirror.Reset()
	if err != nil {
		fail(w, fmt.Sprintf("mirror reset failed: %v", err), http.StatusInternalServerError)
		return
	}
	ok(w, stats)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		fail(w, "missing ?path=", http.StatusBadRequest)
		return
	}

	var stats mirror.Stats
	if !s.withPlayer(w, func(c player.Client) error {
		if err := c.Add(path); err != nil {
			return err
		}
		var err error
		stats, err = s.mirror.Reconcile(c)
		return err
	}) {
		return
	}
	ok(w, stats)
}

type addManyRequest struct {
	Paths []string `json:"paths"`
	Clear bool     `json:"clear"`
	Play  bool     `json:"play"`
}

func (s *Server) handleAddMany(w http.ResponseWriter, r *http.Request) {
	var req addManyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Paths) == 0 {
		fail(w, "missing paths", http.StatusBadRequest)
		return
	}

	if !s.withPlayer(w, func(c player.Client) error {
		if req.Clear {
			if err := c.Clear(); err != nil {
				return err
			}
		}
		for _, p := range req.Paths {
			if p == "" {
				continue
			}
			if err := c.Add(p); err != nil {
				return err
			}
		}
		if req.Play {
			if err := c.Play(-1); err != nil {
				return err
			}
		}
		_, err := s.mirror.Reconcile(c)
		return err
	}) {
		return
	}
	ok(w, map[string]any{"added": len(req.Paths), "cleared": req.Clear, "played": req.Play})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	from, err1 := strconv.Atoi(r.URL.Query().Get("from"))
	to, err2 := strconv.Atoi(r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		fail(w, "missing ?from=&to=", http.StatusBadRequest)
		return
	}

	var stats mirror.Stats
	if !s.withPlayer(w, func(c player.Client) error {
		if err := c.Move(from, -1, to); err != nil {
			return err
		}
		var err error
		stats, err = s.mirror.Reconcile(c)
		return err
	}) {
		return
	}
	ok(w, stats)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	pos, err := strconv.Atoi(r.URL.Query().Get("pos"))
	if err != nil {
		fail(w, "missing ?pos=", http.StatusBadRequest)
		return
	}

	var stats mirror.Stats
	if !s.withPlayer(w, func(c player.Client) error {
		if err := c.Delete(pos, -1); err != nil {
			return err
		}
		var err error
		stats, err = s.mirror.Reconcile(c)
		return err
	}) {
		return
	}
	ok(w, stats)
}

func (s *Server) handlePlayerQueue(w http.ResponseWriter, r *http.Request) {
	var playlist []mpd.Attrs
	if !s.withPlayer(w, func(c player.Client) error {
		var err error
		playlist, err = c.PlaylistInfo(-1, -1)
		return err
	}) {
		return
	}
	ok(w, playlist)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"state": s.snapshots.Read()}

	if boolParam(r, "with_queue") {
		queue := s.mirror.Read()
		if queue == nil {
			queue = []string{}
		}
		payload["queue"] = queue
	}
	if boolParam(r, "with_status") {
		// Best-effort drift probe: zero stats when the player is down.
		stats := mirror.SyncStats{}
		if c, err := s.dial(); err == nil {
			if st, err := s.mirror.SyncStatus(c); err == nil {
				stats = st
			}
			c.Close()
		}
		payload["queue_status"] = stats
	}
	ok(w, payload)
}

func (s *Server) handleCmdStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshots.Read()
	ok(w, map[string]any{
		"last_cmd":      snap.LastCmd,
		"last_cmd_line": snap.LastCmdLine,
		"last_cmd_ts":   snap.LastCmdTS,
		"last_error":    snap.LastError,
	})
}

func (s *Server) handleCmdLogs(w http.ResponseWriter, r *http.Request) {
	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = 1
	} else if limit > 1000 {
		limit = 1000
	}
	ok(w, s.journal.Tail(limit))
}

func (s *Server) handleQueueGet(w http.ResponseWriter, r *http.Request) {
	queue := s.mirror.Read()
	if queue == nil {
		queue = []string{}
	}
	ok(w, queue)
}

type queueSetRequest struct {
	Paths []string `json:"paths"`
	Apply bool     `json:"apply"`
}

func (s *Server) handleQueueSet(w http.ResponseWriter, r *http.Request) {
	var req queueSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var stats mirror.Stats
	if req.Apply {
		if !s.withPlayer(w, func(c player.Client) error {
			if err := s.mirror.Apply(c, req.Paths); err != nil {
				return err
			}
			var err error
			stats, err = s.mirror.Reconcile(c)
			return err
		}) {
			return
		}
	} else {
		if err := s.mirror.Write(req.Paths); err != nil {
			fail(w, fmt.Sprintf("queue update failed: %v", err), http.StatusInternalServerError)
			return
		}
		stats = s.mirror.WriteLinks(req.Paths)
	}

	ok(w, map[string]any{
		"count":   len(req.Paths),
		"applied": req.Apply,
		"created": stats.Created,
		"removed": stats.Removed,
		"skipped": stats.Skipped,
	})
}

func (s *Server) handleQueueSync(w http.ResponseWriter, r *http.Request) {
	var stats mirror.Stats
	var sync mirror.SyncStats
	if !s.withPlayer(w, func(c player.Client) error {
		var err error
		if stats, err = s.mirror.Reconcile(c); err != nil {
			return err
		}
		sync, err = s.mirror.SyncStatus(c)
		return err
	}) {
		return
	}
	ok(w, map[string]any{
		"created": stats.Created,
		"removed": stats.Removed,
		"skipped": stats.Skipped,
		"sync":    sync,
	})
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	var sync mirror.SyncStats
	if !s.withPlayer(w, func(c player.Client) error {
		var err error
		sync, err = s.mirror.SyncStatus(c)
		return err
	}) {
		return
	}
	ok(w, sync)
}

func (s *Server) handleQueueEntry(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		fail(w, "missing ?path=", http.StatusBadRequest)
		return
	}
	ok(w, s.mirror.EntryInfo(path))
}

func boolParam(r *http.Request, name string) bool {
	switch r.URL.Query().Get(name) {
	case "1", "true", "yes":
		return true
	}
	return false
}
