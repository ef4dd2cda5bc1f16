// Package mirror persists the intended play queue as a JSON list plus a
// directory of ordinal symlinks, and keeps both consistent with the player's
// live playlist. The JSON list is authoritative for crash recovery; the
// symlink directory exists for external tooling that wants filesystem-visible
// queue order.
package mirror

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hifihub/hubd/internal/player"
)

const (
	queueJSONFile = "queue.json"
	linkDirName   = "queue"
)

// Stats reports the outcome of a symlink regeneration.
type Stats struct {
	Created int `json:"created"`
	Removed int `json:"removed"`
	Skipped int `json:"skipped"`
}

// SyncStats compares the persisted mirror against the player's live playlist.
type SyncStats struct {
	QueueLen  int  `json:"queue_len"`
	PlayerLen int  `json:"player_len"`
	Match     bool `json:"match"`
	Diff      int  `json:"diff"`
}

// Store manages the queue mirror under a state directory.
type Store struct {
	stateDir  string
	musicRoot string
}

// NewStore returns a mirror store. Relative track references resolve against
// musicRoot when symlinks are created.
func NewStore(stateDir, musicRoot string) *Store {
	return &Store{stateDir: stateDir, musicRoot: musicRoot}
}

// JSONPath returns the path of the persisted queue list.
func (s *Store) JSONPath() string {
	return filepath.Join(s.stateDir, queueJSONFile)
}

// LinkDir returns the symlink directory path.
func (s *Store) LinkDir() string {
	return filepath.Join(s.stateDir, linkDirName)
}

// Read returns the persisted queue list. Missing or corrupt files yield an
// empty list; the mirror is rebuilt on the next reconciliation anyway.
func (s *Store) Read() []string {
	data, err := os.ReadFile(s.JSONPath())
	if err != nil {
		return nil
	}
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil
	}
	return paths
}

// Write replaces the persisted queue list via atomic rename.
func (s *Store) Write(paths []string) error {
	if paths == nil {
		paths = []string{}
	}
	data, err := json.Marshal(paths)
	if err != nil {
		return fmt.Errorf("failed to marshal queue list: %w", err)
	}
	if err := os.MkdirAll(s.stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := s.JSONPath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp queue list: %w", err)
	}
	if err := os.Rename(tmp, s.JSONPath()); err != nil {
		return fmt.Errorf("failed to replace queue list: %w", err)
	}
	return nil
}

// Resolve maps a track reference to an absolute filesystem path. Remote URLs
// resolve to "", false: symlinks only make sense for local media.
func (s *Store) Resolve(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return "", false
	}
	if filepath.IsAbs(ref) {
		return ref, true
	}
	return filepath.Join(s.musicRoot, ref), true
}

// WriteLinks regenerates the symlink directory in full: every existing entry
// is removed, then one link per resolvable reference is created, named by a
// zero-padded 1-based ordinal and the target's basename. Unresolvable
// references (remote URLs, missing files) are counted as skipped.
func (s *Store) WriteLinks(paths []string) Stats {
	var stats Stats

	if err := os.MkdirAll(s.LinkDir(), 0755); err != nil {
		stats.Skipped = len(paths)
		return stats
	}

	entries, err := os.ReadDir(s.LinkDir())
	if err == nil {
		for _, entry := range entries {
			p := filepath.Join(s.LinkDir(), entry.Name())
			if entry.IsDir() {
				continue
			}
			if err := os.Remove(p); err == nil {
				stats.Removed++
			}
		}
	}

	for i, ref := range paths {
		abs, ok := s.Resolve(ref)
		if !ok {
			stats.Skipped++
			continue
		}
		if _, err := os.Stat(abs); err != nil {
			stats.Skipped++
			continue
		}
		name := fmt.Sprintf("%06d - %s", i+1, filepath.Base(abs))
		if err := os.Symlink(abs, filepath.Join(s.LinkDir(), name)); err != nil {
			stats.Skipped++
			continue
		}
		stats.Created++
	}
	return stats
}

// Reconcile derives the mirror from the player's live playlist: the JSON
// list is replaced and the symlink directory regenerated. Truth always flows
// from the player to the mirror, never the reverse.
func (s *Store) Reconcile(c player.Client) (Stats, error) {
	files, err := player.PlaylistFiles(c)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read player playlist: %w", err)
	}
	if err := s.Write(files); err != nil {
		return Stats{}, err
	}
	return s.WriteLinks(files), nil
}

// Reset empties the mirror: JSON list becomes [] and the symlink directory
// is cleared.
func (s *Store) Reset() (Stats, error) {
	if err := s.Write(nil); err != nil {
		return Stats{}, err
	}
	return s.WriteLinks(nil), nil
}

// SyncStatus compares the persisted list against a fresh read of the
// player's playlist without mutating anything.
func (s *Store) SyncStatus(c player.Client) (SyncStats, error) {
	queue := s.Read()
	files, err := player.PlaylistFiles(c)
	if err != nil {
		return SyncStats{}, fmt.Errorf("failed to read player playlist: %w", err)
	}

	stats := SyncStats{
		QueueLen:  len(queue),
		PlayerLen: len(files),
	}
	stats.Diff = stats.QueueLen - stats.PlayerLen
	if stats.Diff < 0 {
		stats.Diff = -stats.Diff
	}
	stats.Match = len(queue) == len(files)
	for i := range queue {
		if !stats.Match {
			break
		}
		if queue[i] != files[i] {
			stats.Match = false
		}
	}
	return stats, nil
}

// Apply replaces the player's playlist with the given references while
// preserving the playback state: if the current track is in the new list
// playback continues from it, otherwise from the first entry; paused stays
// paused and stopped stays stopped.
func (s *Store) Apply(c player.Client, paths []string) error {
	status, err := c.Status()
	if err != nil {
		return err
	}
	current, err := c.CurrentSong()
	if err != nil {
		return err
	}
	st := player.State(status)
	curFile := current["file"]

	if err := c.Clear(); err != nil {
		return err
	}
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := c.Add(p); err != nil {
			return err
		}
	}

	if len(paths) == 0 {
		return nil
	}

	idx := 0
	if curFile != "" {
		for i, p := range paths {
			if p == curFile {
				idx = i
				break
			}
		}
	}

	switch st {
	case player.StatePlay:
		return c.Play(idx)
	case player.StatePause:
		if err := c.Play(idx); err != nil {
			return err
		}
		return c.Pause(true)
	case player.StateStop:
		return c.Stop()
	default:
		return c.Play(idx)
	}
}
