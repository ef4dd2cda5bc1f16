// Package state persists the published playback snapshot and the command
// execution journal.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

// Snapshot is the latest published playback state. The daemon overwrites it
// wholesale every tick; clients poll it instead of holding a connection.
// Status and Current mirror the player's native attribute maps verbatim.
type Snapshot struct {
	TS          int64     `json:"ts"`
	Status      mpd.Attrs `json:"status"`
	Current     mpd.Attrs `json:"current"`
	LastCmd     string    `json:"last_cmd"`
	LastCmdLine string    `json:"last_cmd_line"`
	LastCmdTS   int64     `json:"last_cmd_ts"`
	LastError   string    `json:"last_error"`
}

const snapshotFile = "state.json"

// Store reads and writes the snapshot file under a state directory.
type Store struct {
	dir string
}

// NewStore returns a snapshot store rooted at stateDir.
func NewStore(stateDir string) *Store {
	return &Store{dir: stateDir}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, snapshotFile)
}

// Write replaces the snapshot atomically: the payload is written to a temp
// file and renamed over the target, so readers never observe a partial write.
func (s *Store) Write(snap Snapshot) error {
	if snap.TS == 0 {
		snap.TS = time.Now().Unix()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return writeFileAtomic(s.Path(), data)
}

// Read returns the last published snapshot. A missing or corrupt file yields
// a zero snapshot rather than an error; the snapshot is advisory and the
// next tick will replace it anyway.
func (s *Store) Read() Snapshot {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return Snapshot{}
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}
	}
	return snap
}

// writeFileAtomic writes data to a temp file next to path, then renames it
// over path.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
