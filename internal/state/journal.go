package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is one executed-command record. Purely observational; the journal is
// never consulted for recovery.
type Entry struct {
	TS     int64  `json:"ts"`
	Line   string `json:"line"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

const journalFile = "cmd.log"

// Journal is an append-only, size-bounded log of executed commands, stored
// as one JSON object per line.
type Journal struct {
	path     string
	maxLines int
}

// NewJournal returns a journal under stateDir capped at maxLines entries.
func NewJournal(stateDir string, maxLines int) *Journal {
	if maxLines <= 0 {
		maxLines = 1000
	}
	return &Journal{
		path:     filepath.Join(stateDir, journalFile),
		maxLines: maxLines,
	}
}

// Append records an entry, trimming the journal to its line cap. Only the
// consumer daemon writes the journal, so no cross-process locking is needed.
func (j *Journal) Append(entry Entry) error {
	if entry.TS == 0 {
		entry.TS = time.Now().Unix()
	}
	record, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal journal entry: %w", err)
	}

	lines := j.readLines()
	lines = append(lines, string(record))
	if len(lines) > j.maxLines {
		lines = lines[len(lines)-j.maxLines:]
	}

	payload := strings.Join(lines, "\n") + "\n"
	return writeFileAtomic(j.path, []byte(payload))
}

// Tail returns the last limit entries, oldest first. Unparseable lines are
// preserved as entries carrying only the raw line.
func (j *Journal) Tail(limit int) []Entry {
	lines := j.readLines()
	if limit > 0 && len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}

	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			entries = append(entries, Entry{Line: line})
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func (j *Journal) readLines() []string {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
