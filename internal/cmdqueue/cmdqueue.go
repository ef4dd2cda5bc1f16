// Package cmdqueue implements the file-backed command mailbox between HTTP
// producers and the consumer daemon.
//
// Producers append newline-delimited command lines to cmd.txt under an
// exclusive advisory lock. The consumer claims pending commands by atomically
// renaming cmd.txt away; a producer appending after the rename simply starts
// a fresh queue file, so no batch is ever shared between two readers.
package cmdqueue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// ErrEmptyCommand is returned when an enqueue request contains no usable
// command lines after sanitization.
var ErrEmptyCommand = errors.New("empty command")

const (
	queueFile = "cmd.txt"
	lockFile  = "cmd.lock"
)

// Queue is the shared command mailbox rooted in a state directory.
type Queue struct {
	dir string
}

// New returns a Queue rooted at stateDir.
func New(stateDir string) *Queue {
	return &Queue{dir: stateDir}
}

// QueuePath returns the path of the pending-command file.
func (q *Queue) QueuePath() string {
	return filepath.Join(q.dir, queueFile)
}

func (q *Queue) lockPath() string {
	return filepath.Join(q.dir, lockFile)
}

// sanitizeLine collapses internal newlines to spaces and trims the ends.
func sanitizeLine(line string) string {
	line = strings.ReplaceAll(line, "\r\n", "\n")
	line = strings.ReplaceAll(line, "\r", "\n")
	line = strings.ReplaceAll(line, "\n", " ")
	return strings.TrimSpace(line)
}

// Enqueue appends the given command lines to the queue file and returns the
// number written. Empty lines are dropped; ErrEmptyCommand is returned when
// nothing remains. The write is serialized against other producers by an
// exclusive flock and forced to stable storage before the lock is released.
func (q *Queue) Enqueue(lines []string) (int, error) {
	clean := make([]string, 0, len(lines))
	for _, line := range lines {
		if s := sanitizeLine(line); s != "" {
			clean = append(clean, s)
		}
	}
	if len(clean) == 0 {
		return 0, ErrEmptyCommand
	}

	if err := os.MkdirAll(q.dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create state directory: %w", err)
	}

	lockf, err := os.OpenFile(q.lockPath(), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return 0, fmt.Errorf("failed to open lock file: %w", err)
	}
	defer lockf.Close()

	if err := unix.Flock(int(lockf.Fd()), unix.LOCK_EX); err != nil {
		return 0, fmt.Errorf("failed to acquire queue lock: %w", err)
	}
	defer unix.Flock(int(lockf.Fd()), unix.LOCK_UN)

	f, err := os.OpenFile(q.QueuePath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open queue file: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, line := range clean {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return 0, fmt.Errorf("failed to append commands: %w", err)
	}
	if err := f.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync queue file: %w", err)
	}

	return len(clean), nil
}

// Claim atomically takes ownership of all pending commands and returns them
// in append order, with blank lines and '#' comments discarded. It returns
// nil when nothing is pending. The rename is the exclusivity boundary: once
// it succeeds no other reader can observe the same batch.
func (q *Queue) Claim() ([]string, error) {
	src := q.QueuePath()
	if _, err := os.Stat(src); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat queue file: %w", err)
	}

	claim := filepath.Join(q.dir, fmt.Sprintf("cmd.%s.txt", uuid.NewString()))
	if err := os.Rename(src, claim); err != nil {
		if os.IsNotExist(err) {
			// Lost the race against another claim; nothing to do.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim queue file: %w", err)
	}

	data, err := os.ReadFile(claim)
	// The claim file is discarded regardless: the batch is consumed at most
	// once, even if reading it failed.
	os.Remove(claim)
	if err != nil {
		return nil, fmt.Errorf("failed to read claimed batch: %w", err)
	}

	var cmds []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmds = append(cmds, line)
	}
	return cmds, nil
}
