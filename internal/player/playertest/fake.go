// Package playertest provides an in-memory fake of the MPD connection for
// tests. It models just enough playlist and state behavior for the consumer
// daemon and mirror reconciliation to be exercised without a real player.
package playertest

import (
	"strconv"
	"sync"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

// Fake is a scriptable player. The zero value is a stopped player with an
// empty playlist. Set Err to make every call fail.
type Fake struct {
	mu sync.Mutex

	State  string   // "play", "pause" or "stop"
	Queue  []string // track references in playlist order
	Pos    int      // current playlist index; -1 means none
	Volume int
	Seeked time.Duration

	// Err, when non-nil, is returned by every call.
	Err error

	// Calls records the methods invoked, in order.
	Calls []string

	Closed bool
}

// New returns a stopped Fake with an empty playlist.
func New() *Fake {
	return &Fake{State: "stop", Pos: -1}
}

func (f *Fake) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, name)
	return f.Err
}

// Status reports the player state the way MPD does: state, playlistlength,
// volume, and song/songid only when a track is selected.
func (f *Fake) Status() (mpd.Attrs, error) {
	if err := f.record("status"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	attrs := mpd.Attrs{
		"state":          f.State,
		"playlistlength": strconv.Itoa(len(f.Queue)),
		"volume":         strconv.Itoa(f.Volume),
	}
	if f.Pos >= 0 && f.Pos < len(f.Queue) {
		attrs["song"] = strconv.Itoa(f.Pos)
	}
	return attrs, nil
}

// CurrentSong returns the selected track's attributes, or an empty map.
func (f *Fake) CurrentSong() (mpd.Attrs, error) {
	if err := f.record("currentsong"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Pos < 0 || f.Pos >= len(f.Queue) {
		return mpd.Attrs{}, nil
	}
	return mpd.Attrs{"file": f.Queue[f.Pos], "pos": strconv.Itoa(f.Pos)}, nil
}

// PlaylistInfo returns the playlist; only the full (-1, -1) form is modeled.
func (f *Fake) PlaylistInfo(start, end int) ([]mpd.Attrs, error) {
	if err := f.record("playlistinfo"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := make([]mpd.Attrs, 0, len(f.Queue))
	for i, file := range f.Queue {
		entries = append(entries, mpd.Attrs{"file": file, "pos": strconv.Itoa(i)})
	}
	return entries, nil
}

// Play starts playback at pos, or at the current position when pos is -1.
func (f *Fake) Play(pos int) error {
	if err := f.record("play"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if pos >= 0 {
		f.Pos = pos
	} else if f.Pos < 0 && len(f.Queue) > 0 {
		f.Pos = 0
	}
	f.State = "play"
	return nil
}

// Pause toggles between play and pause; it has no effect while stopped.
func (f *Fake) Pause(pause bool) error {
	if err := f.record("pause"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if pause && f.State == "play" {
		f.State = "pause"
	} else if !pause && f.State == "pause" {
		f.State = "play"
	}
	return nil
}

// Stop halts playback; the current position is retained like MPD does.
func (f *Fake) Stop() error {
	if err := f.record("stop"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.State = "stop"
	return nil
}

// Next advances to the following playlist entry, stopping at the end.
func (f *Fake) Next() error {
	if err := f.record("next"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Pos < len(f.Queue)-1 {
		f.Pos++
	} else {
		f.State = "stop"
	}
	return nil
}

// Previous steps back one playlist entry.
func (f *Fake) Previous() error {
	if err := f.record("previous"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Pos > 0 {
		f.Pos--
	}
	return nil
}

// Clear empties the playlist and stops playback.
func (f *Fake) Clear() error {
	if err := f.record("clear"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queue = nil
	f.Pos = -1
	f.State = "stop"
	return nil
}

// Add appends a track reference to the playlist.
func (f *Fake) Add(uri string) error {
	if err := f.record("add"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queue = append(f.Queue, uri)
	return nil
}

// Delete removes the entry at start; ranges are not modeled.
func (f *Fake) Delete(start, end int) error {
	if err := f.record("delete"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if start < 0 || start >= len(f.Queue) {
		return nil
	}
	f.Queue = append(f.Queue[:start], f.Queue[start+1:]...)
	if f.Pos >= len(f.Queue) {
		f.Pos = len(f.Queue) - 1
	}
	return nil
}

// Move relocates the entry at start to position; ranges are not modeled.
func (f *Fake) Move(start, end, position int) error {
	if err := f.record("move"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if start < 0 || start >= len(f.Queue) || position < 0 || position >= len(f.Queue) {
		return nil
	}
	item := f.Queue[start]
	f.Queue = append(f.Queue[:start], f.Queue[start+1:]...)
	rest := append([]string{item}, f.Queue[position:]...)
	f.Queue = append(f.Queue[:position], rest...)
	return nil
}

// SetVolume records the requested volume.
func (f *Fake) SetVolume(vol int) error {
	if err := f.record("setvol"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Volume = vol
	return nil
}

// SeekCur records the requested seek target.
func (f *Fake) SeekCur(d time.Duration, relative bool) error {
	if err := f.record("seekcur"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Seeked = d
	return nil
}

// Close marks the connection closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}
