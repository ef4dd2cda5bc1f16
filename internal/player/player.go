// Package player wraps the MPD protocol connection the hub drives.
package player

import (
	"errors"
	"fmt"
	"time"

	"github.com/fhs/gompd/v2/mpd"
)

// ErrUnreachable marks dial failures and per-call timeouts. The daemon treats
// it as a signal to drop the connection and re-enter its backoff cycle.
var ErrUnreachable = errors.New("player unreachable")

// Client is the subset of the MPD protocol the hub uses. It is implemented by
// *mpd.Client (via Conn) and by test fakes.
type Client interface {
	Status() (mpd.Attrs, error)
	CurrentSong() (mpd.Attrs, error)
	PlaylistInfo(start, end int) ([]mpd.Attrs, error)
	Play(pos int) error
	Pause(pause bool) error
	Stop() error
	Next() error
	Previous() error
	Clear() error
	Add(uri string) error
	Delete(start, end int) error
	Move(start, end, position int) error
	SetVolume(vol int) error
	SeekCur(d time.Duration, relative bool) error
	Close() error
}

// Dialer creates player connections. The daemon holds one long-lived
// connection; HTTP handlers that mutate the queue directly dial short-lived
// ones so they never share the daemon's.
type Dialer struct {
	Host     string
	Port     int
	Password string
	Timeout  time.Duration
}

// Dial connects to the player and returns a timeout-guarded connection.
func (d Dialer) Dial() (Client, error) {
	addr := fmt.Sprintf("%s:%d", d.Host, d.Port)

	var c *mpd.Client
	var err error
	if d.Password != "" {
		c, err = mpd.DialAuthenticated("tcp", addr, d.Password)
	} else {
		c, err = mpd.Dial("tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrUnreachable, addr, err)
	}

	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Conn{c: c, timeout: timeout}, nil
}

// Conn guards every MPD call with a fixed timeout. A call that does not
// return within the window reports ErrUnreachable; the underlying connection
// is considered dead from that point on.
type Conn struct {
	c       *mpd.Client
	timeout time.Duration
}

func (p *Conn) do(op string, fn func(*mpd.Client) error) error {
	done := make(chan error, 1)
	go func() { done <- fn(p.c) }()
	select {
	case err := <-done:
		return err
	case <-time.After(p.timeout):
		return fmt.Errorf("%w: %s timed out after %s", ErrUnreachable, op, p.timeout)
	}
}

// Status fetches the player's native status map.
func (p *Conn) Status() (mpd.Attrs, error) {
	var attrs mpd.Attrs
	err := p.do("status", func(c *mpd.Client) error {
		var e error
		attrs, e = c.Status()
		return e
	})
	return attrs, err
}

// CurrentSong fetches the now-playing track attributes.
func (p *Conn) CurrentSong() (mpd.Attrs, error) {
	var attrs mpd.Attrs
	err := p.do("currentsong", func(c *mpd.Client) error {
		var e error
		attrs, e = c.CurrentSong()
		return e
	})
	return attrs, err
}

// PlaylistInfo returns playlist entries in the given range; (-1, -1) means all.
func (p *Conn) PlaylistInfo(start, end int) ([]mpd.Attrs, error) {
	var attrs []mpd.Attrs
	err := p.do("playlistinfo", func(c *mpd.Client) error {
		var e error
		attrs, e = c.PlaylistInfo(start, end)
		return e
	})
	return attrs, err
}

// Play starts playback at pos; -1 resumes at the current position.
func (p *Conn) Play(pos int) error {
	return p.do("play", func(c *mpd.Client) error { return c.Play(pos) })
}

// Pause pauses (true) or un-pauses (false) playback.
func (p *Conn) Pause(pause bool) error {
	return p.do("pause", func(c *mpd.Client) error { return c.Pause(pause) })
}

// Stop halts playback.
func (p *Conn) Stop() error {
	return p.do("stop", func(c *mpd.Client) error { return c.Stop() })
}

// Next advances to the next playlist entry.
func (p *Conn) Next() error {
	return p.do("next", func(c *mpd.Client) error { return c.Next() })
}

// Previous steps back to the previous playlist entry.
func (p *Conn) Previous() error {
	return p.do("previous", func(c *mpd.Client) error { return c.Previous() })
}

// Clear empties the player's playlist.
func (p *Conn) Clear() error {
	return p.do("clear", func(c *mpd.Client) error { return c.Clear() })
}

// Add appends a track reference to the playlist.
func (p *Conn) Add(uri string) error {
	return p.do("add", func(c *mpd.Client) error { return c.Add(uri) })
}

// Delete removes playlist entries; a negative end removes the single entry
// at start.
func (p *Conn) Delete(start, end int) error {
	return p.do("delete", func(c *mpd.Client) error { return c.Delete(start, end) })
}

// Move relocates playlist entries; a negative end moves the single entry
// at start.
func (p *Conn) Move(start, end, position int) error {
	return p.do("move", func(c *mpd.Client) error { return c.Move(start, end, position) })
}

// SetVolume sets the player volume (0-100).
func (p *Conn) SetVolume(vol int) error {
	return p.do("setvol", func(c *mpd.Client) error { return c.SetVolume(vol) })
}

// SeekCur seeks within the current track.
func (p *Conn) SeekCur(d time.Duration, relative bool) error {
	return p.do("seekcur", func(c *mpd.Client) error { return c.SeekCur(d, relative) })
}

// Close tears down the connection.
func (p *Conn) Close() error {
	return p.do("close", func(c *mpd.Client) error { return c.Close() })
}
