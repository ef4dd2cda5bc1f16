package daemon

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hifihub/hubd/internal/cmdqueue"
	"github.com/hifihub/hubd/internal/player"
)

// execute applies one parsed command to the player. It returns the journal
// result string, whether the command mutated the play queue, and any player
// error. Unknown verbs are recorded as ignored and never produce an error:
// a bad line must not halt the batch.
func (d *Daemon) execute(c player.Client, cmd cmdqueue.Command) (string, bool, error) {
	switch cmd.Verb {
	case "":
		return "", false, nil

	case "play":
		if len(cmd.Args) == 0 {
			// Resume at the current position.
			return "play", false, c.Play(-1)
		}
		if idx, err := strconv.Atoi(cmd.Arg()); err == nil {
			return "play", false, c.Play(idx)
		}
		return "play", true, playSingle(c, cmd.Arg())

	case "resume":
		if len(cmd.Args) > 0 {
			return "resume", true, playSingle(c, cmd.Arg())
		}
		status, err := c.Status()
		if err != nil {
			return "resume", false, err
		}
		if player.State(status) == player.StateStop {
			return "resume", false, c.Play(0)
		}
		return "resume", false, c.Pause(false)

	case "pause":
		status, err := c.Status()
		if err != nil {
			return "pause", false, err
		}
		// Pausing a stopped player is a no-op, not an error.
		if player.State(status) == player.StateStop {
			return "pause", false, nil
		}
		return "pause", false, c.Pause(true)

	case "stop":
		return "stop", false, c.Stop()

	case "next":
		return d.step(c, +1)

	case "prev":
		return d.step(c, -1)

	case "clear":
		return "clear", true, c.Clear()

	case "volume":
		if len(cmd.Args) == 0 {
			break
		}
		vol, err := strconv.Atoi(cmd.Args[0])
		if err != nil {
			return "volume", false, fmt.Errorf("invalid volume %q: %w", cmd.Args[0], err)
		}
		if vol < 0 {
			vol = 0
		} else if vol > 100 {
			vol = 100
		}
		return "volume", false, c.SetVolume(vol)

	case "seek":
		if len(cmd.Args) == 0 {
			break
		}
		secs, err := strconv.ParseFloat(cmd.Args[0], 64)
		if err != nil {
			return "seek", false, fmt.Errorf("invalid seek position %q: %w", cmd.Args[0], err)
		}
		if secs < 0 {
			secs = 0
		}
		return "seek", false, c.SeekCur(time.Duration(secs*float64(time.Second)), false)

	case "add":
		if len(cmd.Args) == 0 {
			break
		}
		return "add", true, c.Add(cmd.Arg())
	}

	return "ignored:" + cmd.Line, false, nil
}

// playSingle replaces the playlist with one track and starts it.
func playSingle(c player.Client, path string) error {
	if err := c.Clear(); err != nil {
		return err
	}
	if err := c.Add(path); err != nil {
		return err
	}
	return c.Play(0)
}

// step implements next (dir=+1) and prev (dir=-1) with physical-player
// boundary behavior: an empty queue is a recorded no-op, a stopped player
// starts at the clamped neighbor index, next at the last index stops rather
// than wrapping, and prev at index 0 replays index 0.
func (d *Daemon) step(c player.Client, dir int) (string, bool, error) {
	name := "next"
	if dir < 0 {
		name = "prev"
	}

	status, err := c.Status()
	if err != nil {
		return name, false, err
	}

	length := player.PlaylistLength(status)
	if length == 0 {
		return name + "-empty", false, nil
	}

	cur, hasCur := player.SongPos(status)

	if player.State(status) == player.StateStop {
		target := 0
		if hasCur {
			target = cur + dir
		}
		if target < 0 {
			target = 0
		}
		if target > length-1 {
			target = length - 1
		}
		return name, false, c.Play(target)
	}

	if dir > 0 {
		if hasCur && cur >= length-1 {
			// End of queue: stop, do not wrap.
			return name, false, c.Stop()
		}
		return name, false, c.Next()
	}

	if hasCur && cur == 0 {
		// Beginning of queue: replay the first track.
		return name, false, c.Play(0)
	}
	return name, false, c.Previous()
}
