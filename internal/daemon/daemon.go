// Package daemon runs the single command-consumer loop: it claims pending
// command batches, applies them to the player in order, keeps the queue
// mirror reconciled and publishes a playback snapshot every tick.
package daemon

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/fhs/gompd/v2/mpd"

	"github.com/hifihub/hubd/internal/cmdqueue"
	"github.com/hifihub/hubd/internal/mirror"
	"github.com/hifihub/hubd/internal/player"
	"github.com/hifihub/hubd/internal/state"
)

// Options configures a Daemon.
type Options struct {
	// Dial creates the daemon's exclusive player connection.
	Dial func() (player.Client, error)

	Queue     *cmdqueue.Queue
	Snapshots *state.Store
	Mirror    *mirror.Store
	Journal   *state.Journal

	// PollInterval between ticks (default 500ms).
	PollInterval time.Duration

	// Backoff between reconnection attempts (default 2s).
	Backoff time.Duration

	// OnPublish, if set, is invoked with every published snapshot.
	OnPublish func(state.Snapshot)
}

// Daemon is the single consumer of the command queue. Exactly one Daemon
// runs per state directory; it owns the snapshot file and the long-lived
// player connection.
type Daemon struct {
	opts Options
}

// New returns a Daemon with defaults applied.
func New(opts Options) *Daemon {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}
	return &Daemon{opts: opts}
}

// cmdState carries the last-command fields across ticks. It is threaded
// through tick calls explicitly so a single tick can be tested in isolation.
type cmdState struct {
	lastCmd     string
	lastCmdLine string
	lastCmdTS   int64
	lastError   string
}

// Run drives the connect/tick/backoff cycle until ctx is cancelled. It never
// returns a player error: every failure is published and retried.
func (d *Daemon) Run(ctx context.Context) {
	cs := &cmdState{}

	for {
		if ctx.Err() != nil {
			return
		}

		c, err := d.opts.Dial()
		if err != nil {
			log.Printf("[DAEMON] Connect failed: %v", err)
			cs.lastError = err.Error()
			d.publishError(cs)
			if !sleepCtx(ctx, d.opts.Backoff) {
				return
			}
			continue
		}

		log.Printf("[DAEMON] Connected to player")
		d.restore(c)

		err = d.runConnected(ctx, c, cs)
		c.Close()
		if ctx.Err() != nil {
			return
		}

		// Connection dropped mid-session: publish immediately, then back off.
		log.Printf("[DAEMON] Connection lost: %v", err)
		cs.lastError = err.Error()
		d.publishError(cs)
		if !sleepCtx(ctx, d.opts.Backoff) {
			return
		}
	}
}

// runConnected ticks until the connection fails or ctx is cancelled. The
// returned error is the connection failure; nil means ctx was cancelled.
func (d *Daemon) runConnected(ctx context.Context, c player.Client, cs *cmdState) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := d.tick(c, cs); err != nil {
			return err
		}
		if !sleepCtx(ctx, d.opts.PollInterval) {
			return nil
		}
	}
}

// tick claims one batch, executes it in order, reconciles the mirror if any
// command touched the queue, and publishes a fresh snapshot. A non-nil error
// means the connection is unusable.
func (d *Daemon) tick(c player.Client, cs *cmdState) error {
	cmds, err := d.opts.Queue.Claim()
	if err != nil {
		// Filesystem trouble claiming is not a player failure; skip the batch
		// and keep publishing.
		log.Printf("[DAEMON] Claim failed: %v", err)
	}

	queueDirty := false
	for _, line := range cmds {
		cmd := cmdqueue.Parse(line)
		result, dirty, execErr := d.execute(c, cmd)
		queueDirty = queueDirty || dirty

		entry := state.Entry{Line: line, Result: result}
		if execErr != nil {
			entry.Error = execErr.Error()
			cs.lastError = execErr.Error()
		} else {
			cs.lastError = ""
			if result != "" {
				cs.lastCmd = result
				cs.lastCmdLine = line
				cs.lastCmdTS = time.Now().Unix()
			}
		}
		if err := d.opts.Journal.Append(entry); err != nil {
			log.Printf("[DAEMON] Journal append failed: %v", err)
		}

		// A dead connection cannot execute the rest of the batch; bail out
		// so the error snapshot is published without burning a per-call
		// timeout on every remaining command.
		if errors.Is(execErr, player.ErrUnreachable) {
			return execErr
		}
	}

	if queueDirty {
		if _, err := d.opts.Mirror.Reconcile(c); err != nil {
			// Publish below will catch a dead connection; a mirror write
			// failure only delays reconciliation by one mutation.
			log.Printf("[DAEMON] Mirror reconcile failed: %v", err)
		}
	}

	return d.publish(c, cs)
}

// publish collects live player state, merges the last-command fields and
// atomically replaces the snapshot file.
func (d *Daemon) publish(c player.Client, cs *cmdState) error {
	status, err := c.Status()
	if err != nil {
		return err
	}
	current, err := c.CurrentSong()
	if err != nil {
		return err
	}

	snap := state.Snapshot{
		TS:          time.Now().Unix(),
		Status:      status,
		Current:     current,
		LastCmd:     cs.lastCmd,
		LastCmdLine: cs.lastCmdLine,
		LastCmdTS:   cs.lastCmdTS,
		LastError:   cs.lastError,
	}
	if err := d.opts.Snapshots.Write(snap); err != nil {
		log.Printf("[DAEMON] Snapshot write failed: %v", err)
		return nil
	}
	if d.opts.OnPublish != nil {
		d.opts.OnPublish(snap)
	}
	return nil
}

// publishError writes a best-effort snapshot while disconnected so polling
// clients see the failure instead of stale state.
func (d *Daemon) publishError(cs *cmdState) {
	snap := state.Snapshot{
		TS:          time.Now().Unix(),
		Status:      mpd.Attrs{},
		Current:     mpd.Attrs{},
		LastCmd:     cs.lastCmd,
		LastCmdLine: cs.lastCmdLine,
		LastCmdTS:   cs.lastCmdTS,
		LastError:   cs.lastError,
	}
	if err := d.opts.Snapshots.Write(snap); err != nil {
		log.Printf("[DAEMON] Snapshot write failed: %v", err)
		return
	}
	if d.opts.OnPublish != nil {
		d.opts.OnPublish(snap)
	}
}

// restore reloads the player's queue from the persisted mirror, but only
// when the live playlist is empty: a queue a user is actively building is
// never clobbered. Failures are logged and the restore abandoned.
func (d *Daemon) restore(c player.Client) {
	status, err := c.Status()
	if err != nil {
		return
	}
	if player.PlaylistLength(status) > 0 {
		return
	}

	paths := d.opts.Mirror.Read()
	if len(paths) == 0 {
		return
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := c.Add(p); err != nil {
			log.Printf("[DAEMON] Restore: add %q failed: %v", p, err)
			return
		}
	}
	if err := c.Stop(); err != nil {
		log.Printf("[DAEMON] Restore: stop failed: %v", err)
		return
	}
	log.Printf("[DAEMON] Restored %d queued tracks from mirror", len(paths))
}

// sleepCtx sleeps for d or until ctx is cancelled; it reports false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
