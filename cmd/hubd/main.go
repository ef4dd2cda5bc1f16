// Package main is the entry point for the hubd daemon.
// hubd fronts an external MPD server behind a REST facade: HTTP handlers
// enqueue playback commands into a file-backed queue, a single consumer loop
// applies them in order, and the resulting playback state and queue mirror
// are published as files for polling clients and external tooling.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hifihub/hubd/internal/cmdqueue"
	"github.com/hifihub/hubd/internal/config"
	"github.com/hifihub/hubd/internal/daemon"
	"github.com/hifihub/hubd/internal/mirror"
	"github.com/hifihub/hubd/internal/player"
	"github.com/hifihub/hubd/internal/server"
	"github.com/hifihub/hubd/internal/state"
)

// Version is set at build time via ldflags
var Version = "dev"

// Flags holds command-line overrides
type Flags struct {
	ConfigDir string
	StateDir  string
	Listen    string
	Verbose   bool
}

func main() {
	// Optional .env keeps MPD_HOST and friends out of the unit file.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	flags := parseFlags()

	if flags.Verbose {
		log.Printf("hubd version %s starting...", Version)
	}

	// Create context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func parseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.ConfigDir, "config", "", "Configuration directory (default: ~/.config/hubd)")
	flag.StringVar(&flags.StateDir, "state", "", "State directory override")
	flag.StringVar(&flags.Listen, "listen", "", "HTTP listen address override")
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	if flags.ConfigDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}
		flags.ConfigDir = homeDir + "/.config/hubd"
	}

	return flags
}

func run(ctx context.Context, flags *Flags) error {
	// Initialize config manager
	configMgr := config.NewManager(flags.ConfigDir)
	if err := configMgr.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := configMgr.Get()

	if flags.StateDir != "" {
		cfg.StateDir = flags.StateDir
	}
	if flags.Listen != "" {
		cfg.ListenAddr = flags.Listen
	}

	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	// Resolve the player address, via mDNS when no host is configured.
	host, port := cfg.Player.Host, cfg.Player.Port
	if host == "" {
		discoverCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		h, p, err := player.Discover(discoverCtx)
		if err != nil {
			return fmt.Errorf("no player host configured and discovery failed: %w", err)
		}
		host, port = h, p
	}

	dialer := player.Dialer{
		Host:     host,
		Port:     port,
		Password: cfg.Player.Password,
		Timeout:  time.Duration(cfg.Player.TimeoutMs) * time.Millisecond,
	}
	dial := func() (player.Client, error) { return dialer.Dial() }

	queue := cmdqueue.New(cfg.StateDir)
	snapshots := state.NewStore(cfg.StateDir)
	mirrorStore := mirror.NewStore(cfg.StateDir, cfg.MusicRoot)
	journal := state.NewJournal(cfg.StateDir, cfg.Daemon.JournalMaxLines)

	srv := server.New(cfg.ListenAddr, queue, snapshots, mirrorStore, journal, dial)

	consumer := daemon.New(daemon.Options{
		Dial:         dial,
		Queue:        queue,
		Snapshots:    snapshots,
		Mirror:       mirrorStore,
		Journal:      journal,
		PollInterval: time.Duration(cfg.Daemon.PollIntervalMs) * time.Millisecond,
		Backoff:      time.Duration(cfg.Daemon.ReconnectBackoffMs) * time.Millisecond,
		OnPublish:    srv.BroadcastHub().Broadcast,
	})

	log.Printf("Player at %s:%d, state in %s", host, port, cfg.StateDir)

	// The consumer loop owns the player connection and the snapshot file;
	// the HTTP server owns the listener. Either one stopping stops hubd.
	done := make(chan struct{})
	go func() {
		consumer.Run(ctx)
		close(done)
	}()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	<-done
	return nil
}
