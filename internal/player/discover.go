package player

import (
	"context"
	"fmt"
	"log"

	"github.com/grandcat/zeroconf"
)

// Discover browses mDNS for an MPD server advertising _mpd._tcp and returns
// the first responder. It is used when no player host is configured.
func Discover(ctx context.Context) (string, int, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to initialize resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *zeroconf.ServiceEntry, 1)
	go func() {
		for {
			select {
			case entry := <-entries:
				if entry == nil || len(entry.AddrIPv4) == 0 {
					continue
				}
				select {
				case found <- entry:
				default:
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, "_mpd._tcp", "local.", entries); err != nil {
		return "", 0, fmt.Errorf("failed to browse for MPD servers: %w", err)
	}

	select {
	case entry := <-found:
		host := entry.AddrIPv4[0].String()
		log.Printf("[PLAYER] Discovered MPD server: %s at %s:%d", entry.Instance, host, entry.Port)
		return host, entry.Port, nil
	case <-ctx.Done():
		return "", 0, fmt.Errorf("%w: no MPD server discovered", ErrUnreachable)
	}
}
