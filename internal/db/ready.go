package db

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// readyPollInterval is the delay between readiness pings.
const readyPollInterval = 100 * time.Millisecond

// WaitForReady pings p until it answers or timeout expires. The first ping
// is immediate. On timeout the last ping error is reported alongside the
// context error.
func WaitForReady(ctx context.Context, p Pinger, name string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lastErr := p.Ping(ctx)
	if lastErr == nil {
		return nil
	}

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for %s: %w", name, errors.Join(ctx.Err(), lastErr))
		case <-ticker.C:
			if lastErr = p.Ping(ctx); lastErr == nil {
				return nil
			}
		}
	}
}
