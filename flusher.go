package pagecache

import (
	"context"
	"errors"
	"time"
)

// RunFlusher syncs the cache every interval until ctx is done
// or the cache is closed.
// Sync failures are logged and retried on the next tick.
func (c *Cache) RunFlusher(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := c.Sync()
			switch {
			case err == nil:
			case errors.Is(err, ErrClosed):
				return nil
			default:
				c.log.Error().Err(err).Msg("periodic sync")
			}
		}
	}
}
