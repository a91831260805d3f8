package ledger

import (
	"context"
	"log"
	"time"
)

// StartPruner runs age-based retention on a ticker until ctx is cancelled.
// Prune failures are logged and retried on the next tick.
func StartPruner(ctx context.Context, store Store, retention, interval time.Duration) {
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				pruned, err := store.PruneOlderThan(ctx, cutoff)
				if err != nil {
					log.Printf("ledger prune failed: %v", err)
					continue
				}
				if pruned > 0 {
					log.Printf("ledger pruned %d events older than %s", pruned, cutoff.Format(time.RFC3339))
				}
			}
		}
	}()
}
