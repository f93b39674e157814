package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/relaybot/internal/config"
)

// newContextEvictionTask creates the task that drops user contexts older
// than store.idle_ttl.
func newContextEvictionTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", config.TaskContextEviction)

	return func(ctx context.Context) error {
		ttl := deps.Config.Store.IdleTTL
		if ttl <= 0 {
			ttl = config.DefaultStoreIdleTTL
		}
		cutoff := deps.now().Add(-ttl)

		log.InfoContext(ctx, "Starting context eviction", "cutoff", cutoff, "idle_ttl", ttl)
		startTime := time.Now()

		evicted, err := deps.Store.EvictOlderThan(ctx, cutoff)
		duration := time.Since(startTime)
		if err != nil {
			log.ErrorContext(ctx, "Context eviction failed", "error", err, "duration", duration)
			return fmt.Errorf("context eviction failed: %w", err)
		}

		log.InfoContext(ctx, "Context eviction completed", "evicted", evicted, "duration", duration)
		return nil
	}
}
