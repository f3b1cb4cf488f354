// Package sweep prunes aged run audit records in the background.
package sweep

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/colonyops/foreman/internal/core/run"
)

// Start launches a background loop that periodically deletes runs older
// than retention. It blocks until the context is cancelled. A retention of
// zero disables pruning and returns immediately.
func Start(ctx context.Context, runs run.Store, interval, retention time.Duration) {
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)
			n, err := runs.DeleteBefore(ctx, cutoff)
			if err != nil {
				log.Debug().Err(err).Msg("run sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("pruned", n).Msg("run sweep completed")
			}
		}
	}
}
