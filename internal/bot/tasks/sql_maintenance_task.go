package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask compacts the message and summary database after
// pruning has freed pages.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Compacting message store...")
		start := time.Now()

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "Message store compaction failed", "error", err, "duration", time.Since(start))
			return fmt.Errorf("failed to compact message store: %w", err)
		}

		log.InfoContext(ctx, "Message store compacted", "duration", time.Since(start))
		return nil
	}
}
