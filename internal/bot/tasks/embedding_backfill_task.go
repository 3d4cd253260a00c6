package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	backfillBatchSize = 50
	backfillTimeout   = 5 * time.Minute
)

// newEmbeddingBackfillTask indexes summaries that were persisted while the
// embedding backend was unavailable. Each run pages through every unindexed
// summary by id, so summaries that keep failing never hide newer ones.
func newEmbeddingBackfillTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "embedding_backfill")

	return func(ctx context.Context) error {
		timeoutCtx, cancel := context.WithTimeout(ctx, backfillTimeout)
		defer cancel()

		startTime := time.Now()
		var (
			afterID int64
			seen    int
			indexed int
			errs    []error
		)
		for {
			summaries, err := deps.Store.SummariesWithoutEmbedding(timeoutCtx, afterID, backfillBatchSize)
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to list summaries without embedding: %w", err))
				break
			}

			for _, summary := range summaries {
				if err := timeoutCtx.Err(); err != nil {
					errs = append(errs, err)
					break
				}
				afterID = summary.ID
				seen++
				if err := deps.Indexer.Index(timeoutCtx, summary); err != nil {
					log.WarnContext(ctx, "Failed to index summary, skipping", "summary_id", summary.ID, "chat_id", summary.ChatID, "error", err)
					errs = append(errs, err)
					continue
				}
				indexed++
			}

			if len(summaries) < backfillBatchSize || timeoutCtx.Err() != nil {
				break
			}
		}

		duration := time.Since(startTime)
		if seen == 0 && len(errs) == 0 {
			log.DebugContext(ctx, "No summaries waiting for embedding")
			return nil
		}
		if len(errs) > 0 {
			log.ErrorContext(ctx, "Embedding backfill incomplete", "indexed", indexed, "seen", seen, "duration", duration)
			return fmt.Errorf("embedding backfill indexed %d of %d summaries: %w", indexed, seen, errors.Join(errs...))
		}

		log.InfoContext(ctx, "Embedding backfill completed", "indexed", indexed, "duration", duration)
		return nil
	}
}
