package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgard/afina/internal/database"
)

// Batch is the outcome of one accumulation step.
type Batch struct {
	Triggered bool
	// Messages is the unsummarized set, oldest first, when Triggered.
	Messages []*database.Message
}

// Accumulator persists messages and hands out a batch once a chat has
// gathered threshold unsummarized messages.
type Accumulator struct {
	store     MessageStore
	threshold int
	retain    int
	log       *slog.Logger
}

// NewAccumulator creates an Accumulator.
func NewAccumulator(store MessageStore, threshold, retain int, logger *slog.Logger) *Accumulator {
	return &Accumulator{
		store:     store,
		threshold: threshold,
		retain:    retain,
		log:       logger.With("component", "batch_accumulator"),
	}
}

// RecordAndMaybeBatch persists records and, when the chat reached the
// threshold, returns the unsummarized batch after marking it summarized and
// pruning the chat down to the most recent messages.
func (a *Accumulator) RecordAndMaybeBatch(ctx context.Context, chatID int64, records []*database.Message) (Batch, error) {
	if err := a.store.InsertMessages(ctx, records); err != nil {
		return Batch{}, fmt.Errorf("failed to persist messages: %w", err)
	}

	n, err := a.store.CountUnsummarized(ctx, chatID)
	if err != nil {
		return Batch{}, err
	}
	if n < a.threshold {
		a.log.DebugContext(ctx, "Batch threshold not reached", "chat_id", chatID, "unsummarized", n, "threshold", a.threshold)
		return Batch{}, nil
	}

	batch, err := a.store.UnsummarizedMessages(ctx, chatID)
	if err != nil {
		return Batch{}, err
	}
	ids := make([]int64, len(batch))
	for i, m := range batch {
		ids[i] = m.ID
	}
	if err := a.store.MarkSummarized(ctx, ids); err != nil {
		return Batch{}, fmt.Errorf("failed to mark batch summarized: %w", err)
	}

	if err := a.prune(ctx, chatID); err != nil {
		return Batch{}, err
	}

	a.log.InfoContext(ctx, "Batch threshold reached", "chat_id", chatID, "batch_size", len(batch))
	return Batch{Triggered: true, Messages: batch}, nil
}

func (a *Accumulator) prune(ctx context.Context, chatID int64) error {
	recent, err := a.store.RecentMessages(ctx, chatID, a.retain)
	if err != nil {
		return fmt.Errorf("failed to select messages to retain: %w", err)
	}
	if len(recent) == 0 {
		a.log.WarnContext(ctx, "Nothing to retain, skipping prune", "chat_id", chatID)
		return nil
	}

	keep := make([]int64, len(recent))
	for i, m := range recent {
		keep[i] = m.ID
	}
	deleted, err := a.store.DeleteMessagesExcept(ctx, chatID, keep)
	if err != nil {
		return fmt.Errorf("failed to prune messages: %w", err)
	}
	a.log.DebugContext(ctx, "Pruned chat history", "chat_id", chatID, "deleted", deleted, "kept", len(keep))
	return nil
}
