package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgard/afina/internal/assistant"
	"github.com/edgard/afina/internal/database"
)

// Processor summarizes, persists and indexes one batch.
type Processor interface {
	Process(ctx context.Context, messages []*database.Message) (*database.Summary, error)
}

// Result reports what an import produced.
type Result struct {
	Messages  int
	Batches   int
	Unindexed int
}

// Importer feeds records to a Processor in fixed-size batches.
type Importer struct {
	processor Processor
	batchSize int
	log       *slog.Logger
}

// NewImporter creates an Importer that summarizes batchSize records at a time.
func NewImporter(processor Processor, batchSize int, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		processor: processor,
		batchSize: max(1, batchSize),
		log:       logger.With("component", "seed_importer"),
	}
}

// Import summarizes records batch by batch. A batch whose summary was saved
// but not indexed is counted and left for the embedding backfill; any other
// failure stops the import.
func (i *Importer) Import(ctx context.Context, records []*database.Message) (Result, error) {
	res := Result{Messages: len(records)}
	for start := 0; start < len(records); start += i.batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		batch := records[start:min(start+i.batchSize, len(records))]

		summary, err := i.processor.Process(ctx, batch)
		switch {
		case errors.Is(err, assistant.ErrNotIndexed):
			res.Unindexed++
			i.log.WarnContext(ctx, "Batch summary saved without embedding", "batch", res.Batches+1, "summary_id", summary.ID, "error", err)
		case err != nil:
			return res, fmt.Errorf("failed to import batch %d: %w", res.Batches+1, err)
		default:
			i.log.InfoContext(ctx, "Batch imported", "batch", res.Batches+1, "summary_id", summary.ID, "messages", len(batch))
		}
		res.Batches++
	}
	return res, nil
}
