// Package tasks implements the scheduled maintenance tasks and their
// registration.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/afina/internal/database"
)

// Store is the persistence surface the tasks need.
type Store interface {
	RunSQLMaintenance(ctx context.Context) error
	SummariesWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]*database.Summary, error)
}

// Indexer embeds and indexes one persisted summary.
type Indexer interface {
	Index(ctx context.Context, summary *database.Summary) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   Store
	Indexer Indexer
}
