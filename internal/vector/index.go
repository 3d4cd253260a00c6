// Package vector implements the summary vector index on SQLite: vectors are
// stored as JSON next to their summary id and searched by brute-force cosine
// similarity from an in-memory cache.
package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrDimensionMismatch is returned for vectors of the wrong length.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// SQLiteIndex stores one vector per summary id.
type SQLiteIndex struct {
	db        *sqlx.DB
	logger    *slog.Logger
	dimension int

	mu     sync.RWMutex
	cache  map[int64][]float32
	loaded bool
}

// NewSQLiteIndex creates an index on the summary_embeddings table. A positive
// dimension is enforced on every upsert and query.
func NewSQLiteIndex(db *sqlx.DB, dimension int, logger *slog.Logger) *SQLiteIndex {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SQLiteIndex{
		db:        db,
		logger:    logger.With("component", "vector_index"),
		dimension: dimension,
		cache:     make(map[int64][]float32),
	}
}

func (x *SQLiteIndex) checkDimension(vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if x.dimension > 0 && len(vec) != x.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), x.dimension)
	}
	return nil
}

// Upsert stores the vector for a summary id.
func (x *SQLiteIndex) Upsert(ctx context.Context, id int64, vec []float32) error {
	if err := x.checkDimension(vec); err != nil {
		return err
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}

	const query = `
        INSERT INTO summary_embeddings (summary_id, dimension, embedding, created_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(summary_id) DO UPDATE SET dimension = excluded.dimension, embedding = excluded.embedding`
	if _, err := x.db.ExecContext(ctx, query, id, len(vec), string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert vector %d: %w", id, err)
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)

	x.mu.Lock()
	x.cache[id] = stored
	x.mu.Unlock()

	x.logger.DebugContext(ctx, "Vector upserted", "summary_id", id, "dimension", len(vec))
	return nil
}

// Query returns up to topK ids ordered by decreasing cosine similarity.
func (x *SQLiteIndex) Query(ctx context.Context, vec []float32, topK int) ([]int64, error) {
	if topK <= 0 {
		return nil, nil
	}
	if err := x.checkDimension(vec); err != nil {
		return nil, err
	}
	if err := x.load(ctx); err != nil {
		return nil, err
	}

	type scored struct {
		id    int64
		score float64
	}

	x.mu.RLock()
	results := make([]scored, 0, len(x.cache))
	for id, candidate := range x.cache {
		if len(candidate) != len(vec) {
			continue
		}
		results = append(results, scored{id: id, score: CosineSimilarity(vec, candidate)})
	}
	x.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return results[i].id > results[j].id
		}
		return results[i].score > results[j].score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.id)
	}
	return ids, nil
}

func (x *SQLiteIndex) load(ctx context.Context) error {
	x.mu.RLock()
	loaded := x.loaded
	x.mu.RUnlock()
	if loaded {
		return nil
	}

	var rows []struct {
		SummaryID int64  `db:"summary_id"`
		Embedding string `db:"embedding"`
	}
	if err := x.db.SelectContext(ctx, &rows, `SELECT summary_id, embedding FROM summary_embeddings`); err != nil {
		return fmt.Errorf("failed to load vectors: %w", err)
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if x.loaded {
		return nil
	}
	for _, row := range rows {
		var vec []float32
		if err := json.Unmarshal([]byte(row.Embedding), &vec); err != nil {
			x.logger.WarnContext(ctx, "Skipping undecodable vector", "summary_id", row.SummaryID, "error", err)
			continue
		}
		if _, ok := x.cache[row.SummaryID]; !ok {
			x.cache[row.SummaryID] = vec
		}
	}
	x.loaded = true
	x.logger.InfoContext(ctx, "Vector cache loaded", "count", len(x.cache))
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector or their lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
