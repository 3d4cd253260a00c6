package vector_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/internal/database"
	"github.com/edgard/afina/internal/vector"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "length mismatch", a: []float32{1}, b: []float32{1, 1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, vector.CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSQLiteIndexQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "afina.db")
	db, err := database.NewDB(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db, nil) })

	index := vector.NewSQLiteIndex(db, 3, nil)
	require.NoError(t, index.Upsert(ctx, 1, []float32{1, 0, 0}))
	require.NoError(t, index.Upsert(ctx, 2, []float32{0, 1, 0}))
	require.NoError(t, index.Upsert(ctx, 3, []float32{0.9, 0.1, 0}))

	ids, err := index.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	// A fresh index reads the persisted vectors back.
	reopened := vector.NewSQLiteIndex(db, 3, nil)
	ids, err = reopened.Query(ctx, []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids)

	err = index.Upsert(ctx, 4, []float32{1, 0})
	require.ErrorIs(t, err, vector.ErrDimensionMismatch)
}
