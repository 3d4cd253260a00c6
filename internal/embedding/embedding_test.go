package embedding_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/embedding"
)

type fakeModel struct {
	dim   int
	short bool
	err   error
}

func (f fakeModel) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for i := range texts {
		if f.short && i > 0 {
			break
		}
		v := make([]float32, f.dim)
		v[0] = float32(i + 1)
		out = append(out, v)
	}
	return out, nil
}

func (f fakeModel) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vs, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func TestEmbed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		model   fakeModel
		texts   []string
		wantLen int
		wantErr error
	}{
		{name: "matching dimension", model: fakeModel{dim: 4}, texts: []string{"a", "b"}, wantLen: 2},
		{name: "empty input", model: fakeModel{dim: 4}, texts: nil, wantLen: 0},
		{name: "wrong dimension", model: fakeModel{dim: 3}, texts: []string{"a"}, wantErr: embedding.ErrDimensionMismatch},
		{name: "backend failure", model: fakeModel{dim: 4, err: assert.AnError}, texts: []string{"a"}, wantErr: assert.AnError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := embedding.NewWithModel(tt.model, "fake", 4, nil)
			got, err := e.Embed(context.Background(), tt.texts)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	t.Parallel()

	e := embedding.NewWithModel(fakeModel{dim: 2, short: true}, "fake", 2, nil)
	_, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count mismatch")
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := embedding.New(config.EmbeddingConfig{Provider: "cohere", Model: "x", Dimension: 8}, nil)
	require.Error(t, err)
}
