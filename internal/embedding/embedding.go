// Package embedding turns summary text into fixed-dimension vectors using
// langchaingo embedders (OpenAI-compatible or Ollama).
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/resilience"
)

// ErrDimensionMismatch is returned when the model answers with vectors of an
// unexpected size.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Embedder wraps a langchaingo embedder with dimension validation and a
// circuit breaker.
type Embedder struct {
	model     embeddings.Embedder
	dimension int
	modelName string
	breaker   *resilience.Breaker
	log       *slog.Logger
}

// New creates an embedder for cfg.Provider.
func New(cfg config.EmbeddingConfig, logger *slog.Logger) (*Embedder, error) {
	var model embeddings.Embedder
	var err error

	switch cfg.Provider {
	case "ollama":
		llm, ollamaErr := ollama.New(
			ollama.WithModel(cfg.Model),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if ollamaErr != nil {
			return nil, fmt.Errorf("create ollama client: %w", ollamaErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create ollama embedder: %w", err)
		}

	case "openai":
		if cfg.APIKey == "" {
			return nil, errors.New("embedding API key required")
		}
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, openaiErr := openai.New(opts...)
		if openaiErr != nil {
			return nil, fmt.Errorf("create openai client: %w", openaiErr)
		}
		model, err = embeddings.NewEmbedder(llm)
		if err != nil {
			return nil, fmt.Errorf("create openai embedder: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	return NewWithModel(model, cfg.Model, cfg.Dimension, logger), nil
}

// NewWithModel wraps an existing langchaingo embedder.
func NewWithModel(model embeddings.Embedder, modelName string, dimension int, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{
		model:     model,
		dimension: dimension,
		modelName: modelName,
		breaker:   resilience.NewBreaker(resilience.BreakerConfig{Name: "embedding"}, logger),
		log:       logger.With("component", "embedder", "model", modelName),
	}
}

// Embed returns one vector per text, in order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var vectors [][]float32
	start := time.Now()
	err := e.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		vectors, err = e.model.EmbedDocuments(ctx, texts)
		return err
	})
	if err != nil {
		e.log.WarnContext(ctx, "Embedding failed", "count", len(texts), "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, fmt.Errorf("embed batch: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("%w: vector %d has %d, want %d", ErrDimensionMismatch, i, len(v), e.dimension)
		}
	}

	e.log.DebugContext(ctx, "Embedding complete", "count", len(texts), "duration_ms", time.Since(start).Milliseconds())
	return vectors, nil
}

// Dimension returns the expected vector size.
func (e *Embedder) Dimension() int {
	return e.dimension
}
