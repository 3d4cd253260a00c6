package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgard/afina/internal/llm"
)

// ContextLevel is how much history a reply needs.
type ContextLevel string

const (
	LevelOutOfContext       ContextLevel = "out-of-context"
	LevelImmediate          ContextLevel = "immediate"
	LevelSurfaceHistorical  ContextLevel = "surface-historical"
	LevelDetailedHistorical ContextLevel = "detailed-historical"
)

// similarCandidates is how many nearest summaries are fetched before keeping
// the first one that belongs to the chat.
const similarCandidates = 5

// ReplyConfig is the classifier's choice of reply style.
type ReplyConfig struct {
	SystemPrompt string       `json:"systemPrompt" validate:"required"`
	Temperature  float32      `json:"temperature"  validate:"gte=0,lte=2"`
	MaxTokens    int          `json:"maxTokens"    validate:"gt=0"`
	ContextLevel ContextLevel `json:"contextLevel" validate:"required,oneof=out-of-context immediate surface-historical detailed-historical"`
}

// Assembler gathers the context fragments for a reply.
type Assembler struct {
	messages MessageStore
	sums     SummaryStore
	pipeline *Pipeline
	index    VectorIndex
	embedder Embedder
	llm      llm.Client
	cutoff   int
	log      *slog.Logger
}

// NewAssembler creates an Assembler. cutoff is the unsummarized count from
// which the latest persisted summary is no longer fetched.
func NewAssembler(store Store, pipeline *Pipeline, index VectorIndex, embedder Embedder, client llm.Client, cutoff int, logger *slog.Logger) *Assembler {
	return &Assembler{
		messages: store,
		sums:     store,
		pipeline: pipeline,
		index:    index,
		embedder: embedder,
		llm:      client,
		cutoff:   cutoff,
		log:      logger.With("component", "context_assembler"),
	}
}

// NecessaryContext returns the chat's baseline context, oldest anchor first:
// with no unsummarized messages only the latest summary, below the cutoff the
// latest summary and a fast summary, and from the cutoff on only the fast
// summary.
func (a *Assembler) NecessaryContext(ctx context.Context, chatID int64) ([]string, error) {
	n, err := a.messages.CountUnsummarized(ctx, chatID)
	if err != nil {
		return nil, err
	}

	var parts []string
	switch {
	case n == 0:
		latest, err := a.sums.LatestSummaries(ctx, chatID, 1)
		if err != nil {
			return nil, err
		}
		if len(latest) > 0 {
			parts = append(parts, latest[0].Text)
		}
	case n < a.cutoff:
		latest, err := a.sums.LatestSummaries(ctx, chatID, 1)
		if err != nil {
			return nil, err
		}
		if len(latest) > 0 {
			s := latest[0]
			parts = append(parts, fmt.Sprintf("Сводка за %s:\n%s", formatSpan(s.DateFrom, s.DateTo), s.Text))
		}
		fast, err := a.fastSummary(ctx, chatID)
		if err != nil {
			return nil, err
		}
		if fast != "" {
			parts = append(parts, fast)
		}
	default:
		fast, err := a.fastSummary(ctx, chatID)
		if err != nil {
			return nil, err
		}
		if fast != "" {
			parts = append(parts, fast)
		}
	}

	a.log.DebugContext(ctx, "Assembled necessary context", "chat_id", chatID, "unsummarized", n, "parts", len(parts))
	return parts, nil
}

func (a *Assembler) fastSummary(ctx context.Context, chatID int64) (string, error) {
	unsummarized, err := a.messages.UnsummarizedMessages(ctx, chatID)
	if err != nil {
		return "", err
	}
	if len(unsummarized) == 0 {
		return "", nil
	}
	text, err := a.pipeline.Summarize(ctx, unsummarized)
	if err != nil {
		return "", fmt.Errorf("failed to build fast summary: %w", err)
	}
	first, last := unsummarized[0], unsummarized[len(unsummarized)-1]
	return fmt.Sprintf("Недавняя переписка (%s):\n%s", formatSpan(first.Timestamp, last.Timestamp), text), nil
}

// SimilarSummary returns the text of the persisted summary of chatID closest
// to text, or "" when none is indexed.
func (a *Assembler) SimilarSummary(ctx context.Context, chatID int64, text string) (string, error) {
	vectors, err := a.embedder.Embed(ctx, []string{text})
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return "", nil
	}
	ids, err := a.index.Query(ctx, vectors[0], similarCandidates)
	if err != nil {
		return "", fmt.Errorf("failed to query similar summaries: %w", err)
	}
	if len(ids) == 0 {
		return "", nil
	}

	summaries, err := a.sums.SummariesByIDs(ctx, chatID, ids)
	if err != nil {
		return "", err
	}
	byID := make(map[int64]string, len(summaries))
	for _, s := range summaries {
		byID[s.ID] = fmt.Sprintf("Похожее обсуждение (%s):\n%s", formatSpan(s.DateFrom, s.DateTo), s.Text)
	}
	for _, id := range ids {
		if text, ok := byID[id]; ok {
			return text, nil
		}
	}
	return "", nil
}

// Gather resolves the context fragments for level.
func (a *Assembler) Gather(ctx context.Context, chatID int64, text string, level ContextLevel) ([]string, error) {
	if level == LevelOutOfContext {
		return nil, nil
	}

	parts, err := a.NecessaryContext(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if level == LevelImmediate {
		return parts, nil
	}

	similar, err := a.SimilarSummary(ctx, chatID, text)
	if err != nil {
		a.log.WarnContext(ctx, "Similar summary lookup failed, continuing without it", "chat_id", chatID, "error", err)
		return parts, nil
	}
	if similar == "" {
		return parts, nil
	}
	return append([]string{similar}, parts...), nil
}

// DecideReplyConfig classifies text into a reply style and context level.
func (a *Assembler) DecideReplyConfig(ctx context.Context, text string) (ReplyConfig, error) {
	raw, err := a.llm.Complete(ctx, llm.Request{
		System:      replyConfigPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
		Temperature: 0,
		MaxTokens:   300,
		JSON:        true,
	})
	if err != nil {
		return ReplyConfig{}, fmt.Errorf("failed to classify reply: %w", err)
	}

	var cfg ReplyConfig
	if err := llm.DecodeJSON(raw, &cfg); err != nil {
		a.log.WarnContext(ctx, "Reply classifier returned malformed output", "error", err)
		return ReplyConfig{}, err
	}
	return cfg, nil
}
