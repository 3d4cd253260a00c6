package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/afina/internal/database"
	"github.com/edgard/afina/internal/llm"
)

// ErrNotIndexed is returned by Process when the summary was persisted but
// could not be embedded or indexed.
var ErrNotIndexed = errors.New("summary persisted but not indexed")

const timestampLayout = "2006-01-02 15:04"

// Pipeline turns message batches into persisted, indexed summaries.
type Pipeline struct {
	store     SummaryStore
	index     VectorIndex
	embedder  Embedder
	llm       llm.Client
	maxTokens int
	log       *slog.Logger
}

// NewPipeline creates a Pipeline. maxTokens bounds every summary.
func NewPipeline(store SummaryStore, index VectorIndex, embedder Embedder, client llm.Client, maxTokens int, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:     store,
		index:     index,
		embedder:  embedder,
		llm:       client,
		maxTokens: maxTokens,
		log:       logger.With("component", "summary_pipeline"),
	}
}

// Summarize asks the model for a bounded recap of messages. Message text is
// passed as quoted data, never as instructions.
func (p *Pipeline) Summarize(ctx context.Context, messages []*database.Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages to summarize")
	}

	var sb strings.Builder
	sb.WriteString("<<<ЧАТ>>>\n")
	for _, m := range messages {
		sb.WriteString(formatLine(m))
		sb.WriteByte('\n')
	}
	sb.WriteString("<<<КОНЕЦ>>>")

	text, err := p.llm.Complete(ctx, llm.Request{
		System:      fmt.Sprintf(summarySystemPrompt, p.maxTokens),
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: sb.String()}},
		Temperature: 0.3,
		MaxTokens:   p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to summarize %d messages: %w", len(messages), err)
	}
	return text, nil
}

// BuildSummary derives the summary record for an oldest-first batch.
func BuildSummary(messages []*database.Message, text string) *database.Summary {
	seen := make(map[string]struct{}, len(messages))
	var participants []string
	for _, m := range messages {
		name := m.DisplayName()
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		participants = append(participants, name)
	}

	return &database.Summary{
		ChatID:       messages[0].ChatID,
		Participants: strings.Join(participants, ", "),
		Text:         text,
		DateFrom:     messages[0].Timestamp,
		DateTo:       messages[len(messages)-1].Timestamp,
		MessageCount: len(messages),
	}
}

// Process summarizes, persists, embeds and indexes an oldest-first batch. A
// summary that was persisted is returned even when indexing fails, together
// with an error wrapping ErrNotIndexed.
func (p *Pipeline) Process(ctx context.Context, messages []*database.Message) (*database.Summary, error) {
	text, err := p.Summarize(ctx, messages)
	if err != nil {
		return nil, err
	}

	summary := BuildSummary(messages, text)
	if err := p.store.InsertSummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to persist summary: %w", err)
	}

	if err := p.Index(ctx, summary); err != nil {
		return summary, fmt.Errorf("%w: %w", ErrNotIndexed, err)
	}
	return summary, nil
}

// Index embeds a persisted summary and upserts it into the vector index.
func (p *Pipeline) Index(ctx context.Context, summary *database.Summary) error {
	vectors, err := p.embedder.Embed(ctx, []string{summary.Text})
	if err != nil {
		return fmt.Errorf("failed to embed summary %d: %w", summary.ID, err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("expected one vector for summary %d, got %d", summary.ID, len(vectors))
	}
	if err := p.index.Upsert(ctx, summary.ID, vectors[0]); err != nil {
		return fmt.Errorf("failed to index summary %d: %w", summary.ID, err)
	}
	p.log.DebugContext(ctx, "Summary indexed", "summary_id", summary.ID, "chat_id", summary.ChatID)
	return nil
}

func formatLine(m *database.Message) string {
	name := m.DisplayName()
	if name == "" {
		name = fmt.Sprintf("UID %d", m.UserID)
	}
	return fmt.Sprintf("[%s] %s: %s", m.Timestamp.Format(timestampLayout), name, m.Text)
}

func formatSpan(from, to time.Time) string {
	return from.Format(timestampLayout) + " – " + to.Format(timestampLayout)
}
