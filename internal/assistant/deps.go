package assistant

import (
	"context"
	"log/slog"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/database"
	"github.com/edgard/afina/internal/llm"
	"github.com/edgard/afina/internal/transcribe"
)

// MessageStore persists raw conversation records.
type MessageStore interface {
	InsertMessages(ctx context.Context, messages []*database.Message) error
	CountUnsummarized(ctx context.Context, chatID int64) (int, error)
	UnsummarizedMessages(ctx context.Context, chatID int64) ([]*database.Message, error)
	MarkSummarized(ctx context.Context, ids []int64) error
	RecentMessages(ctx context.Context, chatID int64, limit int) ([]*database.Message, error)
	DeleteMessagesExcept(ctx context.Context, chatID int64, keep []int64) (int64, error)
}

// SummaryStore persists summaries.
type SummaryStore interface {
	InsertSummary(ctx context.Context, summary *database.Summary) error
	LatestSummaries(ctx context.Context, chatID int64, limit int) ([]*database.Summary, error)
	CountSummaries(ctx context.Context, chatID int64) (int, error)
	SummariesByIDs(ctx context.Context, chatID int64, ids []int64) ([]*database.Summary, error)
}

// Store is the full persistence surface used by the assistant.
type Store interface {
	MessageStore
	SummaryStore
}

// VectorIndex stores one vector per summary id.
type VectorIndex interface {
	Upsert(ctx context.Context, id int64, vec []float32) error
	Query(ctx context.Context, vec []float32, topK int) ([]int64, error)
}

// Embedder turns texts into vectors, one per text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Messenger performs outbound chat calls.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string) (int, error)
	Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error)
	// KeepTyping shows the typing indicator until stop is called.
	KeepTyping(ctx context.Context, chatID int64) (stop func())
	Leave(ctx context.Context, chatID int64) error
	Download(ctx context.Context, fileID string, maxBytes int64) ([]byte, error)
}

// Deps wires the assistant to its collaborators.
type Deps struct {
	Logger      *slog.Logger
	Config      *config.Config
	Store       Store
	Index       VectorIndex
	Embedder    Embedder
	LLM         llm.Client
	Transcriber transcribe.Transcriber
	Messenger   Messenger
	// BotID and BotUsername identify the assistant's own account.
	BotID       int64
	BotUsername string
}
