// Package llm defines the text-completion contract used by the assistant and
// its Gemini and OpenAI-compatible backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/resilience"
)

// Role of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call.
type Request struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
	// JSON asks the backend for a JSON object response.
	JSON bool
}

// Client completes a prompt into text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	// ErrEmptyResponse is returned when the backend answers without text.
	ErrEmptyResponse = errors.New("model returned no content")
	// ErrBlocked is returned when the backend refuses the prompt.
	ErrBlocked = errors.New("model blocked the request")
)

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg, logger)
	case "openai":
		return NewOpenAIClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

// GuardedClient runs every completion through a circuit breaker.
type GuardedClient struct {
	next    Client
	breaker *resilience.Breaker
}

// WithBreaker wraps next with breaker.
func WithBreaker(next Client, breaker *resilience.Breaker) *GuardedClient {
	return &GuardedClient{next: next, breaker: breaker}
}

// Complete implements Client.
func (g *GuardedClient) Complete(ctx context.Context, req Request) (string, error) {
	var out string
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.next.Complete(ctx, req)
		return err
	})
	return out, err
}
