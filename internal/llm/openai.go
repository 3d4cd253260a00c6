package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/resilience"
)

// OpenAIClient completes prompts with any OpenAI-compatible chat API
// (OpenAI, OpenRouter).
type OpenAIClient struct {
	client *openai.Client
	log    *slog.Logger
	model  string
	retry  resilience.RetryConfig
}

// NewOpenAIClient creates an OpenAI-compatible client.
func NewOpenAIClient(cfg config.LLMConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	aiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		aiConfig.BaseURL = cfg.BaseURL
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries + 1
	retry.InitialInterval = cfg.RetryDelay
	retry.Retryable = IsRetriableOpenAIError

	log := logger.With("component", "openai_client")
	log.Info("OpenAI-compatible client initialized", "model", cfg.Model, "base_url", aiConfig.BaseURL)
	return &OpenAIClient{
		client: openai.NewClientWithConfig(aiConfig),
		log:    log,
		model:  cfg.Model,
		retry:  retry,
	}, nil
}

// IsRetriableOpenAIError reports rate limiting and server-side failures.
func IsRetriableOpenAIError(err error) bool {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		return false
	}
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	request := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	var resp openai.ChatCompletionResponse
	err := resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, request)
		if err != nil {
			c.log.WarnContext(ctx, "Chat completion failed", "error", err)
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", fmt.Errorf("%w: content filter", ErrBlocked)
	}
	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}

	c.log.DebugContext(ctx, "Chat completion received",
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return text, nil
}
