package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/resilience"
)

// Whisper transcribes through an OpenAI-compatible audio endpoint.
type Whisper struct {
	client   *openai.Client
	language string
	breaker  *resilience.Breaker
	log      *slog.Logger
}

// NewWhisper creates a Whisper transcriber.
func NewWhisper(cfg config.TranscriptionConfig, logger *slog.Logger) *Whisper {
	if logger == nil {
		logger = slog.Default()
	}
	aiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" && cfg.BaseURL != config.DefaultTranscriptionBaseURL {
		aiConfig.BaseURL = cfg.BaseURL
	}
	return &Whisper{
		client:   openai.NewClientWithConfig(aiConfig),
		language: cfg.Language,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:        "whisper",
			CallTimeout: cfg.Timeout,
		}, logger),
		log: logger.With("component", "whisper"),
	}
}

// Transcribe implements Transcriber.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	var text string
	err := w.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    openai.Whisper1,
			Reader:   bytes.NewReader(audio),
			FilePath: filename,
			Language: w.language,
			Format:   openai.AudioResponseFormatJSON,
		})
		if err != nil {
			return err
		}
		text = strings.TrimSpace(resp.Text)
		return nil
	})
	if err != nil {
		w.log.WarnContext(ctx, "Whisper transcription failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	return text, nil
}
