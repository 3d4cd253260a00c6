package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/resilience"
)

const (
	statusCompleted = "completed"
	statusError     = "error"
)

// AssemblyAI uploads audio, starts a transcript job and polls it to completion.
type AssemblyAI struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	language     string
	pollInterval time.Duration
	timeout      time.Duration
	breaker      *resilience.Breaker
	log          *slog.Logger
}

// NewAssemblyAI creates an AssemblyAI transcriber.
func NewAssemblyAI(cfg config.TranscriptionConfig, logger *slog.Logger) *AssemblyAI {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultTranscriptionBaseURL
	}
	return &AssemblyAI{
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		language:     cfg.Language,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		breaker: resilience.NewBreaker(resilience.BreakerConfig{
			Name:        "assemblyai",
			CallTimeout: cfg.Timeout,
		}, logger),
		log: logger.With("component", "assemblyai"),
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptResponse struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Text   *string `json:"text"`
	Error  string  `json:"error"`
}

// Transcribe implements Transcriber.
func (a *AssemblyAI) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var text string
	err := a.breaker.Execute(ctx, func(ctx context.Context) error {
		uploadURL, err := a.upload(ctx, audio)
		if err != nil {
			return err
		}
		id, err := a.start(ctx, uploadURL)
		if err != nil {
			return err
		}
		a.log.DebugContext(ctx, "Transcript job started", "transcript_id", id, "file", filename, "size", len(audio))
		text, err = a.poll(ctx, id)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (a *AssemblyAI) upload(ctx context.Context, audio []byte) (string, error) {
	var out uploadResponse
	if err := a.do(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", bytes.NewReader(audio), &out); err != nil {
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}
	if out.UploadURL == "" {
		return "", fmt.Errorf("%w: upload returned no url", ErrTranscriptionFailed)
	}
	return out.UploadURL, nil
}

func (a *AssemblyAI) start(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"audio_url":     audioURL,
		"language_code": a.language,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transcript request: %w", err)
	}

	var out transcriptResponse
	if err := a.do(ctx, http.MethodPost, "/v2/transcript", "application/json", bytes.NewReader(body), &out); err != nil {
		return "", fmt.Errorf("failed to start transcription: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: transcript job has no id", ErrTranscriptionFailed)
	}
	return out.ID, nil
}

func (a *AssemblyAI) poll(ctx context.Context, id string) (string, error) {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		var out transcriptResponse
		if err := a.do(ctx, http.MethodGet, "/v2/transcript/"+id, "", nil, &out); err != nil {
			return "", fmt.Errorf("failed to fetch transcription result: %w", err)
		}

		switch out.Status {
		case statusCompleted:
			if out.Text == nil {
				return "", fmt.Errorf("%w: completed without text", ErrTranscriptionFailed)
			}
			return strings.TrimSpace(*out.Text), nil
		case statusError:
			return "", fmt.Errorf("%w: %s", ErrTranscriptionFailed, out.Error)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("transcript %s not ready: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (a *AssemblyAI) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("authorization", a.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid response: %w", ErrTranscriptionFailed, err)
	}
	return nil
}
