// Package transcribe converts voice notes into text.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edgard/afina/internal/config"
)

// ErrTranscriptionFailed is returned when the service reports a failed job
// or answers with something unusable.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Transcriber turns audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// New builds the transcriber for cfg.Provider.
func New(cfg config.TranscriptionConfig, logger *slog.Logger) (Transcriber, error) {
	switch cfg.Provider {
	case "assemblyai":
		return NewAssemblyAI(cfg, logger), nil
	case "whisper":
		return NewWhisper(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported transcription provider: %q", cfg.Provider)
	}
}
