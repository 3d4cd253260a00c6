// Package logger provides structured logging for Afina.
// It uses Go's slog package with configurable levels and formats, and can
// mirror every record into a JSON log file.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	slogmulti "github.com/samber/slog-multi"

	"github.com/edgard/afina/internal/webhook"
)

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a slog Logger writing to stdout, as JSON when jsonOutput
// is true. When filePath is set, records are also appended to that file as
// JSON. The returned close func releases the file.
func NewLogger(levelStr string, jsonOutput bool, filePath string) (*slog.Logger, func() error, error) {
	return newLogger(os.Stdout, levelStr, jsonOutput, filePath)
}

func newLogger(out io.Writer, levelStr string, jsonOutput bool, filePath string) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	if filePath == "" {
		return slog.New(handler), func() error { return nil }, nil
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fileHandler := slog.NewJSONHandler(file, opts)

	return slog.New(slogmulti.Fanout(handler, fileHandler)), file.Close, nil
}

// Middleware logs every queued update with a turn id, its routing fields and
// how long the turn took.
func Middleware(log *slog.Logger) webhook.Middleware {
	return func(next webhook.HandlerFunc) webhook.HandlerFunc {
		return func(ctx context.Context, update *models.Update) error {
			startTime := time.Now()

			logEntry := log.With(append([]any{"turn_id", uuid.NewString()}, UpdateAttrs(update)...)...)
			logEntry.InfoContext(ctx, "Processing update")

			err := next(ctx, update)

			duration := time.Since(startTime)
			if err != nil {
				logEntry.ErrorContext(ctx, "Update processing failed", "duration", duration, "error", err)
				return err
			}
			logEntry.InfoContext(ctx, "Finished processing update", "duration", duration)
			return nil
		}
	}
}

// UpdateAttrs extracts the log fields identifying an update.
func UpdateAttrs(update *models.Update) []any {
	if update == nil {
		return nil
	}
	attrs := []any{"update_id", update.ID}

	switch {
	case update.Message != nil:
		msg := update.Message
		attrs = append(attrs,
			"update_type", "message",
			"message_id", msg.ID,
			"chat_id", msg.Chat.ID,
			"chat_type", string(msg.Chat.Type),
		)
		if msg.From != nil {
			attrs = append(attrs, "user_id", msg.From.ID)
		}
		text := msg.Text
		if text == "" {
			text = msg.Caption
		}
		if text != "" {
			attrs = append(attrs, "text_preview", truncateString(text, 50))
		}
	case update.MyChatMember != nil:
		attrs = append(attrs,
			"update_type", "my_chat_member",
			"chat_id", update.MyChatMember.Chat.ID,
			"user_id", update.MyChatMember.From.ID,
		)
	default:
		attrs = append(attrs, "update_type", "other")
	}
	return attrs
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(runes[:maxLen-3]) + "..."
}
