package logger_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/internal/logger"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, logger.ParseLevel(in), in)
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "afina.log")
	log, closeFn, err := logger.NewLogger("info", true, path)
	require.NoError(t, err)

	log.Info("hello file", "chat_id", 7)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello file"`)
	assert.Contains(t, string(data), `"chat_id":7`)
}

func TestMiddlewareLogsTurn(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	failure := errors.New("boom")
	handler := logger.Middleware(log)(func(_ context.Context, _ *models.Update) error {
		return failure
	})

	update := &models.Update{
		ID: 99,
		Message: &models.Message{
			ID:   5,
			Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup},
			From: &models.User{ID: 11},
			Text: strings.Repeat("x", 80),
		},
	}

	err := handler(context.Background(), update)
	require.ErrorIs(t, err, failure)

	out := buf.String()
	assert.Contains(t, out, "Processing update")
	assert.Contains(t, out, "Update processing failed")
	assert.Contains(t, out, "update_id=99")
	assert.Contains(t, out, "chat_id=-100")
	assert.Contains(t, out, "turn_id=")
}

func TestUpdateAttrs(t *testing.T) {
	t.Parallel()

	attrs := logger.UpdateAttrs(&models.Update{
		ID: 3,
		MyChatMember: &models.ChatMemberUpdated{
			Chat: models.Chat{ID: -5},
			From: models.User{ID: 8},
		},
	})
	require.Len(t, attrs, 8)
	assert.Equal(t, "update_type", attrs[2])
	assert.Equal(t, "my_chat_member", attrs[3])
	assert.EqualValues(t, -5, attrs[5])
	assert.EqualValues(t, 8, attrs[7])
	assert.Nil(t, logger.UpdateAttrs(nil))
}
