package bot_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/internal/bot"
	"github.com/edgard/afina/internal/bot/tasks"
	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/webhook"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{SecretToken: "s3cret"},
		Webhook: config.WebhookConfig{
			ListenAddr:      "127.0.0.1:0",
			Path:            "/api/telegram",
			Workers:         2,
			QueueSize:       8,
			MaxBodyBytes:    1 << 16,
			TurnTimeout:     time.Second,
			ShutdownTimeout: time.Second,
		},
	}
}

func TestBotDeliversUpdatesAndStops(t *testing.T) {
	t.Parallel()

	handled := make(chan int64, 1)
	handler := func(_ context.Context, update *models.Update) error {
		handled <- update.ID
		return nil
	}

	b := bot.NewBot(discard, testConfig(), nil, webhook.HandlerFunc(handler), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case <-b.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/telegram", strings.NewReader(`{"update_id": 42, "message": {"message_id": 1, "date": 1, "chat": {"id": 7, "type": "private"}}}`))
	req.Header.Set(webhook.SecretHeader, "s3cret")
	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	select {
	case id := <-handled:
		assert.Equal(t, int64(42), id)
	case <-time.After(5 * time.Second):
		t.Fatal("update was not handled")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
	}
}

func TestBotHealthz(t *testing.T) {
	t.Parallel()

	b := bot.NewBot(discard, testConfig(), nil, func(context.Context, *models.Update) error { return nil }, nil)

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/telegram", strings.NewReader(`{}`))
	b.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBotRunFailsOnBusyAddress(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	cfg := testConfig()
	cfg.Webhook.ListenAddr = srv.Listener.Addr().String()
	b := bot.NewBot(discard, cfg, nil, func(context.Context, *models.Update) error { return nil }, nil)

	require.Error(t, b.Run(context.Background()))
}

func TestSchedulerRunsEnabledTasks(t *testing.T) {
	t.Parallel()

	ran := make(chan struct{}, 4)
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"tick": func(context.Context) error {
			ran <- struct{}{}
			return nil
		},
		"never": func(context.Context) error {
			t.Error("disabled task ran")
			return nil
		},
	}
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"tick":    {Enabled: true, Schedule: "* * * * * *"},
		"never":   {Enabled: false, Schedule: "* * * * * *"},
		"missing": {Enabled: true, Schedule: "* * * * * *"},
	}}

	s, err := bot.NewScheduler(discard, cfg, taskMap)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	require.Error(t, s.Start())

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled task did not run")
	}
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}

func TestSchedulerWithoutTasks(t *testing.T) {
	t.Parallel()

	s, err := bot.NewScheduler(discard, &config.SchedulerConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
}
