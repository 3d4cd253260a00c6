// Package bot wires the webhook server, the update queue and the scheduler
// together and manages their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/telegram"
	"github.com/edgard/afina/internal/webhook"
)

// Bot owns the long-running components of the service.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	tgBot     *tgbot.Bot
	queue     *webhook.Queue
	server    *http.Server
	scheduler *Scheduler

	ready chan net.Addr
}

// NewBot creates a Bot that feeds webhook deliveries through handler. tgBot
// is only used to register the webhook and may be nil when public_url is
// unset.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	tgBot *tgbot.Bot,
	handler webhook.HandlerFunc,
	scheduler *Scheduler,
) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	wh := cfg.Webhook
	queue := webhook.NewQueue(wh.Workers, wh.QueueSize, wh.TurnTimeout, handler, logger)

	mux := http.NewServeMux()
	mux.Handle(wh.Path, webhook.NewHandler(cfg.Telegram.SecretToken, wh.MaxBodyBytes, queue, logger))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		tgBot:     tgBot,
		queue:     queue,
		scheduler: scheduler,
		server: &http.Server{
			Addr:              wh.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ready: make(chan net.Addr, 1),
	}
}

// Handler returns the HTTP handler serving the webhook and health endpoints.
func (b *Bot) Handler() http.Handler { return b.server.Handler }

// Ready yields the listening address once the server accepts connections.
func (b *Bot) Ready() <-chan net.Addr { return b.ready }

// Run starts every component and blocks until ctx is cancelled or one of
// them fails. In-flight turns are allowed to finish before it returns.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	ln, err := net.Listen("tcp", b.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", b.server.Addr, err)
	}

	if b.cfg.Webhook.PublicURL != "" && b.tgBot != nil {
		if err := telegram.RegisterWebhook(ctx, b.tgBot, b.cfg.Webhook.PublicURL, b.cfg.Telegram.SecretToken); err != nil {
			_ = ln.Close()
			return err
		}
		b.logger.Info("Webhook registered", "url", b.cfg.Webhook.PublicURL)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting webhook server...", "addr", ln.Addr().String(), "path", b.cfg.Webhook.Path)
		b.ready <- ln.Addr()
		if err := b.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("webhook server failed: %w", err)
		}
		b.logger.Info("Webhook server stopped.")
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping webhook server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gCtx), b.cfg.Webhook.ShutdownTimeout)
		defer cancel()
		if err := b.server.Shutdown(shutdownCtx); err != nil {
			b.logger.Error("Error stopping webhook server", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		return b.queue.Run(gCtx)
	})

	if b.scheduler != nil {
		g.Go(func() error {
			b.logger.Info("Starting scheduler...")
			if err := b.scheduler.Start(); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")
			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err = g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
