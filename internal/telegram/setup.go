// Package telegram wraps the go-telegram/bot client with the send, download
// and membership operations the assistant needs.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
)

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	prefix := token
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	log.Info("Telegram bot instance created successfully", "token_prefix", prefix+"...")
	return b, nil
}

// RegisterWebhook points Telegram at publicURL and sets the shared secret
// it will echo back on every delivery.
func RegisterWebhook(ctx context.Context, b *bot.Bot, publicURL, secret string) error {
	ok, err := b.SetWebhook(ctx, &bot.SetWebhookParams{
		URL:            publicURL,
		SecretToken:    secret,
		AllowedUpdates: []string{"message", "my_chat_member"},
	})
	if err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	if !ok {
		return fmt.Errorf("telegram rejected webhook %s", publicURL)
	}
	return nil
}
