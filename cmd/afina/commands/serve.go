package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/afina/internal/assistant"
	"github.com/edgard/afina/internal/bot"
	"github.com/edgard/afina/internal/bot/tasks"
	"github.com/edgard/afina/internal/logger"
	"github.com/edgard/afina/internal/telegram"
	"github.com/edgard/afina/internal/transcribe"
	"github.com/edgard/afina/internal/webhook"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server and the scheduler",
		Long: `Start Afina: listen for Telegram webhook deliveries, answer the owner and
run the scheduled maintenance tasks until interrupted.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	cfg, log := sess.cfg, sess.log

	st, err := sess.buildStack(ctx)
	if err != nil {
		return err
	}

	transcriber, err := transcribe.New(cfg.Transcription, log)
	if err != nil {
		return fmt.Errorf("failed to initialize transcriber: %w", err)
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log)
	if err != nil {
		return err
	}
	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	afina, err := assistant.New(assistant.Deps{
		Logger:      log,
		Config:      cfg,
		Store:       sess.store,
		Index:       st.index,
		Embedder:    st.embedder,
		LLM:         st.llm,
		Transcriber: transcriber,
		Messenger:   telegram.NewMessenger(tg, cfg.Telegram.Token, telegram.DefaultServerURL, log),
		BotID:       cfg.Telegram.BotInfo.ID,
		BotUsername: cfg.Telegram.BotInfo.Username,
	})
	if err != nil {
		return err
	}

	taskMap := tasks.RegisterAllTasks(tasks.TaskDeps{Logger: log, Store: sess.store, Indexer: afina.Pipeline()})
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, taskMap)
	if err != nil {
		return err
	}

	handler := webhook.Chain(afina.Handle, logger.Middleware(log))
	app := bot.NewBot(log, cfg, tg, handler, sched)

	log.Info("Starting bot...")
	if err := app.Run(ctx); err != nil {
		return err
	}
	log.Info("Bot stopped gracefully.")
	return nil
}
