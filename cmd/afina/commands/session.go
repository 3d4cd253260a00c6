package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/edgard/afina/internal/assistant"
	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/database"
	"github.com/edgard/afina/internal/embedding"
	"github.com/edgard/afina/internal/llm"
	"github.com/edgard/afina/internal/logger"
	"github.com/edgard/afina/internal/resilience"
	"github.com/edgard/afina/internal/vector"
)

// session holds what every command needs: configuration, logging and storage.
type session struct {
	cfg      *config.Config
	log      *slog.Logger
	closeLog func() error
	db       *sqlx.DB
	store    *database.Store
}

func newSession(cmd *cobra.Command) (*session, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, closeLog, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON, cfg.Logger.File)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path, log)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &session{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		db:       db,
		store:    database.NewStore(db, log),
	}, nil
}

func (s *session) Close() {
	database.CloseDB(s.db, s.log)
	if err := s.closeLog(); err != nil {
		s.log.Error("Failed to close log file", "error", err)
	}
}

// stack is the model-backed part of the service.
type stack struct {
	llm      llm.Client
	embedder *embedding.Embedder
	index    *vector.SQLiteIndex
	pipeline *assistant.Pipeline
}

func (s *session) buildStack(ctx context.Context) (*stack, error) {
	client, err := llm.New(ctx, s.cfg.LLM, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}
	guarded := llm.WithBreaker(client, resilience.NewBreaker(resilience.BreakerConfig{
		Name:        "llm",
		CallTimeout: s.cfg.LLM.Timeout,
	}, s.log))

	embedder, err := embedding.New(s.cfg.Embedding, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	index := vector.NewSQLiteIndex(s.db, embedder.Dimension(), s.log)

	return &stack{
		llm:      guarded,
		embedder: embedder,
		index:    index,
		pipeline: assistant.NewPipeline(s.store, index, embedder, guarded, s.cfg.LLM.SummaryMaxTokens, s.log),
	}, nil
}
