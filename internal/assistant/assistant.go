package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/database"
	"github.com/edgard/afina/internal/transcribe"
)

// Assistant dispatches normalized updates to the core components.
type Assistant struct {
	gate         *Gate
	accumulator  *Accumulator
	pipeline     *Pipeline
	assembler    *Assembler
	orchestrator *Orchestrator

	messenger   Messenger
	transcriber transcribe.Transcriber

	pipelineCfg  config.PipelineConfig
	texts        config.MessagesConfig
	maxVoiceSize int64
	botID        int64
	botUsername  string

	log *slog.Logger
}

// New wires an Assistant from deps.
func New(deps Deps) (*Assistant, error) {
	switch {
	case deps.Config == nil:
		return nil, errors.New("assistant: config is required")
	case deps.Store == nil, deps.Index == nil, deps.Embedder == nil, deps.LLM == nil, deps.Messenger == nil:
		return nil, errors.New("assistant: store, index, embedder, llm and messenger are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := deps.Config

	pipeline := NewPipeline(deps.Store, deps.Index, deps.Embedder, deps.LLM, cfg.LLM.SummaryMaxTokens, logger)
	assembler := NewAssembler(deps.Store, pipeline, deps.Index, deps.Embedder, deps.LLM, cfg.Pipeline.FastSummaryCutoff, logger)

	return &Assistant{
		gate:        NewGate(cfg.Telegram.OwnerID, deps.Messenger, cfg.Messages, logger),
		accumulator: NewAccumulator(deps.Store, cfg.Pipeline.BatchThreshold, cfg.Pipeline.RetainRecent, logger),
		pipeline:    pipeline,
		assembler:   assembler,
		orchestrator: NewOrchestrator(deps.Store, assembler, pipeline, deps.LLM, deps.Messenger, OrchestratorConfig{
			Retelling:    cfg.Retelling,
			Messages:     cfg.Messages,
			MaxTokens:    cfg.LLM.MaxTokens,
			RecentFiller: cfg.Pipeline.RecentFiller,
			BotID:        deps.BotID,
			BotName:      cfg.Telegram.BotName,
		}, logger),
		messenger:    deps.Messenger,
		transcriber:  deps.Transcriber,
		pipelineCfg:  cfg.Pipeline,
		texts:        cfg.Messages,
		maxVoiceSize: cfg.Transcription.MaxFileSize,
		botID:        deps.BotID,
		botUsername:  deps.BotUsername,
		log:          logger.With("component", "assistant"),
	}, nil
}

// Pipeline exposes the summary pipeline for maintenance tasks and imports.
func (a *Assistant) Pipeline() *Pipeline { return a.pipeline }

// Handle processes one update end to end.
func (a *Assistant) Handle(ctx context.Context, update *models.Update) error {
	in, err := Normalize(update)
	if err != nil {
		if errors.Is(err, ErrUnsupportedUpdate) {
			a.log.DebugContext(ctx, "Ignoring unsupported update", "reason", err)
			return nil
		}
		a.log.WarnContext(ctx, "Dropping invalid update", "error", err)
		return nil
	}

	if !a.gate.Allow(ctx, in) {
		return nil
	}

	switch m := in.(type) {
	case *MembershipChange:
		return nil
	case *TextMessage:
		return a.handleTexts(ctx, &m.Base, []string{m.Text}, m.Text, database.MessageTypeText)
	case *PhotoMessage:
		return a.handleMedia(ctx, &m.Base, m.Caption, database.MessageTypePhoto)
	case *VideoMessage:
		return a.handleMedia(ctx, &m.Base, m.Caption, database.MessageTypeVideo)
	case *VoiceMessage:
		return a.handleVoice(ctx, m)
	case *VideoNoteMessage:
		a.notifyUnsupported(ctx, &m.Base)
		return nil
	default:
		return fmt.Errorf("unhandled inbound kind %q", in.Kind())
	}
}

func (a *Assistant) handleMedia(ctx context.Context, b *Base, caption string, typ database.MessageType) error {
	if strings.TrimSpace(caption) == "" {
		a.notifyUnsupported(ctx, b)
		return nil
	}
	return a.handleTexts(ctx, b, []string{caption}, caption, typ)
}

func (a *Assistant) handleVoice(ctx context.Context, m *VoiceMessage) error {
	log := a.log.With("chat_id", m.Chat, "message_id", m.MessageID, "file_size", m.FileSize)

	if m.FileSize > a.maxVoiceSize {
		log.WarnContext(ctx, "Voice file is too large", "limit", a.maxVoiceSize)
		if m.Private() {
			a.send(ctx, &m.Base, a.texts.VoiceTooLarge)
		}
		return nil
	}
	if a.transcriber == nil {
		log.WarnContext(ctx, "No transcriber configured, ignoring voice")
		return nil
	}

	text, err := a.transcribe(ctx, m)
	if err != nil {
		log.ErrorContext(ctx, "Voice transcription failed", "error", err)
		a.send(ctx, &m.Base, a.texts.TranscriptionFailed)
		return err
	}
	if text == "" {
		log.InfoContext(ctx, "Voice transcript is empty")
		return nil
	}
	log.DebugContext(ctx, "Voice transcribed", "length", len(text))

	return a.handleTexts(ctx, &m.Base, ChunkText(text, a.pipelineCfg.ChunkTokens), text, database.MessageTypeVoice)
}

func (a *Assistant) transcribe(ctx context.Context, m *VoiceMessage) (string, error) {
	audio, err := a.messenger.Download(ctx, m.FileID, a.maxVoiceSize)
	if err != nil {
		return "", fmt.Errorf("failed to download voice: %w", err)
	}
	return a.transcriber.Transcribe(ctx, audio, m.FileID+".ogg")
}

// handleTexts persists the message and, when it targets the assistant,
// replies. The two run behind separate error boundaries.
func (a *Assistant) handleTexts(ctx context.Context, b *Base, texts []string, full string, typ database.MessageType) error {
	persistErr := a.record(ctx, b, texts, typ)
	if persistErr != nil {
		a.log.ErrorContext(ctx, "Failed to record message", "chat_id", b.Chat, "message_id", b.MessageID, "error", persistErr)
	}

	if !a.Triggered(b, full) {
		return persistErr
	}

	query := RemoveMention(full, a.pipelineCfg.MentionTokens, a.botUsername)
	if query == "" {
		query = full
	}
	replyErr := a.orchestrator.Respond(ctx, b, query)
	return errors.Join(persistErr, replyErr)
}

func (a *Assistant) record(ctx context.Context, b *Base, texts []string, typ database.MessageType) error {
	records := Records(b, texts, typ)
	if len(records) == 0 {
		return nil
	}

	batch, err := a.accumulator.RecordAndMaybeBatch(ctx, b.Chat, records)
	if err != nil {
		return err
	}
	if !batch.Triggered {
		return nil
	}

	summary, err := a.pipeline.Process(ctx, batch.Messages)
	switch {
	case errors.Is(err, ErrNotIndexed):
		a.log.WarnContext(ctx, "Summary saved without embedding", "chat_id", b.Chat, "summary_id", summary.ID, "error", err)
		return nil
	case err != nil:
		return fmt.Errorf("failed to summarize batch: %w", err)
	}
	a.log.InfoContext(ctx, "Batch summarized", "chat_id", b.Chat, "summary_id", summary.ID, "message_count", summary.MessageCount)
	return nil
}

// Triggered reports whether a message addresses the assistant: any private
// message, a mention by name, or a reply to one of its messages.
func (a *Assistant) Triggered(b *Base, text string) bool {
	if b.Private() {
		return true
	}
	if a.botID != 0 && b.ReplyToUserID == a.botID {
		return true
	}
	return Mentions(text, a.pipelineCfg.MentionTokens, a.botUsername)
}

func (a *Assistant) notifyUnsupported(ctx context.Context, b *Base) {
	if !b.Private() {
		return
	}
	a.send(ctx, b, a.texts.UnsupportedType)
}

func (a *Assistant) send(ctx context.Context, b *Base, text string) {
	if _, err := a.messenger.Reply(ctx, b.Chat, b.MessageID, text); err != nil {
		a.log.ErrorContext(ctx, "Failed to send notice", "chat_id", b.Chat, "error", err)
	}
}
