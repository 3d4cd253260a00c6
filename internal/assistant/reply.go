package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/database"
	"github.com/edgard/afina/internal/llm"
	"github.com/edgard/afina/internal/resilience"
)

// budgetHeadroom is the share of the token budget left unused.
const budgetHeadroom = 0.10

// Orchestrator answers triggered messages, either as a retelling or as a
// contextual reply.
type Orchestrator struct {
	store     Store
	assembler *Assembler
	pipeline  *Pipeline
	llm       llm.Client
	messenger Messenger

	retelling config.RetellingConfig
	texts     config.MessagesConfig
	maxTokens int
	filler    int
	botID     int64
	botName   string

	log *slog.Logger
}

// OrchestratorConfig groups the Orchestrator's settings.
type OrchestratorConfig struct {
	Retelling config.RetellingConfig
	Messages  config.MessagesConfig
	MaxTokens int
	// RecentFiller is how many raw messages accompany every reply.
	RecentFiller int
	BotID        int64
	BotName      string
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(store Store, assembler *Assembler, pipeline *Pipeline, client llm.Client, messenger Messenger, cfg OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		assembler: assembler,
		pipeline:  pipeline,
		llm:       client,
		messenger: messenger,
		retelling: cfg.Retelling,
		texts:     cfg.Messages,
		maxTokens: cfg.MaxTokens,
		filler:    cfg.RecentFiller,
		botID:     cfg.BotID,
		botName:   cfg.BotName,
		log:       logger.With("component", "reply_orchestrator"),
	}
}

// Respond answers text, which triggered the assistant in message b. Any
// failure is answered with an apology in the originating chat and returned.
func (o *Orchestrator) Respond(ctx context.Context, b *Base, text string) error {
	stop := o.messenger.KeepTyping(ctx, b.Chat)
	err := o.respond(ctx, b, text)
	stop()
	if err != nil {
		o.log.ErrorContext(ctx, "Reply failed", "chat_id", b.Chat, "message_id", b.MessageID, "error", err)
		o.apologize(ctx, b)
	}
	return err
}

func (o *Orchestrator) respond(ctx context.Context, b *Base, text string) error {
	intent, err := o.classifyRetelling(ctx, text)
	if err != nil {
		return err
	}
	if *intent.Retelling {
		return o.retell(ctx, b, intent.MessagesCount)
	}
	return o.answer(ctx, b, text)
}

// answer runs the two-stage contextual pipeline.
func (o *Orchestrator) answer(ctx context.Context, b *Base, text string) error {
	recent, err := o.store.RecentMessages(ctx, b.Chat, o.filler+1)
	if err != nil {
		return err
	}
	recent = slices.DeleteFunc(recent, func(m *database.Message) bool {
		return m.MessageID == int64(b.MessageID) && m.UserID == b.From.ID
	})
	if len(recent) > o.filler {
		recent = recent[:o.filler]
	}
	slices.Reverse(recent)

	cfg, err := o.assembler.DecideReplyConfig(ctx, text)
	if err != nil {
		return err
	}
	parts, err := o.assembler.Gather(ctx, b.Chat, text, cfg.ContextLevel)
	if err != nil {
		return err
	}

	system := personaPrompt + "\n\n" + cfg.SystemPrompt
	if cfg.ContextLevel == LevelDetailedHistorical {
		system += "\n\n" + detailedHint
	}

	answer, err := o.llm.Complete(ctx, llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: composePrompt(parts, recent, b, text)}},
		Temperature: cfg.Temperature,
		MaxTokens:   TokenBudget(cfg.MaxTokens, o.maxTokens),
	})
	if err != nil {
		return fmt.Errorf("failed to compose reply: %w", err)
	}

	sentID, err := o.messenger.Reply(ctx, b.Chat, b.MessageID, answer)
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	o.log.InfoContext(ctx, "Sent reply", "chat_id", b.Chat, "message_id", sentID, "context_level", string(cfg.ContextLevel), "context_parts", len(parts))

	o.saveReply(ctx, b, sentID, answer)
	return nil
}

// saveReply stores the assistant's own answer so it joins future context.
// The answer has already been delivered, so failures are only logged.
func (o *Orchestrator) saveReply(ctx context.Context, b *Base, sentID int, text string) {
	if o.botID == 0 {
		o.log.WarnContext(ctx, "Unknown bot id, skipping reply persistence")
		return
	}
	record := &database.Message{
		UpdateID:  b.UpdateID,
		MessageID: int64(sentID),
		ChatID:    b.Chat,
		UserID:    o.botID,
		FirstName: o.botName,
		Text:      text,
		Type:      database.MessageTypeText,
		Timestamp: time.Now().UTC(),
	}

	retry := resilience.DefaultRetryConfig()
	err := resilience.Retry(ctx, retry, func(ctx context.Context) error {
		return o.store.InsertMessages(ctx, []*database.Message{record})
	})
	if err != nil {
		o.log.ErrorContext(ctx, "Failed to save assistant reply", "chat_id", b.Chat, "error", err)
	}
}

func (o *Orchestrator) reply(ctx context.Context, b *Base, text string) error {
	if _, err := o.messenger.Reply(ctx, b.Chat, b.MessageID, text); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

func (o *Orchestrator) apologize(ctx context.Context, b *Base) {
	if _, err := o.messenger.Reply(ctx, b.Chat, b.MessageID, o.texts.GeneralError); err != nil {
		o.log.ErrorContext(ctx, "Failed to send apology", "chat_id", b.Chat, "error", err)
	}
}

// TokenBudget caps requested by configured and keeps 10% headroom.
func TokenBudget(requested, configured int) int {
	budget := configured
	if requested > 0 && requested < budget {
		budget = requested
	}
	return max(1, int(float64(budget)*(1-budgetHeadroom)))
}

func composePrompt(parts []string, recent []*database.Message, b *Base, text string) string {
	var sb strings.Builder
	if len(parts) > 0 {
		sb.WriteString("Контекст беседы:\n")
		for _, p := range parts {
			if p == "" {
				continue
			}
			sb.WriteString(p)
			sb.WriteString("\n\n")
		}
	}
	if len(recent) > 0 {
		sb.WriteString("Последние сообщения:\n")
		for _, m := range recent {
			sb.WriteString(formatLine(m))
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}

	author := b.From.Username
	if author == "" {
		author = strings.TrimSpace(b.From.FirstName + " " + b.From.LastName)
	}
	sb.WriteString("Сообщение, на которое нужно ответить:\n")
	fmt.Fprintf(&sb, "[%s] %s: %s", b.Date.Format(timestampLayout), author, text)
	return sb.String()
}
