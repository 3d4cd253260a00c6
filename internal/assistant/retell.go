package assistant

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/edgard/afina/internal/llm"
)

type retellingIntent struct {
	Retelling     *bool `json:"retelling"     validate:"required"`
	MessagesCount int   `json:"messagesCount" validate:"gte=0"`
}

func (o *Orchestrator) classifyRetelling(ctx context.Context, text string) (retellingIntent, error) {
	raw, err := o.llm.Complete(ctx, llm.Request{
		System:      retellingPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: text}},
		Temperature: 0,
		MaxTokens:   100,
		JSON:        true,
	})
	if err != nil {
		return retellingIntent{}, fmt.Errorf("failed to classify retelling intent: %w", err)
	}

	var intent retellingIntent
	if err := llm.DecodeJSON(raw, &intent); err != nil {
		o.log.WarnContext(ctx, "Retelling classifier returned malformed output", "error", err)
		return retellingIntent{}, err
	}
	return intent, nil
}

// retell answers a recap request for the last n messages.
func (o *Orchestrator) retell(ctx context.Context, b *Base, n int) error {
	log := o.log.With("chat_id", b.Chat, "requested", n)

	switch {
	case n <= o.retelling.MinMessages:
		log.InfoContext(ctx, "Retelling declined, too few messages")
		return o.reply(ctx, b, o.texts.RetellTooFew)
	case n > o.retelling.MaxMessages:
		log.InfoContext(ctx, "Retelling declined, too many messages")
		return o.reply(ctx, b, o.texts.RetellTooMany)
	}

	unsummarized, err := o.store.CountUnsummarized(ctx, b.Chat)
	if err != nil {
		return err
	}
	persisted, err := o.store.CountSummaries(ctx, b.Chat)
	if err != nil {
		return err
	}
	available := unsummarized + persisted*o.retelling.PerSummary
	if available < n {
		log.InfoContext(ctx, "Retelling declined, not enough history", "available", available)
		return o.reply(ctx, b, o.texts.RetellNotEnough)
	}

	parts, err := o.retellingParts(ctx, b.Chat, n, unsummarized, persisted)
	if err != nil {
		return err
	}
	text := fmt.Sprintf(o.texts.RetellHeader, n) + "\n\n" + strings.Join(parts, "\n\n")

	if _, err := o.messenger.Send(ctx, b.From.ID, text); err != nil {
		log.WarnContext(ctx, "Private retelling delivery failed, notifying chat", "user_id", b.From.ID, "error", err)
		return o.reply(ctx, b, o.texts.RetellPrivateFallback)
	}
	log.InfoContext(ctx, "Retelling delivered", "user_id", b.From.ID, "parts", len(parts))
	if !b.Private() {
		return o.reply(ctx, b, o.texts.RetellSent)
	}
	return nil
}

// retellingParts collects the persisted summaries of n's bracket, oldest
// first, followed by a fast summary of the trailing unsummarized messages.
func (o *Orchestrator) retellingParts(ctx context.Context, chatID int64, n, unsummarized, persisted int) ([]string, error) {
	use := SummariesForRetelling(n, o.retelling.PerSummary, o.retelling.MaxSummaries, persisted)

	var parts []string
	if use > 0 {
		summaries, err := o.store.LatestSummaries(ctx, chatID, use)
		if err != nil {
			return nil, err
		}
		slices.Reverse(summaries)
		for _, s := range summaries {
			parts = append(parts, fmt.Sprintf("📅 %s\n%s", formatSpan(s.DateFrom, s.DateTo), s.Text))
		}
	}

	if tail := min(n, unsummarized); tail > 0 {
		messages, err := o.store.UnsummarizedMessages(ctx, chatID)
		if err != nil {
			return nil, err
		}
		if len(messages) > tail {
			messages = messages[len(messages)-tail:]
		}
		if len(messages) > 0 {
			fast, err := o.pipeline.Summarize(ctx, messages)
			if err != nil {
				return nil, err
			}
			first, last := messages[0], messages[len(messages)-1]
			parts = append(parts, fmt.Sprintf("📅 %s\n%s", formatSpan(first.Timestamp, last.Timestamp), fast))
		}
	}
	return parts, nil
}

// SummariesForRetelling returns how many persisted summaries a recap of n
// messages uses: one per perSummary-sized bracket n falls into, capped by
// maxSummaries and by what exists.
func SummariesForRetelling(n, perSummary, maxSummaries, persisted int) int {
	if n <= 0 || perSummary <= 0 {
		return 0
	}
	brackets := (n + perSummary - 1) / perSummary
	return max(0, min(brackets, maxSummaries, persisted))
}
