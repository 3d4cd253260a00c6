package assistant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/afina/internal/config"
)

// Gate enforces the single-owner policy.
type Gate struct {
	ownerID   int64
	messenger Messenger
	texts     config.MessagesConfig
	log       *slog.Logger
}

// NewGate creates a Gate for ownerID.
func NewGate(ownerID int64, messenger Messenger, texts config.MessagesConfig, logger *slog.Logger) *Gate {
	return &Gate{
		ownerID:   ownerID,
		messenger: messenger,
		texts:     texts,
		log:       logger.With("component", "access_gate"),
	}
}

// Allow reports whether in may be processed further. Non-owner private
// messages get one decline; non-owner invitations to a group get a farewell
// and the bot leaves. Messaging failures are logged, never returned.
func (g *Gate) Allow(ctx context.Context, in Inbound) bool {
	switch m := in.(type) {
	case *MembershipChange:
		return g.allowMembership(ctx, m)
	case messageInbound:
		b := m.base()
		if !b.Private() || b.From.ID == g.ownerID {
			return true
		}
		g.log.InfoContext(ctx, "Declined private message from non-owner", "chat_id", b.Chat, "user_id", b.From.ID)
		if _, err := g.messenger.Send(ctx, b.Chat, fmt.Sprintf(g.texts.PrivateDecline, b.ChatName)); err != nil {
			g.log.ErrorContext(ctx, "Failed to send private decline", "chat_id", b.Chat, "error", err)
		}
		return false
	default:
		return true
	}
}

func (g *Gate) allowMembership(ctx context.Context, m *MembershipChange) bool {
	if m.From.ID == g.ownerID {
		g.log.InfoContext(ctx, "Membership changed by owner", "chat_id", m.Chat, "status", string(m.NewStatus))
		return true
	}

	g.log.InfoContext(ctx, "Membership change by non-owner", "chat_id", m.Chat, "added_by", m.From.ID, "status", string(m.NewStatus))
	if !groupLike(m.ChatType) {
		return false
	}
	if m.NewStatus != models.ChatMemberTypeMember && m.NewStatus != models.ChatMemberTypeAdministrator {
		return false
	}

	if _, err := g.messenger.Send(ctx, m.Chat, g.texts.GroupFarewell); err != nil {
		g.log.ErrorContext(ctx, "Failed to send farewell", "chat_id", m.Chat, "error", err)
	}
	if err := g.messenger.Leave(ctx, m.Chat); err != nil {
		g.log.ErrorContext(ctx, "Failed to leave chat", "chat_id", m.Chat, "error", err)
		return false
	}
	g.log.InfoContext(ctx, "Left chat after non-owner invitation", "chat_id", m.Chat)
	return false
}

func groupLike(t models.ChatType) bool {
	return t == models.ChatTypeGroup || t == models.ChatTypeSupergroup || t == models.ChatTypeChannel
}
