// Package assistant holds the conversational core: normalizing inbound
// updates, gating access, accumulating and summarizing history, assembling
// context and composing replies.
package assistant

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Kind discriminates the Inbound variants.
type Kind string

const (
	KindText       Kind = "text"
	KindPhoto      Kind = "photo"
	KindVoice      Kind = "voice"
	KindVideo      Kind = "video"
	KindVideoNote  Kind = "video_note"
	KindMembership Kind = "membership"
)

// Inbound is a normalized update. The concrete type is one of *TextMessage,
// *PhotoMessage, *VoiceMessage, *VideoMessage, *VideoNoteMessage or
// *MembershipChange.
type Inbound interface {
	Kind() Kind
	ChatID() int64
}

// Sender identifies the author of an update.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Base carries the fields shared by every message variant.
type Base struct {
	UpdateID  int64
	MessageID int
	Chat      int64
	ChatType  models.ChatType
	ChatName  string
	From      Sender
	Date      time.Time
	// ReplyToUserID is the author of the message this one replies to, if any.
	ReplyToUserID int64
}

// ChatID implements Inbound.
func (b *Base) ChatID() int64 { return b.Chat }

// Private reports whether the message was sent in a one-to-one chat.
func (b *Base) Private() bool { return b.ChatType == models.ChatTypePrivate }

func (b *Base) base() *Base { return b }

// messageInbound is implemented by every variant that embeds Base.
type messageInbound interface {
	Inbound
	base() *Base
}

type TextMessage struct {
	Base
	Text string
}

type PhotoMessage struct {
	Base
	Caption string
}

type VoiceMessage struct {
	Base
	FileID   string
	FileSize int64
	Duration int
}

type VideoMessage struct {
	Base
	Caption string
}

type VideoNoteMessage struct {
	Base
}

// MembershipChange reports that the bot's own membership in a chat changed.
type MembershipChange struct {
	UpdateID  int64
	Chat      int64
	ChatType  models.ChatType
	ChatName  string
	From      Sender
	NewStatus models.ChatMemberType
}

func (*TextMessage) Kind() Kind      { return KindText }
func (*PhotoMessage) Kind() Kind     { return KindPhoto }
func (*VoiceMessage) Kind() Kind     { return KindVoice }
func (*VideoMessage) Kind() Kind     { return KindVideo }
func (*VideoNoteMessage) Kind() Kind { return KindVideoNote }
func (*MembershipChange) Kind() Kind { return KindMembership }

// ChatID implements Inbound.
func (m *MembershipChange) ChatID() int64 { return m.Chat }
