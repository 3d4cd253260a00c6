package assistant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/afina/internal/database"
)

var (
	// ErrInvalidMessage is returned when a message lacks a required field.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrUnsupportedUpdate is returned for update and message kinds the
	// assistant does not handle.
	ErrUnsupportedUpdate = errors.New("unsupported update")
)

// Normalize converts a raw update into its Inbound variant.
func Normalize(update *models.Update) (Inbound, error) {
	if update == nil {
		return nil, fmt.Errorf("%w: nil update", ErrInvalidMessage)
	}

	switch {
	case update.Message != nil:
		return normalizeMessage(update.ID, update.Message)
	case update.MyChatMember != nil:
		cm := update.MyChatMember
		if cm.Chat.ID == 0 || cm.From.ID == 0 {
			return nil, fmt.Errorf("%w: membership change without chat or sender", ErrInvalidMessage)
		}
		return &MembershipChange{
			UpdateID:  update.ID,
			Chat:      cm.Chat.ID,
			ChatType:  cm.Chat.Type,
			ChatName:  chatName(cm.Chat),
			From:      senderOf(&cm.From),
			NewStatus: cm.NewChatMember.Type,
		}, nil
	default:
		return nil, fmt.Errorf("%w: update %d has no message", ErrUnsupportedUpdate, update.ID)
	}
}

func normalizeMessage(updateID int64, msg *models.Message) (Inbound, error) {
	switch {
	case msg.ID == 0:
		return nil, fmt.Errorf("%w: missing message_id", ErrInvalidMessage)
	case msg.Chat.ID == 0:
		return nil, fmt.Errorf("%w: missing chat", ErrInvalidMessage)
	case msg.From == nil:
		return nil, fmt.Errorf("%w: missing from", ErrInvalidMessage)
	case msg.Date == 0:
		return nil, fmt.Errorf("%w: missing date", ErrInvalidMessage)
	}

	base := Base{
		UpdateID:  updateID,
		MessageID: msg.ID,
		Chat:      msg.Chat.ID,
		ChatType:  msg.Chat.Type,
		ChatName:  chatName(msg.Chat),
		From:      senderOf(msg.From),
		Date:      time.Unix(int64(msg.Date), 0).UTC(),
	}
	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil {
		base.ReplyToUserID = msg.ReplyToMessage.From.ID
	}

	switch {
	case msg.Text != "":
		return &TextMessage{Base: base, Text: msg.Text}, nil
	case msg.Voice != nil:
		return &VoiceMessage{
			Base:     base,
			FileID:   msg.Voice.FileID,
			FileSize: int64(msg.Voice.FileSize),
			Duration: msg.Voice.Duration,
		}, nil
	case len(msg.Photo) > 0:
		return &PhotoMessage{Base: base, Caption: msg.Caption}, nil
	case msg.Video != nil:
		return &VideoMessage{Base: base, Caption: msg.Caption}, nil
	case msg.VideoNote != nil:
		return &VideoNoteMessage{Base: base}, nil
	default:
		return nil, fmt.Errorf("%w: message %d has no supported content", ErrUnsupportedUpdate, msg.ID)
	}
}

func senderOf(u *models.User) Sender {
	return Sender{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

func chatName(c models.Chat) string {
	if c.Title != "" {
		return c.Title
	}
	if name := strings.TrimSpace(c.FirstName + " " + c.LastName); name != "" {
		return name
	}
	return c.Username
}

// Records builds one message record per text, all sharing the identity of b.
func Records(b *Base, texts []string, typ database.MessageType) []*database.Message {
	records := make([]*database.Message, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		records = append(records, &database.Message{
			UpdateID:  b.UpdateID,
			MessageID: int64(b.MessageID),
			ChatID:    b.Chat,
			UserID:    b.From.ID,
			Username:  b.From.Username,
			FirstName: b.From.FirstName,
			LastName:  b.From.LastName,
			Text:      text,
			Type:      typ,
			Timestamp: b.Date,
		})
	}
	return records
}
