package database

import "time"

// MessageType labels the kind of inbound event a message record came from.
type MessageType string

const (
	MessageTypeText      MessageType = "text"
	MessageTypeVoice     MessageType = "voice"
	MessageTypePhoto     MessageType = "photo"
	MessageTypeVideo     MessageType = "video"
	MessageTypeVideoNote MessageType = "video_note"
)

// Message is one persisted unit of conversation. Several records may share a
// Telegram message id when one event yields several texts (a chunked voice
// transcript); ID is the store-assigned row id.
type Message struct {
	ID         int64       `db:"id"`
	UpdateID   int64       `db:"update_id"`
	MessageID  int64       `db:"message_id"`
	ChatID     int64       `db:"chat_id"`
	UserID     int64       `db:"user_id"`
	Username   string      `db:"username"`
	FirstName  string      `db:"first_name"`
	LastName   string      `db:"last_name"`
	Text       string      `db:"text"`
	Type       MessageType `db:"message_type"`
	Timestamp  time.Time   `db:"timestamp"`
	Summarized bool        `db:"summarized"`
	CreatedAt  time.Time   `db:"created_at"`
}

// DisplayName prefers the username, then "first last".
func (m *Message) DisplayName() string {
	if m.Username != "" {
		return m.Username
	}
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	default:
		return m.LastName
	}
}

// Summary is an immutable recap of a contiguous block of messages.
type Summary struct {
	ID           int64     `db:"id"`
	ChatID       int64     `db:"chat_id"`
	Participants string    `db:"participants"`
	Text         string    `db:"text"`
	DateFrom     time.Time `db:"date_from"`
	DateTo       time.Time `db:"date_to"`
	MessageCount int       `db:"message_count"`
	CreatedAt    time.Time `db:"created_at"`
}
