// Package seed imports chat history from a Telegram Desktop JSON export and
// turns it into summaries.
package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/afina/internal/database"
)

// Export is the subset of a Telegram Desktop export the importer reads.
type Export struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	ID       int64           `json:"id"`
	Messages []ExportMessage `json:"messages"`
}

// ExportMessage is one entry of an export. Service entries (joins, pins)
// carry Type "service" and are skipped.
type ExportMessage struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	DateUnixtime string `json:"date_unixtime"`
	From         string `json:"from"`
	FromID       string `json:"from_id"`
	Text         Text   `json:"text"`
}

// Text is a message body, exported either as a plain string or as an array
// of strings and formatted entities.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("text is neither a string nor an array: %w", err)
	}
	var sb strings.Builder
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			sb.WriteString(s)
			continue
		}
		var entity struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(part, &entity); err != nil {
			return fmt.Errorf("unsupported text entity: %w", err)
		}
		sb.WriteString(entity.Text)
	}
	*t = Text(sb.String())
	return nil
}

// Parse decodes an export.
func Parse(r io.Reader) (*Export, error) {
	var export Export
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &export, nil
}

// Records converts the export's text messages into records of chatID,
// oldest first. When authors is not empty, only messages whose sender name
// contains one of them are kept, attributed to that name.
func (e *Export) Records(chatID int64, authors []string) ([]*database.Message, error) {
	records := make([]*database.Message, 0, len(e.Messages))
	for _, m := range e.Messages {
		text := strings.TrimSpace(string(m.Text))
		if m.Type != "message" || text == "" || m.From == "" {
			continue
		}

		author := m.From
		if len(authors) > 0 {
			i := slices.IndexFunc(authors, func(a string) bool { return strings.Contains(m.From, a) })
			if i < 0 {
				continue
			}
			author = authors[i]
		}

		unix, err := strconv.ParseInt(m.DateUnixtime, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("message %d has invalid date_unixtime %q: %w", m.ID, m.DateUnixtime, err)
		}

		records = append(records, &database.Message{
			MessageID: m.ID,
			ChatID:    chatID,
			UserID:    senderID(m.FromID),
			FirstName: author,
			Text:      text,
			Type:      database.MessageTypeText,
			Timestamp: time.Unix(unix, 0).UTC(),
		})
	}

	slices.SortStableFunc(records, func(a, b *database.Message) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return records, nil
}

// senderID extracts the numeric id from "user123" style identifiers.
func senderID(fromID string) int64 {
	digits := strings.TrimLeftFunc(fromID, func(r rune) bool { return r < '0' || r > '9' })
	id, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
