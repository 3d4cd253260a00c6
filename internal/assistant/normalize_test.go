package assistant_test

import (
	"testing"
	"time"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/afina/internal/assistant"
	"github.com/edgard/afina/internal/database"
)

func privateMessage(id int, from int64, text string) *models.Message {
	return &models.Message{
		ID:   id,
		Chat: models.Chat{ID: from, Type: models.ChatTypePrivate, FirstName: "Egor"},
		From: &models.User{ID: from, Username: "egor", FirstName: "Egor"},
		Date: int(baseTime.Unix()),
		Text: text,
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	withVoiceAndText := privateMessage(7, ownerID, "hello")
	withVoiceAndText.Voice = &models.Voice{FileID: "v1", FileSize: 1024, Duration: 3}

	voice := privateMessage(8, ownerID, "")
	voice.Voice = &models.Voice{FileID: "v2", FileSize: 2048, Duration: 5}

	photo := privateMessage(9, ownerID, "")
	photo.Photo = []models.PhotoSize{{FileID: "p"}}
	photo.Caption = "look"

	video := privateMessage(10, ownerID, "")
	video.Video = &models.Video{FileID: "vid"}

	note := privateMessage(11, ownerID, "")
	note.VideoNote = &models.VideoNote{FileID: "vn"}

	sticker := privateMessage(12, ownerID, "")
	sticker.Sticker = &models.Sticker{FileID: "s"}

	noFrom := privateMessage(13, ownerID, "hi")
	noFrom.From = nil

	noDate := privateMessage(14, ownerID, "hi")
	noDate.Date = 0

	tests := []struct {
		name    string
		update  *models.Update
		kind    assistant.Kind
		wantErr error
	}{
		{name: "text", update: &models.Update{ID: 1, Message: privateMessage(5, ownerID, "hi")}, kind: assistant.KindText},
		{name: "text wins over voice", update: &models.Update{ID: 2, Message: withVoiceAndText}, kind: assistant.KindText},
		{name: "voice", update: &models.Update{ID: 3, Message: voice}, kind: assistant.KindVoice},
		{name: "photo", update: &models.Update{ID: 4, Message: photo}, kind: assistant.KindPhoto},
		{name: "video", update: &models.Update{ID: 5, Message: video}, kind: assistant.KindVideo},
		{name: "video note", update: &models.Update{ID: 6, Message: note}, kind: assistant.KindVideoNote},
		{
			name: "membership",
			update: &models.Update{ID: 7, MyChatMember: &models.ChatMemberUpdated{
				Chat:          models.Chat{ID: -100, Type: models.ChatTypeGroup, Title: "Friends"},
				From:          models.User{ID: 42},
				NewChatMember: models.ChatMember{Type: models.ChatMemberTypeMember},
			}},
			kind: assistant.KindMembership,
		},
		{name: "sticker is unsupported", update: &models.Update{ID: 8, Message: sticker}, wantErr: assistant.ErrUnsupportedUpdate},
		{name: "no message", update: &models.Update{ID: 9}, wantErr: assistant.ErrUnsupportedUpdate},
		{name: "missing from", update: &models.Update{ID: 10, Message: noFrom}, wantErr: assistant.ErrInvalidMessage},
		{name: "missing date", update: &models.Update{ID: 11, Message: noDate}, wantErr: assistant.ErrInvalidMessage},
		{name: "nil update", update: nil, wantErr: assistant.ErrInvalidMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in, err := assistant.Normalize(tt.update)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, in.Kind())
		})
	}
}

func TestNormalizeFields(t *testing.T) {
	t.Parallel()

	msg := privateMessage(5, ownerID, "hi")
	msg.ReplyToMessage = &models.Message{ID: 4, From: &models.User{ID: botID}}

	in, err := assistant.Normalize(&models.Update{ID: 77, Message: msg})
	require.NoError(t, err)

	text, ok := in.(*assistant.TextMessage)
	require.True(t, ok)
	assert.Equal(t, "hi", text.Text)
	assert.Equal(t, int64(77), text.UpdateID)
	assert.Equal(t, 5, text.MessageID)
	assert.Equal(t, ownerID, text.ChatID())
	assert.True(t, text.Private())
	assert.Equal(t, botID, text.ReplyToUserID)
	assert.Equal(t, "egor", text.From.Username)
	assert.True(t, baseTime.Equal(text.Date))

	voice := privateMessage(6, ownerID, "")
	voice.Voice = &models.Voice{FileID: "v", FileSize: 4096, Duration: 9}
	in, err = assistant.Normalize(&models.Update{ID: 78, Message: voice})
	require.NoError(t, err)
	v, ok := in.(*assistant.VoiceMessage)
	require.True(t, ok)
	assert.Equal(t, "v", v.FileID)
	assert.Equal(t, int64(4096), v.FileSize)
}

func TestRecords(t *testing.T) {
	t.Parallel()

	b := &assistant.Base{
		UpdateID:  3,
		MessageID: 11,
		Chat:      -500,
		From:      assistant.Sender{ID: 7, Username: "kate", FirstName: "Kate"},
		Date:      baseTime.Add(time.Hour),
	}

	records := assistant.Records(b, []string{"part one", "  ", "part two"}, database.MessageTypeVoice)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, int64(11), r.MessageID)
		assert.Equal(t, int64(-500), r.ChatID)
		assert.Equal(t, int64(7), r.UserID)
		assert.Equal(t, database.MessageTypeVoice, r.Type)
		assert.True(t, b.Date.Equal(r.Timestamp))
	}
	assert.Equal(t, "part one", records[0].Text)
	assert.Equal(t, "part two", records[1].Text)
}
