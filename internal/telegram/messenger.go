package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	// DefaultServerURL is the public Bot API host.
	DefaultServerURL = "https://api.telegram.org"

	maxMessageRunes     = 4096
	sendMessageTimeout  = 10 * time.Second
	fileDownloadTimeout = 60 * time.Second
	typingInterval      = 4 * time.Second
)

// ErrFileTooLarge is returned by Download when the file exceeds the limit.
var ErrFileTooLarge = errors.New("file exceeds size limit")

// Messenger performs outbound Bot API calls.
type Messenger struct {
	b          *bot.Bot
	token      string
	serverURL  string
	httpClient *http.Client
	log        *slog.Logger
}

// NewMessenger wraps b. serverURL is used for file downloads and defaults to
// DefaultServerURL.
func NewMessenger(b *bot.Bot, token, serverURL string, logger *slog.Logger) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	return &Messenger{
		b:          b,
		token:      token,
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: fileDownloadTimeout},
		log:        logger.With("component", "telegram_messenger"),
	}
}

// Send posts text to chatID and returns the id of the last message sent.
// Texts longer than Telegram's limit are split.
func (m *Messenger) Send(ctx context.Context, chatID int64, text string) (int, error) {
	return m.send(ctx, chatID, 0, text)
}

// Reply posts text as a reply to replyTo.
func (m *Messenger) Reply(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	return m.send(ctx, chatID, replyTo, text)
}

func (m *Messenger) send(ctx context.Context, chatID int64, replyTo int, text string) (int, error) {
	if chatID == 0 {
		return 0, errors.New("chat id cannot be zero")
	}
	if strings.TrimSpace(text) == "" {
		return 0, errors.New("message text cannot be empty")
	}

	lastID := 0
	for i, part := range SplitText(text, maxMessageRunes) {
		params := &bot.SendMessageParams{ChatID: chatID, Text: part}
		if replyTo > 0 && i == 0 {
			params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo, AllowSendingWithoutReply: true}
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
		sent, err := m.b.SendMessage(sendCtx, params)
		cancel()
		if err != nil {
			return lastID, fmt.Errorf("failed to send message: %w", err)
		}
		lastID = sent.ID
	}

	m.log.DebugContext(ctx, "Sent message", "chat_id", chatID, "message_id", lastID, "reply_to", replyTo)
	return lastID, nil
}

// Typing shows the typing indicator once.
func (m *Messenger) Typing(ctx context.Context, chatID int64) error {
	if _, err := m.b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping}); err != nil {
		return fmt.Errorf("failed to send typing action: %w", err)
	}
	return nil
}

// KeepTyping refreshes the typing indicator until the returned stop func is
// called or ctx ends.
func (m *Messenger) KeepTyping(ctx context.Context, chatID int64) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(typingInterval)
		defer ticker.Stop()
		for {
			if err := m.Typing(ctx, chatID); err != nil && ctx.Err() == nil {
				m.log.DebugContext(ctx, "Typing action failed", "chat_id", chatID, "error", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return cancel
}

// Leave removes the bot from chatID.
func (m *Messenger) Leave(ctx context.Context, chatID int64) error {
	if _, err := m.b.LeaveChat(ctx, &bot.LeaveChatParams{ChatID: chatID}); err != nil {
		return fmt.Errorf("failed to leave chat: %w", err)
	}
	return nil
}

// Download fetches a file by id, refusing anything larger than maxBytes.
func (m *Messenger) Download(ctx context.Context, fileID string, maxBytes int64) (data []byte, err error) {
	if fileID == "" {
		return nil, errors.New("empty fileID provided")
	}
	downloadCtx, cancel := context.WithTimeout(ctx, fileDownloadTimeout)
	defer cancel()

	fileObj, err := m.b.GetFile(downloadCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if fileObj.FilePath == "" {
		return nil, errors.New("empty file path returned from Telegram")
	}
	if size := int64(fileObj.FileSize); maxBytes > 0 && size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", m.serverURL, m.token, fileObj.FilePath)
	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download file: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	limit := maxBytes
	if limit <= 0 {
		limit = 20 * 1024 * 1024
	}
	data, err = io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file data: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, limit)
	}
	if len(data) == 0 {
		return nil, errors.New("received empty file data")
	}
	return data, nil
}

// SplitText cuts text into parts of at most limit runes, preferring line
// breaks.
func SplitText(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), "\n"))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
