package assistant_test

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/edgard/afina/internal/config"
	"github.com/edgard/afina/internal/database"
	"github.com/edgard/afina/internal/llm"
)

var (
	discard  = slog.New(slog.NewTextHandler(io.Discard, nil))
	baseTime = time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
)

const (
	ownerID = int64(1001)
	botID   = int64(9999)
)

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{OwnerID: ownerID, BotName: "Afina"},
		LLM:      config.LLMConfig{MaxTokens: 1000, SummaryMaxTokens: 500},
		Transcription: config.TranscriptionConfig{
			MaxFileSize: config.DefaultMaxVoiceFileSize,
		},
		Pipeline: config.PipelineConfig{
			BatchThreshold:    config.DefaultBatchThreshold,
			RetainRecent:      config.DefaultRetainRecent,
			FastSummaryCutoff: config.DefaultFastSummaryCutoff,
			RecentFiller:      config.DefaultRecentFiller,
			ChunkTokens:       config.DefaultChunkTokens,
			MentionTokens:     config.DefaultMentionTokens,
		},
		Retelling: config.RetellingConfig{
			MinMessages:  config.DefaultRetellMin,
			MaxMessages:  config.DefaultRetellMax,
			PerSummary:   config.DefaultRetellPerSummary,
			MaxSummaries: config.DefaultRetellMaxSummaries,
		},
		Messages: config.DefaultMessages,
	}
}

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	messages  []*database.Message
	summaries []*database.Summary

	insertErr   error
	latestCalls int
	deleteCalls int
	noRecent    bool
	// drainAfterCount marks every message summarized right after a count,
	// as a concurrent batch rollover would.
	drainAfterCount bool
}

func newMemStore() *memStore { return &memStore{} }

func (s *memStore) InsertMessages(_ context.Context, msgs []*database.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	for _, m := range msgs {
		s.nextID++
		m.ID = s.nextID
		cp := *m
		s.messages = append(s.messages, &cp)
	}
	return nil
}

func (s *memStore) CountUnsummarized(_ context.Context, chatID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.ChatID == chatID && !m.Summarized {
			n++
			if s.drainAfterCount {
				m.Summarized = true
			}
		}
	}
	return n, nil
}

func (s *memStore) UnsummarizedMessages(_ context.Context, chatID int64) ([]*database.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*database.Message
	for _, m := range s.messages {
		if m.ChatID == chatID && !m.Summarized {
			cp := *m
			out = append(out, &cp)
		}
	}
	slices.SortStableFunc(out, func(a, b *database.Message) int {
		return cmp.Or(a.Timestamp.Compare(b.Timestamp), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *memStore) MarkSummarized(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if slices.Contains(ids, m.ID) {
			m.Summarized = true
		}
	}
	return nil
}

func (s *memStore) RecentMessages(_ context.Context, chatID int64, limit int) ([]*database.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noRecent {
		return nil, nil
	}
	var out []*database.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			cp := *m
			out = append(out, &cp)
		}
	}
	slices.SortStableFunc(out, func(a, b *database.Message) int {
		return cmp.Or(b.Timestamp.Compare(a.Timestamp), cmp.Compare(b.ID, a.ID))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) DeleteMessagesExcept(_ context.Context, chatID int64, keep []int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	if len(keep) == 0 {
		return 0, database.ErrEmptyRetention
	}
	var deleted int64
	s.messages = slices.DeleteFunc(s.messages, func(m *database.Message) bool {
		drop := m.ChatID == chatID && !slices.Contains(keep, m.ID)
		if drop {
			deleted++
		}
		return drop
	})
	return deleted, nil
}

func (s *memStore) InsertSummary(_ context.Context, summary *database.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	summary.ID = s.nextID
	cp := *summary
	s.summaries = append(s.summaries, &cp)
	return nil
}

func (s *memStore) LatestSummaries(_ context.Context, chatID int64, limit int) ([]*database.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latestCalls++
	var out []*database.Summary
	for i := len(s.summaries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.summaries[i].ChatID == chatID {
			cp := *s.summaries[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) CountSummaries(_ context.Context, chatID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sum := range s.summaries {
		if sum.ChatID == chatID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) SummariesByIDs(_ context.Context, chatID int64, ids []int64) ([]*database.Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*database.Summary
	for _, sum := range s.summaries {
		if sum.ChatID == chatID && slices.Contains(ids, sum.ID) {
			cp := *sum
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) seedMessages(chatID int64, n int, start time.Time) {
	msgs := make([]*database.Message, 0, n)
	for i := range n {
		msgs = append(msgs, &database.Message{
			UpdateID:  int64(i + 1),
			MessageID: int64(i + 1),
			ChatID:    chatID,
			UserID:    ownerID,
			Username:  "owner",
			Text:      fmt.Sprintf("message %d", i+1),
			Type:      database.MessageTypeText,
			Timestamp: start.Add(time.Duration(i) * time.Minute),
		})
	}
	_ = s.InsertMessages(context.Background(), msgs)
}

func (s *memStore) seedSummaries(chatID int64, n int) {
	for i := range n {
		_ = s.InsertSummary(context.Background(), &database.Summary{
			ChatID:       chatID,
			Participants: "owner",
			Text:         fmt.Sprintf("summary %d", i+1),
			DateFrom:     baseTime.Add(time.Duration(i) * time.Hour),
			DateTo:       baseTime.Add(time.Duration(i)*time.Hour + 30*time.Minute),
			MessageCount: 100,
		})
	}
}

// scriptedLLM answers by request shape.
type scriptedLLM struct {
	mu          sync.Mutex
	retelling   string
	replyConfig string
	answer      string
	answerErr   error

	summaryCalls int
	answerCalls  int
	requests     []llm.Request
}

func newScriptedLLM() *scriptedLLM {
	return &scriptedLLM{
		retelling:   `{"retelling": false, "messagesCount": 0}`,
		replyConfig: `{"systemPrompt": "Отвечай коротко", "temperature": 0.5, "maxTokens": 400, "contextLevel": "immediate"}`,
		answer:      "Привет! Я здесь.",
	}
}

func (l *scriptedLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)

	content := ""
	if len(req.Messages) > 0 {
		content = req.Messages[0].Content
	}
	switch {
	case req.JSON && strings.Contains(req.System, `"retelling"`):
		return l.retelling, nil
	case req.JSON && strings.Contains(req.System, `"contextLevel"`):
		return l.replyConfig, nil
	case strings.Contains(content, "<<<ЧАТ>>>"):
		l.summaryCalls++
		return fmt.Sprintf("recap of %d lines", strings.Count(content, "\n")-1), nil
	default:
		l.answerCalls++
		return l.answer, l.answerErr
	}
}

type fakeEmbedder struct {
	err   error
	calls int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

type fakeIndex struct {
	mu      sync.Mutex
	vectors map[int64][]float32
	result  []int64
}

func (x *fakeIndex) Upsert(_ context.Context, id int64, vec []float32) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.vectors == nil {
		x.vectors = map[int64][]float32{}
	}
	x.vectors[id] = vec
	return nil
}

func (x *fakeIndex) Query(context.Context, []float32, int) ([]int64, error) {
	return x.result, nil
}

type sent struct {
	ChatID  int64
	ReplyTo int
	Text    string
}

type fakeMessenger struct {
	mu        sync.Mutex
	sent      []sent
	left      []int64
	typing    int
	downloads int
	failSend  map[int64]bool
	audio     []byte
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, text string) (int, error) {
	return m.Reply(context.Background(), chatID, 0, text)
}

func (m *fakeMessenger) Reply(_ context.Context, chatID int64, replyTo int, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSend[chatID] {
		return 0, errors.New("bot was blocked by the user")
	}
	m.sent = append(m.sent, sent{ChatID: chatID, ReplyTo: replyTo, Text: text})
	return 5000 + len(m.sent), nil
}

func (m *fakeMessenger) KeepTyping(context.Context, int64) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.typing++
	return func() {}
}

func (m *fakeMessenger) Leave(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.left = append(m.left, chatID)
	return nil
}

func (m *fakeMessenger) Download(context.Context, string, int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads++
	return m.audio, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, []byte, string) (string, error) {
	f.calls++
	return f.text, f.err
}
