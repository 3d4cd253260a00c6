package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrEmptyRetention is returned when a prune would keep no rows at all.
var ErrEmptyRetention = errors.New("retained message set is empty")

const messageColumns = `id, update_id, message_id, chat_id, user_id, username, first_name, last_name,
	text, message_type, timestamp, summarized, created_at`

const summaryColumns = `id, chat_id, participants, text, date_from, date_to, message_count, created_at`

// Store is the sqlx-backed persistence for messages and summaries.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store on an open, migrated database.
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func validateMessage(m *Message) error {
	switch {
	case m == nil:
		return errors.New("cannot save nil message")
	case m.ChatID == 0:
		return errors.New("message must have a non-zero chat_id")
	case m.Text == "":
		return errors.New("message must have non-empty text")
	case m.Type == "":
		return errors.New("message must have a type")
	case m.Timestamp.IsZero():
		return errors.New("message must have a non-zero timestamp")
	}
	return nil
}

// InsertMessages persists all records in one transaction and fills their IDs.
func (s *Store) InsertMessages(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}
	for _, m := range messages {
		if err := validateMessage(m); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	const query = `
        INSERT INTO messages (update_id, message_id, chat_id, user_id, username, first_name, last_name,
                              text, message_type, timestamp, summarized, created_at)
        VALUES (:update_id, :message_id, :chat_id, :user_id, :username, :first_name, :last_name,
                :text, :message_type, :timestamp, :summarized, :created_at);
    `

	now := time.Now().UTC()
	for _, m := range messages {
		m.Timestamp = m.Timestamp.UTC()
		m.CreatedAt = now

		result, err := tx.NamedExecContext(ctx, query, m)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error saving message", "chat_id", m.ChatID, "message_id", m.MessageID, "error", err)
			return fmt.Errorf("failed to save message (chat %d, message %d): %w", m.ChatID, m.MessageID, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read inserted message id: %w", err)
		}
		m.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit messages: %w", err)
	}

	s.logger.DebugContext(ctx, "Messages saved", "chat_id", messages[0].ChatID, "count", len(messages))
	return nil
}

// CountUnsummarized returns how many messages of the chat are not yet summarized.
func (s *Store) CountUnsummarized(ctx context.Context, chatID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages WHERE chat_id = ? AND summarized = 0`, chatID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unsummarized messages (chat %d): %w", chatID, err)
	}
	return n, nil
}

// UnsummarizedMessages returns the chat's unsummarized messages, oldest first.
func (s *Store) UnsummarizedMessages(ctx context.Context, chatID int64) ([]*Message, error) {
	var messages []*Message
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE chat_id = ? AND summarized = 0
        ORDER BY timestamp ASC, id ASC`
	if err := s.db.SelectContext(ctx, &messages, query, chatID); err != nil {
		return nil, fmt.Errorf("failed to fetch unsummarized messages (chat %d): %w", chatID, err)
	}
	return messages, nil
}

// MarkSummarized flips the summarized flag for exactly the given row ids.
func (s *Store) MarkSummarized(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`UPDATE messages SET summarized = 1 WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build mark query: %w", err)
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to mark messages summarized: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected != int64(len(ids)) {
		s.logger.WarnContext(ctx, "Unexpected number of rows marked summarized", "expected", len(ids), "affected", affected)
	}
	return nil
}

// RecentMessages returns up to limit most recent messages of the chat, newest first.
func (s *Store) RecentMessages(ctx context.Context, chatID int64, limit int) ([]*Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	var messages []*Message
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE chat_id = ?
        ORDER BY timestamp DESC, id DESC
        LIMIT ?`
	if err := s.db.SelectContext(ctx, &messages, query, chatID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch recent messages (chat %d): %w", chatID, err)
	}
	return messages, nil
}

// DeleteMessagesExcept deletes every message of the chat whose id is not in keep.
// An empty keep set is refused with ErrEmptyRetention.
func (s *Store) DeleteMessagesExcept(ctx context.Context, chatID int64, keep []int64) (int64, error) {
	if len(keep) == 0 {
		return 0, ErrEmptyRetention
	}
	query, args, err := sqlx.In(`DELETE FROM messages WHERE chat_id = ? AND id NOT IN (?)`, chatID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to build prune query: %w", err)
	}
	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune messages (chat %d): %w", chatID, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read pruned row count: %w", err)
	}
	s.logger.DebugContext(ctx, "Pruned messages", "chat_id", chatID, "deleted", deleted, "kept", len(keep))
	return deleted, nil
}

// InsertSummary persists a summary and fills its ID.
func (s *Store) InsertSummary(ctx context.Context, summary *Summary) error {
	switch {
	case summary == nil:
		return errors.New("cannot save nil summary")
	case summary.ChatID == 0:
		return errors.New("summary must have a non-zero chat_id")
	case summary.Text == "":
		return errors.New("summary must have non-empty text")
	case summary.MessageCount <= 0:
		return errors.New("summary must cover at least one message")
	case summary.DateFrom.After(summary.DateTo):
		return fmt.Errorf("summary span is inverted: %s after %s", summary.DateFrom, summary.DateTo)
	}

	summary.DateFrom = summary.DateFrom.UTC()
	summary.DateTo = summary.DateTo.UTC()
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	const query = `
        INSERT INTO summaries (chat_id, participants, text, date_from, date_to, message_count, created_at)
        VALUES (:chat_id, :participants, :text, :date_from, :date_to, :message_count, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, summary)
	if err != nil {
		return fmt.Errorf("failed to save summary (chat %d): %w", summary.ChatID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read inserted summary id: %w", err)
	}
	summary.ID = id

	s.logger.InfoContext(ctx, "Summary saved", "chat_id", summary.ChatID, "summary_id", id, "message_count", summary.MessageCount)
	return nil
}

// LatestSummaries returns up to limit summaries of the chat, most recent span first.
func (s *Store) LatestSummaries(ctx context.Context, chatID int64, limit int) ([]*Summary, error) {
	if limit <= 0 {
		return nil, nil
	}
	var summaries []*Summary
	query := `SELECT ` + summaryColumns + `
        FROM summaries
        WHERE chat_id = ?
        ORDER BY date_to DESC, id DESC
        LIMIT ?`
	if err := s.db.SelectContext(ctx, &summaries, query, chatID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch latest summaries (chat %d): %w", chatID, err)
	}
	return summaries, nil
}

// CountSummaries returns how many summaries the chat has.
func (s *Store) CountSummaries(ctx context.Context, chatID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM summaries WHERE chat_id = ?`, chatID); err != nil {
		return 0, fmt.Errorf("failed to count summaries (chat %d): %w", chatID, err)
	}
	return n, nil
}

// SummariesByIDs returns the summaries with the given ids that belong to the
// chat, ordered by span.
func (s *Store) SummariesByIDs(ctx context.Context, chatID int64, ids []int64) ([]*Summary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+summaryColumns+`
        FROM summaries
        WHERE chat_id = ? AND id IN (?)
        ORDER BY date_to ASC, id ASC`, chatID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build summaries query: %w", err)
	}
	var summaries []*Summary
	if err := s.db.SelectContext(ctx, &summaries, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to fetch summaries by id (chat %d): %w", chatID, err)
	}
	return summaries, nil
}

// SummariesWithoutEmbedding returns up to limit summaries with an id greater
// than afterID that have no row in summary_embeddings, oldest first.
func (s *Store) SummariesWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]*Summary, error) {
	var summaries []*Summary
	const query = `
        SELECT s.id, s.chat_id, s.participants, s.text, s.date_from, s.date_to, s.message_count, s.created_at
        FROM summaries s
        LEFT JOIN summary_embeddings e ON e.summary_id = s.id
        WHERE e.summary_id IS NULL AND s.id > ?
        ORDER BY s.id ASC
        LIMIT ?`
	if err := s.db.SelectContext(ctx, &summaries, query, afterID, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch summaries without embedding: %w", err)
	}
	return summaries, nil
}

// MoveChat reassigns every message and summary of fromChatID to toChatID,
// e.g. after a group was upgraded to a supergroup.
func (s *Store) MoveChat(ctx context.Context, fromChatID, toChatID int64) (messages, summaries int64, err error) {
	if fromChatID == 0 || toChatID == 0 || fromChatID == toChatID {
		return 0, 0, fmt.Errorf("invalid chat move %d -> %d", fromChatID, toChatID)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer s.rollback(ctx, tx)

	res, err := tx.ExecContext(ctx, `UPDATE messages SET chat_id = ? WHERE chat_id = ?`, toChatID, fromChatID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to move messages: %w", err)
	}
	messages, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `UPDATE summaries SET chat_id = ? WHERE chat_id = ?`, toChatID, fromChatID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to move summaries: %w", err)
	}
	summaries, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit chat move: %w", err)
	}
	return messages, summaries, nil
}

// RunSQLMaintenance refreshes planner statistics and executes VACUUM.
func (s *Store) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	// VACUUM cannot run inside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return fmt.Errorf("database maintenance (VACUUM) interrupted: %w", err)
	case err != nil:
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}
	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed")
	return nil
}

func (s *Store) rollback(ctx context.Context, tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.WarnContext(ctx, "Error rolling back transaction", "error", err)
	}
}
