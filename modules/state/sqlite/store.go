package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Simonx22/telegram-assistant/internal/conversation"
)

// StateStore is the SQLite implementation of conversation.StateStore.
type StateStore struct {
	db *sql.DB
}

var _ conversation.StateStore = (*StateStore)(nil)

// Get returns the stored state for a chat.
func (s *StateStore) Get(ctx context.Context, chatID string) (conversation.State, bool, error) {
	var token []byte
	var lastUsed int64
	err := s.db.QueryRowContext(ctx,
		`SELECT token, last_used FROM conversations WHERE chat_id = ?`, chatID).
		Scan(&token, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return conversation.State{}, false, nil
	}
	if err != nil {
		return conversation.State{}, false, fmt.Errorf("sqlite: get state: %w", err)
	}
	return conversation.State{
		ChatID:   chatID,
		Token:    token,
		LastUsed: time.Unix(lastUsed, 0).UTC(),
	}, true, nil
}

// Put stores the state for a chat, refreshing the last-used timestamp.
func (s *StateStore) Put(ctx context.Context, chatID string, token []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (chat_id, token, last_used) VALUES (?, ?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET token = excluded.token, last_used = excluded.last_used`,
		chatID, token, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite: put state: %w", err)
	}
	return nil
}

// Clear removes the state for a chat.
func (s *StateStore) Clear(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("sqlite: clear state: %w", err)
	}
	return nil
}

// PruneBefore removes states last used before the cutoff.
func (s *StateStore) PruneBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE last_used < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune states: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: prune states: %w", err)
	}
	return int(n), nil
}

// Len returns the number of stored conversations.
func (s *StateStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count states: %w", err)
	}
	return n, nil
}

// TranscriptStore is the SQLite implementation of conversation.TranscriptStore.
type TranscriptStore struct {
	db      *sql.DB
	maxRows int
}

var _ conversation.TranscriptStore = (*TranscriptStore)(nil)

// Append records an exchange and trims rows past the configured cap.
func (s *TranscriptStore) Append(ctx context.Context, ex conversation.Exchange) error {
	ts := ex.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcript (chat_id, sender_id, query, reply, ts) VALUES (?, ?, ?, ?, ?)`,
		ex.ChatID, ex.SenderID, ex.Query, ex.Reply, ts.Unix())
	if err != nil {
		return fmt.Errorf("sqlite: append transcript: %w", err)
	}

	if s.maxRows > 0 {
		_, err = s.db.ExecContext(ctx,
			`DELETE FROM transcript WHERE id <= (SELECT MAX(id) FROM transcript) - ?`, s.maxRows)
		if err != nil {
			return fmt.Errorf("sqlite: trim transcript: %w", err)
		}
	}
	return nil
}

// Recent returns up to limit exchanges, newest first. An empty chatID spans
// all chats.
func (s *TranscriptStore) Recent(ctx context.Context, chatID string, limit int) ([]conversation.Exchange, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT chat_id, sender_id, query, reply, ts FROM transcript ORDER BY id DESC LIMIT ?`
	args := []any{limit}
	if chatID != "" {
		query = `SELECT chat_id, sender_id, query, reply, ts FROM transcript WHERE chat_id = ? ORDER BY id DESC LIMIT ?`
		args = []any{chatID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query transcript: %w", err)
	}
	defer rows.Close()

	var out []conversation.Exchange
	for rows.Next() {
		var ex conversation.Exchange
		var ts int64
		if err := rows.Scan(&ex.ChatID, &ex.SenderID, &ex.Query, &ex.Reply, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scan transcript: %w", err)
		}
		ex.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate transcript: %w", err)
	}
	return out, nil
}
