// Package conversation defines storage contracts for per-chat Assistant
// dialog state and the exchange transcript. An in-memory implementation
// lives here; the persistent one in modules/state/sqlite.
package conversation

import (
	"context"
	"time"
)

// State is the per-chat dialog state handed back by the Assistant.
// The token is opaque: it is stored and echoed, never inspected.
type State struct {
	ChatID   string
	Token    []byte
	LastUsed time.Time
}

// StateStore persists per-chat conversation state between turns.
type StateStore interface {
	// Get returns the state for a chat, or false if none is stored.
	Get(ctx context.Context, chatID string) (State, bool, error)

	// Put stores the state for a chat, overwriting any previous value and
	// refreshing the last-used timestamp.
	Put(ctx context.Context, chatID string, token []byte) error

	// Clear removes the state for a chat. Clearing a chat with no state
	// is not an error.
	Clear(ctx context.Context, chatID string) error

	// PruneBefore removes every state last used before the cutoff and
	// returns the number removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Len returns the number of stored conversations.
	Len(ctx context.Context) (int, error)
}

// Exchange is one relayed question/answer pair.
type Exchange struct {
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Query     string    `json:"query"`
	Reply     string    `json:"reply"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore records relayed exchanges for the status API.
type TranscriptStore interface {
	// Append records an exchange.
	Append(ctx context.Context, ex Exchange) error

	// Recent returns up to limit exchanges for a chat, newest first.
	// An empty chatID returns exchanges across all chats.
	Recent(ctx context.Context, chatID string, limit int) ([]Exchange, error)
}
