package conversation

import (
	"context"
	"sync"
	"time"
)

// Compile-time interface guards.
var (
	_ StateStore      = (*MemStateStore)(nil)
	_ TranscriptStore = (*MemTranscriptStore)(nil)
)

// MemStateStore is an in-memory StateStore. Used in tests and as a fallback
// when no persistent state module is configured.
type MemStateStore struct {
	mu     sync.RWMutex
	states map[string]State
	now    func() time.Time
}

// NewMemStateStore creates an empty in-memory state store.
func NewMemStateStore() *MemStateStore {
	return &MemStateStore{
		states: make(map[string]State),
		now:    time.Now,
	}
}

// Get implements StateStore.
func (s *MemStateStore) Get(_ context.Context, chatID string) (State, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[chatID]
	return st, ok, nil
}

// Put implements StateStore.
func (s *MemStateStore) Put(_ context.Context, chatID string, token []byte) error {
	cp := make([]byte, len(token))
	copy(cp, token)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = State{
		ChatID:   chatID,
		Token:    cp,
		LastUsed: s.now(),
	}
	return nil
}

// Clear implements StateStore.
func (s *MemStateStore) Clear(_ context.Context, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
	return nil
}

// PruneBefore implements StateStore.
func (s *MemStateStore) PruneBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned int
	for id, st := range s.states {
		if st.LastUsed.Before(cutoff) {
			delete(s.states, id)
			pruned++
		}
	}
	return pruned, nil
}

// Len implements StateStore.
func (s *MemStateStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states), nil
}

// MemTranscriptStore is an in-memory ring of recent exchanges.
type MemTranscriptStore struct {
	mu       sync.RWMutex
	entries  []Exchange
	capacity int
}

// NewMemTranscriptStore creates a transcript store keeping at most capacity
// exchanges (oldest evicted first). A capacity <= 0 defaults to 256.
func NewMemTranscriptStore(capacity int) *MemTranscriptStore {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemTranscriptStore{capacity: capacity}
}

// Append implements TranscriptStore.
func (s *MemTranscriptStore) Append(_ context.Context, ex Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, ex)
	if len(s.entries) > s.capacity {
		s.entries = s.entries[len(s.entries)-s.capacity:]
	}
	return nil
}

// Recent implements TranscriptStore.
func (s *MemTranscriptStore) Recent(_ context.Context, chatID string, limit int) ([]Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Exchange
	for i := len(s.entries) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		if chatID != "" && s.entries[i].ChatID != chatID {
			continue
		}
		result = append(result, s.entries[i])
	}
	return result, nil
}
