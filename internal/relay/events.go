package relay

import (
	"sync"
	"time"
)

// EventType classifies relay events.
type EventType string

// Relay event types.
const (
	EventAnswered EventType = "answered"
	EventDenied   EventType = "denied"
	EventFailed   EventType = "failed"
	EventReset    EventType = "reset"
)

// Event is one relay outcome, published to live subscribers (the gateway's
// websocket endpoint).
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id,omitempty"`
	Query     string    `json:"query,omitempty"`
	Reply     string    `json:"reply,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster fans relay events out to subscribers. Slow subscribers drop
// events rather than stall the relay.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events and a cancel function. The channel
// is closed when cancel is called.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers an event to all subscribers without blocking.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
