package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/Simonx22/telegram-assistant/pkg/message"
)

// Dispatcher routes outbound messages to the channel they name. The relay
// holds one and never talks to a concrete channel type directly.
type Dispatcher struct {
	mu     sync.RWMutex
	byName map[string]Channel
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{byName: make(map[string]Channel)}
}

// Register adds a channel under the given name.
// Returns ErrDuplicateChannel if the name is already taken.
func (d *Dispatcher) Register(name string, ch Channel) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, taken := d.byName[name]; taken {
		return fmt.Errorf("%w: %s", ErrDuplicateChannel, name)
	}
	d.byName[name] = ch
	return nil
}

// Get returns the channel registered under name, or false if none.
func (d *Dispatcher) Get(name string) (Channel, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ch, ok := d.byName[name]
	return ch, ok
}

// Send dispatches an outbound message to the named channel.
// It returns ErrNoChannel if no channel is registered under that name.
func (d *Dispatcher) Send(ctx context.Context, channelName string, msg message.OutboundMessage) error {
	ch, ok := d.Get(channelName)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoChannel, channelName)
	}
	return ch.Send(ctx, msg)
}
