package gateway

import (
	"net/http"
	"sync"
)

// WebhookDispatcher routes inbound webhook requests to the handler a
// channel registered for its source name. It is created before module
// loading so channels can register regardless of load order.
type WebhookDispatcher struct {
	mu       sync.RWMutex
	handlers map[string]http.Handler
}

// NewWebhookDispatcher creates an empty dispatcher.
func NewWebhookDispatcher() *WebhookDispatcher {
	return &WebhookDispatcher{handlers: make(map[string]http.Handler)}
}

// RegisterSource registers a handler for the given source name.
// Re-registering a source overwrites the previous handler.
func (d *WebhookDispatcher) RegisterSource(source string, handler http.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[source] = handler
}

// Handler returns the handler for a source, or false if none.
func (d *WebhookDispatcher) Handler(source string) (http.Handler, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	h, ok := d.handlers[source]
	return h, ok
}

// Sources returns the registered source names.
func (d *WebhookDispatcher) Sources() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		out = append(out, name)
	}
	return out
}
