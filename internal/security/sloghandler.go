package security

import (
	"context"
	"log/slog"
)

// RedactingHandler wraps a slog.Handler and masks secrets in the message
// and every string-valued attribute before the record reaches the sink.
// The bot token and OAuth material routinely ride along in error values,
// so redaction happens here rather than at each call site.
type RedactingHandler struct {
	next     slog.Handler
	redactor *Redactor
	attrs    []slog.Attr
}

var _ slog.Handler = (*RedactingHandler)(nil)

// NewRedactingHandler creates a handler that applies redactor to every
// record before passing it to next.
func NewRedactingHandler(next slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{next: next, redactor: redactor}
}

// Enabled delegates to the wrapped handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle masks the record message and attribute values, then delegates.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, h.redactor.Redact(record.Message), record.PC)
	clean.AddAttrs(h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.scrub(a))
		return true
	})
	return h.next.Handle(ctx, clean)
}

// WithAttrs redacts the attributes up front and folds them into the
// wrapped handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		scrubbed[i] = h.scrub(a)
	}
	return &RedactingHandler{next: h.next.WithAttrs(scrubbed), redactor: h.redactor}
}

// WithGroup delegates the group to the wrapped handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{next: h.next.WithGroup(name), redactor: h.redactor, attrs: h.attrs}
}

// scrub recursively masks string values in an attribute.
func (h *RedactingHandler) scrub(a slog.Attr) slog.Attr {
	// Resolve first so LogValuer, error, and fmt.Stringer types are
	// reduced to their final representation.
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(h.redactor.Redact(a.Value.String()))
	case slog.KindAny:
		// Error attributes land here; their messages carry whatever the
		// failing request carried.
		text := a.Value.String()
		if masked := h.redactor.Redact(text); masked != text {
			a.Value = slog.StringValue(masked)
		}
	case slog.KindGroup:
		members := a.Value.Group()
		scrubbed := make([]slog.Attr, len(members))
		for i, m := range members {
			scrubbed[i] = h.scrub(m)
		}
		a.Value = slog.GroupValue(scrubbed...)
	}
	return a
}
