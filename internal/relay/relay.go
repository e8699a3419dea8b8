// Package relay connects channels to the Assistant. It owns the inbound
// queue, the worker pool, the authorization policy, and conversation state
// handling.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Simonx22/telegram-assistant/internal/assistant"
	"github.com/Simonx22/telegram-assistant/internal/channel"
	"github.com/Simonx22/telegram-assistant/internal/conversation"
	"github.com/Simonx22/telegram-assistant/pkg/message"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
)

// Sentinel errors for relay submission.
var (
	// ErrQueueFull indicates the inbound queue is at capacity.
	ErrQueueFull = errors.New("relay: queue full")

	// ErrStopped indicates the relay is shutting down.
	ErrStopped = errors.New("relay: stopped")
)

// Config wires the relay's collaborators.
type Config struct {
	// Workers is the number of concurrent message processors.
	Workers int

	// QueueSize bounds the inbound queue.
	QueueSize int

	// AllowList controls who may use the Assistant. Required.
	AllowList *channel.AllowList

	// Channels routes outbound replies. Required.
	Channels *channel.Dispatcher

	// Assistant answers queries. Required.
	Assistant assistant.Assistant

	// States persists per-chat conversation state. Required.
	States conversation.StateStore

	// Transcripts records exchanges for the status API. Optional.
	Transcripts conversation.TranscriptStore

	// Events receives relay outcomes for live subscribers. Optional.
	Events *Broadcaster

	// Logger for relay activity. Defaults to slog.Default().
	Logger *slog.Logger

	// Registerer receives the relay's Prometheus collectors. Optional.
	Registerer prometheus.Registerer
}

// Relay is the message pump between channels and the Assistant.
type Relay struct {
	allow       *channel.AllowList
	channels    *channel.Dispatcher
	assistant   assistant.Assistant
	states      conversation.StateStore
	transcripts conversation.TranscriptStore
	events      *Broadcaster
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer

	queue   chan message.InboundMessage
	workers int

	chatLocks sync.Map // chat ID -> *sync.Mutex

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stopped atomic.Bool
}

// New creates a Relay from the given configuration.
func New(cfg Config) (*Relay, error) {
	if cfg.Assistant == nil {
		return nil, errors.New("relay: assistant is required")
	}
	if cfg.Channels == nil {
		return nil, errors.New("relay: channel dispatcher is required")
	}
	if cfg.States == nil {
		return nil, errors.New("relay: state store is required")
	}
	if cfg.AllowList.IsEmpty() {
		return nil, errors.New("relay: allow list must not be empty")
	}

	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.NewRegistry()
	}

	r := &Relay{
		allow:       cfg.AllowList,
		channels:    cfg.Channels,
		assistant:   cfg.Assistant,
		states:      cfg.States,
		transcripts: cfg.Transcripts,
		events:      cfg.Events,
		logger:      cfg.Logger,
		tracer:      otel.Tracer("github.com/Simonx22/telegram-assistant/internal/relay"),
		queue:       make(chan message.InboundMessage, cfg.QueueSize),
		workers:     cfg.Workers,
	}
	r.metrics = NewMetrics(cfg.Registerer, func() float64 {
		return float64(len(r.queue))
	})
	return r, nil
}

// Submit enqueues an inbound message for processing. It never blocks:
// when the queue is full the message is dropped with ErrQueueFull.
func (r *Relay) Submit(msg message.InboundMessage) error {
	if r.stopped.Load() {
		return ErrStopped
	}
	select {
	case r.queue <- msg:
		return nil
	default:
		r.metrics.Messages.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Start launches the worker pool.
func (r *Relay) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.work(ctx)
		}()
	}

	r.logger.Info("relay started", "workers", r.workers, "queue", cap(r.queue))
	return nil
}

// Stop drains nothing: in-flight messages finish, queued ones are dropped.
func (r *Relay) Stop(ctx context.Context) error {
	r.stopped.Store(true)
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("relay: shutdown timed out: %w", ctx.Err())
	}
}

func (r *Relay) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-r.queue:
			r.process(ctx, msg)
		}
	}
}

// process handles one inbound message end to end. Turns in the same chat
// are serialized so conversation state reads and writes never interleave.
func (r *Relay) process(ctx context.Context, msg message.InboundMessage) {
	ctx, span := r.tracer.Start(ctx, "relay.process",
		trace.WithAttributes(
			attribute.String("chat.id", msg.Chat.ID),
			attribute.String("chat.type", string(msg.Chat.Type)),
			attribute.String("channel", msg.Channel),
		))
	defer span.End()

	lock := r.lockChat(msg.Chat.ID)
	lock.Lock()
	defer lock.Unlock()

	switch r.evaluate(ctx, msg) {
	case actIgnore:
		r.metrics.Messages.WithLabelValues("ignored").Inc()

	case actDeny:
		r.deny(ctx, msg, false)

	case actDenyAndLeave:
		r.deny(ctx, msg, true)

	case actAnswer:
		r.answer(ctx, msg)
	}
}

func (r *Relay) lockChat(chatID string) *sync.Mutex {
	lock, _ := r.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (r *Relay) deny(ctx context.Context, msg message.InboundMessage, leave bool) {
	r.metrics.Messages.WithLabelValues("denied").Inc()
	r.logger.Warn("unauthorized message",
		"chat", msg.Chat.ID,
		"sender", msg.Sender.ID,
		"leave", leave)

	out := message.NewTextMessage(msg.Chat, unauthorizedReply)
	if err := r.channels.Send(ctx, msg.Channel, out); err != nil {
		r.logger.Error("denial reply failed", "chat", msg.Chat.ID, "error", err)
	}

	if leave {
		if ch, ok := r.channels.Get(msg.Channel); ok {
			if mod, ok := ch.(channel.ModeratedChannel); ok {
				if err := mod.Leave(ctx, msg.Chat); err != nil {
					r.logger.Error("leaving chat failed", "chat", msg.Chat.ID, "error", err)
				}
			}
		}
	}

	r.publish(Event{
		Type:      EventDenied,
		ChatID:    msg.Chat.ID,
		SenderID:  msg.Sender.ID,
		Timestamp: time.Now(),
	})
}

func (r *Relay) answer(ctx context.Context, msg message.InboundMessage) {
	text := msg.TextContent()
	if text == "" {
		// Media without a caption carries nothing to ask.
		r.metrics.Messages.WithLabelValues("unsupported").Inc()
		r.reply(ctx, msg, "Send me text and I will ask the Assistant.")
		return
	}

	switch command(text) {
	case "/start":
		r.metrics.Messages.WithLabelValues("command").Inc()
		r.reply(ctx, msg, "Hi! Send me a message and I will ask the Google Assistant for you.")
		return
	case "/reset":
		r.handleReset(ctx, msg)
		return
	}

	r.relayQuery(ctx, msg, text)
}

func (r *Relay) handleReset(ctx context.Context, msg message.InboundMessage) {
	r.metrics.Messages.WithLabelValues("command").Inc()

	if err := r.states.Clear(ctx, msg.Chat.ID); err != nil {
		r.logger.Error("clearing conversation failed", "chat", msg.Chat.ID, "error", err)
		r.reply(ctx, msg, "Could not reset the conversation. Try again.")
		return
	}

	r.reply(ctx, msg, "Conversation reset.")
	r.publish(Event{
		Type:      EventReset,
		ChatID:    msg.Chat.ID,
		SenderID:  msg.Sender.ID,
		Timestamp: time.Now(),
	})
}

func (r *Relay) relayQuery(ctx context.Context, msg message.InboundMessage, text string) {
	r.sendTyping(ctx, msg)

	var state []byte
	if st, ok, err := r.states.Get(ctx, msg.Chat.ID); err != nil {
		r.logger.Warn("loading conversation state failed", "chat", msg.Chat.ID, "error", err)
	} else if ok {
		state = st.Token
	}

	start := time.Now()
	reply, err := r.assistant.Assist(ctx, assistant.Query{
		Text:              text,
		ConversationState: state,
	})
	r.metrics.AssistLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		class := classify(err)
		r.metrics.Messages.WithLabelValues("error").Inc()
		r.metrics.AssistErrors.WithLabelValues(class).Inc()
		r.logger.Error("assist call failed",
			"chat", msg.Chat.ID,
			"class", class,
			"error", err)

		r.reply(ctx, msg, fallbackText(err))
		r.publish(Event{
			Type:      EventFailed,
			ChatID:    msg.Chat.ID,
			SenderID:  msg.Sender.ID,
			Query:     text,
			Error:     class,
			Timestamp: time.Now(),
		})
		return
	}

	if len(reply.ConversationState) > 0 {
		if err := r.states.Put(ctx, msg.Chat.ID, reply.ConversationState); err != nil {
			r.logger.Warn("storing conversation state failed", "chat", msg.Chat.ID, "error", err)
		}
	}

	display := reply.DisplayText
	if display == "" && !reply.HasAudio() {
		display = "The Assistant had no answer to display for that."
	}

	out := message.OutboundMessage{Chat: msg.Chat}
	if msg.Chat.IsGroup() {
		out.ReplyToID = msg.ID
	}
	if display != "" {
		out.Blocks = append(out.Blocks, message.NewTextBlock(display))
	}
	if reply.HasAudio() {
		out.Blocks = append(out.Blocks,
			message.NewAudioPayloadBlock(reply.Audio, reply.AudioMIMEType, "reply.wav", true))
	}

	if err := r.channels.Send(ctx, msg.Channel, out); err != nil {
		r.metrics.Messages.WithLabelValues("error").Inc()
		r.logger.Error("sending reply failed", "chat", msg.Chat.ID, "error", err)
		return
	}

	r.metrics.Messages.WithLabelValues("answered").Inc()
	r.record(ctx, msg, text, display)
	r.publish(Event{
		Type:      EventAnswered,
		ChatID:    msg.Chat.ID,
		SenderID:  msg.Sender.ID,
		Query:     text,
		Reply:     display,
		Timestamp: time.Now(),
	})
}

// sendTyping shows a typing indicator while the Assistant thinks.
// Best effort.
func (r *Relay) sendTyping(ctx context.Context, msg message.InboundMessage) {
	ch, ok := r.channels.Get(msg.Channel)
	if !ok {
		return
	}
	if typing, ok := ch.(channel.TypingChannel); ok {
		if err := typing.SendTyping(ctx, msg.Chat); err != nil {
			r.logger.Debug("typing indicator failed", "chat", msg.Chat.ID, "error", err)
		}
	}
}

func (r *Relay) reply(ctx context.Context, msg message.InboundMessage, text string) {
	out := message.NewTextMessage(msg.Chat, text)
	if msg.Chat.IsGroup() {
		out.ReplyToID = msg.ID
	}
	if err := r.channels.Send(ctx, msg.Channel, out); err != nil {
		r.logger.Error("sending reply failed", "chat", msg.Chat.ID, "error", err)
	}
}

func (r *Relay) record(ctx context.Context, msg message.InboundMessage, query, reply string) {
	if r.transcripts == nil {
		return
	}
	err := r.transcripts.Append(ctx, conversation.Exchange{
		ChatID:    msg.Chat.ID,
		SenderID:  msg.Sender.ID,
		Query:     query,
		Reply:     reply,
		Timestamp: time.Now(),
	})
	if err != nil {
		r.logger.Warn("recording exchange failed", "chat", msg.Chat.ID, "error", err)
	}
}

func (r *Relay) publish(ev Event) {
	if r.events != nil {
		r.events.Publish(ev)
	}
}

// classify buckets an assist error for logs and metrics.
func classify(err error) string {
	switch {
	case errors.Is(err, assistant.ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, assistant.ErrDeadline):
		return "deadline"
	case errors.Is(err, assistant.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, assistant.ErrQuota):
		return "quota"
	case errors.Is(err, assistant.ErrEmptyQuery):
		return "empty"
	default:
		return "internal"
	}
}

// fallbackText is the user-facing reply for a failed assist call.
func fallbackText(err error) string {
	switch {
	case errors.Is(err, assistant.ErrUnauthenticated):
		return "The Assistant rejected my credentials. The operator needs to refresh them."
	case errors.Is(err, assistant.ErrDeadline):
		return "The Assistant took too long to answer. Please try again."
	case errors.Is(err, assistant.ErrUnavailable):
		return "The Assistant is unreachable right now. Please try again later."
	case errors.Is(err, assistant.ErrQuota):
		return "The Assistant API quota is exhausted. Please try again later."
	default:
		return "Something went wrong while talking to the Assistant."
	}
}
