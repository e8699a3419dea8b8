package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Simonx22/telegram-assistant/internal/assistant"
	"github.com/Simonx22/telegram-assistant/internal/channel"
	"github.com/Simonx22/telegram-assistant/internal/conversation"
	"github.com/Simonx22/telegram-assistant/internal/core"
	"github.com/Simonx22/telegram-assistant/pkg/message"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAssistant returns scripted replies and records queries.
type fakeAssistant struct {
	mu      sync.Mutex
	queries []assistant.Query
	reply   assistant.Reply
	err     error
}

func (f *fakeAssistant) Assist(ctx context.Context, q assistant.Query) (assistant.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.err != nil {
		return assistant.Reply{}, f.err
	}
	return f.reply, nil
}

// fakeChannel records sends, typing and moderation calls.
type fakeChannel struct {
	mu      sync.Mutex
	sent    []message.OutboundMessage
	left    []string
	typing  int
	members map[string]bool // userID -> is member
}

func (f *fakeChannel) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "channel.fake", New: func() core.Module { return f }}
}

func (f *fakeChannel) Send(ctx context.Context, msg message.OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) SetInbox(fn func(msg message.InboundMessage) error) {}

func (f *fakeChannel) SendTyping(ctx context.Context, chat message.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeChannel) IsMember(ctx context.Context, chat message.Chat, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[userID], nil
}

func (f *fakeChannel) Leave(ctx context.Context, chat message.Chat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, chat.ID)
	return nil
}

func (f *fakeChannel) lastSent(t *testing.T) *message.OutboundMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("no messages sent")
	}
	m := f.sent[len(f.sent)-1]
	return &m
}

func (f *fakeChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fixture struct {
	relay     *Relay
	channel   *fakeChannel
	assistant *fakeAssistant
	states    *conversation.MemStateStore
	records   *conversation.MemTranscriptStore
	events    *Broadcaster
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ch := &fakeChannel{members: make(map[string]bool)}
	dispatcher := channel.NewDispatcher()
	if err := dispatcher.Register("telegram", ch); err != nil {
		t.Fatal(err)
	}

	fa := &fakeAssistant{reply: assistant.Reply{
		DisplayText:       "the answer",
		ConversationState: []byte("state-1"),
		MicrophoneMode:    assistant.MicrophoneClosed,
	}}
	states := conversation.NewMemStateStore()
	records := conversation.NewMemTranscriptStore(16)
	events := NewBroadcaster()

	r, err := New(Config{
		AllowList:   channel.NewAllowList([]string{"100"}, []string{"-500"}),
		Channels:    dispatcher,
		Assistant:   fa,
		States:      states,
		Transcripts: records,
		Events:      events,
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{relay: r, channel: ch, assistant: fa, states: states, records: records, events: events}
}

func dmFrom(sender, text string) message.InboundMessage {
	return message.InboundMessage{
		ID:        "1",
		Timestamp: time.Now(),
		Channel:   "telegram",
		Sender:    message.Sender{ID: sender},
		Chat:      message.Chat{ID: sender, Type: message.ChatDM},
		Blocks:    []message.ContentBlock{message.NewTextBlock(text)},
	}
}

func groupFrom(sender, chat, text string, mentioned bool) message.InboundMessage {
	msg := message.InboundMessage{
		ID:      "2",
		Channel: "telegram",
		Sender:  message.Sender{ID: sender},
		Chat:    message.Chat{ID: chat, Type: message.ChatGroup},
		Blocks:  []message.ContentBlock{message.NewTextBlock(text)},
	}
	if mentioned {
		msg.Mentions = &message.Mentions{IsMentioned: true}
	}
	return msg
}

func TestAuthorizedDMAnswered(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.relay.process(context.Background(), dmFrom("100", "what time is it"))

	out := f.channel.lastSent(t)
	if got := out.TextContent(); got != "the answer" {
		t.Errorf("reply = %q, want assistant display text", got)
	}
	if f.channel.typing == 0 {
		t.Error("typing indicator was not sent")
	}

	st, ok, _ := f.states.Get(context.Background(), "100")
	if !ok || string(st.Token) != "state-1" {
		t.Errorf("conversation state not stored: %v %q", ok, st.Token)
	}

	recent, _ := f.records.Recent(context.Background(), "100", 1)
	if len(recent) != 1 || recent[0].Query != "what time is it" {
		t.Errorf("transcript = %+v", recent)
	}
}

func TestUnauthorizedDMDenied(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.relay.process(context.Background(), dmFrom("999", "hello"))

	out := f.channel.lastSent(t)
	if got := out.TextContent(); got != "Unauthorized" {
		t.Errorf("reply = %q, want Unauthorized", got)
	}
	if len(f.assistant.queries) != 0 {
		t.Error("unauthorized queries must never reach the assistant")
	}
}

func TestConversationStateCarriedAcrossTurns(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.relay.process(ctx, dmFrom("100", "first"))
	if len(f.assistant.queries[0].ConversationState) != 0 {
		t.Error("first turn should start with empty state")
	}

	f.relay.process(ctx, dmFrom("100", "second"))
	if string(f.assistant.queries[1].ConversationState) != "state-1" {
		t.Errorf("second turn state = %q, want token from first reply", f.assistant.queries[1].ConversationState)
	}
}

func TestGroupWithoutMentionIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.relay.process(context.Background(), groupFrom("100", "-500", "chatter", false))

	if f.channel.sentCount() != 0 {
		t.Error("unmentioned group messages must be ignored silently")
	}
	if len(f.assistant.queries) != 0 {
		t.Error("unmentioned group messages must not reach the assistant")
	}
}

func TestGroupMentionFromAllowedUserAnswered(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.relay.process(context.Background(), groupFrom("100", "-999", "weather?", true))

	out := f.channel.lastSent(t)
	if out.TextContent() != "the answer" {
		t.Errorf("reply = %q", out.TextContent())
	}
	if out.ReplyToID != "2" {
		t.Errorf("group replies should thread to the question, got ReplyToID %q", out.ReplyToID)
	}
}

func TestGroupMentionInAllowedChatAnswered(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.relay.process(context.Background(), groupFrom("777", "-500", "weather?", true))

	if f.channel.lastSent(t).TextContent() != "the answer" {
		t.Error("allowed chats should serve any member")
	}
}

func TestGroupUnauthorizedLeavesWhenNoAllowedMember(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.relay.process(context.Background(), groupFrom("777", "-999", "hi", true))

	if f.channel.lastSent(t).TextContent() != "Unauthorized" {
		t.Error("expected Unauthorized reply")
	}
	if len(f.channel.left) != 1 || f.channel.left[0] != "-999" {
		t.Errorf("bot should leave the group, left = %v", f.channel.left)
	}
}

func TestGroupUnauthorizedStaysWhenAllowedMemberPresent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.channel.members["100"] = true

	f.relay.process(context.Background(), groupFrom("777", "-999", "hi", true))

	if f.channel.lastSent(t).TextContent() != "Unauthorized" {
		t.Error("expected Unauthorized reply")
	}
	if len(f.channel.left) != 0 {
		t.Errorf("bot should stay when an allowed user is a member, left = %v", f.channel.left)
	}
}

func TestMembershipCheckUsesMessageChannel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	// A second registration name must still reach the right channel for
	// the membership check.
	ch := &fakeChannel{members: map[string]bool{"100": true}}
	if err := f.relay.channels.Register("telegram-beta", ch); err != nil {
		t.Fatal(err)
	}

	msg := groupFrom("777", "-999", "hi", true)
	msg.Channel = "telegram-beta"
	f.relay.process(context.Background(), msg)

	if ch.lastSent(t).TextContent() != "Unauthorized" {
		t.Error("expected Unauthorized reply")
	}
	if len(ch.left) != 0 {
		t.Errorf("bot should stay when an allowed user is a member, left = %v", ch.left)
	}
}

func TestResetCommandClearsState(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.relay.process(ctx, dmFrom("100", "remember this"))
	if _, ok, _ := f.states.Get(ctx, "100"); !ok {
		t.Fatal("state should exist after a turn")
	}

	f.relay.process(ctx, dmFrom("100", "/reset"))
	if _, ok, _ := f.states.Get(ctx, "100"); ok {
		t.Error("state should be cleared by /reset")
	}
	if f.channel.lastSent(t).TextContent() != "Conversation reset." {
		t.Errorf("reset reply = %q", f.channel.lastSent(t).TextContent())
	}
	if len(f.assistant.queries) != 1 {
		t.Error("/reset must not be forwarded to the assistant")
	}
}

func TestResetCommandGroupForm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want string
	}{
		{"/reset", "/reset"},
		{"/reset@mybot", "/reset"},
		{"/RESET", "/reset"},
		{"/reset please", "/reset"},
		{"reset", ""},
		{"hello /reset", ""},
	}
	for _, tt := range tests {
		if got := command(tt.text); got != tt.want {
			t.Errorf("command(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestAssistErrorSendsFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"deadline", assistant.ErrDeadline, "The Assistant took too long to answer. Please try again."},
		{"unavailable", assistant.ErrUnavailable, "The Assistant is unreachable right now. Please try again later."},
		{"unauthenticated", assistant.ErrUnauthenticated, "The Assistant rejected my credentials. The operator needs to refresh them."},
		{"quota", assistant.ErrQuota, "The Assistant API quota is exhausted. Please try again later."},
		{"other", errors.New("boom"), "Something went wrong while talking to the Assistant."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.assistant.err = fmt.Errorf("wrapped: %w", tt.err)

			f.relay.process(context.Background(), dmFrom("100", "hi"))
			if got := f.channel.lastSent(t).TextContent(); got != tt.want {
				t.Errorf("fallback = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAudioReplyAttached(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.assistant.reply.Audio = []byte("RIFF....")
	f.assistant.reply.AudioMIMEType = "audio/wav"

	f.relay.process(context.Background(), dmFrom("100", "sing"))

	out := f.channel.lastSent(t)
	if !out.HasMedia() {
		t.Fatal("reply should carry an audio block")
	}
	var found bool
	for _, b := range out.Blocks {
		if b.Type == message.BlockAudio && len(b.Payload) > 0 && b.IsVoice {
			found = true
		}
	}
	if !found {
		t.Error("audio block should carry the payload as a voice note")
	}
}

func TestMediaOnlyMessageGetsHint(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	msg := dmFrom("100", "")
	msg.Blocks = []message.ContentBlock{message.NewImageBlock("tg://file_id/x", "image/jpeg")}
	f.relay.process(context.Background(), msg)

	if got := f.channel.lastSent(t).TextContent(); got != "Send me text and I will ask the Assistant." {
		t.Errorf("hint = %q", got)
	}
	if len(f.assistant.queries) != 0 {
		t.Error("media-only messages must not reach the assistant")
	}
}

func TestSubmitQueueFull(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	small, err := New(Config{
		QueueSize: 1,
		AllowList: channel.NewAllowList([]string{"100"}, nil),
		Channels:  channel.NewDispatcher(),
		Assistant: f.assistant,
		States:    f.states,
		Logger:    discardLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}

	// Workers are not started, so the queue never drains.
	if err := small.Submit(dmFrom("100", "one")); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	if err := small.Submit(dmFrom("100", "two")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("second Submit = %v, want ErrQueueFull", err)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	if err := f.relay.Start(); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.relay.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	if err := f.relay.Submit(dmFrom("100", "late")); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit after Stop = %v, want ErrStopped", err)
	}
}

func TestNewRejectsEmptyAllowList(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := New(Config{
		AllowList: channel.NewAllowList(nil, nil),
		Channels:  channel.NewDispatcher(),
		Assistant: f.assistant,
		States:    f.states,
		Logger:    discardLogger(),
	})
	if err == nil {
		t.Error("empty allow list must be rejected")
	}
}

func TestEventsPublished(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	events, cancel := f.events.Subscribe()
	defer cancel()

	f.relay.process(context.Background(), dmFrom("100", "hello"))

	select {
	case ev := <-events:
		if ev.Type != EventAnswered || ev.ChatID != "100" || ev.Reply != "the answer" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestBroadcasterDropsWhenSlow(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	_, cancel := b.Subscribe()
	defer cancel()

	// Publishing far more than the buffer must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(Event{Type: EventAnswered})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
