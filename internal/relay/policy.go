package relay

import (
	"context"
	"strings"
	"time"

	"github.com/Simonx22/telegram-assistant/internal/channel"
	"github.com/Simonx22/telegram-assistant/pkg/message"
)

// action is the policy verdict for an inbound message.
type action int

const (
	// actIgnore drops the message silently.
	actIgnore action = iota
	// actAnswer relays the message to the Assistant.
	actAnswer
	// actDeny replies "Unauthorized" without relaying.
	actDeny
	// actDenyAndLeave denies and removes the bot from the group.
	actDenyAndLeave
)

const unauthorizedReply = "Unauthorized"

// evaluate applies the authorization policy.
//
// Direct messages: only allow-listed users get answers; everyone else gets
// an explicit denial so a misconfigured user ID is visible instead of the
// bot appearing dead.
//
// Groups: the bot only reacts when mentioned. A mention is answered when
// the sender is allow-listed or the chat is. Otherwise the bot denies and
// leaves the group — unless some allow-listed user is still a member, which
// covers the operator adding the bot to their own group and friends using
// it there.
//
// Broadcast channels are ignored entirely.
func (r *Relay) evaluate(ctx context.Context, msg message.InboundMessage) action {
	switch {
	case msg.Chat.IsDirectMessage():
		if r.allow.AllowsUser(msg.Sender.ID) {
			return actAnswer
		}
		return actDeny

	case msg.Chat.IsGroup():
		if !mentioned(msg) {
			return actIgnore
		}
		if r.allow.AllowsUser(msg.Sender.ID) || r.allow.AllowsChat(msg.Chat.ID) {
			return actAnswer
		}
		if r.allowedUserInChat(ctx, msg.Channel, msg.Chat) {
			return actDeny
		}
		return actDenyAndLeave
	}

	return actIgnore
}

func mentioned(msg message.InboundMessage) bool {
	return msg.Mentions != nil && msg.Mentions.IsMentioned
}

// allowedUserInChat reports whether any allow-listed user is a member of
// the chat. Requires the channel to support moderation; without it the
// check fails closed.
func (r *Relay) allowedUserInChat(ctx context.Context, channelName string, chat message.Chat) bool {
	ch, ok := r.channels.Get(channelName)
	if !ok {
		return false
	}
	mod, ok := ch.(channel.ModeratedChannel)
	if !ok {
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for _, userID := range r.allow.Users() {
		member, err := mod.IsMember(checkCtx, chat, userID)
		if err != nil {
			r.logger.Warn("membership check failed",
				"chat", chat.ID,
				"user", userID,
				"error", err)
			continue
		}
		if member {
			return true
		}
	}
	return false
}

// command extracts a leading bot command from the message text, normalizing
// the group form "/reset@botname" to "/reset". Returns "" when the text is
// not a command.
func command(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd := text
	if i := strings.IndexAny(cmd, " \t\n"); i >= 0 {
		cmd = cmd[:i]
	}
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}
