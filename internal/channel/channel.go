// Package channel defines the bridge between messaging platforms and the
// relay. It provides the Channel interface, typing indicators, moderation
// capabilities, message chunking, and allow-list filtering.
package channel

import (
	"context"

	"github.com/Simonx22/telegram-assistant/internal/core"
	"github.com/Simonx22/telegram-assistant/pkg/message"
)

// Channel is the bridge between a messaging platform and the relay.
//
// A channel receives messages from its platform and pushes them to the relay
// via the inbox callback. It also receives outbound messages from the relay
// via Send(). Authorization is NOT the channel's job: the channel delivers
// every well-formed update and the relay applies policy, because the policy
// (reply "Unauthorized", leave groups) needs channel capabilities beyond a
// simple drop.
//
// Channels may optionally implement TypingChannel or ModeratedChannel for
// richer interactions.
type Channel interface {
	core.Module

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg message.OutboundMessage) error

	// SetInbox gives the channel a function to push inbound messages to the
	// relay. Called during wiring, before Start().
	SetInbox(fn func(msg message.InboundMessage) error)
}

// TypingChannel is implemented by channels that can show a typing indicator
// while a reply is being produced.
type TypingChannel interface {
	SendTyping(ctx context.Context, chat message.Chat) error
}

// ModeratedChannel is implemented by channels that can inspect group
// membership and leave a group. The relay uses it to enforce the group
// authorization policy.
type ModeratedChannel interface {
	// IsMember reports whether the given user is a member of the chat.
	IsMember(ctx context.Context, chat message.Chat, userID string) (bool, error)

	// Leave removes the bot from the chat.
	Leave(ctx context.Context, chat message.Chat) error
}
