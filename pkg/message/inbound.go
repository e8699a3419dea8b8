package message

import (
	"encoding/json"
	"time"
)

// InboundMessage is a Telegram update after conversion to the channel-neutral
// form consumed by the relay. Raw keeps the original update for transcript
// storage and debugging.
type InboundMessage struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Channel   string          `json:"channel"`
	Sender    Sender          `json:"sender"`
	Chat      Chat            `json:"chat"`
	ReplyToID string          `json:"reply_to_id,omitempty"`
	Blocks    []ContentBlock  `json:"blocks"`
	Mentions  *Mentions       `json:"mentions,omitempty"`
	Raw       json.RawMessage `json:"raw,omitempty"`
}

// MarshalJSON normalizes empty Mentions to nil so a message with no mentions
// omits the field entirely.
func (m InboundMessage) MarshalJSON() ([]byte, error) {
	if m.Mentions.IsEmpty() {
		m.Mentions = nil
	}
	type plain InboundMessage
	return json.Marshal(plain(m))
}

// TextContent concatenates the text blocks. This is the string handed to the
// Assistant as the query.
func (m *InboundMessage) TextContent() string {
	return textContent(m.Blocks)
}

// HasMedia reports whether the message carries audio, image, or file blocks.
func (m *InboundMessage) HasMedia() bool {
	return hasMedia(m.Blocks)
}

// IsGroup reports whether the message was sent in a group chat.
func (m *InboundMessage) IsGroup() bool {
	return m.Chat.IsGroup()
}

// IsDirectMessage reports whether the message was sent in a one-on-one chat.
func (m *InboundMessage) IsDirectMessage() bool {
	return m.Chat.IsDirectMessage()
}
