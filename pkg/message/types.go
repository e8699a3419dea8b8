// Package message defines the platform-agnostic data contract between the
// Telegram channel and the relay. It covers text, media references, and
// in-memory audio payloads produced by the Assistant.
package message

// ChatType indicates the kind of conversation.
type ChatType string

const (
	// ChatDM is a direct (one-to-one) conversation.
	ChatDM ChatType = "dm"
	// ChatGroup is a multi-participant group conversation.
	ChatGroup ChatType = "group"
	// ChatBroadcast is a one-to-many broadcast channel.
	ChatBroadcast ChatType = "broadcast"
)

// BlockType discriminates the variant stored in a ContentBlock.
type BlockType string

// Supported block types.
const (
	BlockText  BlockType = "text"
	BlockAudio BlockType = "audio"
	BlockImage BlockType = "image"
	BlockFile  BlockType = "file"
	BlockRaw   BlockType = "raw"
)

// Sender identifies the author of an inbound message. ID is the Telegram
// user ID in decimal form; the allowlist matches against it.
type Sender struct {
	ID          string `json:"id"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Chat identifies the conversation a message belongs to. ID is the Telegram
// chat ID in decimal form, negative for groups.
type Chat struct {
	ID    string   `json:"id"`
	Type  ChatType `json:"type"`
	Title string   `json:"title,omitempty"`
}

// IsGroup reports whether the chat is a group conversation.
func (c Chat) IsGroup() bool {
	return c.Type == ChatGroup
}

// IsDirectMessage reports whether the chat is a one-on-one conversation.
func (c Chat) IsDirectMessage() bool {
	return c.Type == ChatDM
}

// Mentions records who a message mentioned. Group messages are only relayed
// to the Assistant when IsMentioned is set.
type Mentions struct {
	// IDs lists the mentioned Telegram user IDs.
	IDs []string `json:"ids,omitempty"`
	// IsMentioned is true when the bot itself was mentioned.
	IsMentioned bool `json:"is_mentioned,omitempty"`
}

// IsEmpty reports whether the Mentions carries no data.
func (m *Mentions) IsEmpty() bool {
	return m == nil || (len(m.IDs) == 0 && !m.IsMentioned)
}
