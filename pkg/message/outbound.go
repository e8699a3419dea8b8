package message

// OutboundMessage is an Assistant reply (or a canned notice) on its way back
// to Telegram. A reply can pair a text block with an audio payload block; the
// channel sends each block with the matching Bot API method.
type OutboundMessage struct {
	Chat      Chat           `json:"chat"`
	ReplyToID string         `json:"reply_to_id,omitempty"`
	Blocks    []ContentBlock `json:"blocks"`
	Hints     *OutboundHints `json:"hints,omitempty"`
}

// OutboundHints carries optional per-message delivery options. The zero value
// means defaults apply.
type OutboundHints struct {
	DisablePreview      bool   `json:"disable_preview,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ParseMode           string `json:"parse_mode,omitempty"`
}

// NewTextMessage builds an outbound message holding a single text block.
func NewTextMessage(chat Chat, text string) OutboundMessage {
	return OutboundMessage{
		Chat:   chat,
		Blocks: []ContentBlock{NewTextBlock(text)},
	}
}

// TextContent concatenates the text blocks.
func (m *OutboundMessage) TextContent() string {
	return textContent(m.Blocks)
}

// HasMedia reports whether the message carries audio, image, or file blocks.
func (m *OutboundMessage) HasMedia() bool {
	return hasMedia(m.Blocks)
}
