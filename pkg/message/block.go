package message

import (
	"encoding/json"
	"strings"
)

// ContentBlock is a flat union representing one piece of content inside a
// message. The Type field discriminates which fields are meaningful.
//
// Media can be carried either by reference (URL, possibly a platform-specific
// scheme such as tg://file_id/...) or in memory via Payload. Payload is never
// serialized; it exists so the Assistant's synthesized audio can reach the
// Telegram uploader without a round trip through external storage.
type ContentBlock struct {
	Type     BlockType       `json:"type"`
	Text     string          `json:"text,omitempty"`
	URL      string          `json:"url,omitempty"`
	MIMEType string          `json:"mime_type,omitempty"`
	FileName string          `json:"file_name,omitempty"`
	Caption  string          `json:"caption,omitempty"`
	IsVoice  bool            `json:"is_voice,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Payload  []byte          `json:"-"`
}

// NewTextBlock creates a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// NewAudioBlock creates an audio content block referencing a URL.
// Set isVoice to true for voice messages.
func NewAudioBlock(url, mimeType string, isVoice bool) ContentBlock {
	return ContentBlock{Type: BlockAudio, URL: url, MIMEType: mimeType, IsVoice: isVoice}
}

// NewAudioPayloadBlock creates an audio content block carrying raw bytes to
// be uploaded directly.
func NewAudioPayloadBlock(payload []byte, mimeType, fileName string, isVoice bool) ContentBlock {
	return ContentBlock{
		Type:     BlockAudio,
		MIMEType: mimeType,
		FileName: fileName,
		IsVoice:  isVoice,
		Payload:  payload,
	}
}

// NewImageBlock creates an image content block.
func NewImageBlock(url, mimeType string) ContentBlock {
	return ContentBlock{Type: BlockImage, URL: url, MIMEType: mimeType}
}

// NewFileBlock creates a file content block.
func NewFileBlock(url, mimeType, fileName string) ContentBlock {
	return ContentBlock{Type: BlockFile, URL: url, MIMEType: mimeType, FileName: fileName}
}

// NewRawBlock creates a raw content block carrying opaque JSON data.
func NewRawBlock(data json.RawMessage) ContentBlock {
	cp := make(json.RawMessage, len(data))
	copy(cp, data)
	return ContentBlock{Type: BlockRaw, Data: cp}
}

// textContent concatenates the text of all text blocks, separated by newlines.
func textContent(blocks []ContentBlock) string {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Type != BlockText || b.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(b.Text)
	}
	return sb.String()
}

// hasMedia reports whether any block carries media content.
func hasMedia(blocks []ContentBlock) bool {
	for _, b := range blocks {
		switch b.Type {
		case BlockAudio, BlockImage, BlockFile:
			return true
		}
	}
	return false
}
