package channel

import (
	"strings"
	"unicode/utf8"

	"github.com/Simonx22/telegram-assistant/pkg/message"
)

// ChunkConfig controls how outbound messages are split when the reply text
// exceeds the platform cap (4096 bytes for Telegram sendMessage).
type ChunkConfig struct {
	// MaxLength is the maximum number of bytes per chunk.
	// A value <= 0 means no splitting.
	MaxLength int
}

// SplitMessage splits an outbound message into messages that each respect
// cfg.MaxLength. Media blocks ride along with the first chunk only. A
// message that already fits comes back as a single-element slice.
func SplitMessage(msg message.OutboundMessage, cfg ChunkConfig) []message.OutboundMessage {
	if cfg.MaxLength <= 0 {
		return []message.OutboundMessage{msg}
	}

	var textParts []string
	var nonText []message.ContentBlock
	for _, b := range msg.Blocks {
		if b.Type == message.BlockText {
			textParts = append(textParts, b.Text)
		} else {
			nonText = append(nonText, b)
		}
	}

	fullText := strings.Join(textParts, "\n")
	if len(fullText) <= cfg.MaxLength {
		return []message.OutboundMessage{msg}
	}

	chunks := splitText(fullText, cfg.MaxLength)

	result := make([]message.OutboundMessage, 0, len(chunks))
	for i, chunk := range chunks {
		var blocks []message.ContentBlock
		// Media rides with the first chunk only.
		if i == 0 {
			blocks = append(blocks, nonText...)
		}
		blocks = append(blocks, message.NewTextBlock(chunk))

		result = append(result, message.OutboundMessage{
			Chat:      msg.Chat,
			ReplyToID: msg.ReplyToID,
			Blocks:    blocks,
			Hints:     msg.Hints,
		})
	}

	return result
}

// splitText breaks text into chunks at line boundaries, force-splitting
// single lines that exceed maxLen on their own.
func splitText(text string, maxLen int) []string {
	var out []string
	var buf strings.Builder

	flush := func() {
		if buf.Len() > 0 {
			out = append(out, strings.TrimRight(buf.String(), "\n"))
			buf.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if buf.Len()+len(line)+1 > maxLen {
			flush()
			if len(line)+1 > maxLen {
				out = append(out, forceSplit(line, maxLen)...)
				continue
			}
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	flush()

	return out
}

// forceSplit breaks a single long line into pieces of at most maxLen bytes,
// cutting only at rune boundaries so no piece is invalid UTF-8.
func forceSplit(line string, maxLen int) []string {
	var parts []string
	for len(line) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			// Degenerate maxLen smaller than one rune.
			_, cut = utf8.DecodeRuneInString(line)
		}
		parts = append(parts, line[:cut])
		line = line[cut:]
	}
	if len(line) > 0 {
		parts = append(parts, line)
	}
	return parts
}
