package telegram

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/Simonx22/telegram-assistant/pkg/message"
)

// convertInbound maps a Telegram message to the platform-agnostic inbound
// contract. It returns false when the message carries nothing the relay can
// act on.
func (t *Telegram) convertInbound(msg *Message) (message.InboundMessage, bool) {
	text := msg.Text
	entities := msg.Entities
	if text == "" {
		// Captioned media carries its entities separately.
		text = msg.Caption
		entities = msg.CaptionEntities
	}

	mentions, stripped := t.extractMentions(entities, text)
	text = stripped

	var blocks []message.ContentBlock
	if text != "" {
		blocks = append(blocks, message.NewTextBlock(text))
	}
	if len(msg.Photo) > 0 {
		// Telegram sends several sizes. The last is the largest.
		largest := msg.Photo[len(msg.Photo)-1]
		blocks = append(blocks, message.NewImageBlock(fileRef(largest.FileID), "image/jpeg"))
	}
	if msg.Voice != nil {
		blocks = append(blocks, message.NewAudioBlock(fileRef(msg.Voice.FileID), msg.Voice.MIMEType, true))
	}
	if msg.Audio != nil {
		blocks = append(blocks, message.NewAudioBlock(fileRef(msg.Audio.FileID), msg.Audio.MIMEType, false))
	}
	if msg.Document != nil {
		blocks = append(blocks, message.NewFileBlock(fileRef(msg.Document.FileID), msg.Document.MIMEType, msg.Document.FileName))
	}

	if len(blocks) == 0 {
		return message.InboundMessage{}, false
	}

	var sender message.Sender
	if msg.From != nil {
		sender = message.Sender{
			ID:          strconv.FormatInt(msg.From.ID, 10),
			Username:    msg.From.Username,
			DisplayName: displayName(msg.From),
		}
	}

	var replyTo string
	if msg.ReplyTo != nil {
		replyTo = strconv.Itoa(msg.ReplyTo.MessageID)
	}

	raw, _ := json.Marshal(msg)

	return message.InboundMessage{
		ID:        strconv.Itoa(msg.MessageID),
		Timestamp: time.Unix(msg.Date, 0).UTC(),
		Channel:   "telegram",
		Sender:    sender,
		Chat: message.Chat{
			ID:    strconv.FormatInt(msg.Chat.ID, 10),
			Type:  chatType(msg.Chat.Type),
			Title: msg.Chat.Title,
		},
		ReplyToID: replyTo,
		Blocks:    blocks,
		Mentions:  mentions,
		Raw:       raw,
	}, true
}

// extractMentions collects mentioned users from message entities and strips
// the bot's own @mention from the text. Entity offsets count UTF-16 code
// units, per the Bot API.
func (t *Telegram) extractMentions(entities []MessageEntity, text string) (*message.Mentions, string) {
	t.mu.RLock()
	var botUsername string
	var botID int64
	if t.botUser != nil {
		botUsername = t.botUser.Username
		botID = t.botUser.ID
	}
	t.mu.RUnlock()

	var mentions message.Mentions
	for _, e := range entities {
		switch e.Type {
		case "mention":
			name := strings.TrimPrefix(entityText(text, e), "@")
			if name == "" {
				continue
			}
			if botUsername != "" && strings.EqualFold(name, botUsername) {
				mentions.IsMentioned = true
				text = stripMention(text, "@"+name)
				continue
			}
			mentions.IDs = append(mentions.IDs, name)
		case "text_mention":
			if e.User == nil {
				continue
			}
			if botID != 0 && e.User.ID == botID {
				mentions.IsMentioned = true
				continue
			}
			mentions.IDs = append(mentions.IDs, strconv.FormatInt(e.User.ID, 10))
		}
	}

	if mentions.IsEmpty() {
		return nil, text
	}
	return &mentions, text
}

// stripMention removes the first occurrence of the mention token and
// collapses the surrounding whitespace.
func stripMention(text, mention string) string {
	idx := indexFold(text, mention)
	if idx < 0 {
		return text
	}
	rest := text[:idx] + text[idx+len(mention):]
	return strings.Join(strings.Fields(rest), " ")
}

// indexFold is a case-insensitive strings.Index. Bot usernames are ASCII,
// so lowering both sides is safe.
func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

func chatType(tgType string) message.ChatType {
	switch tgType {
	case "private":
		return message.ChatDM
	case "group", "supergroup":
		return message.ChatGroup
	case "channel":
		return message.ChatBroadcast
	}
	return message.ChatDM
}

func displayName(u *User) string {
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}

// fileRef builds an internal reference URL for a Telegram file ID. Callers
// resolve it to a download URL via GetFile when the bytes are needed.
func fileRef(fileID string) string {
	return fmt.Sprintf("tg://file_id/%s", fileID)
}

// entityText extracts the substring an entity covers, honoring UTF-16 offsets.
func entityText(text string, e MessageEntity) string {
	units := utf16.Encode([]rune(text))
	if e.Offset < 0 || e.Length < 0 || e.Offset+e.Length > len(units) {
		return ""
	}
	return string(utf16.Decode(units[e.Offset : e.Offset+e.Length]))
}
