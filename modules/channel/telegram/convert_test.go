package telegram

import (
	"testing"
	"unicode/utf16"

	"github.com/Simonx22/telegram-assistant/pkg/message"
)

func testChannel() *Telegram {
	return &Telegram{botUser: &User{ID: 42, IsBot: true, Username: "assistbot"}}
}

// entity builds a mention entity with UTF-16 offsets, the way the Bot API
// counts them.
func entity(text, mention string) MessageEntity {
	units := utf16.Encode([]rune(text))
	sub := utf16.Encode([]rune(mention))
	for i := 0; i+len(sub) <= len(units); i++ {
		match := true
		for j := range sub {
			if units[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			return MessageEntity{Type: "mention", Offset: i, Length: len(sub)}
		}
	}
	return MessageEntity{Type: "mention"}
}

func TestConvertInboundText(t *testing.T) {
	t.Parallel()

	tg := testChannel()
	in, ok := tg.convertInbound(&Message{
		MessageID: 10,
		Date:      1700000000,
		Text:      "what time is it",
		From:      &User{ID: 100, FirstName: "Ada", LastName: "Lovelace", Username: "ada"},
		Chat:      Chat{ID: 100, Type: "private"},
	})
	if !ok {
		t.Fatal("expected a convertible message")
	}
	if in.ID != "10" || in.Channel != "telegram" {
		t.Errorf("ID/Channel = %q/%q", in.ID, in.Channel)
	}
	if in.Chat.Type != message.ChatDM {
		t.Errorf("chat type = %q, want dm", in.Chat.Type)
	}
	if in.Sender.ID != "100" || in.Sender.DisplayName != "Ada Lovelace" {
		t.Errorf("sender = %+v", in.Sender)
	}
	if got := in.TextContent(); got != "what time is it" {
		t.Errorf("text = %q", got)
	}
	if in.Mentions != nil {
		t.Errorf("mentions = %+v, want nil", in.Mentions)
	}
}

func TestConvertInboundEmpty(t *testing.T) {
	t.Parallel()

	tg := testChannel()
	if _, ok := tg.convertInbound(&Message{MessageID: 1, Chat: Chat{ID: 1, Type: "private"}}); ok {
		t.Error("message without content should not convert")
	}
}

func TestConvertInboundMedia(t *testing.T) {
	t.Parallel()

	tg := testChannel()
	in, ok := tg.convertInbound(&Message{
		MessageID: 2,
		Chat:      Chat{ID: 1, Type: "private"},
		Caption:   "look at this",
		Photo: []PhotoSize{
			{FileID: "small", Width: 90},
			{FileID: "big", Width: 800},
		},
		Voice: &Voice{FileID: "v1", MIMEType: "audio/ogg"},
	})
	if !ok {
		t.Fatal("expected a convertible message")
	}
	if got := in.TextContent(); got != "look at this" {
		t.Errorf("caption text = %q", got)
	}
	var image, audio bool
	for _, b := range in.Blocks {
		switch b.Type {
		case message.BlockImage:
			image = true
			if b.URL != "tg://file_id/big" {
				t.Errorf("image ref = %q, want largest size", b.URL)
			}
		case message.BlockAudio:
			audio = true
			if !b.IsVoice {
				t.Error("voice note should be marked IsVoice")
			}
		}
	}
	if !image || !audio {
		t.Errorf("blocks missing media: image=%v audio=%v", image, audio)
	}
}

func TestConvertInboundCaptionMention(t *testing.T) {
	t.Parallel()

	caption := "@assistbot what is this"
	tg := testChannel()
	in, ok := tg.convertInbound(&Message{
		MessageID:       3,
		Chat:            Chat{ID: -200, Type: "group"},
		Caption:         caption,
		CaptionEntities: []MessageEntity{entity(caption, "@assistbot")},
		Photo:           []PhotoSize{{FileID: "p1", Width: 800}},
	})
	if !ok {
		t.Fatal("expected a convertible message")
	}
	if in.Mentions == nil || !in.Mentions.IsMentioned {
		t.Error("caption mention of the bot should set IsMentioned")
	}
	if got := in.TextContent(); got != "what is this" {
		t.Errorf("stripped caption = %q", got)
	}
}

func TestExtractMentionsBot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		text          string
		mention       string
		wantMentioned bool
		wantText      string
	}{
		{"leading", "@assistbot what time is it", "@assistbot", true, "what time is it"},
		{"trailing", "what time is it @assistbot", "@assistbot", true, "what time is it"},
		{"case insensitive", "@AssistBot hello", "@AssistBot", true, "hello"},
		{"emoji before mention", "🎉🎉 @assistbot hello", "@assistbot", true, "🎉🎉 hello"},
		{"other user", "@someone hello", "@someone", false, "@someone hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tg := testChannel()
			mentions, stripped := tg.extractMentions([]MessageEntity{entity(tt.text, tt.mention)}, tt.text)
			gotMentioned := mentions != nil && mentions.IsMentioned
			if gotMentioned != tt.wantMentioned {
				t.Errorf("IsMentioned = %v, want %v", gotMentioned, tt.wantMentioned)
			}
			if stripped != tt.wantText {
				t.Errorf("stripped = %q, want %q", stripped, tt.wantText)
			}
		})
	}
}

func TestExtractTextMention(t *testing.T) {
	t.Parallel()

	tg := testChannel()
	mentions, _ := tg.extractMentions([]MessageEntity{
		{Type: "text_mention", Offset: 0, Length: 3, User: &User{ID: 42}},
	}, "bot hello")
	if mentions == nil || !mentions.IsMentioned {
		t.Error("text_mention of the bot user should set IsMentioned")
	}
}

func TestChatType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want message.ChatType
	}{
		{"private", message.ChatDM},
		{"group", message.ChatGroup},
		{"supergroup", message.ChatGroup},
		{"channel", message.ChatBroadcast},
		{"", message.ChatDM},
	}
	for _, tt := range tests {
		if got := chatType(tt.in); got != tt.want {
			t.Errorf("chatType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEntityTextUTF16(t *testing.T) {
	t.Parallel()

	// The emoji occupies two UTF-16 code units, shifting later offsets.
	text := "🎉 @assistbot hi"
	e := entity(text, "@assistbot")
	if e.Offset != 3 {
		t.Fatalf("offset = %d, want 3 UTF-16 units", e.Offset)
	}
	if got := entityText(text, e); got != "@assistbot" {
		t.Errorf("entityText = %q", got)
	}
	if got := entityText(text, MessageEntity{Offset: 100, Length: 5}); got != "" {
		t.Errorf("out-of-range entity = %q, want empty", got)
	}
}
