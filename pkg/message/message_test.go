package message

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTextContent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		blocks []ContentBlock
		want   string
	}{
		{
			name:   "single text block",
			blocks: []ContentBlock{NewTextBlock("hello")},
			want:   "hello",
		},
		{
			name: "multiple text blocks joined with newline",
			blocks: []ContentBlock{
				NewTextBlock("one"),
				NewTextBlock("two"),
			},
			want: "one\ntwo",
		},
		{
			name: "media blocks skipped",
			blocks: []ContentBlock{
				NewImageBlock("http://example.com/a.jpg", "image/jpeg"),
				NewTextBlock("caption"),
			},
			want: "caption",
		},
		{
			name:   "no blocks",
			blocks: nil,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := InboundMessage{Blocks: tt.blocks}
			if got := msg.TextContent(); got != tt.want {
				t.Errorf("TextContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasMedia(t *testing.T) {
	t.Parallel()

	msg := InboundMessage{Blocks: []ContentBlock{NewTextBlock("hi")}}
	if msg.HasMedia() {
		t.Error("text-only message should not report media")
	}

	msg.Blocks = append(msg.Blocks, NewAudioBlock("tg://file_id/abc", "audio/ogg", true))
	if !msg.HasMedia() {
		t.Error("message with audio block should report media")
	}
}

func TestChatTypeHelpers(t *testing.T) {
	t.Parallel()

	dm := Chat{ID: "1", Type: ChatDM}
	if !dm.IsDirectMessage() || dm.IsGroup() {
		t.Error("dm chat misclassified")
	}

	group := Chat{ID: "-100", Type: ChatGroup}
	if !group.IsGroup() || group.IsDirectMessage() {
		t.Error("group chat misclassified")
	}
}

func TestInboundMarshalOmitsEmptyMentions(t *testing.T) {
	t.Parallel()

	msg := InboundMessage{
		ID:       "1",
		Chat:     Chat{ID: "42", Type: ChatDM},
		Blocks:   []ContentBlock{NewTextBlock("hi")},
		Mentions: &Mentions{},
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "mentions") {
		t.Errorf("empty mentions should be omitted, got %s", data)
	}
}

func TestAudioPayloadNeverSerialized(t *testing.T) {
	t.Parallel()

	block := NewAudioPayloadBlock([]byte("RIFFxxxx"), "audio/wav", "reply.wav", true)
	data, err := json.Marshal(block)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "RIFF") {
		t.Errorf("payload bytes leaked into JSON: %s", data)
	}
}

func TestNewRawBlockCopies(t *testing.T) {
	t.Parallel()

	src := json.RawMessage(`{"a":1}`)
	block := NewRawBlock(src)
	src[2] = 'x'
	if string(block.Data) != `{"a":1}` {
		t.Errorf("raw block should copy input, got %s", block.Data)
	}
}
