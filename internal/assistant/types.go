package assistant

// MicrophoneMode mirrors the Assistant's dialog_state_out.microphone_mode:
// whether the assistant expects an immediate follow-up turn.
type MicrophoneMode string

// Microphone modes reported by the Assistant.
const (
	MicrophoneClosed   MicrophoneMode = "close"
	MicrophoneFollowOn MicrophoneMode = "follow_on"
)

// Query is one conversational turn sent to the assistant.
type Query struct {
	// Text is the query text. Must be non-empty.
	Text string

	// ConversationState is the opaque dialog token returned by the previous
	// turn of the same conversation. Empty starts a new conversation.
	ConversationState []byte
}

// Reply is the assistant's answer to a Query.
type Reply struct {
	// DisplayText is the textual answer (supplemental display text).
	// May be empty: some queries produce only audio or a device action.
	DisplayText string

	// ConversationState is the dialog token to carry into the next turn.
	// Empty means the assistant did not rotate the state.
	ConversationState []byte

	// MicrophoneMode indicates whether a follow-up turn is expected.
	MicrophoneMode MicrophoneMode

	// Audio is the synthesized spoken answer, if audio capture is enabled.
	// The container format is implementation-defined (WAV for the Google
	// module); AudioMIMEType names it.
	Audio         []byte
	AudioMIMEType string
}

// HasAudio reports whether the reply carries synthesized audio.
func (r *Reply) HasAudio() bool {
	return len(r.Audio) > 0
}
