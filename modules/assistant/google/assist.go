package google

import (
	"context"
	"errors"
	"io"
	"strings"

	embedded "google.golang.org/genproto/googleapis/assistant/embedded/v1alpha2"

	"github.com/Simonx22/telegram-assistant/internal/assistant"
)

const audioSampleRate = 16000

// assistRequest builds the single config message for a text-query turn.
func (g *Google) assistRequest(q assistant.Query) *embedded.AssistRequest {
	return &embedded.AssistRequest{
		Type: &embedded.AssistRequest_Config{
			Config: &embedded.AssistConfig{
				Type: &embedded.AssistConfig_TextQuery{TextQuery: q.Text},
				AudioOutConfig: &embedded.AudioOutConfig{
					Encoding:        embedded.AudioOutConfig_LINEAR16,
					SampleRateHertz: audioSampleRate,
					// Volume 0: the audio is captured for upload, never
					// played back live. The bytes still arrive.
					VolumePercentage: 0,
				},
				DialogStateIn: &embedded.DialogStateIn{
					LanguageCode:      g.cfg.Language,
					ConversationState: q.ConversationState,
				},
				DeviceConfig: &embedded.DeviceConfig{
					DeviceId:      g.cfg.DeviceID,
					DeviceModelId: g.cfg.DeviceModelID,
				},
			},
		},
	}
}

// Assist implements assistant.Assistant. It opens an Assist stream, sends
// one config message carrying the text query, and drains the response
// stream, collecting display text, the rotated conversation state, and any
// synthesized audio.
func (g *Google) Assist(ctx context.Context, q assistant.Query) (assistant.Reply, error) {
	if strings.TrimSpace(q.Text) == "" {
		return assistant.Reply{}, assistant.ErrEmptyQuery
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Deadline.Std())
	defer cancel()

	stream, err := g.client.Assist(ctx)
	if err != nil {
		return assistant.Reply{}, mapError(err)
	}

	if err := stream.Send(g.assistRequest(q)); err != nil {
		return assistant.Reply{}, mapError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return assistant.Reply{}, mapError(err)
	}

	var reply assistant.Reply
	var pcm []byte

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return assistant.Reply{}, mapError(err)
		}

		if out := resp.GetDialogStateOut(); out != nil {
			if txt := out.GetSupplementalDisplayText(); txt != "" {
				reply.DisplayText = txt
			}
			if state := out.GetConversationState(); len(state) > 0 {
				reply.ConversationState = state
			}
			switch out.GetMicrophoneMode() {
			case embedded.DialogStateOut_DIALOG_FOLLOW_ON:
				reply.MicrophoneMode = assistant.MicrophoneFollowOn
			case embedded.DialogStateOut_CLOSE_MICROPHONE:
				reply.MicrophoneMode = assistant.MicrophoneClosed
			}
		}

		if g.cfg.SendAudio {
			if audio := resp.GetAudioOut(); audio != nil {
				pcm = append(pcm, audio.GetAudioData()...)
			}
		}
	}

	if len(pcm) > 0 {
		reply.Audio = wrapWAV(pcm, audioSampleRate)
		reply.AudioMIMEType = "audio/wav"
	}

	g.logger.Debug("assist turn completed",
		"query_len", len(q.Text),
		"reply_len", len(reply.DisplayText),
		"audio_bytes", len(pcm),
		"microphone", string(reply.MicrophoneMode))

	return reply, nil
}
