package telegram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

// UploadVoice sends a voice note from in-memory audio bytes using a
// multipart/form-data request. The Bot API transcodes the file for inline
// playback, so WAV and OGG payloads are both accepted.
func (c *Client) UploadVoice(ctx context.Context, chatID int64, filename string, audio []byte, replyTo int) (*Message, error) {
	return c.uploadFile(ctx, "sendVoice", "voice", filename, audio, chatID, replyTo)
}

// UploadAudio sends an audio file from in-memory bytes. Unlike voice notes
// the file keeps its name and shows up as a playable track.
func (c *Client) UploadAudio(ctx context.Context, chatID int64, filename string, audio []byte, replyTo int) (*Message, error) {
	return c.uploadFile(ctx, "sendAudio", "audio", filename, audio, chatID, replyTo)
}

func (c *Client) uploadFile(ctx context.Context, method, field, filename string, data []byte, chatID int64, replyTo int) (*Message, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return nil, fmt.Errorf("telegram: write %s field: %w", method, err)
	}
	if replyTo != 0 {
		if err := w.WriteField("reply_to_message_id", strconv.Itoa(replyTo)); err != nil {
			return nil, fmt.Errorf("telegram: write %s field: %w", method, err)
		}
	}

	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s form file: %w", method, err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("telegram: write %s payload: %w", method, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("telegram: finalize %s form: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), &buf)
	if err != nil {
		return nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, sanitize(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}

	return decodeResult[Message](method, body)
}
