// Package telegram implements the Telegram Bot API channel for
// telegram-assistant.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	maxAttempts   = 3
	baseRetryWait = time.Second
	maxBodyBytes  = 10 << 20 // cap on Bot API response reads
)

// Client is a thin HTTP wrapper around the Telegram Bot API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Bot API client. baseURL is normally
// https://api.telegram.org; tests and self-hosted Bot API servers point it
// elsewhere.
func NewClient(token, baseURL string) *Client {
	return &Client{
		token:   token,
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// do calls a Bot API method with a JSON body and decodes the typed result.
// 429 responses are retried per the API's Retry-After contract, doubling
// the wait when the server gives none.
func do[T any](ctx context.Context, c *Client, method string, payload any) (*T, error) {
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("telegram: marshal %s request: %w", method, err)
		}
	}

	wait := baseRetryWait
	for attempt := 1; ; attempt++ {
		status, body, err := c.post(ctx, method, data, "application/json")
		if err != nil {
			return nil, err
		}

		if status == http.StatusTooManyRequests && attempt < maxAttempts {
			if after := retryAfter(body); after > 0 {
				wait = after
			}
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
			wait *= 2
			continue
		}

		return decodeResult[T](method, body)
	}
}

// post performs one HTTP round trip and returns the status code and the
// (bounded) response body.
func (c *Client) post(ctx context.Context, method string, data []byte, contentType string) (int, []byte, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), body)
	if err != nil {
		return 0, nil, fmt.Errorf("telegram: create %s request: %w", method, err)
	}
	if data != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("telegram: %s request failed: %w", method, sanitize(err))
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("telegram: read %s response: %w", method, err)
	}
	return resp.StatusCode, b, nil
}

// sanitize strips url.Error, whose message embeds the token-bearing URL.
func sanitize(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// retryAfter extracts the server-suggested wait from a 429 body, if any.
func retryAfter(body []byte) time.Duration {
	var resp APIResponse[json.RawMessage]
	if json.Unmarshal(body, &resp) == nil && resp.Parameters != nil && resp.Parameters.RetryAfter > 0 {
		return time.Duration(resp.Parameters.RetryAfter) * time.Second
	}
	return 0
}

func decodeResult[T any](method string, body []byte) (*T, error) {
	var resp APIResponse[T]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !resp.OK {
		apiErr := &APIError{
			Code:        resp.ErrorCode,
			Description: resp.Description,
		}
		if resp.Parameters != nil {
			apiErr.RetryAfter = resp.Parameters.RetryAfter
		}
		return nil, apiErr
	}
	return &resp.Result, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetUpdatesRequest is the request body for the getUpdates method.
type GetUpdatesRequest struct {
	Offset         int      `json:"offset,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Timeout        int      `json:"timeout,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
}

// SetWebhookRequest is the request body for the setWebhook method.
type SetWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token,omitempty"`
	AllowedUpdates []string `json:"allowed_updates,omitempty"`
	MaxConnections int      `json:"max_connections,omitempty"`
}

// SendMessageRequest is the request body for the sendMessage method.
type SendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	DisableNotification   bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID      int    `json:"reply_to_message_id,omitempty"`
}

// SendPhotoRequest is the request body for the sendPhoto method.
type SendPhotoRequest struct {
	ChatID              int64  `json:"chat_id"`
	Photo               string `json:"photo"`
	Caption             string `json:"caption,omitempty"`
	ParseMode           string `json:"parse_mode,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID    int    `json:"reply_to_message_id,omitempty"`
}

// SendDocumentRequest is the request body for the sendDocument method.
type SendDocumentRequest struct {
	ChatID              int64  `json:"chat_id"`
	Document            string `json:"document"`
	Caption             string `json:"caption,omitempty"`
	ParseMode           string `json:"parse_mode,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID    int    `json:"reply_to_message_id,omitempty"`
}

// SendAudioRequest is the request body for the sendAudio method when the
// audio is referenced by URL or file_id.
type SendAudioRequest struct {
	ChatID              int64  `json:"chat_id"`
	Audio               string `json:"audio"`
	Caption             string `json:"caption,omitempty"`
	ParseMode           string `json:"parse_mode,omitempty"`
	DisableNotification bool   `json:"disable_notification,omitempty"`
	ReplyToMessageID    int    `json:"reply_to_message_id,omitempty"`
}

type sendChatActionRequest struct {
	ChatID int64  `json:"chat_id"`
	Action string `json:"action"`
}

type getChatMemberRequest struct {
	ChatID int64 `json:"chat_id"`
	UserID int64 `json:"user_id"`
}

type leaveChatRequest struct {
	ChatID int64 `json:"chat_id"`
}

type getFileRequest struct {
	FileID string `json:"file_id"`
}

// GetMe returns the bot's user information.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	return do[User](ctx, c, "getMe", nil)
}

// GetUpdates fetches incoming updates using long polling.
func (c *Client) GetUpdates(ctx context.Context, req GetUpdatesRequest) ([]Update, error) {
	result, err := do[[]Update](ctx, c, "getUpdates", req)
	if err != nil {
		return nil, err
	}
	return *result, nil
}

// SetWebhook configures the webhook URL for receiving updates.
func (c *Client) SetWebhook(ctx context.Context, req SetWebhookRequest) error {
	_, err := do[bool](ctx, c, "setWebhook", req)
	return err
}

// DeleteWebhook removes the current webhook integration.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	_, err := do[bool](ctx, c, "deleteWebhook", nil)
	return err
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, req SendMessageRequest) (*Message, error) {
	return do[Message](ctx, c, "sendMessage", req)
}

// SendPhoto sends a photo referenced by URL or file_id.
func (c *Client) SendPhoto(ctx context.Context, req SendPhotoRequest) (*Message, error) {
	return do[Message](ctx, c, "sendPhoto", req)
}

// SendDocument sends a document referenced by URL or file_id.
func (c *Client) SendDocument(ctx context.Context, req SendDocumentRequest) (*Message, error) {
	return do[Message](ctx, c, "sendDocument", req)
}

// SendAudio sends an audio file referenced by URL or file_id.
func (c *Client) SendAudio(ctx context.Context, req SendAudioRequest) (*Message, error) {
	return do[Message](ctx, c, "sendAudio", req)
}

// SendChatAction shows a chat action, e.g. "typing", for a few seconds.
func (c *Client) SendChatAction(ctx context.Context, chatID int64, action string) error {
	_, err := do[bool](ctx, c, "sendChatAction", sendChatActionRequest{
		ChatID: chatID,
		Action: action,
	})
	return err
}

// GetChatMember returns information about a member of a chat.
func (c *Client) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	return do[ChatMember](ctx, c, "getChatMember", getChatMemberRequest{
		ChatID: chatID,
		UserID: userID,
	})
}

// LeaveChat removes the bot from a group or channel.
func (c *Client) LeaveChat(ctx context.Context, chatID int64) error {
	_, err := do[bool](ctx, c, "leaveChat", leaveChatRequest{ChatID: chatID})
	return err
}

// GetFile retrieves basic info about a file and prepares it for downloading.
func (c *Client) GetFile(ctx context.Context, fileID string) (*File, error) {
	return do[File](ctx, c, "getFile", getFileRequest{FileID: fileID})
}

// FileURL returns the download URL for a file path returned by GetFile.
func (c *Client) FileURL(filePath string) string {
	return fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, filePath)
}
