package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Simonx22/telegram-assistant/internal/channel"
	"github.com/Simonx22/telegram-assistant/internal/core"
	"github.com/Simonx22/telegram-assistant/pkg/message"
)

// ModuleID is the registry identifier for the Telegram channel.
const ModuleID = "channel.telegram"

// ServiceName is the name the channel registers itself under in the
// AppContext service registry.
const ServiceName = "channel.telegram"

func init() {
	core.RegisterModule(new(Telegram))
}

// webhookRegistrar is the subset of the gateway webhook dispatcher the
// channel needs. Declared here so the module does not depend on the
// gateway package.
type webhookRegistrar interface {
	RegisterSource(source string, handler http.Handler)
}

// Telegram is the Telegram Bot API channel module.
type Telegram struct {
	cfg    Config
	logger *slog.Logger
	client *Client

	inbox   func(msg message.InboundMessage) error
	botUser *User

	registrar webhookRegistrar

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu sync.RWMutex
}

// Interface guards.
var (
	_ core.Module              = (*Telegram)(nil)
	_ core.Configurable        = (*Telegram)(nil)
	_ core.Provisioner         = (*Telegram)(nil)
	_ core.Validator           = (*Telegram)(nil)
	_ core.Starter             = (*Telegram)(nil)
	_ core.Stopper             = (*Telegram)(nil)
	_ channel.Channel          = (*Telegram)(nil)
	_ channel.TypingChannel    = (*Telegram)(nil)
	_ channel.ModeratedChannel = (*Telegram)(nil)
)

// ModuleInfo implements core.Module.
func (t *Telegram) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  ModuleID,
		New: func() core.Module { return new(Telegram) },
	}
}

// Configure implements core.Configurable.
func (t *Telegram) Configure(node *yaml.Node) error {
	if err := node.Decode(&t.cfg); err != nil {
		return fmt.Errorf("telegram: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (t *Telegram) Provision(ctx *core.AppContext) error {
	t.cfg.applyDefaults()
	t.logger = ctx.Logger
	t.client = NewClient(t.cfg.Token, t.cfg.APIURL)

	if t.cfg.Mode == "webhook" {
		svc, ok := ctx.Service("gateway.webhooks")
		if !ok {
			return fmt.Errorf("telegram: webhook mode requires the gateway module")
		}
		reg, ok := svc.(webhookRegistrar)
		if !ok {
			return fmt.Errorf("telegram: gateway.webhooks service has unexpected type %T", svc)
		}
		t.registrar = reg
	}

	ctx.RegisterService(ServiceName, t)
	return nil
}

// Validate implements core.Validator.
func (t *Telegram) Validate() error {
	return t.cfg.validate()
}

// Start implements core.Starter. It resolves the bot identity via getMe and
// begins receiving updates in the configured mode.
func (t *Telegram) Start() error {
	if t.inbox == nil {
		return channel.ErrNoInbox
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	meCtx, meCancel := context.WithTimeout(ctx, 15*time.Second)
	me, err := t.client.GetMe(meCtx)
	meCancel()
	if err != nil {
		cancel()
		return fmt.Errorf("telegram: getMe: %w", err)
	}
	t.mu.Lock()
	t.botUser = me
	t.mu.Unlock()

	t.logger.Info("telegram channel started",
		"username", me.Username,
		"mode", t.cfg.Mode)

	switch t.cfg.Mode {
	case "webhook":
		setCtx, setCancel := context.WithTimeout(ctx, 15*time.Second)
		err := t.client.SetWebhook(setCtx, SetWebhookRequest{
			URL:            t.cfg.Webhook.URL,
			SecretToken:    t.cfg.Webhook.SecretToken,
			AllowedUpdates: []string{"message"},
		})
		setCancel()
		if err != nil {
			cancel()
			return fmt.Errorf("telegram: setWebhook: %w", err)
		}
		t.registrar.RegisterSource("telegram", NewWebhookReceiver(t.cfg.Webhook.SecretToken, t.handleUpdate, t.logger))
	default:
		// Polling mode cannot coexist with a registered webhook.
		delCtx, delCancel := context.WithTimeout(ctx, 15*time.Second)
		if err := t.client.DeleteWebhook(delCtx); err != nil {
			t.logger.Warn("deleteWebhook failed", "error", err)
		}
		delCancel()

		poller := NewPoller(t.client, t.cfg.PollingTimeout, t.handleUpdate, t.logger)
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			poller.Run(ctx)
		}()
	}

	return nil
}

// Stop implements core.Stopper.
func (t *Telegram) Stop(ctx context.Context) error {
	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram: shutdown timed out: %w", ctx.Err())
	}
}

// SetInbox implements channel.Channel.
func (t *Telegram) SetInbox(fn func(msg message.InboundMessage) error) {
	t.inbox = fn
}

// AllowList builds the relay allow list from the configured user and chat
// IDs. Valid only after Provision.
func (t *Telegram) AllowList() *channel.AllowList {
	users := make([]string, 0, len(t.cfg.AllowUsers))
	for _, id := range t.cfg.AllowUsers {
		users = append(users, strconv.FormatInt(id, 10))
	}
	chats := make([]string, 0, len(t.cfg.AllowChats))
	for _, id := range t.cfg.AllowChats {
		chats = append(chats, strconv.FormatInt(id, 10))
	}
	return channel.NewAllowList(users, chats)
}

// BotUsername returns the username resolved at startup, without the @ prefix.
func (t *Telegram) BotUsername() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.botUser == nil {
		return ""
	}
	return t.botUser.Username
}

func (t *Telegram) handleUpdate(upd Update) {
	msg := upd.Message
	if msg == nil {
		msg = upd.EditedMessage
	}
	if msg == nil {
		return
	}
	if msg.From != nil && msg.From.IsBot {
		return
	}

	inbound, ok := t.convertInbound(msg)
	if !ok {
		return
	}

	if err := t.inbox(inbound); err != nil {
		t.logger.Warn("inbound message rejected",
			"chat", inbound.Chat.ID,
			"error", err)
	}
}

// Send implements channel.Channel. Long text is chunked at the configured
// maximum message length.
func (t *Telegram) Send(ctx context.Context, msg message.OutboundMessage) error {
	chunks := channel.SplitMessage(msg, channel.ChunkConfig{MaxLength: t.cfg.MaxMessageLength})
	for _, chunk := range chunks {
		if err := t.sendChunk(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telegram) sendChunk(ctx context.Context, msg message.OutboundMessage) error {
	chatID, err := parseChatID(msg.Chat.ID)
	if err != nil {
		return err
	}

	replyTo := 0
	if msg.ReplyToID != "" {
		if id, err := strconv.Atoi(msg.ReplyToID); err == nil {
			replyTo = id
		}
	}

	var parseMode string
	var disablePreview, disableNotification bool
	if msg.Hints != nil {
		parseMode = msg.Hints.ParseMode
		disablePreview = msg.Hints.DisablePreview
		disableNotification = msg.Hints.DisableNotification
	}

	for _, block := range msg.Blocks {
		switch block.Type {
		case message.BlockText:
			if block.Text == "" {
				continue
			}
			_, err = t.client.SendMessage(ctx, SendMessageRequest{
				ChatID:                chatID,
				Text:                  block.Text,
				ParseMode:             parseMode,
				DisableWebPagePreview: disablePreview,
				DisableNotification:   disableNotification,
				ReplyToMessageID:      replyTo,
			})
		case message.BlockAudio:
			err = t.sendAudio(ctx, chatID, block, replyTo)
		case message.BlockImage:
			_, err = t.client.SendPhoto(ctx, SendPhotoRequest{
				ChatID:              chatID,
				Photo:               block.URL,
				Caption:             block.Caption,
				DisableNotification: disableNotification,
				ReplyToMessageID:    replyTo,
			})
		case message.BlockFile:
			_, err = t.client.SendDocument(ctx, SendDocumentRequest{
				ChatID:              chatID,
				Document:            block.URL,
				Caption:             block.Caption,
				DisableNotification: disableNotification,
				ReplyToMessageID:    replyTo,
			})
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("telegram: send block: %w", err)
		}
	}
	return nil
}

func (t *Telegram) sendAudio(ctx context.Context, chatID int64, block message.ContentBlock, replyTo int) error {
	if len(block.Payload) > 0 {
		name := block.FileName
		if name == "" {
			name = "reply.wav"
		}
		var err error
		if block.IsVoice {
			_, err = t.client.UploadVoice(ctx, chatID, name, block.Payload, replyTo)
		} else {
			_, err = t.client.UploadAudio(ctx, chatID, name, block.Payload, replyTo)
		}
		return err
	}
	if block.URL != "" {
		_, err := t.client.SendAudio(ctx, SendAudioRequest{
			ChatID:           chatID,
			Audio:            block.URL,
			Caption:          block.Caption,
			ReplyToMessageID: replyTo,
		})
		return err
	}
	return nil
}

// SendTyping implements channel.TypingChannel.
func (t *Telegram) SendTyping(ctx context.Context, chat message.Chat) error {
	chatID, err := parseChatID(chat.ID)
	if err != nil {
		return err
	}
	return t.client.SendChatAction(ctx, chatID, "typing")
}

// IsMember implements channel.ModeratedChannel.
func (t *Telegram) IsMember(ctx context.Context, chat message.Chat, userID string) (bool, error) {
	chatID, err := parseChatID(chat.ID)
	if err != nil {
		return false, err
	}
	uid, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("telegram: invalid user id %q: %w", userID, err)
	}

	member, err := t.client.GetChatMember(ctx, chatID, uid)
	if err != nil {
		// "user not found" style errors mean not a member, not a failure.
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == 400 {
			return false, nil
		}
		return false, err
	}
	return member.IsMember(), nil
}

// Leave implements channel.ModeratedChannel.
func (t *Telegram) Leave(ctx context.Context, chat message.Chat) error {
	chatID, err := parseChatID(chat.ID)
	if err != nil {
		return err
	}
	return t.client.LeaveChat(ctx, chatID)
}

func parseChatID(id string) (int64, error) {
	chatID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: invalid chat id %q: %w", id, err)
	}
	return chatID, nil
}
