package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"tgrelay/pkg/bus"
	"tgrelay/pkg/config"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const channelName = "telegram"

// Adapter receives Telegram updates by long polling and sends replies.
type Adapter struct {
	bot *telego.Bot
	cfg config.TelegramConfig
	log *slog.Logger
}

// NewAdapter validates the bot token and constructs an adapter. Extra bot options
// are appended after the relay defaults.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger, opts ...telego.BotOption) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, config.ErrMissingToken
	}

	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "channel.telegram")

	botOptions := append([]telego.BotOption{telego.WithLogger(pollingLogger{log: log})}, opts...)
	bot, err := telego.NewBot(token, botOptions...)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	return &Adapter{
		bot: bot,
		cfg: cfg,
		log: log,
	}, nil
}

// Name returns the channel identifier used in logs and status output.
func (a *Adapter) Name() string {
	return channelName
}

// Run long polls Telegram and publishes each received message on the bus. It
// returns nil once ctx is done and the update stream has drained.
func (a *Adapter) Run(ctx context.Context, mb *bus.MessageBus) error {
	if mb == nil {
		return errors.New("message bus is required")
	}

	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil,
		telego.WithLongPollingRetryTimeout(a.cfg.PollRetry()),
	)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram bot is listening for messages")

	for update := range updates {
		inbound, ok := toInbound(update)
		if !ok {
			continue
		}

		if !mb.PublishInbound(ctx, inbound) {
			a.log.Debug("Dropped update during shutdown", "update_id", update.UpdateID)
		}
	}

	if err := ctx.Err(); err != nil {
		a.log.Info("Telegram bot stopped")
		return nil
	}

	return errors.New("telegram updates channel closed")
}

// SendText sends text to chatID.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	if _, err := a.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text)); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// toInbound copies the fields the relay needs out of a Telegram update. Updates
// without a message (edits, callbacks, member changes) are skipped; text and sender
// checks are left to the dispatcher.
func toInbound(update telego.Update) (bus.InboundMessage, bool) {
	message := update.Message
	if message == nil {
		return bus.InboundMessage{}, false
	}

	inbound := bus.InboundMessage{
		UpdateID: update.UpdateID,
		ChatID:   message.Chat.ID,
		Text:     message.Text,
	}
	if message.From != nil {
		inbound.SenderID = strconv.FormatInt(message.From.ID, 10)
		inbound.Username = message.From.Username
		inbound.FirstName = message.From.FirstName
	}

	return inbound, true
}

// pollingLogger receives telego's internal log output. telego reports getUpdates
// failures through Errorf and keeps retrying, so these are logged and nothing else.
type pollingLogger struct {
	log *slog.Logger
}

func (l pollingLogger) Debugf(format string, args ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l pollingLogger) Errorf(format string, args ...any) {
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	if strings.Contains(message, context.Canceled.Error()) {
		l.log.Debug("Polling stopped", "detail", message)
		return
	}

	l.log.Error("Polling error", "error", message)
}
