package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/baraholka/marketbot/pkg/util"
)

// Transport is the outbound side of the bot. Services talk to actors
// through it instead of holding the API client, so tests can swap in a
// recording fake.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendWithKeyboard(ctx context.Context, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error
	SendTemp(ctx context.Context, chatID int64, text string, ttl time.Duration) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// BotTransport implements Transport over the Bot API client.
type BotTransport struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewBotTransport(api *tgbotapi.BotAPI, logger *zap.Logger) *BotTransport {
	return &BotTransport{api: api, logger: logger}
}

func (t *BotTransport) SendText(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.api.Send(msg); err != nil {
		return util.NewDeliveryError(err)
	}
	return nil
}

func (t *BotTransport) SendWithKeyboard(_ context.Context, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := t.api.Send(msg); err != nil {
		return util.NewDeliveryError(err)
	}
	return nil
}

// SendTemp sends a short-lived notice and schedules its deletion. The
// deletion is fire-and-forget; a notice that outlives its ttl is harmless.
func (t *BotTransport) SendTemp(_ context.Context, chatID int64, text string, ttl time.Duration) error {
	sent, err := t.api.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return util.NewDeliveryError(err)
	}
	time.AfterFunc(ttl, func() {
		if _, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, sent.MessageID)); err != nil {
			t.logger.Debug("temp message cleanup failed",
				zap.Int64("chat_id", chatID),
				zap.Int("message_id", sent.MessageID),
				zap.Error(err))
		}
	})
	return nil
}

func (t *BotTransport) SendPhoto(_ context.Context, chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	if _, err := t.api.Send(photo); err != nil {
		return util.NewDeliveryError(err)
	}
	return nil
}

// EditMessageText rewrites a previously sent message in place. Telegram
// rejects edits that change nothing; that rejection is not an error here.
func (t *BotTransport) EditMessageText(_ context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := t.api.Send(edit); err != nil {
		if strings.Contains(err.Error(), "message is not modified") {
			return nil
		}
		return util.NewDeliveryError(err)
	}
	return nil
}

func (t *BotTransport) AnswerCallback(_ context.Context, callbackID, text string) error {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return util.NewDeliveryError(err)
	}
	return nil
}
