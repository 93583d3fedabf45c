package bot

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/session"
)

type recordingTransport struct {
	texts map[int64][]string
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{texts: map[int64][]string{}}
}

func (r *recordingTransport) SendText(_ context.Context, chatID int64, text string) error {
	r.texts[chatID] = append(r.texts[chatID], text)
	return nil
}

func (r *recordingTransport) SendWithKeyboard(_ context.Context, chatID int64, text string, _ tgbotapi.InlineKeyboardMarkup) error {
	r.texts[chatID] = append(r.texts[chatID], text)
	return nil
}

func (r *recordingTransport) SendTemp(_ context.Context, chatID int64, text string, _ time.Duration) error {
	r.texts[chatID] = append(r.texts[chatID], text)
	return nil
}

func (r *recordingTransport) SendPhoto(_ context.Context, chatID int64, _, caption string) error {
	r.texts[chatID] = append(r.texts[chatID], caption)
	return nil
}

func (r *recordingTransport) EditMessageText(_ context.Context, chatID int64, _ int, text string) error {
	r.texts[chatID] = append(r.texts[chatID], text)
	return nil
}

func (r *recordingTransport) AnswerCallback(_ context.Context, _, _ string) error {
	return nil
}

func TestActorID(t *testing.T) {
	msg := tgbotapi.Update{Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}}}
	assert.EqualValues(t, 42, ActorID(msg))

	cb := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{From: &tgbotapi.User{ID: 777}}}
	assert.EqualValues(t, 777, ActorID(cb))

	assert.Zero(t, ActorID(tgbotapi.Update{}))
}

func TestMalformedCallbackNotifiesActor(t *testing.T) {
	transport := newRecordingTransport()
	router := NewRouter(RouterDependencies{
		Sessions:  session.NewMemoryStore(),
		Transport: transport,
		Logger:    zap.NewNop(),
		Config:    &config.Config{},
	})

	update := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb1",
		From: &tgbotapi.User{ID: 42},
		Data: "admin_view_ticket_abc",
	}}
	router.HandleUpdate(context.Background(), update)

	require.NotEmpty(t, transport.texts[42])
	assert.Contains(t, transport.texts[42][0], "Некорректный ввод")
}
