package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/events"
)

func newNotificationFixture(t *testing.T, adminIDs []int64) (events.Dispatcher, *fakeTransport) {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	transport := newFakeTransport()
	svc := NewNotificationService(dispatcher, transport, zap.NewNop(), config.TelegramConfig{AdminIDs: adminIDs})
	svc.RegisterHandlers()
	return dispatcher, transport
}

func TestTicketCreatedNotifiesEveryAdmin(t *testing.T) {
	dispatcher, transport := newNotificationFixture(t, []int64{777, 888})

	err := dispatcher.Publish(context.Background(), events.NewEvent("e1", events.EventTicketCreated, 42,
		events.TicketCreatedPayload{TicketID: 9, UserID: 42, Theme: "📢 Реклама", Priority: "high"}))

	require.NoError(t, err)
	for _, adminID := range []int64{777, 888} {
		texts := transport.textsFor(adminID)
		require.Len(t, texts, 1)
		assert.Contains(t, texts[0], "#9")
		assert.Contains(t, texts[0], "📢 Реклама")
	}
}

func TestTicketClaimedNotifiesOwner(t *testing.T) {
	dispatcher, transport := newNotificationFixture(t, []int64{777})

	err := dispatcher.Publish(context.Background(), events.NewEvent("e6", events.EventTicketClaimed, 777,
		events.TicketClaimedPayload{TicketID: 9, Theme: "❓ Вопросы о боте", UserID: 42, AdminID: 777}))

	require.NoError(t, err)
	texts := transport.textsFor(42)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "#9")
	assert.Contains(t, texts[0], "❓ Вопросы о боте")
	assert.Contains(t, texts[0], "взято в работу")
}

func TestTicketDeletedByAdminNotifiesOwner(t *testing.T) {
	dispatcher, transport := newNotificationFixture(t, []int64{777})

	err := dispatcher.Publish(context.Background(), events.NewEvent("e2", events.EventTicketDeleted, 777,
		events.TicketDeletedPayload{TicketID: 9, Theme: "❓ Вопросы о боте", UserID: 42, AdminID: 777}))

	require.NoError(t, err)
	texts := transport.textsFor(42)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "обработано и закрыто")
	assert.Contains(t, texts[0], "❓ Вопросы о боте")
}

func TestTicketDeletedByOwnerStaysQuiet(t *testing.T) {
	dispatcher, transport := newNotificationFixture(t, []int64{777})

	err := dispatcher.Publish(context.Background(), events.NewEvent("e3", events.EventTicketDeleted, 42,
		events.TicketDeletedPayload{TicketID: 9, UserID: 42}))

	require.NoError(t, err)
	assert.Empty(t, transport.textsFor(42))
}

func TestBlockedAdminDoesNotFailPublish(t *testing.T) {
	dispatcher, transport := newNotificationFixture(t, []int64{777, 888})
	transport.blocked[777] = true

	err := dispatcher.Publish(context.Background(), events.NewEvent("e4", events.EventTicketCreated, 42,
		events.TicketCreatedPayload{TicketID: 9, Theme: "Тема"}))

	require.NoError(t, err)
	assert.Len(t, transport.textsFor(888), 1)
}

func TestReferralAddedNotifiesReferrer(t *testing.T) {
	dispatcher, transport := newNotificationFixture(t, nil)

	err := dispatcher.Publish(context.Background(), events.NewEvent("e5", events.EventReferralAdded, 42,
		events.ReferralAddedPayload{ReferrerID: 1, ReferredID: 42, Total: 3}))

	require.NoError(t, err)
	texts := transport.textsFor(1)
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Всего рефералов: 3")
}
