package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/domain"
	"github.com/baraholka/marketbot/internal/events"
	"github.com/baraholka/marketbot/internal/session"
	"github.com/baraholka/marketbot/pkg/util"
)

type chatFixture struct {
	svc       *ChatService
	tickets   *fakeTicketRepo
	messages  *fakeMessageRepo
	sessions  *session.MemoryStore
	transport *fakeTransport
	recorder  *eventRecorder
}

func newChatFixture(t *testing.T, cfg config.ChatConfig) *chatFixture {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	fx := &chatFixture{
		tickets:   newFakeTicketRepo(),
		messages:  newFakeMessageRepo(),
		sessions:  session.NewMemoryStore(),
		transport: newFakeTransport(),
		recorder:  recordEvents(dispatcher),
	}
	fx.svc = NewChatService(ChatDependencies{
		TicketRepo:  fx.tickets,
		MessageRepo: fx.messages,
		Sessions:    fx.sessions,
		Transport:   fx.transport,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
		Config:      cfg,
	})
	return fx
}

func (fx *chatFixture) claimedTicket(t *testing.T, userID, adminID int64) *domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{UserID: userID, Theme: "Тема", Status: domain.TicketStatusInProgress, AdminID: &adminID}
	require.NoError(t, fx.tickets.Create(context.Background(), ticket))
	return ticket
}

func (fx *chatFixture) startChat(t *testing.T, userID, adminID int64) *domain.Ticket {
	t.Helper()
	ticket := fx.claimedTicket(t, userID, adminID)
	ctx := context.Background()
	require.NoError(t, fx.svc.Invite(ctx, adminID, ticket.ID))
	require.NoError(t, fx.svc.Accept(ctx, userID, ticket.ID))
	return ticket
}

func TestInviteRequiresAssignment(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := &domain.Ticket{UserID: 42, Theme: "Тема"}
	require.NoError(t, fx.tickets.Create(context.Background(), ticket))

	err := fx.svc.Invite(context.Background(), 777, ticket.ID)

	assert.True(t, util.IsCode(err, util.CodeForbidden))
}

func TestInvitePutsAdminInChatModeImmediately(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.claimedTicket(t, 42, 777)

	require.NoError(t, fx.svc.Invite(context.Background(), 777, ticket.ID))

	state, err := fx.sessions.Get(context.Background(), 777)
	require.NoError(t, err)
	assert.Equal(t, session.ModeAdminChatActive, state.Mode)
	assert.Equal(t, ticket.ID, state.TicketID)
	assert.EqualValues(t, 42, state.PeerID)
	require.NotEmpty(t, fx.transport.textsFor(42))
	assert.Contains(t, fx.transport.textsFor(42)[0], "приглашает вас в чат")
}

func TestAcceptJoinsBothSides(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.startChat(t, 42, 777)

	userState, err := fx.sessions.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, session.ModeUserChatActive, userState.Mode)
	assert.Equal(t, ticket.ID, userState.TicketID)
	assert.EqualValues(t, 777, userState.PeerID)
	assert.Len(t, fx.recorder.ofType(events.EventChatStarted), 1)
}

func TestAcceptWithoutInviteDesyncs(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.claimedTicket(t, 42, 777)

	err := fx.svc.Accept(context.Background(), 42, ticket.ID)

	assert.True(t, util.IsCode(err, util.CodeSessionDesync))
}

func TestAcceptExpiredInviteDesyncs(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{InviteTTL: time.Minute})
	ticket := fx.claimedTicket(t, 42, 777)
	ctx := context.Background()
	require.NoError(t, fx.svc.Invite(ctx, 777, ticket.ID))

	// Age the invitation past its TTL.
	state, err := fx.sessions.Get(ctx, 777)
	require.NoError(t, err)
	state.SetForm("invited_at", time.Now().Add(-2*time.Minute).UTC().Format(time.RFC3339))
	require.NoError(t, fx.sessions.Put(ctx, 777, state))

	err = fx.svc.Accept(ctx, 42, ticket.ID)

	assert.True(t, util.IsCode(err, util.CodeSessionDesync))
}

func TestDeclineClearsAdminContext(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.claimedTicket(t, 42, 777)
	ctx := context.Background()
	require.NoError(t, fx.svc.Invite(ctx, 777, ticket.ID))

	require.NoError(t, fx.svc.Decline(ctx, 42, ticket.ID))

	state, err := fx.sessions.Get(ctx, 777)
	require.NoError(t, err)
	assert.Equal(t, session.ModeIdle, state.Mode)
	texts := fx.transport.textsFor(777)
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "отклонил")
}

func TestRelayPersistsBeforeDelivery(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{TempMessageTTL: time.Second})
	ticket := fx.startChat(t, 42, 777)
	ctx := context.Background()

	require.NoError(t, fx.svc.Relay(ctx, 42, false, "Здравствуйте!"))

	history, err := fx.messages.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Здравствуйте!", history[0].Text)
	assert.False(t, history[0].IsAdmin)

	adminTexts := fx.transport.textsFor(777)
	require.NotEmpty(t, adminTexts)
	assert.Contains(t, adminTexts[len(adminTexts)-1], "👤 Пользователь:")
	assert.Contains(t, adminTexts[len(adminTexts)-1], "Здравствуйте!")

	// Sender got the transient confirmation.
	userTexts := fx.transport.textsFor(42)
	assert.Contains(t, userTexts[len(userTexts)-1], "✅ Сообщение отправлено")
}

func TestRelayDeliveryFailureKeepsHistory(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.startChat(t, 42, 777)
	ctx := context.Background()
	fx.transport.blocked[777] = true

	err := fx.svc.Relay(ctx, 42, false, "Сообщение в никуда")

	assert.True(t, util.IsCode(err, util.CodeUnavailable))
	history, listErr := fx.messages.ListByTicket(ctx, ticket.ID)
	require.NoError(t, listErr)
	require.Len(t, history, 1)

	relayed := fx.recorder.ofType(events.EventMessageRelayed)
	require.Len(t, relayed, 1)
	assert.False(t, relayed[0].Payload.(events.MessageRelayedPayload).Delivered)
}

func TestRelayRecoversAdminContextAfterLoss(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.startChat(t, 42, 777)
	ctx := context.Background()
	require.NoError(t, fx.sessions.Clear(ctx, 777))

	require.NoError(t, fx.svc.Relay(ctx, 777, true, "Я на связи"))

	history, err := fx.messages.ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsAdmin)
	assert.Equal(t, "Я на связи", history[0].Text)

	userTexts := fx.transport.textsFor(42)
	require.NotEmpty(t, userTexts)
	assert.Contains(t, userTexts[len(userTexts)-1], "🛠 Администратор:")
	assert.Contains(t, userTexts[len(userTexts)-1], "Я на связи")

	state, err := fx.sessions.Get(ctx, 777)
	require.NoError(t, err)
	assert.Equal(t, session.ModeAdminChatActive, state.Mode)
	assert.Equal(t, ticket.ID, state.TicketID)
}

func TestRelayAdminNothingToRecoverDesyncs(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})

	err := fx.svc.Relay(context.Background(), 777, true, "эй")

	assert.True(t, util.IsCode(err, util.CodeSessionDesync))
}

func TestRelayWithoutChatDesyncs(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})

	err := fx.svc.Relay(context.Background(), 42, false, "эй")

	assert.True(t, util.IsCode(err, util.CodeSessionDesync))
}

func TestRelayDeletedTicketClearsContext(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.startChat(t, 42, 777)
	ctx := context.Background()
	require.NoError(t, fx.tickets.Delete(ctx, ticket.ID))

	err := fx.svc.Relay(ctx, 42, false, "ау")

	assert.True(t, util.IsCode(err, util.CodeSessionDesync))
	state, getErr := fx.sessions.Get(ctx, 42)
	require.NoError(t, getErr)
	assert.Equal(t, session.ModeIdle, state.Mode)
}

func TestEndClearsBothContexts(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.startChat(t, 42, 777)
	ctx := context.Background()

	require.NoError(t, fx.svc.End(ctx, 777, ticket.ID))

	for _, actor := range []int64{42, 777} {
		state, err := fx.sessions.Get(ctx, actor)
		require.NoError(t, err)
		assert.Equal(t, session.ModeIdle, state.Mode)
	}
	assert.Len(t, fx.recorder.ofType(events.EventChatEnded), 1)
}

func TestEndByStrangerForbidden(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.startChat(t, 42, 777)

	err := fx.svc.End(context.Background(), 999, ticket.ID)

	assert.True(t, util.IsCode(err, util.CodeForbidden))
}

func TestRecoverRebuildsAdminContext(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.claimedTicket(t, 42, 777)
	ctx := context.Background()

	recovered, err := fx.svc.Recover(ctx, 777)

	require.NoError(t, err)
	require.NotNil(t, recovered)
	assert.Equal(t, ticket.ID, recovered.ID)

	state, err := fx.sessions.Get(ctx, 777)
	require.NoError(t, err)
	assert.Equal(t, session.ModeAdminChatActive, state.Mode)
	assert.Equal(t, ticket.ID, state.TicketID)
}

func TestRecoverNothingInWork(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})

	recovered, err := fx.svc.Recover(context.Background(), 777)

	require.NoError(t, err)
	assert.Nil(t, recovered)
}

func TestCancelInviteNotifiesUser(t *testing.T) {
	fx := newChatFixture(t, config.ChatConfig{})
	ticket := fx.claimedTicket(t, 42, 777)
	ctx := context.Background()
	require.NoError(t, fx.svc.Invite(ctx, 777, ticket.ID))

	require.NoError(t, fx.svc.CancelInvite(ctx, 777, ticket.ID))

	state, err := fx.sessions.Get(ctx, 777)
	require.NoError(t, err)
	assert.Equal(t, session.ModeIdle, state.Mode)
	texts := fx.transport.textsFor(42)
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[len(texts)-1], "отменено")
}
