package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/domain"
	"github.com/baraholka/marketbot/internal/events"
	"github.com/baraholka/marketbot/internal/repository"
	"github.com/baraholka/marketbot/internal/session"
	"github.com/baraholka/marketbot/internal/telegram"
	"github.com/baraholka/marketbot/pkg/util"
)

const formInvitedAt = "invited_at"

// ChatService runs the live-chat relay between a ticket's owner and the
// admin working it. The ticket history in Postgres is the source of
// truth; conversation contexts only route messages and may be lost.
type ChatService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	sessions   session.Store
	transport  telegram.Transport
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.ChatConfig
}

// ChatDependencies bundles collaborators for chat service.
type ChatDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	Sessions    session.Store
	Transport   telegram.Transport
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Config      config.ChatConfig
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	return &ChatService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		sessions:   deps.Sessions,
		transport:  deps.Transport,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		cfg:        deps.Config,
	}
}

// Invite opens the relay from the admin side: the admin enters chat mode
// right away, the owner gets an invitation to join. The ticket must
// already be claimed by the inviting admin.
func (s *ChatService) Invite(ctx context.Context, adminID, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return util.ToDomainError(err)
	}
	if !ticket.AssignedTo(adminID) {
		return util.NewForbidden("ticket is not assigned to you")
	}

	state := &session.State{
		Mode:     session.ModeAdminChatActive,
		TicketID: ticketID,
		PeerID:   ticket.UserID,
	}
	state.SetForm(formInvitedAt, time.Now().UTC().Format(time.RFC3339))
	if err := s.sessions.Put(ctx, adminID, state); err != nil {
		return util.NewInternalError(err)
	}

	invite := fmt.Sprintf("💬 Администратор приглашает вас в чат по обращению #%d.", ticketID)
	if err := s.transport.SendWithKeyboard(ctx, ticket.UserID, invite, telegram.ChatInviteKeyboard(ticketID)); err != nil {
		// The admin is already in chat mode; the user just has no button
		// yet. Surface the failure so the admin can retry.
		return err
	}
	return s.transport.SendWithKeyboard(ctx, adminID,
		"Приглашение отправлено. Можете писать сообщения, пользователь получит их в чате.",
		telegram.PendingInviteKeyboard(ticketID))
}

// Accept joins the owner to the relay after they press the invite button.
func (s *ChatService) Accept(ctx context.Context, userID, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return util.ToDomainError(err)
	}
	if ticket.UserID != userID {
		return util.NewForbidden("ticket belongs to another user")
	}
	if !ticket.Assigned() {
		return util.NewSessionDesync("chat invitation is no longer valid")
	}
	adminID := *ticket.AdminID

	adminState, err := s.sessions.Get(ctx, adminID)
	if err != nil {
		return util.NewInternalError(err)
	}
	if adminState.Mode != session.ModeAdminChatActive || adminState.TicketID != ticketID {
		return util.NewSessionDesync("chat invitation is no longer valid")
	}
	if s.inviteExpired(adminState) {
		return util.NewSessionDesync("chat invitation expired")
	}

	userState := &session.State{
		Mode:     session.ModeUserChatActive,
		TicketID: ticketID,
		PeerID:   adminID,
	}
	if err := s.sessions.Put(ctx, userID, userState); err != nil {
		return util.NewInternalError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventChatStarted,
		ActorID: userID,
		Payload: events.ChatStartedPayload{TicketID: ticketID, UserID: userID, AdminID: adminID},
	})

	keyboard := telegram.ActiveChatKeyboard(ticketID)
	if err := s.transport.SendWithKeyboard(ctx, userID,
		"✅ Чат начат. Пишите сообщения, администратор их получит.", keyboard); err != nil {
		return err
	}
	return s.transport.SendWithKeyboard(ctx, adminID,
		fmt.Sprintf("✅ Пользователь присоединился к чату по обращению #%d.", ticketID), keyboard)
}

// Decline refuses a pending invitation and takes the admin out of chat
// mode for that ticket.
func (s *ChatService) Decline(ctx context.Context, userID, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return util.ToDomainError(err)
	}
	if ticket.UserID != userID {
		return util.NewForbidden("ticket belongs to another user")
	}
	if ticket.Assigned() {
		adminID := *ticket.AdminID
		s.clearIfTicket(ctx, adminID, ticketID)
		if err := s.transport.SendText(ctx, adminID,
			fmt.Sprintf("🚫 Пользователь отклонил приглашение в чат по обращению #%d.", ticketID)); err != nil {
			s.logger.Warn("decline notice not delivered", zap.Int64("admin_id", adminID), zap.Error(err))
		}
	}
	return s.transport.SendText(ctx, userID, "Приглашение отклонено.")
}

// CancelInvite withdraws a pending invitation from the admin side.
func (s *ChatService) CancelInvite(ctx context.Context, adminID, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return util.ToDomainError(err)
	}
	s.clearIfTicket(ctx, adminID, ticketID)
	if err := s.transport.SendText(ctx, ticket.UserID, "Приглашение в чат отменено администратором."); err != nil {
		s.logger.Warn("cancel notice not delivered", zap.Int64("user_id", ticket.UserID), zap.Error(err))
	}
	return s.transport.SendText(ctx, adminID, "Приглашение отменено.")
}

// Relay forwards one chat line to the other side. The line is written to
// the ticket history before any delivery attempt, so a dead peer chat
// never loses the record. An admin whose context was lost is recovered
// from their ticket in work before the line is dropped.
func (s *ChatService) Relay(ctx context.Context, senderID int64, isAdmin bool, text string) error {
	state, err := s.sessions.Get(ctx, senderID)
	if err != nil {
		return util.NewInternalError(err)
	}
	wantMode := session.ModeUserChatActive
	if isAdmin {
		wantMode = session.ModeAdminChatActive
	}
	if state.Mode != wantMode || state.TicketID == 0 {
		if !isAdmin {
			return util.NewSessionDesync("no active chat")
		}
		recovered, err := s.Recover(ctx, senderID)
		if err != nil {
			return err
		}
		if recovered == nil {
			return util.NewSessionDesync("no active chat")
		}
		state = &session.State{
			Mode:     session.ModeAdminChatActive,
			TicketID: recovered.ID,
			PeerID:   recovered.UserID,
		}
	}

	if _, err := s.tickets.GetByID(ctx, state.TicketID); err != nil {
		// The ticket was deleted under the chat; drop the stale context.
		_ = s.sessions.Clear(ctx, senderID)
		return util.NewSessionDesync("ticket no longer exists")
	}

	msg := &domain.TicketMessage{
		TicketID: state.TicketID,
		SenderID: senderID,
		Text:     text,
		IsAdmin:  isAdmin,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return util.ToDomainError(err)
	}

	deliverErr := s.transport.SendText(ctx, state.PeerID, telegram.RenderRelay(isAdmin, text))
	s.publishEvent(ctx, events.Event{
		Type:    events.EventMessageRelayed,
		ActorID: senderID,
		Payload: events.MessageRelayedPayload{
			TicketID:  state.TicketID,
			SenderID:  senderID,
			IsAdmin:   isAdmin,
			Delivered: deliverErr == nil,
		},
	})
	if deliverErr != nil {
		return deliverErr
	}
	if err := s.transport.SendTemp(ctx, senderID, "✅ Сообщение отправлено", s.cfg.TempMessageTTL); err != nil {
		s.logger.Debug("send confirmation failed", zap.Int64("chat_id", senderID), zap.Error(err))
	}
	return nil
}

// End closes the relay from either side and notifies both participants.
func (s *ChatService) End(ctx context.Context, actorID, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return util.ToDomainError(err)
	}
	isParticipant := ticket.UserID == actorID || ticket.AssignedTo(actorID)
	if !isParticipant {
		return util.NewForbidden("you are not part of this chat")
	}

	s.clearIfTicket(ctx, ticket.UserID, ticketID)
	if ticket.Assigned() {
		s.clearIfTicket(ctx, *ticket.AdminID, ticketID)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventChatEnded,
		ActorID: actorID,
		Payload: events.ChatEndedPayload{TicketID: ticketID, EndedBy: actorID},
	})

	notice := fmt.Sprintf("🔚 Чат по обращению #%d завершён.", ticketID)
	if err := s.transport.SendText(ctx, ticket.UserID, notice); err != nil {
		s.logger.Warn("end notice not delivered", zap.Int64("user_id", ticket.UserID), zap.Error(err))
	}
	if ticket.Assigned() && *ticket.AdminID != ticket.UserID {
		if err := s.transport.SendText(ctx, *ticket.AdminID, notice); err != nil {
			s.logger.Warn("end notice not delivered", zap.Int64("admin_id", *ticket.AdminID), zap.Error(err))
		}
	}
	return nil
}

// Recover rebuilds an admin's chat context after a restart wiped it. The
// most recent ticket in work for that admin wins; nil means nothing to
// recover.
func (s *ChatService) Recover(ctx context.Context, adminID int64) (*domain.Ticket, error) {
	inWork, err := s.tickets.ListByAdmin(ctx, adminID, domain.TicketStatusInProgress)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	if len(inWork) == 0 {
		return nil, nil
	}
	ticket := inWork[0]
	state := &session.State{
		Mode:     session.ModeAdminChatActive,
		TicketID: ticket.ID,
		PeerID:   ticket.UserID,
	}
	if err := s.sessions.Put(ctx, adminID, state); err != nil {
		return nil, util.NewInternalError(err)
	}
	return &ticket, nil
}

func (s *ChatService) inviteExpired(adminState *session.State) bool {
	if s.cfg.InviteTTL <= 0 {
		return false
	}
	invitedAt, err := time.Parse(time.RFC3339, adminState.FormValue(formInvitedAt))
	if err != nil {
		return false
	}
	return time.Since(invitedAt) > s.cfg.InviteTTL
}

// clearIfTicket drops an actor's conversation context only when it still
// points at the given ticket, so an unrelated dialogue is never wiped.
func (s *ChatService) clearIfTicket(ctx context.Context, actorID, ticketID int64) {
	state, err := s.sessions.Get(ctx, actorID)
	if err != nil {
		return
	}
	if state.TicketID == ticketID {
		_ = s.sessions.Clear(ctx, actorID)
	}
}

func (s *ChatService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
