package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/events"
	"github.com/baraholka/marketbot/internal/telegram"
)

// NotificationService turns domain events into chat notices. Every send
// here is best-effort; a blocked recipient never fails the operation
// that raised the event.
type NotificationService struct {
	dispatcher events.Dispatcher
	transport  telegram.Transport
	logger     *zap.Logger
	cfg        config.TelegramConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, transport telegram.Transport, logger *zap.Logger, cfg config.TelegramConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		transport:  transport,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketClaimed, n.handleTicketClaimed)
	n.dispatcher.Subscribe(events.EventTicketDeleted, n.handleTicketDeleted)
	n.dispatcher.Subscribe(events.EventReferralAdded, n.handleReferralAdded)
	n.dispatcher.Subscribe(events.EventUserBanned, n.handleUserBanned)
}

// handleTicketCreated pings every admin about the new ticket.
func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("🆕 Новое обращение #%d\nТема: %s", payload.TicketID, payload.Theme)
	for _, adminID := range n.cfg.AdminIDs {
		if err := n.transport.SendText(ctx, adminID, text); err != nil {
			n.logger.Warn("admin notification failed", zap.Int64("admin_id", adminID), zap.Error(err))
		}
	}
	return nil
}

// handleTicketClaimed tells the owner an admin picked up their ticket.
func (n *NotificationService) handleTicketClaimed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketClaimedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("✋ Ваше обращение #%d («%s») взято в работу администратором.",
		payload.TicketID, payload.Theme)
	if err := n.transport.SendText(ctx, payload.UserID, text); err != nil {
		n.logger.Warn("owner notification failed", zap.Int64("user_id", payload.UserID), zap.Error(err))
	}
	return nil
}

// handleTicketDeleted tells the counterpart their ticket was resolved.
// The owner deleting their own ticket needs no notice.
func (n *NotificationService) handleTicketDeleted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketDeletedPayload)
	if !ok {
		return nil
	}
	if event.ActorID == payload.UserID {
		return nil
	}
	text := fmt.Sprintf("✅ Ваше обращение #%d («%s») обработано и закрыто администратором.",
		payload.TicketID, payload.Theme)
	if err := n.transport.SendText(ctx, payload.UserID, text); err != nil {
		n.logger.Warn("owner notification failed", zap.Int64("user_id", payload.UserID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleReferralAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ReferralAddedPayload)
	if !ok {
		return nil
	}
	text := fmt.Sprintf("🎉 По вашей ссылке пришёл новый пользователь! Всего рефералов: %d.", payload.Total)
	if err := n.transport.SendText(ctx, payload.ReferrerID, text); err != nil {
		n.logger.Warn("referrer notification failed", zap.Int64("user_id", payload.ReferrerID), zap.Error(err))
	}
	return nil
}

func (n *NotificationService) handleUserBanned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UserBannedPayload)
	if !ok {
		return nil
	}
	text := "⛔️ Ваш аккаунт заблокирован администратором."
	if !payload.Banned {
		text = "✅ Ваш аккаунт разблокирован."
	}
	if err := n.transport.SendText(ctx, payload.UserID, text); err != nil {
		n.logger.Warn("ban notification failed", zap.Int64("user_id", payload.UserID), zap.Error(err))
	}
	return nil
}
