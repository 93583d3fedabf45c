package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baraholka/marketbot/internal/config"
	"github.com/baraholka/marketbot/internal/domain"
	"github.com/baraholka/marketbot/internal/events"
	"github.com/baraholka/marketbot/internal/priority"
	"github.com/baraholka/marketbot/internal/repository"
	"github.com/baraholka/marketbot/pkg/util"
)

// TicketService coordinates the support ticket lifecycle.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	cfg        config.TicketsConfig
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Config      config.TicketsConfig
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		cfg:        deps.Config,
	}
}

// CreateTicket opens a ticket and records its first message. Banned
// accounts cannot open tickets.
func (s *TicketService) CreateTicket(ctx context.Context, userID int64, theme, text string) (*domain.Ticket, error) {
	theme = strings.TrimSpace(theme)
	text = strings.TrimSpace(text)
	if theme == "" {
		return nil, util.NewValidationError("ticket theme is required", nil)
	}
	if text == "" {
		return nil, util.NewValidationError("ticket text is required", nil)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	if user.Banned {
		return nil, util.NewForbidden("banned accounts cannot open tickets")
	}

	ticket := &domain.Ticket{
		UserID: userID,
		Theme:  theme,
		Status: domain.TicketStatusNew,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, util.ToDomainError(err)
	}
	msg := &domain.TicketMessage{
		TicketID: ticket.ID,
		SenderID: userID,
		Text:     text,
		IsAdmin:  false,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, util.ToDomainError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketCreated,
		ActorID: userID,
		Payload: events.TicketCreatedPayload{
			TicketID: ticket.ID,
			UserID:   userID,
			Theme:    ticket.Theme,
			Priority: string(priority.Classify(ticket.Theme)),
		},
	})
	return ticket, nil
}

// ListOpenTickets returns the admin queue, most urgent first and newest
// first within a tier. Unclaimed and claimed tickets are both visible
// until closed.
func (s *TicketService) ListOpenTickets(ctx context.Context) ([]domain.Ticket, error) {
	fresh, err := s.tickets.ListByStatus(ctx, domain.TicketStatusNew)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	claimed, err := s.tickets.ListByStatus(ctx, domain.TicketStatusInProgress)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	queue := append(fresh, claimed...)
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].CreatedAt.After(queue[j].CreatedAt)
	})
	priority.SortTickets(queue)
	return queue, nil
}

// ListUserTickets returns the actor's own tickets, newest first.
func (s *TicketService) ListUserTickets(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByOwner(ctx, userID)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	return tickets, nil
}

// GetTicketForUser fetches a ticket with its history, ensuring ownership.
func (s *TicketService) GetTicketForUser(ctx context.Context, userID, ticketID int64) (*domain.Ticket, []domain.TicketMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, util.ToDomainError(err)
	}
	if ticket.UserID != userID {
		return nil, nil, util.NewForbidden("ticket belongs to another user")
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, util.ToDomainError(err)
	}
	return ticket, msgs, nil
}

// GetTicketForAdmin fetches a ticket, its owner and its history.
func (s *TicketService) GetTicketForAdmin(ctx context.Context, ticketID int64) (*domain.Ticket, *domain.User, []domain.TicketMessage, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, nil, util.ToDomainError(err)
	}
	owner, err := s.users.GetByID(ctx, ticket.UserID)
	if err != nil {
		return nil, nil, nil, util.ToDomainError(err)
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, nil, util.ToDomainError(err)
	}
	return ticket, owner, msgs, nil
}

// Claim assigns a ticket to an admin and moves it into work. Claiming a
// ticket the admin already holds is a no-op; taking over another admin's
// ticket follows the reassign policy, last claim wins.
func (s *TicketService) Claim(ctx context.Context, adminID, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.ToDomainError(err)
	}
	if ticket.AssignedTo(adminID) && ticket.Status == domain.TicketStatusInProgress {
		return ticket, nil
	}
	var previous *int64
	if ticket.Assigned() && !ticket.AssignedTo(adminID) {
		if !s.cfg.AllowReassign {
			return nil, util.NewForbidden("ticket is already taken by another admin")
		}
		previous = ticket.AdminID
	}
	if err := s.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusInProgress, &adminID); err != nil {
		return nil, util.ToDomainError(err)
	}
	ticket.Status = domain.TicketStatusInProgress
	ticket.AdminID = &adminID

	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketClaimed,
		ActorID: adminID,
		Payload: events.TicketClaimedPayload{
			TicketID:      ticketID,
			Theme:         ticket.Theme,
			UserID:        ticket.UserID,
			AdminID:       adminID,
			PreviousAdmin: previous,
		},
	})
	return ticket, nil
}

// DeleteByOwner removes the actor's own ticket with its history.
func (s *TicketService) DeleteByOwner(ctx context.Context, userID, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return util.ToDomainError(err)
	}
	if ticket.UserID != userID {
		return util.NewForbidden("ticket belongs to another user")
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return util.ToDomainError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketDeleted,
		ActorID: userID,
		Payload: events.TicketDeletedPayload{
			TicketID: ticketID,
			Theme:    ticket.Theme,
			UserID:   ticket.UserID,
			AdminID:  valueOrZero(ticket.AdminID),
		},
	})
	return nil
}

// DeleteByAdmin removes any ticket; resolution is deletion, there is no
// archived state. The owner is told their ticket was handled.
func (s *TicketService) DeleteByAdmin(ctx context.Context, adminID, ticketID int64) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return util.ToDomainError(err)
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return util.ToDomainError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:    events.EventTicketDeleted,
		ActorID: adminID,
		Payload: events.TicketDeletedPayload{
			TicketID: ticketID,
			Theme:    ticket.Theme,
			UserID:   ticket.UserID,
			AdminID:  adminID,
		},
	})
	return nil
}

// CountOpen returns the queue sizes used on the admin dashboard.
func (s *TicketService) CountOpen(ctx context.Context) (fresh, inProgress int, err error) {
	fresh, err = s.tickets.CountByStatus(ctx, domain.TicketStatusNew)
	if err != nil {
		return 0, 0, util.ToDomainError(err)
	}
	inProgress, err = s.tickets.CountByStatus(ctx, domain.TicketStatusInProgress)
	if err != nil {
		return 0, 0, util.ToDomainError(err)
	}
	return fresh, inProgress, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
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

func valueOrZero(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
