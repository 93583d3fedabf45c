package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	// TicketStatusClosed has no transition yet; tickets are deleted
	// outright instead of closed.
	TicketStatusClosed TicketStatus = "closed"
)

// Ticket is the aggregate for support and purchase requests.
type Ticket struct {
	ID        int64
	UserID    int64
	Theme     string
	Status    TicketStatus
	AdminID   *int64
	CreatedAt time.Time
}

// Assigned reports whether an admin has claimed the ticket.
func (t *Ticket) Assigned() bool {
	return t.AdminID != nil
}

// AssignedTo reports whether the given admin holds the ticket.
func (t *Ticket) AssignedTo(adminID int64) bool {
	return t.AdminID != nil && *t.AdminID == adminID
}
