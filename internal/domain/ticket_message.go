package domain

import "time"

// TicketMessage is one line of a ticket's conversation history.
// Messages are append-only; they are removed only as a cascade of
// ticket deletion.
type TicketMessage struct {
	ID        int64
	TicketID  int64
	SenderID  int64
	Text      string
	IsAdmin   bool
	CreatedAt time.Time
}
