package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketClaimed  EventType = "ticket_claimed"
	EventTicketDeleted  EventType = "ticket_deleted"
	EventChatStarted    EventType = "chat_started"
	EventChatEnded      EventType = "chat_ended"
	EventMessageRelayed EventType = "message_relayed"
	EventUserBanned     EventType = "user_banned"
	EventReferralAdded  EventType = "referral_added"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID int64  `json:"ticket_id"`
	UserID   int64  `json:"user_id"`
	Theme    string `json:"theme"`
	Priority string `json:"priority"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	TicketID      int64  `json:"ticket_id"`
	Theme         string `json:"theme"`
	UserID        int64  `json:"user_id"`
	AdminID       int64  `json:"admin_id"`
	PreviousAdmin *int64 `json:"previous_admin,omitempty"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	TicketID int64  `json:"ticket_id"`
	Theme    string `json:"theme"`
	UserID   int64  `json:"user_id"`
	AdminID  int64  `json:"admin_id"`
}

// ChatStartedPayload payload.
type ChatStartedPayload struct {
	TicketID int64 `json:"ticket_id"`
	UserID   int64 `json:"user_id"`
	AdminID  int64 `json:"admin_id"`
}

// ChatEndedPayload payload.
type ChatEndedPayload struct {
	TicketID int64 `json:"ticket_id"`
	EndedBy  int64 `json:"ended_by"`
}

// MessageRelayedPayload payload.
type MessageRelayedPayload struct {
	TicketID  int64 `json:"ticket_id"`
	SenderID  int64 `json:"sender_id"`
	IsAdmin   bool  `json:"is_admin"`
	Delivered bool  `json:"delivered"`
}

// UserBannedPayload payload.
type UserBannedPayload struct {
	UserID int64 `json:"user_id"`
	Banned bool  `json:"banned"`
}

// ReferralAddedPayload payload.
type ReferralAddedPayload struct {
	ReferrerID int64 `json:"referrer_id"`
	ReferredID int64 `json:"referred_id"`
	Total      int   `json:"total"`
}

// NewEvent builds an event with a fresh timestamp.
func NewEvent(id string, eventType EventType, actorID int64, payload interface{}) Event {
	return Event{
		ID:        id,
		Type:      eventType,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
