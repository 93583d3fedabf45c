package session

import (
	"context"
	"sync"
)

// Mode is an actor's current interaction mode. At most one mode is active
// per actor; storing a new state abandons the previous payload wholesale.
type Mode string

const (
	ModeIdle               Mode = "idle"
	ModeAwaitingTicketText Mode = "awaiting_ticket_text"
	ModeAdminChatActive    Mode = "admin_chat_active"
	ModeUserChatActive     Mode = "user_chat_active"
	ModeAwaitingIDSearch   Mode = "awaiting_id_search"
	ModeAwaitingNameSearch Mode = "awaiting_name_search"
	ModeAdminUserSelected  Mode = "admin_user_selected"
	ModeSellPhoto          Mode = "sell_photo"
	ModeSellTitle          Mode = "sell_title"
	ModeSellPrice          Mode = "sell_price"
	ModeSellDescription    Mode = "sell_description"
	ModeSellConfirm        Mode = "sell_confirm"
)

// State is the ephemeral conversation context of one actor. It is owned
// exclusively by that actor's update stream and may be lost at any time;
// nothing durable lives here.
type State struct {
	Mode     Mode              `json:"mode"`
	TicketID int64             `json:"ticket_id,omitempty"`
	PeerID   int64             `json:"peer_id,omitempty"`
	TargetID int64             `json:"target_id,omitempty"`
	Form     map[string]string `json:"form,omitempty"`
}

// FormValue reads a form field, tolerating a nil map.
func (s *State) FormValue(key string) string {
	if s == nil || s.Form == nil {
		return ""
	}
	return s.Form[key]
}

// SetForm writes a form field, allocating the map on first use.
func (s *State) SetForm(key, value string) {
	if s.Form == nil {
		s.Form = map[string]string{}
	}
	s.Form[key] = value
}

// Store keeps conversation contexts keyed by actor id.
type Store interface {
	Get(ctx context.Context, actorID int64) (*State, error)
	Put(ctx context.Context, actorID int64, state *State) error
	Clear(ctx context.Context, actorID int64) error
}

// MemoryStore is the in-process Store used when Redis is not configured
// and in tests. Contents do not survive a restart, which is exactly the
// failure the chat recovery path exists for.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[int64]State
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (m *MemoryStore) Get(_ context.Context, actorID int64) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[actorID]
	if !ok {
		return &State{Mode: ModeIdle}, nil
	}
	copied := state
	if state.Form != nil {
		copied.Form = make(map[string]string, len(state.Form))
		for k, v := range state.Form {
			copied.Form[k] = v
		}
	}
	return &copied, nil
}

func (m *MemoryStore) Put(_ context.Context, actorID int64, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[actorID] = *state
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, actorID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, actorID)
	return nil
}
