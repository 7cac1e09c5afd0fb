package dialog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Store persists conversation dialog state between turns.
type Store interface {
	// Load returns the state for a conversation, or a fresh empty state when
	// none exists yet.
	Load(ctx context.Context, conversationID string) (*ConversationState, error)
	// Save persists the state. A failure here is fatal for the turn.
	Save(ctx context.Context, state *ConversationState) error
}

// ProfileStore persists durable per-user preferences.
type ProfileStore interface {
	// LoadProfile returns the stored profile, or nil when none exists.
	LoadProfile(ctx context.Context, userID string) (*UserProfile, error)
	SaveProfile(ctx context.Context, profile *UserProfile) error
}

// MemoryStore keeps dialog state in process memory. Used in development and
// tests; state does not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	states   map[string][]byte
	profiles map[string][]byte
}

var _ Store = (*MemoryStore)(nil)
var _ ProfileStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:   make(map[string][]byte),
		profiles: make(map[string][]byte),
	}
}

func (s *MemoryStore) Load(ctx context.Context, conversationID string) (*ConversationState, error) {
	s.mu.RLock()
	data, ok := s.states[conversationID]
	s.mu.RUnlock()
	if !ok {
		return NewConversationState(conversationID), nil
	}

	var state ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("dialog: failed to decode state: %w", err)
	}
	return &state, nil
}

func (s *MemoryStore) Save(ctx context.Context, state *ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("dialog: failed to encode state: %w", err)
	}
	s.mu.Lock()
	s.states[state.ConversationID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LoadProfile(ctx context.Context, userID string) (*UserProfile, error) {
	s.mu.RLock()
	data, ok := s.profiles[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var profile UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("dialog: failed to decode profile: %w", err)
	}
	return &profile, nil
}

func (s *MemoryStore) SaveProfile(ctx context.Context, profile *UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("dialog: failed to encode profile: %w", err)
	}
	s.mu.Lock()
	s.profiles[profile.UserID] = data
	s.mu.Unlock()
	return nil
}
