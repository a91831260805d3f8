package sessionlog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryTurnStore is a simple in-process turn store for local/dev use.
type InMemoryTurnStore struct {
	mu    sync.RWMutex
	turns map[string][]ConversationTurn
}

func NewInMemoryTurnStore() *InMemoryTurnStore {
	return &InMemoryTurnStore{turns: make(map[string][]ConversationTurn)}
}

func (s *InMemoryTurnStore) SaveTurn(_ context.Context, turn ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	return nil
}

func (s *InMemoryTurnStore) TurnsBySession(_ context.Context, sessionID string) ([]ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[sessionID]
	out := make([]ConversationTurn, len(turns))
	copy(out, turns)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryTurnStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.turns, sessionID)
	return nil
}

func (s *InMemoryTurnStore) Close() error { return nil }

// InMemoryKVStore holds identifiers in process memory.
type InMemoryKVStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewInMemoryKVStore() *InMemoryKVStore {
	return &InMemoryKVStore{values: make(map[string]string)}
}

func (s *InMemoryKVStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *InMemoryKVStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *InMemoryKVStore) Close() error { return nil }
