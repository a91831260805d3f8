package sessionlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

const (
	keySessionID = "session_id"
	keyUserID    = "user_id"
)

// State owns the current session and user identifiers. It is the single
// writer for both keys; all rotation goes through the compare-and-swap
// Rotate method, never ad hoc assignment. At most one session id is
// current at any time.
type State struct {
	mu sync.Mutex
	kv KVStore
}

func NewState(kv KVStore) *State {
	return &State{kv: kv}
}

// CurrentSessionID returns the active session id, generating and
// persisting one on first access.
func (s *State) CurrentSessionID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSessionIDLocked(ctx)
}

func (s *State) currentSessionIDLocked(ctx context.Context) (string, error) {
	id, ok, err := s.kv.Get(ctx, keySessionID)
	if err != nil {
		return "", fmt.Errorf("read session id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.kv.Set(ctx, keySessionID, id); err != nil {
		return "", fmt.Errorf("persist session id: %w", err)
	}
	return id, nil
}

// UserID returns the stable user identifier, generating and persisting
// one on first access.
func (s *State) UserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.kv.Get(ctx, keyUserID)
	if err != nil {
		return "", fmt.Errorf("read user id: %w", err)
	}
	if ok && id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.kv.Set(ctx, keyUserID, id); err != nil {
		return "", fmt.Errorf("persist user id: %w", err)
	}
	return id, nil
}

// Rotate swaps the current session id from old to new, but only if old is
// still current (compare-and-swap). It returns whichever id is current
// after the call, so a lost race is observable rather than destructive.
func (s *State) Rotate(ctx context.Context, old, next string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.currentSessionIDLocked(ctx)
	if err != nil {
		return "", err
	}
	if current != old {
		return current, nil
	}
	if err := s.kv.Set(ctx, keySessionID, next); err != nil {
		return "", fmt.Errorf("persist rotated session id: %w", err)
	}
	return next, nil
}

// Replace unconditionally installs a brand-new session id, used after a
// clear. The old id is returned for bookkeeping.
func (s *State) Replace(ctx context.Context) (old, fresh string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, _, err = s.kv.Get(ctx, keySessionID)
	if err != nil {
		return "", "", fmt.Errorf("read session id: %w", err)
	}
	fresh = uuid.NewString()
	if err := s.kv.Set(ctx, keySessionID, fresh); err != nil {
		return "", "", fmt.Errorf("persist fresh session id: %w", err)
	}
	return old, fresh, nil
}
