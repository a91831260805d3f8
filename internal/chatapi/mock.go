package chatapi

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockClient is a local fallback chat service used when no remote endpoint
// is configured. It echoes messages and tracks per-session history so the
// full send/rotate/clear cycle stays exercisable offline.
type MockClient struct {
	mu      sync.Mutex
	history map[string][]RemoteTurn
}

func NewMockClient() *MockClient {
	return &MockClient{history: make(map[string][]RemoteTurn)}
}

func (m *MockClient) Send(_ context.Context, req SendRequest) (SendResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sid := req.SessionID
	if sid == "" {
		sid = uuid.NewString()
	}
	now := time.Now().UTC()
	reply := fmt.Sprintf("You said: %s", req.Message)
	m.history[sid] = append(m.history[sid],
		RemoteTurn{Role: "user", Content: req.Message, CreatedAt: now},
		RemoteTurn{Role: "assistant", Content: reply, CreatedAt: now},
	)
	return SendResponse{Message: reply, SessionID: sid}, nil
}

func (m *MockClient) History(_ context.Context, sessionID string) ([]RemoteTurn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := m.history[sessionID]
	out := make([]RemoteTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (m *MockClient) ClearSession(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.history, sessionID)
	return nil
}
