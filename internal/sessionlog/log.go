package sessionlog

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"shopmate/internal/chatapi"
)

// Log is the durable conversation log reconciled against the remote chat
// service. The remote service is the system of record for the session
// identifier only; turns live locally once written.
//
// Sends for one log are serialized: the optimistic user-turn write, the
// remote call, the rotation, and the assistant-turn write form one ordered
// sequence relative to any other in-flight send or clear.
type Log struct {
	mu     sync.Mutex
	turns  TurnStore
	state  *State
	remote chatapi.Client
}

func NewLog(turns TurnStore, state *State, remote chatapi.Client) *Log {
	return &Log{turns: turns, state: state, remote: remote}
}

// SendResult reports one completed send.
type SendResult struct {
	Reply         string            `json:"reply"`
	SessionID     string            `json:"session_id"`
	Rotated       bool              `json:"rotated"`
	Products      []chatapi.Product `json:"products,omitempty"`
	FunctionCalls []string          `json:"function_calls,omitempty"`
}

// ClearResult reports the outcome of clearing a conversation. LocalErr and
// RemoteErr are best-effort failures: the clear still completed and a
// fresh session id is active.
type ClearResult struct {
	ClearedSessionID string `json:"cleared_session_id"`
	NewSessionID     string `json:"new_session_id"`
	LocalErr         error  `json:"-"`
	RemoteErr        error  `json:"-"`
}

// SendMessage persists the user's turn, calls the remote service, applies
// any session rotation, and persists the assistant's turn. The user turn
// is written before the network call and survives remote failure.
func (l *Log) SendMessage(ctx context.Context, text string, userContext *chatapi.UserContext) (SendResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sid, err := l.state.CurrentSessionID(ctx)
	if err != nil {
		return SendResult{}, err
	}
	userID, err := l.state.UserID(ctx)
	if err != nil {
		return SendResult{}, err
	}

	// Optimistic write: the user's own message never depends on the
	// network round trip.
	userTurn := ConversationTurn{
		SessionID: sid,
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.turns.SaveTurn(ctx, userTurn); err != nil {
		return SendResult{}, err
	}

	resp, err := l.remote.Send(ctx, chatapi.SendRequest{
		Message:     text,
		SessionID:   sid,
		UserID:      userID,
		UserContext: userContext,
	})
	if err != nil {
		// The user turn from above remains; no assistant turn, no rotation.
		return SendResult{}, err
	}

	current := sid
	rotated := false
	if resp.SessionID != "" && resp.SessionID != sid {
		// Rotation is applied before the assistant turn is persisted, so a
		// reader never sees a turn keyed by an id newer than the stored one.
		current, err = l.state.Rotate(ctx, sid, resp.SessionID)
		if err != nil {
			return SendResult{}, err
		}
		rotated = current == resp.SessionID
	}

	assistantTurn := ConversationTurn{
		SessionID:       current,
		Role:            RoleAssistant,
		Content:         resp.Message,
		AttachedItemIDs: productIDs(resp.Products),
		CreatedAt:       time.Now().UTC(),
	}
	if err := l.turns.SaveTurn(ctx, assistantTurn); err != nil {
		return SendResult{}, err
	}

	return SendResult{
		Reply:         resp.Message,
		SessionID:     current,
		Rotated:       rotated,
		Products:      resp.Products,
		FunctionCalls: resp.FunctionCalls,
	}, nil
}

// LoadHistory returns all turns for the current session in ascending
// timestamp order. Local storage is authoritative for the UI.
func (l *Log) LoadHistory(ctx context.Context) ([]ConversationTurn, error) {
	sid, err := l.state.CurrentSessionID(ctx)
	if err != nil {
		return nil, err
	}
	return l.turns.TurnsBySession(ctx, sid)
}

// RemoteHistory is the secondary, best-effort reconciliation path. It
// never replaces local history.
func (l *Log) RemoteHistory(ctx context.Context) ([]chatapi.RemoteTurn, error) {
	sid, err := l.state.CurrentSessionID(ctx)
	if err != nil {
		return nil, err
	}
	return l.remote.History(ctx, sid)
}

// Clear deletes local turns for the current session (best effort),
// requests remote clearing (failure surfaced in the result), then installs
// a fresh session id. The returned error covers only identifier
// persistence; partial failures live in the ClearResult.
func (l *Log) Clear(ctx context.Context) (ClearResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sid, err := l.state.CurrentSessionID(ctx)
	if err != nil {
		return ClearResult{}, err
	}

	res := ClearResult{ClearedSessionID: sid}

	// Local deletion proceeds even on failure so the user is never stuck.
	if err := l.turns.DeleteSession(ctx, sid); err != nil {
		res.LocalErr = err
		log.Printf("local turn delete for session %s failed: %v", sid, err)
	}

	if err := l.remote.ClearSession(ctx, sid); err != nil {
		res.RemoteErr = err
	}

	_, fresh, err := l.state.Replace(ctx)
	if err != nil {
		return res, fmt.Errorf("replace session id: %w", err)
	}
	res.NewSessionID = fresh
	return res, nil
}

func productIDs(products []chatapi.Product) []string {
	if len(products) == 0 {
		return nil
	}
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}
