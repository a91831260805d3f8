package sessionlog

import (
	"context"
	"time"
)

// Role distinguishes who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one persisted turn of local conversation history.
// Turns are immutable once written and are never re-keyed to a newer
// session id; they are deleted en masse when their session is cleared.
type ConversationTurn struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"session_id"`
	Role            Role      `json:"role"`
	Content         string    `json:"content"`
	AttachedItemIDs []string  `json:"attached_item_ids,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// TurnStore persists conversation turns. TurnsBySession returns turns in
// ascending timestamp order.
type TurnStore interface {
	SaveTurn(ctx context.Context, turn ConversationTurn) error
	TurnsBySession(ctx context.Context, sessionID string) ([]ConversationTurn, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Close() error
}

// KVStore is the small key-value area holding session and user identifiers.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}
