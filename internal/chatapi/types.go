package chatapi

import (
	"context"
	"time"
)

// UserContext is the serialized affinity snapshot attached to outgoing
// chat requests so the remote service can personalize tool calls.
type UserContext struct {
	InteractionCount int      `json:"interaction_count"`
	RecentCategories []string `json:"recent_categories,omitempty"`
	FavoriteBrands   []string `json:"favorite_manufacturers,omitempty"`
	RecentItemIDs    []string `json:"recent_skus,omitempty"`
}

// Product is a product card attached to an assistant reply.
type Product struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	URL      string   `json:"url,omitempty"`
}

type SendRequest struct {
	Message     string       `json:"message"`
	SessionID   string       `json:"session_id,omitempty"`
	UserID      string       `json:"user_id,omitempty"`
	UserContext *UserContext `json:"user_context,omitempty"`
}

// SendResponse always carries the authoritative session id; when it
// differs from the one sent, the caller must rotate.
type SendResponse struct {
	Message       string    `json:"message"`
	SessionID     string    `json:"session_id"`
	FunctionCalls []string  `json:"function_calls,omitempty"`
	Products      []Product `json:"products,omitempty"`
}

// RemoteTurn is one turn of server-side history, used only by the
// best-effort reconciliation path.
type RemoteTurn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is the remote chat service contract.
type Client interface {
	Send(ctx context.Context, req SendRequest) (SendResponse, error)
	History(ctx context.Context, sessionID string) ([]RemoteTurn, error)
	ClearSession(ctx context.Context, sessionID string) error
}
