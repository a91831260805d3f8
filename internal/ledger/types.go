package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventKind identifies the user action that produced an interaction event.
type EventKind string

const (
	KindViewed      EventKind = "viewed"
	KindScanned     EventKind = "scanned"
	KindAddedToCart EventKind = "added_to_cart"
)

// InteractionEvent is an immutable behavioral record. Events are never
// mutated after creation; they are only appended and eventually pruned.
type InteractionEvent struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	DisplayName string    `json:"display_name"`
	Category    string    `json:"category,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	Price       float64   `json:"price"`
	Kind        EventKind `json:"kind"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEvent validates required fields at construction. The store itself
// performs no further validation.
func NewEvent(itemID, displayName, category, brand string, price float64, kind EventKind) (InteractionEvent, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return InteractionEvent{}, errors.New("item id is required")
	}
	if price < 0 {
		return InteractionEvent{}, fmt.Errorf("price must be non-negative, got %v", price)
	}
	switch kind {
	case KindViewed, KindScanned, KindAddedToCart:
	default:
		return InteractionEvent{}, fmt.Errorf("unknown event kind %q", kind)
	}
	return InteractionEvent{
		ItemID:      itemID,
		DisplayName: strings.TrimSpace(displayName),
		Category:    strings.TrimSpace(category),
		Brand:       strings.TrimSpace(brand),
		Price:       price,
		Kind:        kind,
		OccurredAt:  time.Now().UTC(),
	}, nil
}

// Aggregate is one (value, count) row of a grouped ledger query.
type Aggregate struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Store is the append-only interaction ledger. Aggregate queries order by
// count descending with most-recent-occurrence breaking ties.
type Store interface {
	Record(ctx context.Context, ev InteractionEvent) error
	AggregateByCategory(ctx context.Context, limit int) ([]Aggregate, error)
	AggregateByBrand(ctx context.Context, limit int) ([]Aggregate, error)
	RecentItemIDs(ctx context.Context, limit int) ([]string, error)
	AllDistinctItemIDs(ctx context.Context) (map[string]struct{}, error)
	TotalCount(ctx context.Context) (int, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Close() error
}
