package profile

import (
	"context"
	"fmt"

	"shopmate/internal/ledger"
)

// Below this many recorded interactions the profile carries too little
// signal to personalize anything and Build returns nil.
const minInteractionCount = 5

const (
	maxTopCategories = 3
	maxTopBrands     = 2
	maxRecentItems   = 5
)

// Profile is a derived personalization snapshot. It is never persisted;
// it reflects the ledger state at the moment Build was called.
type Profile struct {
	TopCategories         []string `json:"top_categories"`
	TopBrands             []string `json:"top_brands"`
	RecentItemIDs         []string `json:"recent_item_ids"`
	TotalInteractionCount int      `json:"total_interaction_count"`
}

// Builder derives profiles from the interaction ledger. It holds no state
// of its own, so every Build reads fresh aggregates.
type Builder struct {
	store ledger.Store
}

func NewBuilder(store ledger.Store) *Builder {
	return &Builder{store: store}
}

// Build returns the current profile, or nil when the ledger holds fewer
// than the minimum number of interactions. A nil profile is not an error.
func (b *Builder) Build(ctx context.Context) (*Profile, error) {
	total, err := b.store.TotalCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("profile total count: %w", err)
	}
	if total < minInteractionCount {
		return nil, nil
	}

	categories, err := b.store.AggregateByCategory(ctx, maxTopCategories)
	if err != nil {
		return nil, fmt.Errorf("profile categories: %w", err)
	}
	brands, err := b.store.AggregateByBrand(ctx, maxTopBrands)
	if err != nil {
		return nil, fmt.Errorf("profile brands: %w", err)
	}
	recent, err := b.store.RecentItemIDs(ctx, maxRecentItems)
	if err != nil {
		return nil, fmt.Errorf("profile recent items: %w", err)
	}

	p := &Profile{
		TopCategories:         make([]string, 0, len(categories)),
		TopBrands:             make([]string, 0, len(brands)),
		RecentItemIDs:         recent,
		TotalInteractionCount: total,
	}
	for _, a := range categories {
		p.TopCategories = append(p.TopCategories, a.Value)
	}
	for _, a := range brands {
		p.TopBrands = append(p.TopBrands, a.Value)
	}
	return p, nil
}
