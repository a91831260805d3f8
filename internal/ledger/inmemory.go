package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process ledger for local/dev use.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []InteractionEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Record(_ context.Context, ev InteractionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *InMemoryStore) AggregateByCategory(_ context.Context, limit int) ([]Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aggregate(func(ev InteractionEvent) string { return ev.Category }, limit), nil
}

func (s *InMemoryStore) AggregateByBrand(_ context.Context, limit int) ([]Aggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aggregate(func(ev InteractionEvent) string { return ev.Brand }, limit), nil
}

func (s *InMemoryStore) aggregate(key func(InteractionEvent) string, limit int) []Aggregate {
	if limit <= 0 {
		limit = 3
	}

	counts := make(map[string]int)
	lastSeen := make(map[string]time.Time)
	for _, ev := range s.events {
		k := key(ev)
		if k == "" {
			continue
		}
		counts[k]++
		if ev.OccurredAt.After(lastSeen[k]) {
			lastSeen[k] = ev.OccurredAt
		}
	}

	out := make([]Aggregate, 0, len(counts))
	for k, n := range counts {
		out = append(out, Aggregate{Value: k, Count: n})
	}
	// Ties on count resolve toward the most recently seen value.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return lastSeen[out[i].Value].After(lastSeen[out[j].Value])
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *InMemoryStore) RecentItemIDs(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 5
	}

	// Walk newest-first; an item seen twice keeps its most recent position.
	seen := make(map[string]struct{}, len(s.events))
	out := make([]string, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(out) < limit; i-- {
		id := s.events[i].ItemID
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func (s *InMemoryStore) AllDistinctItemIDs(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.events))
	for _, ev := range s.events {
		out[ev.ItemID] = struct{}{}
	}
	return out, nil
}

func (s *InMemoryStore) TotalCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events), nil
}

func (s *InMemoryStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var pruned int64
	for _, ev := range s.events {
		if ev.OccurredAt.Before(cutoff) {
			pruned++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return pruned, nil
}

func (s *InMemoryStore) Close() error { return nil }
