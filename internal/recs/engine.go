package recs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"shopmate/internal/catalog"
	"shopmate/internal/observability"
)

// DefaultLimit bounds a merged result set when the caller passes no limit.
const DefaultLimit = 10

// At most this many category sources fan out per request, matching the
// profile's top-category cap.
const maxCategorySources = 3

// ErrAllSourcesFailed is returned only when every fan-out source failed.
// Partial failure yields a partial result, not an error.
var ErrAllSourcesFailed = errors.New("all recommendation sources failed")

// ErrSuperseded is returned to a fan-out that was cancelled because a newer
// request for the same anchor arrived.
var ErrSuperseded = errors.New("recommendation request superseded")

// Candidate is the normalized recommendation shape. It exists only within
// one merge operation; nothing persists it.
type Candidate struct {
	ItemID        string   `json:"item_id"`
	DisplayName   string   `json:"display_name"`
	CurrentPrice  *float64 `json:"current_price,omitempty"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
	Rank          int      `json:"rank"`
	SourceTag     string   `json:"source_tag"`
	ImageURL      string   `json:"image_url,omitempty"`
	ProductURL    string   `json:"product_url,omitempty"`
}

type source struct {
	tag   string
	fetch func(ctx context.Context) ([]catalog.Item, error)
}

// Engine fans out to independent upstream recommendation sources, waits for
// all of them, and merges their results with first-seen dedup.
type Engine struct {
	catalog       catalog.Client
	fanoutDelay   time.Duration
	sourceTimeout time.Duration
	metrics       *observability.Metrics

	mu       sync.Mutex
	inflight map[string]*inflightRequest
}

type inflightRequest struct {
	cancel context.CancelFunc
}

type Options struct {
	// FanoutDelay is a deliberate pause before issuing upstream calls, to
	// stay under upstream throttling. Cancellable without side effects.
	FanoutDelay   time.Duration
	SourceTimeout time.Duration
	Metrics       *observability.Metrics
}

func New(c catalog.Client, opts Options) *Engine {
	timeout := opts.SourceTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Engine{
		catalog:       c,
		fanoutDelay:   opts.FanoutDelay,
		sourceTimeout: timeout,
		metrics:       opts.Metrics,
		inflight:      make(map[string]*inflightRequest),
	}
}

// ForAnchor produces "more like this" candidates for one anchor item. A
// newer call for the same anchor cancels any in-flight one.
func (e *Engine) ForAnchor(ctx context.Context, anchorID string, limit int, seen map[string]struct{}) ([]Candidate, error) {
	ctx, done, superseded := e.beginAnchor(ctx, anchorID)
	defer done()

	sources := []source{
		{tag: "also_viewed", fetch: func(ctx context.Context) ([]catalog.Item, error) {
			return e.catalog.AlsoViewed(ctx, anchorID)
		}},
		{tag: "similar", fetch: func(ctx context.Context) ([]catalog.Item, error) {
			return e.catalog.Similar(ctx, anchorID)
		}},
	}
	out, err := e.fanOut(ctx, sources, limit, seen)
	if err != nil && superseded() {
		return nil, ErrSuperseded
	}
	return out, err
}

// ForCategories produces "based on your interests" candidates, one source
// per category, capped at three categories.
func (e *Engine) ForCategories(ctx context.Context, categoryIDs []string, limit int, seen map[string]struct{}) ([]Candidate, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	if len(categoryIDs) > maxCategorySources {
		categoryIDs = categoryIDs[:maxCategorySources]
	}

	perSource := limit
	if perSource <= 0 {
		perSource = DefaultLimit
	}

	sources := make([]source, 0, len(categoryIDs))
	for _, cat := range categoryIDs {
		cat := cat
		sources = append(sources, source{
			tag: "most_viewed:" + cat,
			fetch: func(ctx context.Context) ([]catalog.Item, error) {
				return e.catalog.MostViewedByCategory(ctx, cat, perSource)
			},
		})
	}
	return e.fanOut(ctx, sources, limit, seen)
}

func (e *Engine) fanOut(ctx context.Context, sources []source, limit int, seen map[string]struct{}) ([]Candidate, error) {
	if err := e.pause(ctx); err != nil {
		return nil, err
	}

	// One result slot per source keeps issuance order for the merge
	// tie-break; sources complete in arbitrary order.
	results := make([][]Candidate, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	g.SetLimit(maxCategorySources)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			srcCtx, cancel := context.WithTimeout(ctx, e.sourceTimeout)
			defer cancel()

			items, err := src.fetch(srcCtx)
			if err != nil {
				// Best effort: a failed source contributes nothing and
				// must not abort its siblings.
				errs[i] = err
				log.Printf("recommendation source %s failed: %v", src.tag, err)
				if e.metrics != nil {
					e.metrics.SourceFailures.WithLabelValues(src.tag).Inc()
				}
				return nil
			}
			cands := make([]Candidate, 0, len(items))
			for rank, it := range items {
				cands = append(cands, candidateFrom(it, rank, src.tag))
			}
			results[i] = cands
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	var lastErr error
	for _, err := range errs {
		if err != nil {
			failed++
			lastErr = err
		}
	}
	if failed == len(sources) {
		return nil, fmt.Errorf("%w: %v", ErrAllSourcesFailed, lastErr)
	}

	return merge(results, seen, limit), nil
}

// merge concatenates per-source results in issuance order, drops duplicate
// item ids keeping the first occurrence, removes already-seen items, and
// truncates to limit. Source-provided order is trusted; no re-ranking.
func merge(results [][]Candidate, seen map[string]struct{}, limit int) []Candidate {
	if limit <= 0 {
		limit = DefaultLimit
	}

	taken := make(map[string]struct{})
	out := make([]Candidate, 0, limit)
	for _, batch := range results {
		for _, c := range batch {
			if _, dup := taken[c.ItemID]; dup {
				continue
			}
			taken[c.ItemID] = struct{}{}
			if _, skip := seen[c.ItemID]; skip {
				continue
			}
			out = append(out, c)
			if len(out) >= limit {
				return out
			}
		}
	}
	return out
}

func candidateFrom(it catalog.Item, rank int, tag string) Candidate {
	c := Candidate{
		ItemID:      it.ID,
		DisplayName: it.Name,
		Rank:        rank,
		SourceTag:   tag,
		ImageURL:    it.ImageURL,
		ProductURL:  it.ProductURL,
	}
	if p, ok := it.CurrentPrice(); ok {
		v := p
		c.CurrentPrice = &v
	}
	if p, ok := it.OriginalPrice(); ok {
		v := p
		c.OriginalPrice = &v
	}
	return c
}

func (e *Engine) pause(ctx context.Context) error {
	if e.fanoutDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(e.fanoutDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) beginAnchor(ctx context.Context, anchorID string) (context.Context, func(), func() bool) {
	ctx, cancel := context.WithCancel(ctx)
	entry := &inflightRequest{cancel: cancel}

	e.mu.Lock()
	if prev, ok := e.inflight[anchorID]; ok {
		prev.cancel()
	}
	e.inflight[anchorID] = entry
	e.mu.Unlock()

	done := func() {
		e.mu.Lock()
		if cur, ok := e.inflight[anchorID]; ok && cur == entry {
			delete(e.inflight, anchorID)
		}
		e.mu.Unlock()
		cancel()
	}
	superseded := func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return e.inflight[anchorID] != entry
	}
	return ctx, done, superseded
}
