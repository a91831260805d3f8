package recs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shopmate/internal/catalog"
)

type fakeCatalog struct {
	alsoViewed func(ctx context.Context, id string) ([]catalog.Item, error)
	similar    func(ctx context.Context, id string) ([]catalog.Item, error)
	mostViewed func(ctx context.Context, categoryID string, limit int) ([]catalog.Item, error)
}

func (f *fakeCatalog) SearchByUPC(context.Context, string) ([]catalog.Item, error) {
	return nil, nil
}

func (f *fakeCatalog) GetByID(context.Context, string) (catalog.Item, error) {
	return catalog.Item{}, catalog.ErrNotFound
}

func (f *fakeCatalog) AlsoViewed(ctx context.Context, id string) ([]catalog.Item, error) {
	if f.alsoViewed == nil {
		return nil, nil
	}
	return f.alsoViewed(ctx, id)
}

func (f *fakeCatalog) Similar(ctx context.Context, id string) ([]catalog.Item, error) {
	if f.similar == nil {
		return nil, nil
	}
	return f.similar(ctx, id)
}

func (f *fakeCatalog) MostViewedByCategory(ctx context.Context, categoryID string, limit int) ([]catalog.Item, error) {
	if f.mostViewed == nil {
		return nil, nil
	}
	return f.mostViewed(ctx, categoryID, limit)
}

func items(ids ...string) []catalog.Item {
	out := make([]catalog.Item, 0, len(ids))
	for _, id := range ids {
		out = append(out, catalog.Item{ID: id, Name: "item " + id})
	}
	return out
}

func ids(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.ItemID)
	}
	return out
}

func assertIDs(t *testing.T, got []Candidate, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("got %v, want %v", gotIDs, want)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("result[%d] = %q, want %q (full: %v)", i, gotIDs[i], want[i], gotIDs)
		}
	}
}

func TestForAnchorMergeDedupFirstSeen(t *testing.T) {
	e := New(&fakeCatalog{
		alsoViewed: func(context.Context, string) ([]catalog.Item, error) {
			return items("A", "B", "C"), nil
		},
		similar: func(context.Context, string) ([]catalog.Item, error) {
			return items("B", "C", "D"), nil
		},
	}, Options{})

	got, err := e.ForAnchor(context.Background(), "anchor", 10, nil)
	if err != nil {
		t.Fatalf("ForAnchor() error = %v", err)
	}
	assertIDs(t, got, "A", "B", "C", "D")
	if got[0].SourceTag != "also_viewed" || got[3].SourceTag != "similar" {
		t.Fatalf("source tags not preserved: %+v", got)
	}
}

func TestForAnchorSeenSetFiltering(t *testing.T) {
	e := New(&fakeCatalog{
		alsoViewed: func(context.Context, string) ([]catalog.Item, error) {
			return items("A", "B"), nil
		},
		similar: func(context.Context, string) ([]catalog.Item, error) {
			return items("C", "D"), nil
		},
	}, Options{})

	seen := map[string]struct{}{"B": {}, "D": {}}
	got, err := e.ForAnchor(context.Background(), "anchor", 10, seen)
	if err != nil {
		t.Fatalf("ForAnchor() error = %v", err)
	}
	assertIDs(t, got, "A", "C")
}

func TestForAnchorPartialFailureIsBestEffort(t *testing.T) {
	e := New(&fakeCatalog{
		alsoViewed: func(context.Context, string) ([]catalog.Item, error) {
			return nil, errors.New("upstream down")
		},
		similar: func(context.Context, string) ([]catalog.Item, error) {
			return items("X", "Y"), nil
		},
	}, Options{})

	got, err := e.ForAnchor(context.Background(), "anchor", 10, nil)
	if err != nil {
		t.Fatalf("partial failure should not error, got %v", err)
	}
	assertIDs(t, got, "X", "Y")
}

func TestForAnchorAllSourcesFailed(t *testing.T) {
	boom := func(context.Context, string) ([]catalog.Item, error) {
		return nil, errors.New("upstream down")
	}
	e := New(&fakeCatalog{alsoViewed: boom, similar: boom}, Options{})

	_, err := e.ForAnchor(context.Background(), "anchor", 10, nil)
	if !errors.Is(err, ErrAllSourcesFailed) {
		t.Fatalf("error = %v, want ErrAllSourcesFailed", err)
	}
}

func TestEmptyAfterFilteringIsSuccess(t *testing.T) {
	e := New(&fakeCatalog{
		alsoViewed: func(context.Context, string) ([]catalog.Item, error) {
			return items("A"), nil
		},
		similar: func(context.Context, string) ([]catalog.Item, error) {
			return nil, nil
		},
	}, Options{})

	got, err := e.ForAnchor(context.Background(), "anchor", 10, map[string]struct{}{"A": {}})
	if err != nil {
		t.Fatalf("empty result should not be an error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", ids(got))
	}
}

func TestForCategoriesIssuanceOrderAndCap(t *testing.T) {
	var mu sync.Mutex
	var asked []string
	e := New(&fakeCatalog{
		mostViewed: func(_ context.Context, cat string, _ int) ([]catalog.Item, error) {
			mu.Lock()
			asked = append(asked, cat)
			mu.Unlock()
			return items(cat + "-1"), nil
		},
	}, Options{})

	got, err := e.ForCategories(context.Background(), []string{"tv", "audio", "laptops", "cameras"}, 10, nil)
	if err != nil {
		t.Fatalf("ForCategories() error = %v", err)
	}
	assertIDs(t, got, "tv-1", "audio-1", "laptops-1")

	mu.Lock()
	defer mu.Unlock()
	if len(asked) != 3 {
		t.Fatalf("fanned out to %d categories, want 3", len(asked))
	}
}

func TestMergeTruncatesToLimit(t *testing.T) {
	got := merge([][]Candidate{
		{{ItemID: "A"}, {ItemID: "B"}, {ItemID: "C"}},
		{{ItemID: "D"}, {ItemID: "E"}},
	}, nil, 4)
	assertIDs(t, got, "A", "B", "C", "D")
}

func TestForAnchorSupersededByNewerRequest(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	e := New(&fakeCatalog{
		alsoViewed: func(ctx context.Context, _ string) ([]catalog.Item, error) {
			started <- struct{}{}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
				return items("A"), nil
			}
		},
		similar: func(ctx context.Context, _ string) ([]catalog.Item, error) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-release:
				return items("B"), nil
			}
		},
	}, Options{})

	errCh := make(chan error, 1)
	go func() {
		_, err := e.ForAnchor(context.Background(), "anchor", 10, nil)
		errCh <- err
	}()
	<-started

	// Second request for the same anchor cancels the first.
	go func() {
		<-started
		close(release)
	}()
	got, err := e.ForAnchor(context.Background(), "anchor", 10, nil)
	if err != nil {
		t.Fatalf("newer request error = %v", err)
	}
	assertIDs(t, got, "A", "B")

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("first request error = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("first request did not finish")
	}
}

func TestFanoutDelayIsCancellable(t *testing.T) {
	called := false
	e := New(&fakeCatalog{
		mostViewed: func(context.Context, string, int) ([]catalog.Item, error) {
			called = true
			return items("A"), nil
		},
	}, Options{FanoutDelay: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.ForCategories(ctx, []string{"tv"}, 10, nil)
	if err == nil {
		t.Fatalf("cancelled delay should surface an error")
	}
	if called {
		t.Fatalf("no upstream call may be issued when the delay is cancelled")
	}
}
