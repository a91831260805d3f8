package assistant

import (
	"context"
	"errors"
	"testing"

	"shopmate/internal/catalog"
	"shopmate/internal/chatapi"
	"shopmate/internal/ledger"
	"shopmate/internal/profile"
	"shopmate/internal/recs"
	"shopmate/internal/sessionlog"
)

type fakeCatalog struct {
	searchByUPC func(ctx context.Context, code string) ([]catalog.Item, error)
	alsoViewed  func(ctx context.Context, id string) ([]catalog.Item, error)
	similar     func(ctx context.Context, id string) ([]catalog.Item, error)
	mostViewed  func(ctx context.Context, categoryID string, limit int) ([]catalog.Item, error)
}

func (f *fakeCatalog) SearchByUPC(ctx context.Context, code string) ([]catalog.Item, error) {
	if f.searchByUPC == nil {
		return nil, nil
	}
	return f.searchByUPC(ctx, code)
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

type capturingRemote struct {
	lastContext *chatapi.UserContext
}

func (r *capturingRemote) Send(_ context.Context, req chatapi.SendRequest) (chatapi.SendResponse, error) {
	r.lastContext = req.UserContext
	return chatapi.SendResponse{Message: "ack", SessionID: req.SessionID}, nil
}

func (r *capturingRemote) History(context.Context, string) ([]chatapi.RemoteTurn, error) {
	return nil, nil
}

func (r *capturingRemote) ClearSession(context.Context, string) error { return nil }

func newTestAssistant(cat catalog.Client, remote chatapi.Client) (*Assistant, ledger.Store) {
	store := ledger.NewInMemoryStore()
	if remote == nil {
		remote = &capturingRemote{}
	}
	sessions := sessionlog.NewLog(
		sessionlog.NewInMemoryTurnStore(),
		sessionlog.NewState(sessionlog.NewInMemoryKVStore()),
		remote,
	)
	a := New(store, profile.NewBuilder(store), recs.New(cat, recs.Options{}), cat, sessions, nil)
	return a, store
}

func view(t *testing.T, a *Assistant, id, category string) {
	t.Helper()
	a.OnItemViewed(context.Background(), catalog.Item{ID: id, Name: "item " + id, Category: category})
}

func TestTrackingHooksRecordEvents(t *testing.T) {
	a, store := newTestAssistant(&fakeCatalog{}, nil)
	ctx := context.Background()

	a.OnItemViewed(ctx, catalog.Item{ID: "1", Category: "tv"})
	a.OnItemScanned(ctx, catalog.Item{ID: "2", Category: "tv"})
	a.OnItemAddedToCart(ctx, catalog.Item{ID: "3", Category: "tv"})
	// Invalid item is dropped, not propagated.
	a.OnItemViewed(ctx, catalog.Item{ID: ""})

	n, err := store.TotalCount(ctx)
	if err != nil {
		t.Fatalf("TotalCount() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("TotalCount() = %d, want 3", n)
	}
}

func TestRecommendationsEmptyWithoutProfile(t *testing.T) {
	called := false
	a, _ := newTestAssistant(&fakeCatalog{
		mostViewed: func(context.Context, string, int) ([]catalog.Item, error) {
			called = true
			return nil, nil
		},
	}, nil)

	got, err := a.GetRecommendationsForUser(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetRecommendationsForUser() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d candidates without signal, want 0", len(got))
	}
	if called {
		t.Fatalf("no upstream call may happen below the signal threshold")
	}
}

func TestRecommendationsUseProfileAndSeenSet(t *testing.T) {
	var askedCategories []string
	a, _ := newTestAssistant(&fakeCatalog{
		mostViewed: func(_ context.Context, cat string, _ int) ([]catalog.Item, error) {
			askedCategories = append(askedCategories, cat)
			return []catalog.Item{
				{ID: "seen-1", Name: "already seen"},
				{ID: cat + "-fresh", Name: "fresh"},
			}, nil
		},
	}, nil)

	for i := 0; i < 5; i++ {
		view(t, a, "seen-1", "tv")
	}

	got, err := a.GetRecommendationsForUser(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetRecommendationsForUser() error = %v", err)
	}
	if len(askedCategories) != 1 || askedCategories[0] != "tv" {
		t.Fatalf("asked categories = %v, want [tv]", askedCategories)
	}
	if len(got) != 1 || got[0].ItemID != "tv-fresh" {
		t.Fatalf("got %+v, want only tv-fresh (seen-1 filtered)", got)
	}
}

func TestGetSimilarItemsSurfacesAllSourcesFailed(t *testing.T) {
	boom := func(context.Context, string) ([]catalog.Item, error) {
		return nil, errors.New("down")
	}
	a, _ := newTestAssistant(&fakeCatalog{alsoViewed: boom, similar: boom}, nil)

	_, err := a.GetSimilarItems(context.Background(), "anchor", 10)
	if !errors.Is(err, recs.ErrAllSourcesFailed) {
		t.Fatalf("error = %v, want ErrAllSourcesFailed", err)
	}
}

func TestSendChatMessageAttachesProfileContext(t *testing.T) {
	remote := &capturingRemote{}
	a, _ := newTestAssistant(&fakeCatalog{}, remote)
	ctx := context.Background()

	// Below threshold: no context.
	if _, err := a.SendChatMessage(ctx, "hello"); err != nil {
		t.Fatalf("SendChatMessage() error = %v", err)
	}
	if remote.lastContext != nil {
		t.Fatalf("context should be absent below the signal threshold")
	}

	for i := 0; i < 5; i++ {
		view(t, a, "sku-1", "tv")
	}
	if _, err := a.SendChatMessage(ctx, "now with context"); err != nil {
		t.Fatalf("SendChatMessage() error = %v", err)
	}
	if remote.lastContext == nil {
		t.Fatalf("context should be attached once the profile is present")
	}
	if remote.lastContext.InteractionCount != 5 {
		t.Fatalf("InteractionCount = %d, want 5", remote.lastContext.InteractionCount)
	}
	if len(remote.lastContext.RecentCategories) == 0 || remote.lastContext.RecentCategories[0] != "tv" {
		t.Fatalf("RecentCategories = %v, want [tv]", remote.lastContext.RecentCategories)
	}
}

func TestLookupByUPCTracksScan(t *testing.T) {
	a, store := newTestAssistant(&fakeCatalog{
		searchByUPC: func(context.Context, string) ([]catalog.Item, error) {
			return []catalog.Item{{ID: "sku-9", Name: "scanned item"}}, nil
		},
	}, nil)

	items, err := a.LookupByUPC(context.Background(), "0123456789")
	if err != nil {
		t.Fatalf("LookupByUPC() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	n, _ := store.TotalCount(context.Background())
	if n != 1 {
		t.Fatalf("scan should record one event, ledger has %d", n)
	}
}

func TestClearThenHistoryIsEmpty(t *testing.T) {
	a, _ := newTestAssistant(&fakeCatalog{}, nil)
	ctx := context.Background()

	if _, err := a.SendChatMessage(ctx, "hello"); err != nil {
		t.Fatalf("SendChatMessage() error = %v", err)
	}
	res, err := a.ClearConversation(ctx)
	if err != nil {
		t.Fatalf("ClearConversation() error = %v", err)
	}
	if res.NewSessionID == "" {
		t.Fatalf("clear should install a fresh session id")
	}

	turns, err := a.LoadHistory(ctx)
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("history after clear = %d turns, want 0", len(turns))
	}
}
