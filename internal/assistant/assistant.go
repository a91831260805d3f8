package assistant

import (
	"context"
	"log"
	"time"

	"shopmate/internal/catalog"
	"shopmate/internal/chatapi"
	"shopmate/internal/ledger"
	"shopmate/internal/observability"
	"shopmate/internal/profile"
	"shopmate/internal/recs"
	"shopmate/internal/sessionlog"
)

// Assistant is the orchestration facade consumed by the API layer. One
// method call corresponds to one user action.
type Assistant struct {
	ledger   ledger.Store
	profiles *profile.Builder
	engine   *recs.Engine
	catalog  catalog.Client
	sessions *sessionlog.Log
	metrics  *observability.Metrics
}

func New(
	store ledger.Store,
	profiles *profile.Builder,
	engine *recs.Engine,
	cat catalog.Client,
	sessions *sessionlog.Log,
	metrics *observability.Metrics,
) *Assistant {
	return &Assistant{
		ledger:   store,
		profiles: profiles,
		engine:   engine,
		catalog:  cat,
		sessions: sessions,
		metrics:  metrics,
	}
}

// OnItemViewed records a view event. Tracking failures are logged, never
// propagated: a broken ledger must not block product display.
func (a *Assistant) OnItemViewed(ctx context.Context, item catalog.Item) {
	a.track(ctx, item, ledger.KindViewed)
}

// OnItemScanned records a barcode-scan event.
func (a *Assistant) OnItemScanned(ctx context.Context, item catalog.Item) {
	a.track(ctx, item, ledger.KindScanned)
}

// OnItemAddedToCart records an add-to-cart event.
func (a *Assistant) OnItemAddedToCart(ctx context.Context, item catalog.Item) {
	a.track(ctx, item, ledger.KindAddedToCart)
}

func (a *Assistant) track(ctx context.Context, item catalog.Item, kind ledger.EventKind) {
	price, _ := item.CurrentPrice()
	ev, err := ledger.NewEvent(item.ID, item.Name, item.Category, item.Brand, price, kind)
	if err != nil {
		log.Printf("skip %s event: %v", kind, err)
		return
	}
	if err := a.ledger.Record(ctx, ev); err != nil {
		log.Printf("record %s event for %s failed: %v", kind, item.ID, err)
		return
	}
	if a.metrics != nil {
		a.metrics.InteractionEvents.WithLabelValues(string(kind)).Inc()
	}
}

// GetRecommendationsForUser returns interest-based candidates. Without
// enough behavioral signal there is no profile and the result is empty,
// which is a normal outcome, not an error.
func (a *Assistant) GetRecommendationsForUser(ctx context.Context, limit int) ([]recs.Candidate, error) {
	p, err := a.buildProfile(ctx)
	if err != nil {
		a.countRecs("categories", "error")
		return nil, err
	}
	if p == nil {
		a.countRecs("categories", "no_profile")
		return nil, nil
	}

	seen, err := a.ledger.AllDistinctItemIDs(ctx)
	if err != nil {
		// Filtering is an enhancement; recommendations still flow without it.
		log.Printf("seen-set lookup failed, recommending unfiltered: %v", err)
		seen = nil
	}

	started := time.Now()
	out, err := a.engine.ForCategories(ctx, p.TopCategories, limit, seen)
	if a.metrics != nil {
		a.metrics.ObserveStage(observability.StageCategoryFanout, time.Since(started))
	}
	if err != nil {
		a.countRecs("categories", "error")
		return nil, err
	}
	if len(out) == 0 {
		a.countRecs("categories", "empty")
	} else {
		a.countRecs("categories", "ok")
	}
	return out, nil
}

// GetSimilarItems returns "more like this" candidates for one anchor item.
func (a *Assistant) GetSimilarItems(ctx context.Context, anchorItemID string, limit int) ([]recs.Candidate, error) {
	started := time.Now()
	out, err := a.engine.ForAnchor(ctx, anchorItemID, limit, nil)
	if a.metrics != nil {
		a.metrics.ObserveStage(observability.StageAnchorFanout, time.Since(started))
	}
	if err != nil {
		a.countRecs("anchor", "error")
		return nil, err
	}
	if len(out) == 0 {
		a.countRecs("anchor", "empty")
	} else {
		a.countRecs("anchor", "ok")
	}
	return out, nil
}

// LookupByUPC resolves a scanned barcode. The first match is tracked as a
// scan event.
func (a *Assistant) LookupByUPC(ctx context.Context, code string) ([]catalog.Item, error) {
	started := time.Now()
	items, err := a.catalog.SearchByUPC(ctx, code)
	if a.metrics != nil {
		a.metrics.ObserveStage(observability.StageCatalogLookup, time.Since(started))
	}
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		a.OnItemScanned(ctx, items[0])
	}
	return items, nil
}

// GetItem resolves one catalog item by id.
func (a *Assistant) GetItem(ctx context.Context, id string) (catalog.Item, error) {
	started := time.Now()
	item, err := a.catalog.GetByID(ctx, id)
	if a.metrics != nil {
		a.metrics.ObserveStage(observability.StageCatalogLookup, time.Since(started))
	}
	return item, err
}

// SendChatMessage sends one user message through the session log,
// attaching the affinity profile as remote context when present.
func (a *Assistant) SendChatMessage(ctx context.Context, text string) (sessionlog.SendResult, error) {
	userContext := a.profileContext(ctx)

	started := time.Now()
	res, err := a.sessions.SendMessage(ctx, text, userContext)
	if a.metrics != nil {
		a.metrics.ObserveChatSendLatency(time.Since(started))
		if err != nil {
			a.metrics.ChatSends.WithLabelValues("error").Inc()
		} else {
			a.metrics.ChatSends.WithLabelValues("ok").Inc()
			if res.Rotated {
				a.metrics.SessionRotations.Inc()
			}
		}
	}
	return res, err
}

// ClearConversation wipes local history, requests remote clearing, and
// starts a fresh session.
func (a *Assistant) ClearConversation(ctx context.Context) (sessionlog.ClearResult, error) {
	res, err := a.sessions.Clear(ctx)
	if err == nil && a.metrics != nil {
		a.metrics.SessionClears.Inc()
	}
	return res, err
}

// LoadHistory returns the locally persisted turns for the current session.
func (a *Assistant) LoadHistory(ctx context.Context) ([]sessionlog.ConversationTurn, error) {
	started := time.Now()
	turns, err := a.sessions.LoadHistory(ctx)
	if a.metrics != nil {
		a.metrics.ObserveStage(observability.StageHistoryLoad, time.Since(started))
	}
	return turns, err
}

// RemoteHistory fetches the remote service's view of the current session.
// Best effort; local history stays authoritative.
func (a *Assistant) RemoteHistory(ctx context.Context) ([]chatapi.RemoteTurn, error) {
	return a.sessions.RemoteHistory(ctx)
}

func (a *Assistant) buildProfile(ctx context.Context) (*profile.Profile, error) {
	started := time.Now()
	p, err := a.profiles.Build(ctx)
	if a.metrics != nil {
		a.metrics.ObserveStage(observability.StageProfileBuild, time.Since(started))
		if err == nil {
			presence := "present"
			if p == nil {
				presence = "absent"
			}
			a.metrics.ProfileBuilds.WithLabelValues(presence).Inc()
		}
	}
	return p, err
}

// profileContext derives the outgoing chat context. Profile failures only
// cost personalization, never the message itself.
func (a *Assistant) profileContext(ctx context.Context) *chatapi.UserContext {
	p, err := a.buildProfile(ctx)
	if err != nil {
		log.Printf("profile build failed, sending without context: %v", err)
		return nil
	}
	if p == nil {
		return nil
	}
	return &chatapi.UserContext{
		InteractionCount: p.TotalInteractionCount,
		RecentCategories: p.TopCategories,
		FavoriteBrands:   p.TopBrands,
		RecentItemIDs:    p.RecentItemIDs,
	}
}

func (a *Assistant) countRecs(mode, outcome string) {
	if a.metrics != nil {
		a.metrics.RecommendationRequests.WithLabelValues(mode, outcome).Inc()
	}
}
