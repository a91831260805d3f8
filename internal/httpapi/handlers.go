package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"shopmate/internal/catalog"
	"shopmate/internal/ledger"
	"shopmate/internal/recs"
	"shopmate/internal/reliability"
)

// trackRequest mirrors the product card the UI already holds when the
// user acts on an item.
type trackRequest struct {
	ItemID   string   `json:"item_id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Brand    string   `json:"brand"`
	Price    *float64 `json:"price"`
}

func (t trackRequest) item() catalog.Item {
	return catalog.Item{
		ID:        t.ItemID,
		Name:      t.Name,
		Category:  t.Category,
		Brand:     t.Brand,
		SalePrice: t.Price,
	}
}

func (s *Server) handleTrackView(w http.ResponseWriter, r *http.Request) {
	s.handleTrack(w, r, ledger.KindViewed)
}

func (s *Server) handleTrackScan(w http.ResponseWriter, r *http.Request) {
	s.handleTrack(w, r, ledger.KindScanned)
}

func (s *Server) handleTrackCart(w http.ResponseWriter, r *http.Request) {
	s.handleTrack(w, r, ledger.KindAddedToCart)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request, kind ledger.EventKind) {
	var req trackRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.ItemID) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "item_id is required")
		return
	}

	// Tracking is fire and forget; failures are logged inside the facade.
	switch kind {
	case ledger.KindScanned:
		s.assistant.OnItemScanned(r.Context(), req.item())
	case ledger.KindAddedToCart:
		s.assistant.OnItemAddedToCart(r.Context(), req.item())
	default:
		s.assistant.OnItemViewed(r.Context(), req.item())
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleLookupUPC(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if strings.TrimSpace(code) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "missing upc code")
		return
	}

	items, err := s.assistant.LookupByUPC(r.Context(), code)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := s.assistant.GetItem(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondError(w, http.StatusNotFound, "item_not_found", err.Error())
		return
	}
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleSimilarItems(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := limitParam(r, s.defaultLimit())

	cands, err := s.assistant.GetSimilarItems(r.Context(), id, limit)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"candidates": emptyAsList(cands)})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	limit := limitParam(r, s.defaultLimit())

	cands, err := s.assistant.GetRecommendationsForUser(r.Context(), limit)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"candidates": emptyAsList(cands)})
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	res, err := s.assistant.SendChatMessage(r.Context(), req.Message)
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := s.assistant.LoadHistory(r.Context())
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"turns": emptyAsList(turns)})
}

func (s *Server) handleRemoteHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := s.assistant.RemoteHistory(r.Context())
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"turns": emptyAsList(turns)})
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request) {
	res, err := s.assistant.ClearConversation(r.Context())
	if err != nil {
		s.respondFailure(w, err)
		return
	}

	payload := map[string]any{
		"cleared_session_id": res.ClearedSessionID,
		"new_session_id":     res.NewSessionID,
	}
	// Local history is already gone; partial failures ride along so the
	// UI can report them separately.
	if res.RemoteErr != nil {
		payload["remote_error"] = res.RemoteErr.Error()
	}
	if res.LocalErr != nil {
		payload["local_error"] = res.LocalErr.Error()
	}
	respondJSON(w, http.StatusOK, payload)
}

// respondFailure maps the error taxonomy onto HTTP statuses.
func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	var te *reliability.TransportError
	if errors.As(err, &te) {
		respondJSON(w, http.StatusBadGateway, errorResponse{
			Error:     err.Error(),
			Code:      "upstream_failed",
			Retryable: te.Retryable(),
		})
		return
	}
	if errors.Is(err, recs.ErrAllSourcesFailed) {
		respondJSON(w, http.StatusBadGateway, errorResponse{
			Error:     err.Error(),
			Code:      "recommendations_unavailable",
			Retryable: true,
		})
		return
	}
	var pe *reliability.PersistenceError
	if errors.As(err, &pe) {
		respondError(w, http.StatusInternalServerError, "storage_failed", err.Error())
		return
	}
	respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

func (s *Server) defaultLimit() int {
	if s.cfg.RecsDefaultLimit > 0 {
		return s.cfg.RecsDefaultLimit
	}
	return recs.DefaultLimit
}

func limitParam(r *http.Request, fallback int) int {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// emptyAsList keeps JSON arrays as [] instead of null.
func emptyAsList[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
