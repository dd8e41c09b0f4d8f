// Package api provides HTTP handlers for the NOMA API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/feed"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/middleware"
)

// FeedHandlers holds dependencies for feed HTTP handlers.
type FeedHandlers struct {
	ranker *feed.Ranker
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(ranker *feed.Ranker) *FeedHandlers {
	return &FeedHandlers{
		ranker: ranker,
	}
}

// GetFeed handles GET /feed - returns one ranked feed page.
//
// Query parameters:
//   - cursor: opaque pagination cursor from a previous page (optional)
//   - limit: requested page size (optional, clamped server-side)
//
// Authenticated viewers receive the personalized ranked feed; anonymous
// requests receive the trending feed. Malformed cursor or limit values
// are ignored rather than rejected, so stale clients keep working.
func (h *FeedHandlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	req := feed.Request{
		ViewerID: middleware.GetUserID(r.Context()),
		Cursor:   feed.ParseCursor(r.URL.Query().Get("cursor")),
	}
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		if limit, err := strconv.Atoi(rawLimit); err == nil {
			req.Limit = limit
		}
	}

	page, err := h.ranker.Rank(r.Context(), req)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to rank feed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to assemble feed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(page); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode feed response", "error", err)
	}
}
