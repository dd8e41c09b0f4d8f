// Package api provides HTTP handlers for the NOMA API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/middleware"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/mute"
)

// MuteWordRequest represents the request body for adding or removing a
// mute word.
type MuteWordRequest struct {
	Word string `json:"word"`
}

// MuteWordsResponse is the viewer's mute word list.
type MuteWordsResponse struct {
	Words []string `json:"words"`
}

// MuteHandlers holds dependencies for mute word HTTP handlers.
type MuteHandlers struct {
	mutes mute.Repository
}

// NewMuteHandlers creates a new MuteHandlers instance.
func NewMuteHandlers(mutes mute.Repository) *MuteHandlers {
	return &MuteHandlers{
		mutes: mutes,
	}
}

// HandleMutes dispatches /mutes.
func (h *MuteHandlers) HandleMutes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListMuteWords(w, r)
	case http.MethodPost:
		h.AddMuteWord(w, r)
	case http.MethodDelete:
		h.RemoveMuteWord(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// AddMuteWord handles POST /mutes - adds a word to the viewer's mute list.
func (h *MuteHandlers) AddMuteWord(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req MuteWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if err := h.mutes.Add(r.Context(), userID, req.Word); err != nil {
		switch {
		case errors.Is(err, mute.ErrInvalidWord):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidMuteWord)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidMuteWord, "Mute word must be non-empty and at most 64 characters")
		case errors.Is(err, mute.ErrTooManyWords):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeMuteListFull)
			WriteError(w, ctx, http.StatusConflict, ErrCodeMuteListFull, "Mute word list is full")
		default:
			slog.ErrorContext(r.Context(), "failed to add mute word", "error", err)
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to add mute word")
		}
		return
	}

	h.writeWords(w, r, userID, http.StatusCreated)
}

// RemoveMuteWord handles DELETE /mutes - removes a word from the
// viewer's mute list. Idempotent.
func (h *MuteHandlers) RemoveMuteWord(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req MuteWordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if err := h.mutes.Remove(r.Context(), userID, req.Word); err != nil {
		if errors.Is(err, mute.ErrInvalidWord) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidMuteWord)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidMuteWord, "Mute word must be non-empty and at most 64 characters")
			return
		}
		slog.ErrorContext(r.Context(), "failed to remove mute word", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to remove mute word")
		return
	}

	h.writeWords(w, r, userID, http.StatusOK)
}

// ListMuteWords handles GET /mutes - returns the viewer's mute words.
func (h *MuteHandlers) ListMuteWords(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	h.writeWords(w, r, userID, http.StatusOK)
}

// writeWords responds with the user's current mute word list.
func (h *MuteHandlers) writeWords(w http.ResponseWriter, r *http.Request, userID string, status int) {
	words, err := h.mutes.Words(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list mute words", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list mute words")
		return
	}
	if words == nil {
		words = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(MuteWordsResponse{Words: words}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
