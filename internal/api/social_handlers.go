// Package api provides HTTP handlers for the NOMA API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/interest"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/middleware"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/post"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/social"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/tag"
)

// FollowSeedPosts is how many of the followed author's recent posts
// seed the follower's tag interests on a new follow.
const FollowSeedPosts = 10

// EdgeResponse reports the state of a follow or block edge after a
// mutation.
type EdgeResponse struct {
	UserID string `json:"user_id"`
	Active bool   `json:"active"`
}

// SocialHandlers holds dependencies for follow and block HTTP handlers.
type SocialHandlers struct {
	follows   social.FollowRepository
	blocks    social.BlockRepository
	posts     post.Repository
	tags      tag.Repository
	interests interest.Repository

	now func() time.Time
}

// NewSocialHandlers creates a new SocialHandlers instance.
func NewSocialHandlers(
	follows social.FollowRepository,
	blocks social.BlockRepository,
	posts post.Repository,
	tags tag.Repository,
	interests interest.Repository,
) *SocialHandlers {
	return &SocialHandlers{
		follows:   follows,
		blocks:    blocks,
		posts:     posts,
		tags:      tags,
		interests: interests,
		now:       time.Now,
	}
}

// extractTargetID extracts the target user ID from /follows/{id} or
// /blocks/{id} paths.
func extractTargetID(r *http.Request, prefix string) (string, error) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", errors.New("user ID is required")
	}
	return id, nil
}

// HandleFollows dispatches /follows/{id}.
func (h *SocialHandlers) HandleFollows(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.Follow(w, r)
	case http.MethodDelete:
		h.Unfollow(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// HandleBlocks dispatches /blocks/{id}.
func (h *SocialHandlers) HandleBlocks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.Block(w, r)
	case http.MethodDelete:
		h.Unblock(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// Follow handles PUT /follows/{id} - follows a user.
// A new follow seeds the follower's interests with the followed
// author's recent tags.
func (h *SocialHandlers) Follow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	targetID, err := extractTargetID(r, "/follows/")
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	created, err := h.follows.Follow(r.Context(), userID, targetID)
	if err != nil {
		if errors.Is(err, social.ErrSelfFollow) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeSelfFollow)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeSelfFollow, "Cannot follow yourself")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create follow", "error", err, "target_id", targetID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to follow")
		return
	}

	if created {
		h.seedFollowInterests(r, userID, targetID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(EdgeResponse{UserID: targetID, Active: true}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Unfollow handles DELETE /follows/{id} - removes a follow edge.
func (h *SocialHandlers) Unfollow(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	targetID, err := extractTargetID(r, "/follows/")
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	if err := h.follows.Unfollow(r.Context(), userID, targetID); err != nil {
		slog.ErrorContext(r.Context(), "failed to remove follow", "error", err, "target_id", targetID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to unfollow")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(EdgeResponse{UserID: targetID, Active: false}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Block handles PUT /blocks/{id} - blocks a user, removing their posts
// from the viewer's feed.
func (h *SocialHandlers) Block(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	targetID, err := extractTargetID(r, "/blocks/")
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	if err := h.blocks.Block(r.Context(), userID, targetID); err != nil {
		if errors.Is(err, social.ErrSelfBlock) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeSelfBlock)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeSelfBlock, "Cannot block yourself")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create block", "error", err, "target_id", targetID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to block")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(EdgeResponse{UserID: targetID, Active: true}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Unblock handles DELETE /blocks/{id} - removes a block edge.
func (h *SocialHandlers) Unblock(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	targetID, err := extractTargetID(r, "/blocks/")
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "User ID is required")
		return
	}

	if err := h.blocks.Unblock(r.Context(), userID, targetID); err != nil {
		slog.ErrorContext(r.Context(), "failed to remove block", "error", err, "target_id", targetID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to unblock")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(EdgeResponse{UserID: targetID, Active: false}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// seedFollowInterests accrues a small affinity for the tags on the
// followed author's recent posts. Failures are logged, not surfaced.
func (h *SocialHandlers) seedFollowInterests(r *http.Request, userID, authorID string) {
	recent, err := h.posts.RecentByAuthor(r.Context(), authorID, FollowSeedPosts)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to load recent posts for follow accrual", "error", err, "author_id", authorID)
		return
	}
	if len(recent) == 0 {
		return
	}

	postIDs := make([]string, len(recent))
	for i, p := range recent {
		postIDs[i] = p.ID
	}
	tagsByPost, err := h.tags.TagsForPosts(r.Context(), postIDs)
	if err != nil {
		slog.WarnContext(r.Context(), "failed to load tags for follow accrual", "error", err, "author_id", authorID)
		return
	}

	// Accrue once per distinct tag across the author's recent posts.
	now := h.now()
	seen := make(map[string]struct{})
	for _, tags := range tagsByPost {
		for _, t := range tags {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			if err := h.interests.Accrue(r.Context(), userID, t.ID, interest.FollowDelta, now); err != nil {
				slog.WarnContext(r.Context(), "failed to accrue follow interest", "error", err, "tag_id", t.ID)
			}
		}
	}
}
