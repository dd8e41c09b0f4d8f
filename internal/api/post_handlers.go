// Package api provides HTTP handlers for the NOMA API.
package api

import (
	"encoding/json"
	"errors"
	"html"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/comment"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/feed"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/interest"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/middleware"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/post"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/reaction"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/tag"
)

// Post body validation constraints
const (
	MaxPostBodyLength = 5000
)

// DefaultCommentPageSize bounds GET /posts/{id}/comments when the
// client does not ask for a limit.
const DefaultCommentPageSize = 50

// CreatePostRequest represents the request body for creating a post.
type CreatePostRequest struct {
	Body string   `json:"body"`
	Tags []string `json:"tags,omitempty"`
}

// PostResponse is a post plus its resolved tags.
type PostResponse struct {
	*post.Post
	Tags []tag.Tag `json:"tags"`
}

// ReportResponse reports the outcome of a report submission.
type ReportResponse struct {
	Reported bool `json:"reported"`
	Flagged  bool `json:"flagged"`
}

// ReactionResponse reports the viewer's reaction state after a
// react/unreact call.
type ReactionResponse struct {
	Reacted bool `json:"reacted"`
}

// CreateCommentRequest represents the request body for creating a comment.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// CommentsResponse is the comment listing for one post.
type CommentsResponse struct {
	Comments []*comment.Comment `json:"comments"`
}

// PostHandlers holds dependencies for post HTTP handlers.
type PostHandlers struct {
	posts     post.Repository
	tags      tag.Repository
	comments  comment.Repository
	reactions reaction.Repository
	interests interest.Repository

	broadcaster     *feed.Broadcaster
	reportThreshold int

	now func() time.Time
}

// NewPostHandlers creates a new PostHandlers instance.
func NewPostHandlers(
	posts post.Repository,
	tags tag.Repository,
	comments comment.Repository,
	reactions reaction.Repository,
	interests interest.Repository,
	broadcaster *feed.Broadcaster,
	reportThreshold int,
) *PostHandlers {
	if reportThreshold <= 0 {
		reportThreshold = post.DefaultReportThreshold
	}
	return &PostHandlers{
		posts:           posts,
		tags:            tags,
		comments:        comments,
		reactions:       reactions,
		interests:       interests,
		broadcaster:     broadcaster,
		reportThreshold: reportThreshold,
		now:             time.Now,
	}
}

// validatePostBody validates a post body.
// Returns error message if validation fails, empty string if valid.
func validatePostBody(body string) string {
	trimmed := strings.TrimSpace(body)

	if trimmed == "" {
		return "post body is required"
	}
	if len(trimmed) > MaxPostBodyLength {
		return "post body must not exceed 5000 characters"
	}
	return ""
}

// sanitizePostBody sanitizes a post body to prevent XSS attacks.
// Strips HTML tags by escaping HTML entities.
// Should be called after validation passes.
func sanitizePostBody(body string) string {
	return html.EscapeString(strings.TrimSpace(body))
}

// extractPostID extracts the post ID and trailing action from the URL
// path. For /posts/{id} the action is empty; for /posts/{id}/report,
// /posts/{id}/react and /posts/{id}/comments it is the final segment.
func extractPostID(r *http.Request) (id, action string, err error) {
	pathParts := strings.Split(strings.TrimPrefix(r.URL.Path, "/posts/"), "/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		return "", "", errors.New("post ID is required")
	}
	if len(pathParts) == 1 {
		return pathParts[0], "", nil
	}
	if len(pathParts) == 2 && pathParts[1] != "" {
		return pathParts[0], pathParts[1], nil
	}
	return "", "", errors.New("invalid post path")
}

// requireUser returns the authenticated user ID, writing a 401 when
// the request is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return "", false
	}
	return userID, true
}

// HandlePosts dispatches /posts (the collection route).
func (h *PostHandlers) HandlePosts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.CreatePost(w, r)
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	}
}

// HandlePostSubtree dispatches /posts/{id} and its nested routes.
func (h *PostHandlers) HandlePostSubtree(w http.ResponseWriter, r *http.Request) {
	_, action, err := extractPostID(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Post ID is required")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.GetPost(w, r)
		case http.MethodDelete:
			h.DeletePost(w, r)
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		}
	case "report":
		if r.Method != http.MethodPost {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
			return
		}
		h.ReportPost(w, r)
	case "react":
		switch r.Method {
		case http.MethodPost:
			h.React(w, r)
		case http.MethodDelete:
			h.Unreact(w, r)
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		}
	case "comments":
		switch r.Method {
		case http.MethodPost:
			h.CreateComment(w, r)
		case http.MethodGet:
			h.ListComments(w, r)
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		}
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
	}
}

// CreatePost handles POST /posts - creates a new post.
func (h *PostHandlers) CreatePost(w http.ResponseWriter, r *http.Request) {
	authorID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if errMsg := validatePostBody(req.Body); errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg)
		return
	}

	if len(req.Tags) > tag.MaxTagsPerPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeTooManyTags)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeTooManyTags, "A post may carry at most 5 tags")
		return
	}

	// Resolve tags before creating the post so invalid names reject
	// the whole request.
	resolvedTags, err := h.tags.Ensure(r.Context(), req.Tags)
	if err != nil {
		if errors.Is(err, tag.ErrInvalidTagName) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidTag)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidTag, "Tag names must be lowercase alphanumeric, at most 32 characters")
			return
		}
		slog.ErrorContext(r.Context(), "failed to resolve tags", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create post")
		return
	}

	newPost := &post.Post{
		AuthorID: authorID,
		Body:     sanitizePostBody(req.Body),
	}

	if err := h.posts.Create(r.Context(), newPost); err != nil {
		slog.ErrorContext(r.Context(), "failed to create post", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create post")
		return
	}

	tagIDs := make([]string, len(resolvedTags))
	for i, t := range resolvedTags {
		tagIDs[i] = t.ID
	}
	if err := h.tags.LinkPost(r.Context(), newPost.ID, tagIDs); err != nil {
		slog.ErrorContext(r.Context(), "failed to link post tags", "error", err, "post_id", newPost.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create post")
		return
	}

	if h.broadcaster != nil {
		tagNames := make([]string, len(resolvedTags))
		for i, t := range resolvedTags {
			tagNames[i] = t.Name
		}
		h.broadcaster.BroadcastPost(&feed.PostEvent{
			Type:      feed.EventTypePostCreated,
			PostID:    newPost.ID,
			AuthorID:  newPost.AuthorID,
			Body:      newPost.Body,
			Tags:      tagNames,
			CreatedAt: newPost.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(PostResponse{Post: newPost, Tags: resolvedTags}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// GetPost handles GET /posts/{id} - retrieves a single post.
func (h *PostHandlers) GetPost(w http.ResponseWriter, r *http.Request) {
	postID, _, err := extractPostID(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Post ID is required")
		return
	}

	p, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Post not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get post", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to get post")
		return
	}

	tagsByPost, err := h.tags.TagsForPosts(r.Context(), []string{p.ID})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to get post tags", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to get post")
		return
	}
	resolvedTags := tagsByPost[p.ID]
	if resolvedTags == nil {
		resolvedTags = []tag.Tag{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(PostResponse{Post: p, Tags: resolvedTags}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// DeletePost handles DELETE /posts/{id} - soft-deletes a post.
// Only the post's author may delete it.
func (h *PostHandlers) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	postID, _, err := extractPostID(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Post ID is required")
		return
	}

	p, err := h.posts.GetByID(r.Context(), postID)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Post not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get post", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete post")
		return
	}

	if p.AuthorID != userID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Only the author may delete a post")
		return
	}

	if err := h.posts.Delete(r.Context(), postID); err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Post not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete post", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete post")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReportPost handles POST /posts/{id}/report - reports a post.
// At the configured threshold the post is flagged and disappears from
// all feeds.
func (h *PostHandlers) ReportPost(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	postID, _, err := extractPostID(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Post ID is required")
		return
	}

	flagged, err := h.posts.Report(r.Context(), postID, h.reportThreshold)
	if err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Post not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to report post", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to report post")
		return
	}

	if flagged {
		slog.InfoContext(r.Context(), "post flagged by reports", "post_id", postID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ReportResponse{Reported: true, Flagged: flagged}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// React handles POST /posts/{id}/react - adds the viewer's reaction.
// Idempotent; the reaction counter and the viewer's tag interests only
// move on the first call.
func (h *PostHandlers) React(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	postID, _, err := extractPostID(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Post ID is required")
		return
	}

	if _, err := h.posts.GetByID(r.Context(), postID); err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Post not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get post", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to react")
		return
	}

	created, err := h.reactions.React(r.Context(), userID, postID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to store reaction", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to react")
		return
	}

	if created {
		if err := h.posts.AdjustReactionCount(r.Context(), postID, 1); err != nil {
			slog.ErrorContext(r.Context(), "failed to adjust reaction count", "error", err, "post_id", postID)
		}
		h.accrueInterest(r, userID, postID, interest.ReactionDelta)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ReactionResponse{Reacted: true}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Unreact handles DELETE /posts/{id}/react - removes the viewer's reaction.
func (h *PostHandlers) Unreact(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	postID, _, err := extractPostID(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Post ID is required")
		return
	}

	removed, err := h.reactions.Unreact(r.Context(), userID, postID)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to remove reaction", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to remove reaction")
		return
	}

	if removed {
		if err := h.posts.AdjustReactionCount(r.Context(), postID, -1); err != nil &&
			!errors.Is(err, post.ErrPostNotFound) {
			slog.ErrorContext(r.Context(), "failed to adjust reaction count", "error", err, "post_id", postID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ReactionResponse{Reacted: false}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// CreateComment handles POST /posts/{id}/comments - adds a comment.
func (h *PostHandlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	postID, _, err := extractPostID(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Post ID is required")
		return
	}

	if _, err := h.posts.GetByID(r.Context(), postID); err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Post not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get post", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to comment")
		return
	}

	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	newComment := &comment.Comment{
		PostID:   postID,
		AuthorID: userID,
		Body:     html.EscapeString(strings.TrimSpace(req.Body)),
	}
	if err := h.comments.Create(r.Context(), newComment); err != nil {
		if errors.Is(err, comment.ErrInvalidBody) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Comment body must be non-empty and at most 1000 characters")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create comment", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to comment")
		return
	}

	if err := h.posts.AdjustCommentCount(r.Context(), postID, 1); err != nil {
		slog.ErrorContext(r.Context(), "failed to adjust comment count", "error", err, "post_id", postID)
	}
	h.accrueInterest(r, userID, postID, interest.CommentDelta)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(newComment); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// ListComments handles GET /posts/{id}/comments - lists a post's
// comments, oldest first.
func (h *PostHandlers) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, _, err := extractPostID(r)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Post ID is required")
		return
	}

	if _, err := h.posts.GetByID(r.Context(), postID); err != nil {
		if errors.Is(err, post.ErrPostNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Post not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to get post", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list comments")
		return
	}

	limit := DefaultCommentPageSize
	if rawLimit := r.URL.Query().Get("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	comments, err := h.comments.ListByPost(r.Context(), postID, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list comments", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list comments")
		return
	}
	if comments == nil {
		comments = []*comment.Comment{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(CommentsResponse{Comments: comments}); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// accrueInterest bumps the viewer's affinity for each of the post's
// tags. Accrual failures are logged, not surfaced; losing an interest
// signal never fails an engagement write.
func (h *PostHandlers) accrueInterest(r *http.Request, userID, postID string, delta float64) {
	tagsByPost, err := h.tags.TagsForPosts(r.Context(), []string{postID})
	if err != nil {
		slog.WarnContext(r.Context(), "failed to load tags for interest accrual", "error", err, "post_id", postID)
		return
	}

	now := h.now()
	for _, t := range tagsByPost[postID] {
		if err := h.interests.Accrue(r.Context(), userID, t.ID, delta, now); err != nil {
			slog.WarnContext(r.Context(), "failed to accrue interest", "error", err, "tag_id", t.ID)
		}
	}
}
