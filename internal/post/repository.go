package post

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for post data operations.
// FetchEligible and FetchTrending are the read paths consumed by the
// feed ranker; the remaining methods serve the write-side handlers.
type Repository interface {
	// Create inserts a new post with a generated UUID.
	Create(ctx context.Context, p *Post) error

	// GetByID retrieves a post by its UUID, excluding soft-deleted posts.
	GetByID(ctx context.Context, id string) (*Post, error)

	// Delete soft-deletes a post by setting the deleted_at timestamp.
	Delete(ctx context.Context, id string) error

	// Report increments the post's report count. When the count reaches
	// threshold the post is flagged; returns true if this call flagged it.
	Report(ctx context.Context, id string, threshold int) (bool, error)

	// FetchEligible returns eligible posts ordered by created_at DESC,
	// excluding flagged and soft-deleted posts, posts authored by any ID
	// in excludingAuthors, and (when before is non-nil) posts with
	// created_at >= before.
	FetchEligible(ctx context.Context, before *time.Time, excludingAuthors map[string]struct{}, limit int) ([]*Post, error)

	// FetchTrending returns eligible posts created after since (and
	// strictly before the cursor, when non-nil), ordered by
	// reaction_count DESC with created_at DESC as tie-break.
	FetchTrending(ctx context.Context, since time.Time, before *time.Time, limit int) ([]*Post, error)

	// RecentByAuthor returns the author's most recent eligible posts,
	// newest first. Used for interest accrual when a user follows an author.
	RecentByAuthor(ctx context.Context, authorID string, limit int) ([]*Post, error)

	// AdjustReactionCount adds delta to the post's reaction counter.
	AdjustReactionCount(ctx context.Context, id string, delta int64) error

	// AdjustCommentCount adds delta to the post's comment counter.
	AdjustCommentCount(ctx context.Context, id string, delta int64) error
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex. Used as the default backing store and in tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	posts map[string]*Post
}

// NewInMemoryRepository creates a new in-memory post repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		posts: make(map[string]*Post),
	}
}

// Create inserts a new post with a generated UUID.
// A caller-supplied CreatedAt is preserved (tests construct backdated
// posts); otherwise it is set to now.
func (r *InMemoryRepository) Create(ctx context.Context, p *Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = uuid.New().String()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	postCopy := *p
	r.posts[p.ID] = &postCopy

	return nil
}

// GetByID retrieves a post by its UUID, excluding soft-deleted posts.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok || p.DeletedAt != nil {
		return nil, ErrPostNotFound
	}

	postCopy := *p
	return &postCopy, nil
}

// Delete soft-deletes a post by setting the deleted_at timestamp.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return ErrPostNotFound
	}

	// Already deleted - treat as not found for idempotency
	if p.DeletedAt != nil {
		return ErrPostNotFound
	}

	now := time.Now()
	p.DeletedAt = &now

	return nil
}

// Report increments the post's report count, flagging at threshold.
func (r *InMemoryRepository) Report(ctx context.Context, id string, threshold int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok || p.DeletedAt != nil {
		return false, ErrPostNotFound
	}

	p.ReportCount++
	if !p.IsFlagged && threshold > 0 && p.ReportCount >= threshold {
		p.IsFlagged = true
		return true, nil
	}

	return false, nil
}

// FetchEligible returns eligible posts ordered by created_at DESC.
func (r *InMemoryRepository) FetchEligible(ctx context.Context, before *time.Time, excludingAuthors map[string]struct{}, limit int) ([]*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*Post
	for _, p := range r.posts {
		if !p.Eligible() {
			continue
		}
		if _, blocked := excludingAuthors[p.AuthorID]; blocked {
			continue
		}
		// Strictly-older pagination: drop posts at or after the cursor.
		if before != nil && !p.CreatedAt.Before(*before) {
			continue
		}
		candidates = append(candidates, p)
	}

	sortByCreatedDesc(candidates)

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return copyPosts(candidates), nil
}

// FetchTrending returns recent eligible posts ordered by reaction_count DESC.
func (r *InMemoryRepository) FetchTrending(ctx context.Context, since time.Time, before *time.Time, limit int) ([]*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*Post
	for _, p := range r.posts {
		if !p.Eligible() {
			continue
		}
		if !p.CreatedAt.After(since) {
			continue
		}
		if before != nil && !p.CreatedAt.Before(*before) {
			continue
		}
		candidates = append(candidates, p)
	}

	// Sort by reaction_count DESC, then created_at DESC, then ID ASC
	// for stable ordering when both tie.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ReactionCount != candidates[j].ReactionCount {
			return candidates[i].ReactionCount > candidates[j].ReactionCount
		}
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].ID < candidates[j].ID
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return copyPosts(candidates), nil
}

// RecentByAuthor returns the author's most recent eligible posts.
func (r *InMemoryRepository) RecentByAuthor(ctx context.Context, authorID string, limit int) ([]*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*Post
	for _, p := range r.posts {
		if !p.Eligible() || p.AuthorID != authorID {
			continue
		}
		candidates = append(candidates, p)
	}

	sortByCreatedDesc(candidates)

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return copyPosts(candidates), nil
}

// AdjustReactionCount adds delta to the post's reaction counter.
func (r *InMemoryRepository) AdjustReactionCount(ctx context.Context, id string, delta int64) error {
	return r.adjustCounter(id, func(p *Post) {
		p.ReactionCount += delta
		if p.ReactionCount < 0 {
			p.ReactionCount = 0
		}
	})
}

// AdjustCommentCount adds delta to the post's comment counter.
func (r *InMemoryRepository) AdjustCommentCount(ctx context.Context, id string, delta int64) error {
	return r.adjustCounter(id, func(p *Post) {
		p.CommentCount += delta
		if p.CommentCount < 0 {
			p.CommentCount = 0
		}
	})
}

func (r *InMemoryRepository) adjustCounter(id string, apply func(*Post)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok || p.DeletedAt != nil {
		return ErrPostNotFound
	}

	apply(p)
	return nil
}

// sortByCreatedDesc sorts posts by created_at DESC, then by ID ASC for
// tie-breaking. This provides stable ordering for cursor-based pagination.
func sortByCreatedDesc(posts []*Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].CreatedAt.After(posts[j].CreatedAt) {
			return true
		}
		if posts[i].CreatedAt.Before(posts[j].CreatedAt) {
			return false
		}
		return posts[i].ID < posts[j].ID
	})
}

// copyPosts returns deep copies to prevent external mutation.
func copyPosts(posts []*Post) []*Post {
	copies := make([]*Post, len(posts))
	for i, p := range posts {
		postCopy := *p
		copies[i] = &postCopy
	}
	return copies
}
