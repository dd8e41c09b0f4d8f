// Package comment provides the post comment store.
package comment

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxBodyLength bounds a comment body.
const MaxBodyLength = 1000

// ErrInvalidBody is returned for empty or oversized comment bodies.
var ErrInvalidBody = errors.New("comment body must be non-empty and at most 1000 characters")

// Comment represents a single comment on a post.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines the interface for comment operations.
type Repository interface {
	// Create stores a comment. The ID and CreatedAt are assigned if unset.
	Create(ctx context.Context, c *Comment) error

	// ListByPost returns a post's comments, oldest first.
	ListByPost(ctx context.Context, postID string, limit int) ([]*Comment, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byPost map[string][]*Comment
}

// NewInMemoryRepository creates a new in-memory comment repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byPost: make(map[string][]*Comment),
	}
}

// Create stores a comment.
func (r *InMemoryRepository) Create(ctx context.Context, c *Comment) error {
	body := strings.TrimSpace(c.Body)
	if body == "" || len(body) > MaxBodyLength {
		return ErrInvalidBody
	}
	c.Body = body

	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	stored := *c
	r.byPost[c.PostID] = append(r.byPost[c.PostID], &stored)
	return nil
}

// ListByPost returns a post's comments, oldest first.
func (r *InMemoryRepository) ListByPost(ctx context.Context, postID string, limit int) ([]*Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.byPost[postID]
	comments := make([]*Comment, 0, len(stored))
	for _, c := range stored {
		copied := *c
		comments = append(comments, &copied)
	}

	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})

	if limit > 0 && len(comments) > limit {
		comments = comments[:limit]
	}

	return comments, nil
}
