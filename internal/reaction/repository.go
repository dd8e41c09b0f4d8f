// Package reaction provides the post reaction store. A user holds at
// most one reaction per post; reacting twice is a no-op.
package reaction

import (
	"context"
	"sync"
)

// Repository defines the interface for reaction operations.
type Repository interface {
	// React records the user's reaction to a post. Returns true when a
	// new reaction was created, false when one already existed.
	React(ctx context.Context, userID, postID string) (bool, error)

	// Unreact removes the user's reaction from a post. Returns true
	// when a reaction was removed. Idempotent.
	Unreact(ctx context.Context, userID, postID string) (bool, error)

	// ReactedSet returns the subset of postIDs the user has reacted to.
	ReactedSet(ctx context.Context, userID string, postIDs []string) (map[string]struct{}, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu        sync.RWMutex
	reactions map[string]map[string]struct{} // user -> post set
}

// NewInMemoryRepository creates a new in-memory reaction repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		reactions: make(map[string]map[string]struct{}),
	}
}

// React records the user's reaction to a post.
func (r *InMemoryRepository) React(ctx context.Context, userID, postID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.reactions[userID]
	if !ok {
		set = make(map[string]struct{})
		r.reactions[userID] = set
	}
	if _, exists := set[postID]; exists {
		return false, nil
	}
	set[postID] = struct{}{}
	return true, nil
}

// Unreact removes the user's reaction from a post.
func (r *InMemoryRepository) Unreact(ctx context.Context, userID, postID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.reactions[userID]
	if !ok {
		return false, nil
	}
	if _, exists := set[postID]; !exists {
		return false, nil
	}
	delete(set, postID)
	if len(set) == 0 {
		delete(r.reactions, userID)
	}
	return true, nil
}

// ReactedSet returns the subset of postIDs the user has reacted to.
func (r *InMemoryRepository) ReactedSet(ctx context.Context, userID string, postIDs []string) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]struct{})
	set, ok := r.reactions[userID]
	if !ok {
		return result, nil
	}
	for _, postID := range postIDs {
		if _, exists := set[postID]; exists {
			result[postID] = struct{}{}
		}
	}
	return result, nil
}
