// Package social provides the follow and block edge repositories that
// make up the social graph the feed ranker reads: the follow set feeds
// the follow boost, the block set is a hard exclusion filter.
package social

import (
	"context"
	"errors"
	"sync"
)

// Common errors for social graph operations.
var (
	ErrSelfFollow = errors.New("cannot follow yourself")
	ErrSelfBlock  = errors.New("cannot block yourself")
)

// FollowRepository defines the interface for follow edge operations.
type FollowRepository interface {
	// Follow creates the (follower, followed) edge. Idempotent; returns
	// true when the edge was newly created.
	Follow(ctx context.Context, followerID, followedID string) (bool, error)

	// Unfollow removes the edge. Idempotent.
	Unfollow(ctx context.Context, followerID, followedID string) error

	// FollowSet returns the set of user IDs the given user follows.
	FollowSet(ctx context.Context, userID string) (map[string]struct{}, error)
}

// BlockRepository defines the interface for block edge operations.
type BlockRepository interface {
	// Block creates the (blocker, blocked) edge. Idempotent.
	Block(ctx context.Context, blockerID, blockedID string) error

	// Unblock removes the edge. Idempotent.
	Unblock(ctx context.Context, blockerID, blockedID string) error

	// BlockSet returns the set of user IDs the given user has blocked.
	BlockSet(ctx context.Context, userID string) (map[string]struct{}, error)
}

// InMemoryFollowRepository is an in-memory implementation of FollowRepository.
// Thread-safe via RWMutex.
type InMemoryFollowRepository struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{} // follower -> followed set
}

// NewInMemoryFollowRepository creates a new in-memory follow repository.
func NewInMemoryFollowRepository() *InMemoryFollowRepository {
	return &InMemoryFollowRepository{
		edges: make(map[string]map[string]struct{}),
	}
}

// Follow creates the (follower, followed) edge.
func (r *InMemoryFollowRepository) Follow(ctx context.Context, followerID, followedID string) (bool, error) {
	if followerID == followedID {
		return false, ErrSelfFollow
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.edges[followerID]
	if !ok {
		set = make(map[string]struct{})
		r.edges[followerID] = set
	}
	if _, exists := set[followedID]; exists {
		return false, nil
	}
	set[followedID] = struct{}{}
	return true, nil
}

// Unfollow removes the edge.
func (r *InMemoryFollowRepository) Unfollow(ctx context.Context, followerID, followedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.edges[followerID]; ok {
		delete(set, followedID)
		if len(set) == 0 {
			delete(r.edges, followerID)
		}
	}
	return nil
}

// FollowSet returns the set of user IDs the given user follows.
func (r *InMemoryFollowRepository) FollowSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]struct{}, len(r.edges[userID]))
	for id := range r.edges[userID] {
		result[id] = struct{}{}
	}
	return result, nil
}

// InMemoryBlockRepository is an in-memory implementation of BlockRepository.
// Thread-safe via RWMutex.
type InMemoryBlockRepository struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{} // blocker -> blocked set
}

// NewInMemoryBlockRepository creates a new in-memory block repository.
func NewInMemoryBlockRepository() *InMemoryBlockRepository {
	return &InMemoryBlockRepository{
		edges: make(map[string]map[string]struct{}),
	}
}

// Block creates the (blocker, blocked) edge.
func (r *InMemoryBlockRepository) Block(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.edges[blockerID]
	if !ok {
		set = make(map[string]struct{})
		r.edges[blockerID] = set
	}
	set[blockedID] = struct{}{}
	return nil
}

// Unblock removes the edge.
func (r *InMemoryBlockRepository) Unblock(ctx context.Context, blockerID, blockedID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.edges[blockerID]; ok {
		delete(set, blockedID)
		if len(set) == 0 {
			delete(r.edges, blockerID)
		}
	}
	return nil
}

// BlockSet returns the set of user IDs the given user has blocked.
func (r *InMemoryBlockRepository) BlockSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]struct{}, len(r.edges[userID]))
	for id := range r.edges[userID] {
		result[id] = struct{}{}
	}
	return result, nil
}
