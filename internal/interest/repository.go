// Package interest provides the per-user, per-tag affinity store the
// feed ranker reads. Weights accrue from engagement (reactions,
// comments, follows) and decay exponentially with a 7-day half-life,
// applied lazily at read time so no background job is needed.
package interest

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// Accrual deltas per engagement kind. A comment is a stronger interest
// signal than a reaction; a follow seeds a mild affinity for the
// followed author's recent tags.
const (
	ReactionDelta = 1.0
	CommentDelta  = 2.0
	FollowDelta   = 0.5
)

// HalfLife is the decay half-life for interest weights.
const HalfLife = 7 * 24 * time.Hour

// TagWeight is one (tag, weight) affinity row, decay already applied.
type TagWeight struct {
	TagID  string  `json:"tag_id"`
	Weight float64 `json:"weight"`
}

// Repository defines the interface for interest weight operations.
type Repository interface {
	// Accrue adds delta to the user's affinity for a tag at time at,
	// folding in decay since the last accrual.
	Accrue(ctx context.Context, userID, tagID string, delta float64, at time.Time) error

	// TopInterests returns the user's n highest-weight rows at time now,
	// sorted by weight descending. Ties at the boundary break by tag ID
	// ascending, a stable rule so repeated calls agree on the cut.
	TopInterests(ctx context.Context, userID string, n int, now time.Time) ([]TagWeight, error)
}

type weightEntry struct {
	weight    float64
	updatedAt time.Time
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu      sync.RWMutex
	weights map[string]map[string]*weightEntry // user -> tag -> entry
}

// NewInMemoryRepository creates a new in-memory interest repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		weights: make(map[string]map[string]*weightEntry),
	}
}

// decayed returns the entry's weight at time now.
func (e *weightEntry) decayed(now time.Time) float64 {
	age := now.Sub(e.updatedAt)
	if age <= 0 {
		return e.weight
	}
	return e.weight * math.Pow(0.5, age.Hours()/HalfLife.Hours())
}

// Accrue adds delta to the user's affinity for a tag.
func (r *InMemoryRepository) Accrue(ctx context.Context, userID, tagID string, delta float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tags, ok := r.weights[userID]
	if !ok {
		tags = make(map[string]*weightEntry)
		r.weights[userID] = tags
	}

	entry, ok := tags[tagID]
	if !ok {
		tags[tagID] = &weightEntry{weight: delta, updatedAt: at}
		return nil
	}

	// Fold decay into the stored weight before adding the new signal.
	entry.weight = entry.decayed(at) + delta
	entry.updatedAt = at
	return nil
}

// TopInterests returns the user's n highest-weight rows.
func (r *InMemoryRepository) TopInterests(ctx context.Context, userID string, n int, now time.Time) ([]TagWeight, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := r.weights[userID]
	rows := make([]TagWeight, 0, len(tags))
	for tagID, entry := range tags {
		w := entry.decayed(now)
		if w <= 0 {
			continue
		}
		rows = append(rows, TagWeight{TagID: tagID, Weight: w})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Weight != rows[j].Weight {
			return rows[i].Weight > rows[j].Weight
		}
		return rows[i].TagID < rows[j].TagID
	})

	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}

	return rows, nil
}
