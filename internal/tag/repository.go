// Package tag provides the tag model and repository: normalized tag
// names, the post-tag linkage consumed by the feed ranker, and the
// five-tags-per-post limit enforced at link time.
package tag

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MaxTagsPerPost is the maximum number of tags a post may carry.
const MaxTagsPerPost = 5

// MaxTagNameLength bounds normalized tag names.
const MaxTagNameLength = 32

// Common errors for tag operations.
var (
	ErrInvalidTagName = errors.New("tag name must be lowercase alphanumeric")
	ErrTooManyTags    = errors.New("a post may carry at most five tags")
)

// Tag represents a normalized topic tag.
type Tag struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Repository defines the interface for tag data operations.
type Repository interface {
	// Ensure normalizes and validates names, creating any tags that do
	// not exist yet, and returns the resolved tags in input order
	// (duplicates collapsed).
	Ensure(ctx context.Context, names []string) ([]Tag, error)

	// LinkPost attaches tags to a post, replacing any prior linkage.
	// At most MaxTagsPerPost tags are accepted.
	LinkPost(ctx context.Context, postID string, tagIDs []string) error

	// TagsForPosts returns the tags attached to each of the given posts.
	// Posts with no tags are absent from the map.
	TagsForPosts(ctx context.Context, postIDs []string) (map[string][]Tag, error)
}

// Normalize lowercases and trims a tag name. Returns an error when the
// result is empty, too long, or contains anything beyond [a-z0-9].
func Normalize(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || len(name) > MaxTagNameLength {
		return "", ErrInvalidTagName
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "", ErrInvalidTagName
		}
	}
	return name, nil
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byName map[string]Tag             // normalized name -> Tag
	byID   map[string]Tag             // tag ID -> Tag
	links  map[string]map[string]bool // post ID -> set of tag IDs
}

// NewInMemoryRepository creates a new in-memory tag repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byName: make(map[string]Tag),
		byID:   make(map[string]Tag),
		links:  make(map[string]map[string]bool),
	}
}

// Ensure normalizes names and creates missing tags.
func (r *InMemoryRepository) Ensure(ctx context.Context, names []string) ([]Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(names))
	tags := make([]Tag, 0, len(names))
	for _, raw := range names {
		name, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		t, ok := r.byName[name]
		if !ok {
			t = Tag{ID: uuid.New().String(), Name: name}
			r.byName[name] = t
			r.byID[t.ID] = t
		}
		tags = append(tags, t)
	}

	return tags, nil
}

// LinkPost attaches tags to a post, replacing any prior linkage.
func (r *InMemoryRepository) LinkPost(ctx context.Context, postID string, tagIDs []string) error {
	if len(tagIDs) > MaxTagsPerPost {
		return ErrTooManyTags
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set := make(map[string]bool, len(tagIDs))
	for _, id := range tagIDs {
		if _, ok := r.byID[id]; !ok {
			return ErrInvalidTagName
		}
		set[id] = true
	}
	r.links[postID] = set

	return nil
}

// TagsForPosts returns the tags attached to each of the given posts.
func (r *InMemoryRepository) TagsForPosts(ctx context.Context, postIDs []string) (map[string][]Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string][]Tag)
	for _, postID := range postIDs {
		set, ok := r.links[postID]
		if !ok || len(set) == 0 {
			continue
		}
		tags := make([]Tag, 0, len(set))
		for id := range set {
			tags = append(tags, r.byID[id])
		}
		// Stable order for deterministic responses
		sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
		result[postID] = tags
	}

	return result, nil
}
