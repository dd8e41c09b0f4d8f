// Package mute provides the per-user mute word store. Mute words are
// lowercase substrings; any post whose body contains one
// (case-insensitive) is excluded from that viewer's feed.
package mute

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

// MaxWordLength bounds a single mute word.
const MaxWordLength = 64

// MaxWordsPerUser bounds a user's mute list.
const MaxWordsPerUser = 100

// Common errors for mute word operations.
var (
	ErrInvalidWord  = errors.New("mute word must be non-empty and at most 64 characters")
	ErrTooManyWords = errors.New("mute word list is full")
)

// Repository defines the interface for mute word operations.
type Repository interface {
	// Add stores a word for the user. The word is lowercased and
	// trimmed; adding an existing word is a no-op.
	Add(ctx context.Context, userID, word string) error

	// Remove deletes a word from the user's list. Idempotent.
	Remove(ctx context.Context, userID, word string) error

	// Words returns the user's mute words, sorted.
	Words(ctx context.Context, userID string) ([]string, error)
}

// Normalize lowercases and trims a mute word.
func Normalize(word string) (string, error) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || len(word) > MaxWordLength {
		return "", ErrInvalidWord
	}
	return word, nil
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu    sync.RWMutex
	words map[string]map[string]struct{} // user -> word set
}

// NewInMemoryRepository creates a new in-memory mute word repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		words: make(map[string]map[string]struct{}),
	}
}

// Add stores a word for the user.
func (r *InMemoryRepository) Add(ctx context.Context, userID, word string) error {
	normalized, err := Normalize(word)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.words[userID]
	if !ok {
		set = make(map[string]struct{})
		r.words[userID] = set
	}
	if _, exists := set[normalized]; exists {
		return nil
	}
	if len(set) >= MaxWordsPerUser {
		return ErrTooManyWords
	}
	set[normalized] = struct{}{}
	return nil
}

// Remove deletes a word from the user's list.
func (r *InMemoryRepository) Remove(ctx context.Context, userID, word string) error {
	normalized, err := Normalize(word)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.words[userID]; ok {
		delete(set, normalized)
		if len(set) == 0 {
			delete(r.words, userID)
		}
	}
	return nil
}

// Words returns the user's mute words, sorted.
func (r *InMemoryRepository) Words(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.words[userID]
	words := make([]string, 0, len(set))
	for w := range set {
		words = append(words, w)
	}
	sort.Strings(words)
	return words, nil
}
