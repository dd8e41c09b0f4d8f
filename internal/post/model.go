// Package post provides the post model and repositories backing the
// anonymous feed: eligibility-filtered recency fetches for the ranker,
// trending fetches for anonymous viewers, and the counter/report
// mutations driven by the write-side handlers.
package post

import (
	"errors"
	"time"
)

// Common errors for post operations.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrPostDeleted  = errors.New("post has been deleted")
)

// DefaultReportThreshold is the number of distinct reports at which a
// post is automatically flagged and removed from all feeds.
const DefaultReportThreshold = 3

// Post represents an anonymous content post.
type Post struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Body      string `json:"body"`
	IsFlagged bool   `json:"is_flagged"`

	// Aggregate engagement counters, maintained by the reaction and
	// comment handlers. Read-only from the ranker's perspective.
	ReactionCount int64 `json:"reaction_count"`
	CommentCount  int64 `json:"comment_count"`
	ReportCount   int   `json:"report_count"`

	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Eligible reports whether the post may appear in any feed: not
// flagged and not soft-deleted. Flagged posts are never eligible for
// ranking, for any viewer.
func (p *Post) Eligible() bool {
	return !p.IsFlagged && p.DeletedAt == nil
}
