// Package feed assembles and ranks the personalized home feed. The
// ranker combines follow, interest, engagement, and recency signals
// with a small uniform jitter, and falls back to a trending feed for
// anonymous viewers.
package feed

import (
	"context"
	"time"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/interest"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/post"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/tag"
)

// PostStore supplies candidate posts for ranking.
type PostStore interface {
	FetchEligible(ctx context.Context, before *time.Time, excludingAuthors map[string]struct{}, limit int) ([]*post.Post, error)
	FetchTrending(ctx context.Context, since time.Time, before *time.Time, limit int) ([]*post.Post, error)
}

// FollowSource supplies the viewer's follow edges.
type FollowSource interface {
	FollowSet(ctx context.Context, userID string) (map[string]struct{}, error)
}

// BlockSource supplies the viewer's block edges.
type BlockSource interface {
	BlockSet(ctx context.Context, userID string) (map[string]struct{}, error)
}

// InterestSource supplies the viewer's top interest tags.
type InterestSource interface {
	TopInterests(ctx context.Context, userID string, n int, now time.Time) ([]interest.TagWeight, error)
}

// MuteSource supplies the viewer's mute words.
type MuteSource interface {
	Words(ctx context.Context, userID string) ([]string, error)
}

// TagSource supplies tag attachments for a batch of posts.
type TagSource interface {
	TagsForPosts(ctx context.Context, postIDs []string) (map[string][]tag.Tag, error)
}

// ReactionSource supplies the viewer's reactions for a batch of posts.
type ReactionSource interface {
	ReactedSet(ctx context.Context, userID string, postIDs []string) (map[string]struct{}, error)
}
