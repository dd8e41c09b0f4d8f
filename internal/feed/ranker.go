package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/interest"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/post"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/ranking"
)

const (
	// DefaultLimit is the page size when the client does not ask for one.
	DefaultLimit = 20

	// MaxLimit caps the page size.
	MaxLimit = 50

	// OversampleFactor controls how many candidates are fetched per
	// requested post. Oversampling gives lower-ranked but
	// higher-scoring posts a chance to displace newer ones.
	OversampleFactor = 2

	// TrendingWindow bounds the anonymous trending feed to recent posts.
	TrendingWindow = 7 * 24 * time.Hour
)

// Request describes one feed page request.
type Request struct {
	// ViewerID is the authenticated user, or empty for anonymous
	// viewers, who receive the trending feed.
	ViewerID string

	// Cursor restricts results to posts created strictly before it.
	Cursor *time.Time

	// Limit is the requested page size, clamped to [1, MaxLimit].
	// Zero or negative means DefaultLimit.
	Limit int
}

// PostView is one ranked post as returned to the client.
type PostView struct {
	ID            string    `json:"id"`
	AuthorID      string    `json:"author_id"`
	Body          string    `json:"body"`
	Tags          []string  `json:"tags"`
	ReactionCount int64     `json:"reaction_count"`
	CommentCount  int64     `json:"comment_count"`
	CreatedAt     time.Time `json:"created_at"`
	Score         float64   `json:"score"`
	IsFollowing   bool      `json:"is_following"`
	HasReacted    bool      `json:"has_reacted"`
}

// Page is one feed page. NextCursor is nil when the feed is exhausted.
type Page struct {
	Posts      []*PostView `json:"posts"`
	NextCursor *string     `json:"next_cursor"`
}

// Deps carries the ranker's collaborators. Jitter and Now are seams
// for deterministic tests; both default to the real thing.
type Deps struct {
	Posts     PostStore
	Follows   FollowSource
	Blocks    BlockSource
	Interests InterestSource
	Mutes     MuteSource
	Tags      TagSource
	Reactions ReactionSource

	Weights *ranking.Weights
	Metrics *Metrics
	Logger  *slog.Logger

	// Jitter returns a uniform draw in [0, 1); it is scaled by
	// Weights.JitterMax before entering the score.
	Jitter func() float64

	// Now supplies the request wall-clock time.
	Now func() time.Time
}

// Ranker assembles feed pages.
type Ranker struct {
	deps Deps
}

// NewRanker creates a feed ranker, filling in defaults for any unset
// optional dependency.
func NewRanker(deps Deps) *Ranker {
	if deps.Weights == nil {
		deps.Weights = ranking.DefaultWeights()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Jitter == nil {
		deps.Jitter = rand.Float64
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Ranker{deps: deps}
}

// Rank produces one feed page for the request. Authenticated viewers
// get the personalized ranked feed; anonymous viewers get trending.
// Any collaborator failure fails the whole request.
func (r *Ranker) Rank(ctx context.Context, req Request) (*Page, error) {
	limit := clampLimit(req.Limit)
	now := r.deps.Now()
	// The injected clock drives scoring only; the duration metric
	// measures wall time.
	start := time.Now()

	var (
		page *Page
		err  error
		mode string
	)
	if req.ViewerID == "" {
		mode = ModeTrending
		page, err = r.trending(ctx, req.Cursor, limit, now)
	} else {
		mode = ModePersonalized
		page, err = r.personalized(ctx, req.ViewerID, req.Cursor, limit, now)
	}
	if err != nil {
		return nil, err
	}

	r.deps.Metrics.ObserveRank(mode, time.Since(start).Seconds())
	if page.NextCursor == nil {
		r.deps.Metrics.IncShortPages(mode)
	}

	return page, nil
}

func (r *Ranker) personalized(ctx context.Context, viewerID string, cursor *time.Time, limit int, now time.Time) (*Page, error) {
	var (
		followSet    map[string]struct{}
		blockSet     map[string]struct{}
		muteWords    []string
		topInterests []interest.TagWeight
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		followSet, err = r.deps.Follows.FollowSet(gctx, viewerID)
		if err != nil {
			return fmt.Errorf("fetching follow set: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		blockSet, err = r.deps.Blocks.BlockSet(gctx, viewerID)
		if err != nil {
			return fmt.Errorf("fetching block set: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		muteWords, err = r.deps.Mutes.Words(gctx, viewerID)
		if err != nil {
			return fmt.Errorf("fetching mute words: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		topInterests, err = r.deps.Interests.TopInterests(gctx, viewerID, ranking.TopInterestCount, now)
		if err != nil {
			return fmt.Errorf("fetching interests: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates, err := r.deps.Posts.FetchEligible(ctx, cursor, blockSet, limit*OversampleFactor)
	if err != nil {
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}
	r.deps.Metrics.AddCandidatesFetched(len(candidates))

	survivors := filterMuted(candidates, muteWords)
	r.deps.Metrics.AddCandidatesFiltered(len(candidates) - len(survivors))

	postIDs := make([]string, len(survivors))
	for i, p := range survivors {
		postIDs[i] = p.ID
	}

	var (
		tagsByPost map[string][]tagNameID
		reactedSet map[string]struct{}
	)
	g2, g2ctx := errgroup.WithContext(ctx)
	g2.Go(func() error {
		raw, err := r.deps.Tags.TagsForPosts(g2ctx, postIDs)
		if err != nil {
			return fmt.Errorf("fetching post tags: %w", err)
		}
		tagsByPost = make(map[string][]tagNameID, len(raw))
		for id, tags := range raw {
			rows := make([]tagNameID, len(tags))
			for i, t := range tags {
				rows[i] = tagNameID{id: t.ID, name: t.Name}
			}
			tagsByPost[id] = rows
		}
		return nil
	})
	g2.Go(func() error {
		var err error
		reactedSet, err = r.deps.Reactions.ReactedSet(g2ctx, viewerID, postIDs)
		if err != nil {
			return fmt.Errorf("fetching reactions: %w", err)
		}
		return nil
	})
	if err := g2.Wait(); err != nil {
		return nil, err
	}

	interestSet := make(map[string]struct{}, len(topInterests))
	for _, row := range topInterests {
		interestSet[row.TagID] = struct{}{}
	}

	views := make([]*PostView, len(survivors))
	for i, p := range survivors {
		tags := tagsByPost[p.ID]
		matches := 0
		names := make([]string, len(tags))
		for j, t := range tags {
			names[j] = t.name
			if _, ok := interestSet[t.id]; ok {
				matches++
			}
		}

		_, followed := followSet[p.AuthorID]
		score := ranking.CompositeScore(ranking.PostParams{
			Followed:   followed,
			TagMatches: matches,
			Reactions:  p.ReactionCount,
			Comments:   p.CommentCount,
			CreatedAt:  p.CreatedAt,
			Now:        now,
		}, r.deps.Weights)
		score += r.deps.Jitter() * r.deps.Weights.JitterMax

		_, reacted := reactedSet[p.ID]
		views[i] = &PostView{
			ID:            p.ID,
			AuthorID:      p.AuthorID,
			Body:          p.Body,
			Tags:          names,
			ReactionCount: p.ReactionCount,
			CommentCount:  p.CommentCount,
			CreatedAt:     p.CreatedAt,
			Score:         score,
			IsFollowing:   followed,
			HasReacted:    reacted,
		}
	}

	sort.Slice(views, func(i, j int) bool {
		if views[i].Score != views[j].Score {
			return views[i].Score > views[j].Score
		}
		if !views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].CreatedAt.After(views[j].CreatedAt)
		}
		return views[i].ID < views[j].ID
	})

	if len(views) > limit {
		views = views[:limit]
	}

	return &Page{Posts: views, NextCursor: nextCursor(views, limit)}, nil
}

// trending serves anonymous viewers: recent posts by raw reaction
// count, no personalization and no jitter.
func (r *Ranker) trending(ctx context.Context, cursor *time.Time, limit int, now time.Time) (*Page, error) {
	since := now.Add(-TrendingWindow)
	posts, err := r.deps.Posts.FetchTrending(ctx, since, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching trending posts: %w", err)
	}
	r.deps.Metrics.AddCandidatesFetched(len(posts))

	postIDs := make([]string, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}
	tagsByPost, err := r.deps.Tags.TagsForPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("fetching post tags: %w", err)
	}

	views := make([]*PostView, len(posts))
	for i, p := range posts {
		tags := tagsByPost[p.ID]
		names := make([]string, len(tags))
		for j, t := range tags {
			names[j] = t.Name
		}
		views[i] = &PostView{
			ID:            p.ID,
			AuthorID:      p.AuthorID,
			Body:          p.Body,
			Tags:          names,
			ReactionCount: p.ReactionCount,
			CommentCount:  p.CommentCount,
			CreatedAt:     p.CreatedAt,
		}
	}

	return &Page{Posts: views, NextCursor: nextCursor(views, limit)}, nil
}

type tagNameID struct {
	id   string
	name string
}

// clampLimit normalizes the requested page size into [1, MaxLimit],
// defaulting to DefaultLimit when unset.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// filterMuted drops posts whose body contains any of the viewer's
// mute words, case-insensitively. Words are stored lowercase.
func filterMuted(posts []*post.Post, words []string) []*post.Post {
	if len(words) == 0 {
		return posts
	}

	survivors := make([]*post.Post, 0, len(posts))
	for _, p := range posts {
		body := strings.ToLower(p.Body)
		muted := false
		for _, w := range words {
			if strings.Contains(body, w) {
				muted = true
				break
			}
		}
		if !muted {
			survivors = append(survivors, p)
		}
	}
	return survivors
}

// nextCursor returns the cursor for the following page, or nil when
// this page came up short, which signals exhaustion. The cursor is the
// oldest creation time on the page.
func nextCursor(views []*PostView, limit int) *string {
	if len(views) < limit {
		return nil
	}

	oldest := views[0].CreatedAt
	for _, v := range views[1:] {
		if v.CreatedAt.Before(oldest) {
			oldest = v.CreatedAt
		}
	}

	cursor := EncodeCursor(oldest)
	return &cursor
}
