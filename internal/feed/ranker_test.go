package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/interest"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/mute"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/post"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/ranking"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/reaction"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/social"
	"github.com/mdtechpoint25-prog/unvoxia-app-sub002/internal/tag"
)

// fixture wires a ranker onto in-memory stores with a fixed clock and
// zero jitter, so scores are fully deterministic.
type fixture struct {
	posts     *post.InMemoryRepository
	follows   *social.InMemoryFollowRepository
	blocks    *social.InMemoryBlockRepository
	interests *interest.InMemoryRepository
	mutes     *mute.InMemoryRepository
	tags      *tag.InMemoryRepository
	reactions *reaction.InMemoryRepository
	now       time.Time
	ranker    *Ranker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		posts:     post.NewInMemoryRepository(),
		follows:   social.NewInMemoryFollowRepository(),
		blocks:    social.NewInMemoryBlockRepository(),
		interests: interest.NewInMemoryRepository(),
		mutes:     mute.NewInMemoryRepository(),
		tags:      tag.NewInMemoryRepository(),
		reactions: reaction.NewInMemoryRepository(),
		now:       time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
	}
	f.ranker = NewRanker(Deps{
		Posts:     f.posts,
		Follows:   f.follows,
		Blocks:    f.blocks,
		Interests: f.interests,
		Mutes:     f.mutes,
		Tags:      f.tags,
		Reactions: f.reactions,
		Jitter:    func() float64 { return 0 },
		Now:       func() time.Time { return f.now },
	})
	return f
}

// addPost creates a post aged by age relative to the fixture clock.
func (f *fixture) addPost(t *testing.T, authorID, body string, age time.Duration, reactions, comments int64) *post.Post {
	t.Helper()

	p := &post.Post{
		AuthorID:      authorID,
		Body:          body,
		ReactionCount: reactions,
		CommentCount:  comments,
		CreatedAt:     f.now.Add(-age),
	}
	if err := f.posts.Create(context.Background(), p); err != nil {
		t.Fatalf("Create post failed: %v", err)
	}
	return p
}

func (f *fixture) tagPost(t *testing.T, postID string, names ...string) {
	t.Helper()

	ctx := context.Background()
	tags, err := f.tags.Ensure(ctx, names)
	if err != nil {
		t.Fatalf("Ensure tags failed: %v", err)
	}
	ids := make([]string, len(tags))
	for i, tg := range tags {
		ids[i] = tg.ID
	}
	if err := f.tags.LinkPost(ctx, postID, ids); err != nil {
		t.Fatalf("LinkPost failed: %v", err)
	}
}

func postIDs(page *Page) []string {
	ids := make([]string, len(page.Posts))
	for i, v := range page.Posts {
		ids[i] = v.ID
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// TestRank_ExcludesFlaggedPosts tests that flagged posts never surface.
func TestRank_ExcludesFlaggedPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	clean := f.addPost(t, "bob", "a quiet thought", time.Hour, 0, 0)
	flagged := f.addPost(t, "carol", "reported content", time.Hour, 50, 10)
	for i := 0; i < post.DefaultReportThreshold; i++ {
		if _, err := f.posts.Report(ctx, flagged.ID, post.DefaultReportThreshold); err != nil {
			t.Fatalf("Report failed: %v", err)
		}
	}

	page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	ids := postIDs(page)
	if contains(ids, flagged.ID) {
		t.Error("flagged post appeared in the feed")
	}
	if !contains(ids, clean.ID) {
		t.Error("clean post missing from the feed")
	}
}

// TestRank_ExcludesBlockedAuthors tests block filtering.
func TestRank_ExcludesBlockedAuthors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kept := f.addPost(t, "bob", "still here", time.Hour, 0, 0)
	dropped := f.addPost(t, "troll", "loud noise", time.Hour, 500, 100)
	if err := f.blocks.Block(ctx, "alice", "troll"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	ids := postIDs(page)
	if contains(ids, dropped.ID) {
		t.Error("blocked author's post appeared in the feed")
	}
	if !contains(ids, kept.ID) {
		t.Error("unblocked author's post missing from the feed")
	}
}

// TestRank_MuteWordFiltering tests case-insensitive substring muting.
func TestRank_MuteWordFiltering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kept := f.addPost(t, "bob", "a walk in the park", time.Hour, 0, 0)
	muted := f.addPost(t, "carol", "my new DIET plan is working", time.Hour, 20, 5)
	if err := f.mutes.Add(ctx, "alice", "diet"); err != nil {
		t.Fatalf("Add mute failed: %v", err)
	}

	page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	ids := postIDs(page)
	if contains(ids, muted.ID) {
		t.Error("muted post appeared in the feed")
	}
	if !contains(ids, kept.ID) {
		t.Error("unmuted post missing from the feed")
	}
}

// TestRank_CursorExcludesNewerPosts tests strictly-older pagination.
func TestRank_CursorExcludesNewerPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	newer := f.addPost(t, "bob", "posted recently", time.Hour, 0, 0)
	boundary := f.addPost(t, "bob", "posted at the cursor", 2*time.Hour, 0, 0)
	older := f.addPost(t, "bob", "posted earlier", 3*time.Hour, 0, 0)

	cursor := boundary.CreatedAt
	page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice", Cursor: &cursor})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	ids := postIDs(page)
	if contains(ids, newer.ID) {
		t.Error("post newer than the cursor appeared")
	}
	if contains(ids, boundary.ID) {
		t.Error("post at the cursor appeared; pagination must be strictly older")
	}
	if !contains(ids, older.ID) {
		t.Error("post older than the cursor missing")
	}
}

// TestRank_FollowBoostDominates tests that a followed author's modest
// post outranks a stranger's viral one.
func TestRank_FollowBoostDominates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	followed := f.addPost(t, "bob", "from a friend", time.Hour, 10, 0)
	_ = f.addPost(t, "stranger", "from the void", time.Hour, 1000, 0)
	if _, err := f.follows.Follow(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	if len(page.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(page.Posts))
	}
	if page.Posts[0].ID != followed.ID {
		t.Errorf("expected followed author's post first, got %s", page.Posts[0].ID)
	}
	if !page.Posts[0].IsFollowing {
		t.Error("expected IsFollowing=true on the followed author's post")
	}
	if page.Posts[1].IsFollowing {
		t.Error("expected IsFollowing=false on the stranger's post")
	}
}

// TestRank_InterestTagBoost tests that interest overlap lifts a post.
func TestRank_InterestTagBoost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	matched := f.addPost(t, "bob", "thoughts on grief", time.Hour, 0, 0)
	f.tagPost(t, matched.ID, "grief")
	_ = f.addPost(t, "carol", "thoughts on lunch", time.Hour, 5, 2)

	tags, err := f.tags.Ensure(ctx, []string{"grief"})
	if err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if err := f.interests.Accrue(ctx, "alice", tags[0].ID, interest.CommentDelta, f.now); err != nil {
		t.Fatalf("Accrue failed: %v", err)
	}

	page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	if len(page.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(page.Posts))
	}
	if page.Posts[0].ID != matched.ID {
		t.Errorf("expected interest-matched post first, got %s", page.Posts[0].ID)
	}
	if len(page.Posts[0].Tags) != 1 || page.Posts[0].Tags[0] != "grief" {
		t.Errorf("expected tags [grief], got %v", page.Posts[0].Tags)
	}
}

// TestRank_TieBreaksByRecency tests the created_at tie-break on equal scores.
func TestRank_TieBreaksByRecency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// With age decay disabled, zero-engagement posts by strangers all
	// score exactly zero no matter how old they are, so ordering can
	// only come from the created_at tie-break.
	weights := ranking.DefaultWeights()
	weights.AgeDecayPerHour = 0
	ranker := NewRanker(Deps{
		Posts:     f.posts,
		Follows:   f.follows,
		Blocks:    f.blocks,
		Interests: f.interests,
		Mutes:     f.mutes,
		Tags:      f.tags,
		Reactions: f.reactions,
		Weights:   weights,
		Jitter:    func() float64 { return 0 },
		Now:       func() time.Time { return f.now },
	})

	older := f.addPost(t, "bob", "first", 48*time.Hour, 0, 0)
	newer := f.addPost(t, "carol", "second", time.Hour, 0, 0)

	page, err := ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	if len(page.Posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(page.Posts))
	}
	if page.Posts[0].Score != page.Posts[1].Score {
		t.Fatalf("expected an exact score tie, got %v and %v",
			page.Posts[0].Score, page.Posts[1].Score)
	}
	if page.Posts[0].ID != newer.ID || page.Posts[1].ID != older.ID {
		t.Errorf("expected newer post %s first on tied scores, got order %v",
			newer.ID, postIDs(page))
	}
}

// TestRank_LimitClamping tests limit defaulting and clamping.
func TestRank_LimitClamping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		f.addPost(t, "bob", "filler", time.Duration(i+1)*time.Minute, 0, 0)
	}

	tests := []struct {
		name      string
		limit     int
		wantPosts int
	}{
		{"default when zero", 0, DefaultLimit},
		{"default when negative", -5, DefaultLimit},
		{"respects explicit limit", 7, 7},
		{"clamps above max", 200, MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice", Limit: tt.limit})
			if err != nil {
				t.Fatalf("Rank failed: %v", err)
			}
			if len(page.Posts) != tt.wantPosts {
				t.Errorf("expected %d posts, got %d", tt.wantPosts, len(page.Posts))
			}
			if page.NextCursor == nil {
				t.Error("expected a next cursor on a full page")
			}
		})
	}
}

// TestRank_ShortPageHasNoCursor tests cursor omission at exhaustion.
func TestRank_ShortPageHasNoCursor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addPost(t, "bob", "one of three", time.Hour, 0, 0)
	f.addPost(t, "bob", "two of three", 2*time.Hour, 0, 0)
	f.addPost(t, "bob", "three of three", 3*time.Hour, 0, 0)

	page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice", Limit: 10})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	if len(page.Posts) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(page.Posts))
	}
	if page.NextCursor != nil {
		t.Errorf("expected nil cursor on a short page, got %q", *page.NextCursor)
	}
}

// TestRank_PaginationWalk tests walking the feed to exhaustion.
func TestRank_PaginationWalk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		f.addPost(t, "bob", "entry", time.Duration(i+1)*time.Hour, 0, 0)
	}

	seen := make(map[string]bool)
	var cursor *time.Time
	pages := 0
	for {
		page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice", Cursor: cursor, Limit: 5})
		if err != nil {
			t.Fatalf("Rank failed: %v", err)
		}
		pages++
		for _, v := range page.Posts {
			if seen[v.ID] {
				t.Errorf("post %s returned twice", v.ID)
			}
			seen[v.ID] = true
		}
		if page.NextCursor == nil {
			break
		}
		cursor = ParseCursor(*page.NextCursor)
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
	}

	if len(seen) != 12 {
		t.Errorf("expected to see all 12 posts, saw %d", len(seen))
	}
}

// TestRank_AnonymousTrending tests the anonymous fallback ordering and window.
func TestRank_AnonymousTrending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hot := f.addPost(t, "bob", "everyone saw this", 2*time.Hour, 300, 0)
	warm := f.addPost(t, "carol", "many saw this", time.Hour, 40, 0)
	stale := f.addPost(t, "dave", "ancient hit", TrendingWindow+time.Hour, 9000, 0)

	page, err := f.ranker.Rank(ctx, Request{})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	ids := postIDs(page)
	if contains(ids, stale.ID) {
		t.Error("post outside the trending window appeared")
	}
	if len(ids) != 2 || ids[0] != hot.ID || ids[1] != warm.ID {
		t.Errorf("expected [hot warm] by reaction count, got %v", ids)
	}
	for _, v := range page.Posts {
		if v.Score != 0 {
			t.Error("trending posts must not carry personalized scores")
		}
	}
}

// TestRank_JitterIsInjectable tests that the jitter seam shifts scores.
func TestRank_JitterIsInjectable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.addPost(t, "bob", "steady", time.Hour, 0, 0)

	zero, err := f.ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	full := NewRanker(Deps{
		Posts:     f.posts,
		Follows:   f.follows,
		Blocks:    f.blocks,
		Interests: f.interests,
		Mutes:     f.mutes,
		Tags:      f.tags,
		Reactions: f.reactions,
		Jitter:    func() float64 { return 1 },
		Now:       func() time.Time { return f.now },
	})
	lifted, err := full.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	w := ranking.DefaultWeights()
	diff := lifted.Posts[0].Score - zero.Posts[0].Score
	if diff < w.JitterMax-0.0001 || diff > w.JitterMax+0.0001 {
		t.Errorf("expected jitter to shift post %s score by %f, got %f", p.ID, w.JitterMax, diff)
	}
}

// TestRank_HasReacted tests the viewer reaction annotation.
func TestRank_HasReacted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	liked := f.addPost(t, "bob", "liked it", time.Hour, 1, 0)
	f.addPost(t, "carol", "passed on it", time.Hour, 0, 0)
	if _, err := f.reactions.React(ctx, "alice", liked.ID); err != nil {
		t.Fatalf("React failed: %v", err)
	}

	page, err := f.ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	for _, v := range page.Posts {
		if v.ID == liked.ID && !v.HasReacted {
			t.Error("expected HasReacted=true on the liked post")
		}
		if v.ID != liked.ID && v.HasReacted {
			t.Error("expected HasReacted=false on the other post")
		}
	}
}

// failingInterests always errors, standing in for a degraded store.
type failingInterests struct{}

func (failingInterests) TopInterests(ctx context.Context, userID string, n int, now time.Time) ([]interest.TagWeight, error) {
	return nil, errors.New("interest store unavailable")
}

// TestRank_CollaboratorFailureFailsRequest tests whole-request error propagation.
func TestRank_CollaboratorFailureFailsRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addPost(t, "bob", "never served", time.Hour, 0, 0)

	broken := NewRanker(Deps{
		Posts:     f.posts,
		Follows:   f.follows,
		Blocks:    f.blocks,
		Interests: failingInterests{},
		Mutes:     f.mutes,
		Tags:      f.tags,
		Reactions: f.reactions,
		Jitter:    func() float64 { return 0 },
		Now:       func() time.Time { return f.now },
	})

	if _, err := broken.Rank(ctx, Request{ViewerID: "alice"}); err == nil {
		t.Fatal("expected error when a collaborator fails")
	}
}

// TestRank_Deterministic tests that zero jitter makes ranking repeatable.
func TestRank_Deterministic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		f.addPost(t, "bob", "entry", time.Duration(i+1)*time.Minute, int64(i*3), int64(i))
	}

	first, err := f.ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	second, err := f.ranker.Rank(ctx, Request{ViewerID: "alice"})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	a, b := postIDs(first), postIDs(second)
	if len(a) != len(b) {
		t.Fatalf("page sizes differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("position %d differs: %s vs %s", i, a[i], b[i])
		}
	}
}

// TestRank_DurationMetricUsesWallClock tests that the rank duration
// histogram observes real elapsed time even under an injected clock.
func TestRank_DurationMetricUsesWallClock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addPost(t, "bob", "a quiet thought", time.Hour, 0, 0)

	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	ranker := NewRanker(Deps{
		Posts:     f.posts,
		Follows:   f.follows,
		Blocks:    f.blocks,
		Interests: f.interests,
		Mutes:     f.mutes,
		Tags:      f.tags,
		Reactions: f.reactions,
		Metrics:   metrics,
		Jitter:    func() float64 { return 0 },
		Now:       func() time.Time { return f.now },
	})

	if _, err := ranker.Rank(ctx, Request{ViewerID: "alice"}); err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var sum float64
	var samples uint64
	for _, mf := range families {
		if mf.GetName() != MetricFeedRankDuration {
			continue
		}
		for _, m := range mf.GetMetric() {
			if h := m.GetHistogram(); h != nil {
				sum += h.GetSampleSum()
				samples += h.GetSampleCount()
			}
		}
	}
	if samples != 1 {
		t.Fatalf("expected 1 duration sample, got %d", samples)
	}
	// The fixture clock sits months away from wall time; a duration
	// derived from it would be enormous.
	if sum < 0 || sum > 60 {
		t.Errorf("observed rank duration %gs, want a small wall-clock value", sum)
	}
}
