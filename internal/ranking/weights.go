package ranking

import (
	"math"
	"time"
)

// FollowWeight computes the follow boost component.
// Parameters:
//   - followed: Whether the viewer follows the post's author
//   - w: The boost to apply when followed (default: 5.0)
//
// Returns w if followed, otherwise 0.
func FollowWeight(followed bool, w float64) float64 {
	if !followed {
		return 0.0
	}
	return w
}

// TagMatchWeight computes the interest overlap component.
// Parameters:
//   - matches: The number of post tags that appear in the viewer's top interest tags
//   - w: The boost per matching tag (default: 4.0)
//
// Returns matches * w. Negative match counts are clamped to 0.
func TagMatchWeight(matches int, w float64) float64 {
	if matches < 0 {
		matches = 0
	}
	return float64(matches) * w
}

// EngagementWeight computes a logarithmic engagement component.
// Counts below 1 are clamped to 1 so the component is never negative
// and a zero-engagement post scores exactly 0.
//
// Parameters:
//   - count: The engagement counter (reactions or comments)
//   - w: The weight applied to ln(count)
//
// Returns w * ln(max(count, 1)).
func EngagementWeight(count int64, w float64) float64 {
	if count < 1 {
		count = 1
	}
	return w * math.Log(float64(count))
}

// AgeDecay computes the linear recency penalty for a post.
// Parameters:
//   - createdAt: The post's creation time
//   - now: The reference time (request wall-clock time)
//   - perHour: The penalty per hour of age (default: 0.02)
//
// Returns a non-positive value: -perHour * age_hours. Posts with a
// creation time in the future decay nothing.
func AgeDecay(createdAt, now time.Time, perHour float64) float64 {
	ageHours := now.Sub(createdAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return -perHour * ageHours
}

// PostParams holds the deterministic inputs for scoring one candidate post.
type PostParams struct {
	Followed   bool      // Viewer follows the author
	TagMatches int       // Overlap between post tags and viewer's top interest tags
	Reactions  int64     // Aggregate reaction count
	Comments   int64     // Aggregate comment count
	CreatedAt  time.Time // Post creation time
	Now        time.Time // Request time
}

// Weights holds the calibrated feed scoring weight configuration.
type Weights struct {
	FollowBoost     float64 `json:"follow_boost"`       // Flat boost for followed authors (default: 5.0)
	TagMatchBoost   float64 `json:"tag_match_boost"`    // Boost per matching interest tag (default: 4.0)
	ReactionWeight  float64 `json:"reaction_weight"`    // Weight on ln(reaction_count) (default: 1.0)
	CommentWeight   float64 `json:"comment_weight"`     // Weight on ln(comment_count) (default: 0.5)
	AgeDecayPerHour float64 `json:"age_decay_per_hour"` // Score lost per hour of age (default: 0.02)
	JitterMax       float64 `json:"jitter_max"`         // Upper bound of uniform jitter (default: 0.5)
}

// TopInterestCount is the number of highest-weight interest rows that
// define a viewer's top interest tag set.
const TopInterestCount = 20

// DefaultWeights returns the default feed scoring weight configuration.
//
// Formula: score = follow_boost + (tag_match_boost * matches)
//   - ln(max(reactions, 1)) + 0.5 * ln(max(comments, 1))
//   - 0.02 * age_hours + U(0, jitter_max)
//
// The follow boost (5.0) deliberately dominates engagement: it takes a
// reaction-count gap of e^5 (~148x) for a stranger's post to make up
// for a followed author's bonus.
func DefaultWeights() *Weights {
	return &Weights{
		FollowBoost:     5.0,
		TagMatchBoost:   4.0,
		ReactionWeight:  1.0,
		CommentWeight:   0.5,
		AgeDecayPerHour: 0.02,
		JitterMax:       0.5,
	}
}

// CompositeScore computes the deterministic portion of a post's feed
// score. Jitter is excluded so callers control the random source; add
// jitter separately with w.JitterMax and a uniform draw.
func CompositeScore(params PostParams, w *Weights) float64 {
	if w == nil {
		w = DefaultWeights()
	}

	return FollowWeight(params.Followed, w.FollowBoost) +
		TagMatchWeight(params.TagMatches, w.TagMatchBoost) +
		EngagementWeight(params.Reactions, w.ReactionWeight) +
		EngagementWeight(params.Comments, w.CommentWeight) +
		AgeDecay(params.CreatedAt, params.Now, w.AgeDecayPerHour)
}
