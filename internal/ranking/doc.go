// Package ranking provides centralized ranking component calculations
// with calibration support for the personalized feed.
//
// The feed score for a candidate post combines five deterministic
// components plus a per-request random jitter:
//
//   - Follow boost: a flat bonus when the viewer follows the author.
//   - Tag match boost: a per-tag bonus for overlap between the post's
//     tags and the viewer's top interest tags.
//   - Engagement: logarithmic boosts for reaction and comment counts,
//     so runaway engagement has diminishing returns.
//   - Age decay: a linear penalty per hour of post age.
//   - Jitter: a small uniform random perturbation, re-drawn on every
//     request, that breaks the stable total order so near-score posts
//     surface in varying order across repeated polls.
//
// Weights are calibrated via an optional JSON file loaded at startup;
// partial overrides merge onto the defaults and are logged. The jitter
// source itself lives with the caller so tests can pin it to zero.
package ranking
