package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Weight overrides
}

// LoadCalibration loads feed scoring weights from a JSON calibration file.
// If the file doesn't exist or can't be parsed, returns default weights
// with an error so the service degrades gracefully instead of refusing
// to start. Partial configurations are merged with defaults.
func LoadCalibration(filePath string) (*Weights, error) {
	// Return defaults if no file path provided
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override weights onto base weights.
// Only non-zero values from the override are applied, which allows
// partial overrides in the calibration file. A zero weight therefore
// cannot be expressed via calibration; disable components by removing
// them from the formula instead.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	// Guard against nil base to avoid panics; fall back to defaults.
	if base == nil {
		return DefaultWeights()
	}

	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.FollowBoost != 0 {
		result.FollowBoost = override.FollowBoost
	}
	if override.TagMatchBoost != 0 {
		result.TagMatchBoost = override.TagMatchBoost
	}
	if override.ReactionWeight != 0 {
		result.ReactionWeight = override.ReactionWeight
	}
	if override.CommentWeight != 0 {
		result.CommentWeight = override.CommentWeight
	}
	if override.AgeDecayPerHour != 0 {
		result.AgeDecayPerHour = override.AgeDecayPerHour
	}
	if override.JitterMax != 0 {
		result.JitterMax = override.JitterMax
	}

	return &result
}

// logCalibrationOverrides logs which weights were overridden from defaults.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	if loaded.FollowBoost != defaults.FollowBoost {
		overrides = append(overrides, fmt.Sprintf("follow_boost: %.2f -> %.2f",
			defaults.FollowBoost, loaded.FollowBoost))
	}
	if loaded.TagMatchBoost != defaults.TagMatchBoost {
		overrides = append(overrides, fmt.Sprintf("tag_match_boost: %.2f -> %.2f",
			defaults.TagMatchBoost, loaded.TagMatchBoost))
	}
	if loaded.ReactionWeight != defaults.ReactionWeight {
		overrides = append(overrides, fmt.Sprintf("reaction_weight: %.2f -> %.2f",
			defaults.ReactionWeight, loaded.ReactionWeight))
	}
	if loaded.CommentWeight != defaults.CommentWeight {
		overrides = append(overrides, fmt.Sprintf("comment_weight: %.2f -> %.2f",
			defaults.CommentWeight, loaded.CommentWeight))
	}
	if loaded.AgeDecayPerHour != defaults.AgeDecayPerHour {
		overrides = append(overrides, fmt.Sprintf("age_decay_per_hour: %.3f -> %.3f",
			defaults.AgeDecayPerHour, loaded.AgeDecayPerHour))
	}
	if loaded.JitterMax != defaults.JitterMax {
		overrides = append(overrides, fmt.Sprintf("jitter_max: %.2f -> %.2f",
			defaults.JitterMax, loaded.JitterMax))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
