package detect

import "fmt"

// Configuration defaults. Out-of-range values are clamped back to these and
// reported as warnings; configuration problems never abort a run.
const (
	DefaultSimilarityThreshold  = 80.0
	DefaultSizeToleranceBytes   = 0
	DefaultTimeToleranceSeconds = 60
	DefaultMinConfidence        = 50.0
	DefaultMaxResultsPerGroup   = 100
	DefaultBatchSize            = 500
)

// Config carries every knob the detectors and the results processor read.
// Obtain a usable value through Normalize; the zero value is not valid.
type Config struct {
	// SimilarityThreshold is the minimum pairwise similarity percentage
	// (0-100) for two signatures to be considered duplicates.
	SimilarityThreshold float64 `json:"similarity_threshold"`
	// SizeToleranceBytes and TimeToleranceSeconds bound the metadata
	// heuristic's matching window.
	SizeToleranceBytes   int64 `json:"size_tolerance_bytes"`
	TimeToleranceSeconds int64 `json:"time_tolerance_seconds"`
	// MinConfidence filters consolidated groups below this score (0-100).
	MinConfidence float64 `json:"min_confidence"`
	// MaxResultsPerGroup truncates reported members per group; the true
	// member count is always preserved on the group.
	MaxResultsPerGroup int `json:"max_results_per_group"`
	// BatchSize bounds how many records a detector walks between
	// cancellation checks.
	BatchSize int `json:"batch_size"`

	EnableExact              bool `json:"enable_exact"`
	EnablePerceptual         bool `json:"enable_perceptual"`
	EnableMetadata           bool `json:"enable_metadata"`
	CrossAlgorithmValidation bool `json:"cross_algorithm_validation"`
}

// DefaultConfig returns the repository default detection configuration.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:      DefaultSimilarityThreshold,
		SizeToleranceBytes:       DefaultSizeToleranceBytes,
		TimeToleranceSeconds:     DefaultTimeToleranceSeconds,
		MinConfidence:            DefaultMinConfidence,
		MaxResultsPerGroup:       DefaultMaxResultsPerGroup,
		BatchSize:                DefaultBatchSize,
		EnableExact:              true,
		EnablePerceptual:         true,
		EnableMetadata:           true,
		CrossAlgorithmValidation: true,
	}
}

// Normalize clamps out-of-range fields back to their defaults and returns a
// warning per clamped field. It never fails: a bad configuration value is a
// recorded warning on the session, not an error.
func (c *Config) Normalize() []string {
	var warnings []string

	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 100 {
		warnings = append(warnings, fmt.Sprintf(
			"similarity_threshold %.1f outside [0,100]; using default %.0f",
			c.SimilarityThreshold, float64(DefaultSimilarityThreshold)))
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.SizeToleranceBytes < 0 {
		warnings = append(warnings, fmt.Sprintf(
			"size_tolerance_bytes %d negative; using default %d",
			c.SizeToleranceBytes, int64(DefaultSizeToleranceBytes)))
		c.SizeToleranceBytes = DefaultSizeToleranceBytes
	}
	if c.TimeToleranceSeconds < 0 {
		warnings = append(warnings, fmt.Sprintf(
			"time_tolerance_seconds %d negative; using default %d",
			c.TimeToleranceSeconds, int64(DefaultTimeToleranceSeconds)))
		c.TimeToleranceSeconds = DefaultTimeToleranceSeconds
	}
	if c.MinConfidence < 0 || c.MinConfidence > 100 {
		warnings = append(warnings, fmt.Sprintf(
			"min_confidence %.1f outside [0,100]; using default %.0f",
			c.MinConfidence, float64(DefaultMinConfidence)))
		c.MinConfidence = DefaultMinConfidence
	}
	if c.MaxResultsPerGroup <= 0 {
		warnings = append(warnings, fmt.Sprintf(
			"max_results_per_group %d not positive; using default %d",
			c.MaxResultsPerGroup, DefaultMaxResultsPerGroup))
		c.MaxResultsPerGroup = DefaultMaxResultsPerGroup
	}
	if c.BatchSize <= 0 {
		warnings = append(warnings, fmt.Sprintf(
			"batch_size %d not positive; using default %d",
			c.BatchSize, DefaultBatchSize))
		c.BatchSize = DefaultBatchSize
	}

	return warnings
}

// EnabledFor reports whether the detector method participates in the mode,
// honouring both the mode selection and the per-algorithm enable flags.
func (c Config) EnabledFor(mode Mode, method Method) bool {
	switch method {
	case MethodExact:
		if !c.EnableExact {
			return false
		}
		return mode == ModeExact || mode == ModeComprehensive
	case MethodPerceptual:
		if !c.EnablePerceptual {
			return false
		}
		return mode == ModeSimilar || mode == ModeComprehensive
	case MethodMetadata:
		if !c.EnableMetadata {
			return false
		}
		return mode == ModeMetadata || mode == ModeComprehensive
	default:
		return false
	}
}
