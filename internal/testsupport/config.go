// Package testsupport holds shared builders for package tests: temp-dir
// scoped configs, opened stores, and catalog record fixtures.
package testsupport

import (
	"path/filepath"
	"testing"

	"dupscan/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithSimilarityThreshold overrides the perceptual threshold on the test config.
func WithSimilarityThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Detection.SimilarityThreshold = threshold
	}
}

// WithAlgorithms toggles the per-algorithm enable flags on the test config.
func WithAlgorithms(exact, perceptual, metadata bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Detection.EnableExact = exact
		cfg.Detection.EnablePerceptual = perceptual
		cfg.Detection.EnableMetadata = metadata
	}
}
