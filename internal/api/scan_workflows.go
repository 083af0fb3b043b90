package api

import (
	"context"
	"fmt"
	"log/slog"

	"dupscan/internal/catalog"
	"dupscan/internal/config"
	"dupscan/internal/detect"
	"dupscan/internal/engine"
	"dupscan/internal/logging"
	"dupscan/internal/session"
)

// StartDetectionRequest describes one scan invocation.
type StartDetectionRequest struct {
	Config *config.Config
	Logger *slog.Logger
	Roots  []string
	Mode   string
}

// StartDetectionResult carries the stored session and everything the
// caller may want to present.
type StartDetectionResult struct {
	Session *session.Session
	Groups  []session.DuplicateGroup
	// CatalogTruncated reports that the file cap stopped the walk early.
	CatalogTruncated bool
}

// StartDetection catalogs the requested roots, runs the detection engine,
// and persists the resulting session.
func StartDetection(ctx context.Context, req StartDetectionRequest) (*StartDetectionResult, error) {
	cfg := req.Config
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if len(req.Roots) == 0 {
		return nil, fmt.Errorf("at least one scan root is required")
	}
	mode, ok := detect.ParseMode(req.Mode)
	if !ok {
		return nil, fmt.Errorf("unknown mode %q (valid: %v)", req.Mode, detect.ModeNames())
	}

	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	scanned, err := catalog.New(cfg.Catalog, logger).Scan(ctx, req.Roots...)
	if err != nil {
		return nil, fmt.Errorf("catalog roots: %w", err)
	}

	store, err := session.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	sess, groups, err := engine.New(store, logger).Run(
		ctx, scanned.Records, cfg.DetectionConfig(), mode, scanned.Problems...)
	if err != nil {
		return nil, err
	}

	return &StartDetectionResult{
		Session:          sess,
		Groups:           groups,
		CatalogTruncated: scanned.Truncated,
	}, nil
}
