package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"dupscan/internal/detect"
	"dupscan/internal/detect/exact"
	"dupscan/internal/detect/metadata"
	"dupscan/internal/detect/perceptual"
	"dupscan/internal/logging"
	"dupscan/internal/results"
	"dupscan/internal/session"
)

// Saver persists a finished session with its consolidated groups.
type Saver interface {
	Save(ctx context.Context, sess *session.Session, groups []session.DuplicateGroup) error
}

// Engine fans records out to the enabled detectors and assembles the
// session record from their combined output.
type Engine struct {
	saver     Saver
	logger    *slog.Logger
	detectors []detect.Detector
	now       func() time.Time
	newID     func() string
}

// Option customizes engine construction.
type Option func(*Engine)

// WithDetectors replaces the default detector set.
func WithDetectors(detectors ...detect.Detector) Option {
	return func(e *Engine) {
		e.detectors = detectors
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides session ID generation, for tests.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// New builds an engine wired with the three standard detectors.
func New(saver Saver, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		saver:  saver,
		logger: logging.NewComponentLogger(logger, "engine"),
		detectors: []detect.Detector{
			exact.New(),
			perceptual.New(),
			metadata.New(),
		},
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

type detectorResult struct {
	groups []detect.RawGroup
	perf   detect.Performance
	err    error
}

// Run executes one detection session over the supplied records and
// persists the outcome. The returned session and groups reflect exactly
// what was stored. Run fails only when persistence fails; algorithm
// errors are folded into the session status instead. fileProblems carries
// per-file cataloging failures so they land on the session's error list.
func (e *Engine) Run(ctx context.Context, records []detect.FileRecord, cfg detect.Config, mode detect.Mode, fileProblems ...string) (*session.Session, []session.DuplicateGroup, error) {
	started := e.now()
	warnings := cfg.Normalize()

	sess := &session.Session{
		ID:         e.newID(),
		Mode:       string(mode),
		Status:     session.StatusRunning,
		TotalFiles: len(records),
		Errors:     fileProblems,
		Warnings:   warnings,
		CreatedAt:  started,
	}
	if configJSON, err := json.Marshal(cfg); err == nil {
		sess.ConfigJSON = string(configJSON)
	}

	logger := e.logger.With(
		slog.String(logging.FieldSessionID, sess.ID),
		slog.String(logging.FieldMode, string(mode)),
	)
	logger.Info("detection started", slog.Int("files", len(records)))
	for _, warning := range warnings {
		logger.Warn("configuration clamped", slog.String("detail", warning))
	}

	enabled := make([]detect.Detector, 0, len(e.detectors))
	for _, detector := range e.detectors {
		if cfg.EnabledFor(mode, detector.Method()) {
			enabled = append(enabled, detector)
		}
	}
	if len(enabled) == 0 {
		sess.Warnings = append(sess.Warnings, fmt.Sprintf("no algorithms enabled for mode %q", mode))
		logger.Warn("no algorithms enabled", slog.String("detail", string(mode)))
	}

	resultsByDetector := make([]detectorResult, len(enabled))
	var wg sync.WaitGroup
	for i, detector := range enabled {
		wg.Add(1)
		go func(i int, detector detect.Detector) {
			defer wg.Done()
			groups, perf, err := detector.Detect(ctx, records, cfg)
			resultsByDetector[i] = detectorResult{groups: groups, perf: perf, err: err}
		}(i, detector)
	}
	wg.Wait()

	var (
		rawGroups []detect.RawGroup
		succeeded int
	)
	for i, result := range resultsByDetector {
		detector := enabled[i]
		perf := result.perf
		if perf.Detector == "" {
			perf.Detector = detector.Name()
		}
		cancelled := result.err != nil &&
			(errors.Is(result.err, context.Canceled) || ctx.Err() != nil)
		switch {
		case result.err == nil:
			succeeded++
			rawGroups = append(rawGroups, result.groups...)
		case cancelled:
			// Cancellation is cooperative, not a detector failure: the
			// partial groups count and no error is recorded.
			rawGroups = append(rawGroups, result.groups...)
			logger.Info("detector cancelled",
				slog.String(logging.FieldDetector, detector.Name()),
				slog.Int("partial_groups", len(result.groups)),
			)
		default:
			// A failed algorithm's output is discarded entirely.
			perf.Errored = true
			if perf.ErrorMessage == "" {
				perf.ErrorMessage = result.err.Error()
			}
			sess.Errors = append(sess.Errors, result.err.Error())
			logger.Error("detector failed",
				slog.String(logging.FieldDetector, detector.Name()),
				logging.Error(result.err),
			)
		}
		if perf.FilesSkipped > 0 {
			sess.Warnings = append(sess.Warnings, fmt.Sprintf(
				"%s skipped %d files without usable input", detector.Name(), perf.FilesSkipped))
		}
		sess.Performance = append(sess.Performance, perf)
		logger.Debug("detector finished",
			slog.String(logging.FieldDetector, detector.Name()),
			slog.Int("groups", len(result.groups)),
			slog.Duration("elapsed", perf.Elapsed),
		)
	}

	groups := results.NewProcessor(cfg).Consolidate(rawGroups, records)
	sess.TotalGroups = len(groups)
	for _, group := range groups {
		sess.TotalDuplicates += group.FileCount
	}

	finished := e.now()
	sess.DetectionTimeMs = finished.Sub(started).Milliseconds()
	sess.CompletedAt = finished
	sess.Status = deriveStatus(ctx, len(enabled), succeeded, len(sess.Errors))

	logger.Info("detection finished",
		slog.String("status", string(sess.Status)),
		slog.Int("groups", sess.TotalGroups),
		slog.Int("duplicates", sess.TotalDuplicates),
		slog.Duration("elapsed", finished.Sub(started)),
	)

	// Cancelled runs still persist their partial findings.
	if err := e.saver.Save(context.WithoutCancel(ctx), sess, groups); err != nil {
		wrapped := detect.Wrap(detect.ErrPersistence, "", "save session", err)
		logger.Error("session save failed", logging.Error(wrapped))
		return sess, groups, wrapped
	}
	return sess, groups, nil
}

// deriveStatus maps a finished run onto the session lifecycle. Failure is
// reserved for runs where every detector errored and nothing was produced;
// anything partial completes with errors so partial findings stay usable.
func deriveStatus(ctx context.Context, ran, succeeded, errCount int) session.Status {
	if ctx.Err() != nil {
		return session.StatusCancelled
	}
	if ran > 0 && succeeded == 0 && errCount > 0 {
		return session.StatusFailed
	}
	if errCount > 0 {
		return session.StatusCompletedWithErrors
	}
	return session.StatusCompleted
}
