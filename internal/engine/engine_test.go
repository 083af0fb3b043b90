package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dupscan/internal/detect"
	"dupscan/internal/engine"
	"dupscan/internal/logging"
	"dupscan/internal/session"
	"dupscan/internal/testsupport"
)

type fakeSaver struct {
	sess   *session.Session
	groups []session.DuplicateGroup
	ctxErr error
	err    error
}

func (f *fakeSaver) Save(ctx context.Context, sess *session.Session, groups []session.DuplicateGroup) error {
	f.ctxErr = ctx.Err()
	f.sess = sess
	f.groups = groups
	return f.err
}

type stubDetector struct {
	name   string
	method detect.Method
	groups []detect.RawGroup
	perf   detect.Performance
	err    error
}

func (s *stubDetector) Name() string          { return s.name }
func (s *stubDetector) Method() detect.Method { return s.method }

func (s *stubDetector) Detect(ctx context.Context, records []detect.FileRecord, cfg detect.Config) ([]detect.RawGroup, detect.Performance, error) {
	perf := s.perf
	if perf.Detector == "" {
		perf.Detector = s.name
	}
	return s.groups, perf, s.err
}

func newEngine(saver engine.Saver, opts ...engine.Option) *engine.Engine {
	opts = append(opts, engine.WithIDGenerator(func() string { return "sess-test" }))
	return engine.New(saver, logging.NewNop(), opts...)
}

func TestRunComprehensiveFindsExactDuplicates(t *testing.T) {
	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithHash("aaaa")),
		testsupport.NewRecord(2, testsupport.WithHash("aaaa")),
		testsupport.NewRecord(3, testsupport.WithHash("bbbb")),
	}

	saver := &fakeSaver{}
	sess, groups, err := newEngine(saver).Run(context.Background(), records, detect.DefaultConfig(), detect.ModeComprehensive)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %q, want completed", sess.Status)
	}
	if sess.TotalFiles != 3 {
		t.Fatalf("total files = %d, want 3", sess.TotalFiles)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].Confidence != 100 {
		t.Fatalf("confidence = %v, want 100", groups[0].Confidence)
	}
	if sess.TotalDuplicates != 2 {
		t.Fatalf("total duplicates = %d, want 2", sess.TotalDuplicates)
	}
	if len(sess.Performance) != 3 {
		t.Fatalf("performance rows = %d, want one per detector", len(sess.Performance))
	}
	if saver.sess == nil || saver.sess.ID != "sess-test" {
		t.Fatal("expected session handed to saver")
	}
	if !sess.CompletedAt.After(sess.CreatedAt) && !sess.CompletedAt.Equal(sess.CreatedAt) {
		t.Fatalf("completed_at %v before created_at %v", sess.CompletedAt, sess.CreatedAt)
	}
}

func TestRunModeSelectsDetectors(t *testing.T) {
	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithHash("aaaa")),
		testsupport.NewRecord(2, testsupport.WithHash("aaaa")),
	}

	saver := &fakeSaver{}
	sess, _, err := newEngine(saver).Run(context.Background(), records, detect.DefaultConfig(), detect.ModeExact)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sess.Performance) != 1 {
		t.Fatalf("performance rows = %d, want 1 for exact mode", len(sess.Performance))
	}
	if sess.Performance[0].Detector != "exact-content" {
		t.Fatalf("detector = %q, want exact-content", sess.Performance[0].Detector)
	}
}

func TestRunPartialFailureCompletesWithErrors(t *testing.T) {
	good := &stubDetector{
		name:   "exact-content",
		method: detect.MethodExact,
		groups: []detect.RawGroup{{
			Method:     detect.MethodExact,
			Basis:      "hash/aaaa",
			Confidence: 100,
			Members: []detect.RawMember{
				{FileID: 1, Confidence: 100},
				{FileID: 2, Confidence: 100},
			},
		}},
	}
	bad := &stubDetector{
		name:   "perceptual-similarity",
		method: detect.MethodPerceptual,
		err:    detect.Wrap(detect.ErrAlgorithm, "perceptual-similarity", "cluster", errors.New("boom")),
	}

	records := []detect.FileRecord{testsupport.NewRecord(1), testsupport.NewRecord(2)}
	saver := &fakeSaver{}
	sess, groups, err := newEngine(saver, engine.WithDetectors(good, bad)).Run(
		context.Background(), records, detect.DefaultConfig(), detect.ModeComprehensive)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.Status != session.StatusCompletedWithErrors {
		t.Fatalf("status = %q, want completed_with_errors", sess.Status)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want surviving detector output", len(groups))
	}
	if len(sess.Errors) != 1 || !strings.Contains(sess.Errors[0], "boom") {
		t.Fatalf("errors = %v", sess.Errors)
	}
	var errored bool
	for _, perf := range sess.Performance {
		if perf.Detector == "perceptual-similarity" && perf.Errored {
			errored = true
		}
	}
	if !errored {
		t.Fatal("expected errored performance record for failed detector")
	}
}

func TestRunAllDetectorsFailedMarksFailed(t *testing.T) {
	bad := &stubDetector{
		name:   "exact-content",
		method: detect.MethodExact,
		err:    errors.New("io exploded"),
	}

	saver := &fakeSaver{}
	sess, groups, err := newEngine(saver, engine.WithDetectors(bad)).Run(
		context.Background(), []detect.FileRecord{testsupport.NewRecord(1)}, detect.DefaultConfig(), detect.ModeExact)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.Status != session.StatusFailed {
		t.Fatalf("status = %q, want failed", sess.Status)
	}
	if len(groups) != 0 {
		t.Fatalf("groups = %d, want 0", len(groups))
	}
}

func TestRunCancelledPersistsPartialSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithHash("aaaa")),
		testsupport.NewRecord(2, testsupport.WithHash("aaaa")),
	}

	saver := &fakeSaver{}
	sess, _, err := newEngine(saver).Run(ctx, records, detect.DefaultConfig(), detect.ModeComprehensive)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.Status != session.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", sess.Status)
	}
	if saver.sess == nil {
		t.Fatal("expected cancelled session to be saved")
	}
	if saver.ctxErr != nil {
		t.Fatalf("save context carried cancellation: %v", saver.ctxErr)
	}
}

func TestRunConfigWarningsRecorded(t *testing.T) {
	cfg := detect.DefaultConfig()
	cfg.SimilarityThreshold = 400

	saver := &fakeSaver{}
	sess, _, err := newEngine(saver).Run(context.Background(), nil, cfg, detect.ModeComprehensive)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %q, want completed", sess.Status)
	}
	if len(sess.Warnings) == 0 || !strings.Contains(sess.Warnings[0], "similarity_threshold") {
		t.Fatalf("warnings = %v, want clamp warning", sess.Warnings)
	}
	if !strings.Contains(sess.ConfigJSON, `"similarity_threshold":80`) {
		t.Fatalf("config json should hold clamped value: %s", sess.ConfigJSON)
	}
}

func TestRunSaveFailureReturnsPersistenceError(t *testing.T) {
	saver := &fakeSaver{err: errors.New("disk full")}
	sess, _, err := newEngine(saver).Run(context.Background(), nil, detect.DefaultConfig(), detect.ModeComprehensive)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if !errors.Is(err, detect.ErrPersistence) {
		t.Fatalf("error %v not tagged as persistence", err)
	}
	if sess == nil {
		t.Fatal("expected session returned alongside error")
	}
}

func TestRunStampsTiming(t *testing.T) {
	base := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(250 * time.Millisecond)}
	idx := 0
	clock := func() time.Time {
		t := times[idx]
		if idx < len(times)-1 {
			idx++
		}
		return t
	}

	saver := &fakeSaver{}
	sess, _, err := newEngine(saver, engine.WithClock(clock)).Run(
		context.Background(), nil, detect.DefaultConfig(), detect.ModeComprehensive)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.DetectionTimeMs != 250 {
		t.Fatalf("detection time = %dms, want 250", sess.DetectionTimeMs)
	}
	if !sess.CreatedAt.Equal(base) {
		t.Fatalf("created_at = %v, want %v", sess.CreatedAt, base)
	}
}

func TestRunNoDuplicatesCompletesClean(t *testing.T) {
	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithHash("aaaa")),
		testsupport.NewRecord(2, testsupport.WithHash("bbbb")),
		testsupport.NewRecord(3, testsupport.WithHash("cccc")),
	}

	saver := &fakeSaver{}
	sess, groups, err := newEngine(saver).Run(context.Background(), records, detect.DefaultConfig(), detect.ModeExact)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.Status != session.StatusCompleted {
		t.Fatalf("status = %q, want completed", sess.Status)
	}
	if len(groups) != 0 {
		t.Fatalf("groups = %d, want 0", len(groups))
	}
	if sess.TotalFiles != 3 || sess.TotalGroups != 0 || sess.TotalDuplicates != 0 {
		t.Fatalf("totals = %d/%d/%d, want 3/0/0",
			sess.TotalFiles, sess.TotalGroups, sess.TotalDuplicates)
	}
}

func TestRunDiscardsErroredDetectorOutput(t *testing.T) {
	bad := &stubDetector{
		name:   "exact-content",
		method: detect.MethodExact,
		groups: []detect.RawGroup{{
			Method:     detect.MethodExact,
			Basis:      "hash/aaaa",
			Confidence: 100,
			Members: []detect.RawMember{
				{FileID: 1, Confidence: 100},
				{FileID: 2, Confidence: 100},
			},
		}},
		err: errors.New("index corrupted mid-run"),
	}

	records := []detect.FileRecord{testsupport.NewRecord(1), testsupport.NewRecord(2)}
	saver := &fakeSaver{}
	sess, groups, err := newEngine(saver, engine.WithDetectors(bad)).Run(
		context.Background(), records, detect.DefaultConfig(), detect.ModeExact)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("groups = %d, want 0: a failed algorithm's output must be discarded", len(groups))
	}
	if sess.Status != session.StatusFailed {
		t.Fatalf("status = %q, want failed", sess.Status)
	}
	if sess.TotalGroups != 0 || sess.TotalDuplicates != 0 {
		t.Fatalf("totals = %d/%d, want 0/0", sess.TotalGroups, sess.TotalDuplicates)
	}
}

func TestRunCancellationIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	partial := &stubDetector{
		name:   "exact-content",
		method: detect.MethodExact,
		groups: []detect.RawGroup{{
			Method:     detect.MethodExact,
			Basis:      "hash/aaaa",
			Confidence: 100,
			Members: []detect.RawMember{
				{FileID: 1, Confidence: 100},
				{FileID: 2, Confidence: 100},
			},
		}},
		err: context.Canceled,
	}

	records := []detect.FileRecord{testsupport.NewRecord(1), testsupport.NewRecord(2)}
	saver := &fakeSaver{}
	sess, groups, err := newEngine(saver, engine.WithDetectors(partial)).Run(
		ctx, records, detect.DefaultConfig(), detect.ModeExact)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sess.Status != session.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", sess.Status)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want partial findings preserved", len(groups))
	}
	if len(sess.Errors) != 0 {
		t.Fatalf("errors = %v, want none for a cooperative cancellation", sess.Errors)
	}
	for _, perf := range sess.Performance {
		if perf.Errored {
			t.Fatalf("performance %s marked errored on cancellation", perf.Detector)
		}
	}
}
