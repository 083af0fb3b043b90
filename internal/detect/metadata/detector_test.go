package metadata_test

import (
	"context"
	"testing"
	"time"

	"dupscan/internal/detect"
	"dupscan/internal/detect/metadata"
	"dupscan/internal/testsupport"
)

var baseTime = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func TestDetectGroupsWithinToleranceWindow(t *testing.T) {
	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime)),
		testsupport.NewRecord(2, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime.Add(30*time.Second))),
		testsupport.NewRecord(3, testsupport.WithSize(4096), testsupport.WithTimes(baseTime, baseTime)),
	}

	groups, perf, err := metadata.New().Detect(context.Background(), records, detect.DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if perf.FilesProcessed != 3 {
		t.Fatalf("processed = %d, want 3", perf.FilesProcessed)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	group := groups[0]
	if !group.NeedsVerification {
		t.Fatal("metadata groups always need verification")
	}
	// Baseline only: the modification times differ by 30s, so no increment.
	if group.Confidence != 50 {
		t.Fatalf("confidence = %v, want 50", group.Confidence)
	}
	if len(group.Members) != 2 {
		t.Fatalf("members = %d, want 2", len(group.Members))
	}
	for _, member := range group.Members {
		if len(member.Reasons) != 1 || member.Reasons[0] != "similar_metadata" {
			t.Fatalf("reasons = %v", member.Reasons)
		}
	}
}

func TestDetectRaisesConfidenceForStrongerSignals(t *testing.T) {
	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime), testsupport.WithDimensions(640, 480)),
		testsupport.NewRecord(2, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime), testsupport.WithDimensions(640, 480)),
	}

	groups, _, err := metadata.New().Detect(context.Background(), records, detect.DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	// Baseline 50 plus one increment each for identical mtimes and
	// matching dimensions.
	if groups[0].Confidence != 80 {
		t.Fatalf("confidence = %v, want 80", groups[0].Confidence)
	}
	reasons := groups[0].Members[0].Reasons
	if len(reasons) != 3 || reasons[1] != "matching_mtime" || reasons[2] != "matching_dimensions" {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestDetectRejectsDimensionMismatch(t *testing.T) {
	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime), testsupport.WithDimensions(640, 480)),
		testsupport.NewRecord(2, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime), testsupport.WithDimensions(800, 600)),
	}

	groups, _, err := metadata.New().Detect(context.Background(), records, detect.DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("groups = %d, want 0", len(groups))
	}
}

func TestDetectSkipsRecordsWithoutModificationTime(t *testing.T) {
	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithSize(2048), testsupport.WithTimes(time.Time{}, time.Time{})),
		testsupport.NewRecord(2, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime)),
	}

	groups, _, err := metadata.New().Detect(context.Background(), records, detect.DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("groups = %d, want 0", len(groups))
	}
}

func TestDetectClaimsEachRecordOnce(t *testing.T) {
	// Records 2 and 3 both match seed 1; record 3 must not seed a second
	// group afterwards.
	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime)),
		testsupport.NewRecord(2, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime.Add(20*time.Second))),
		testsupport.NewRecord(3, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime.Add(40*time.Second))),
	}

	groups, _, err := metadata.New().Detect(context.Background(), records, detect.DefaultConfig())
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].Members) != 3 {
		t.Fatalf("members = %d, want 3", len(groups[0].Members))
	}
}

func TestDetectWidensWindowWithSizeTolerance(t *testing.T) {
	cfg := detect.DefaultConfig()
	cfg.SizeToleranceBytes = 100

	records := []detect.FileRecord{
		testsupport.NewRecord(1, testsupport.WithSize(2048), testsupport.WithTimes(baseTime, baseTime)),
		testsupport.NewRecord(2, testsupport.WithSize(2100), testsupport.WithTimes(baseTime, baseTime)),
	}

	groups, _, err := metadata.New().Detect(context.Background(), records, cfg)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
}
