package session_test

import (
	"context"
	"testing"
	"time"

	"dupscan/internal/detect"
	"dupscan/internal/session"
	"dupscan/internal/testsupport"
)

func sampleSession(id string, status session.Status, created time.Time) *session.Session {
	return &session.Session{
		ID:              id,
		Mode:            "comprehensive",
		Status:          status,
		ConfigJSON:      `{"similarity_threshold":80}`,
		TotalFiles:      10,
		TotalGroups:     2,
		TotalDuplicates: 4,
		DetectionTimeMs: 150,
		Performance: []detect.Performance{
			{Detector: "exact-content", FilesProcessed: 10, GroupsFound: 2, Elapsed: 120 * time.Millisecond},
		},
		Warnings:    []string{"batch_size -1 not positive; using default 500"},
		CreatedAt:   created,
		CompletedAt: created.Add(time.Second),
	}
}

func sampleGroups() []session.DuplicateGroup {
	return []session.DuplicateGroup{
		{
			ID:         "11111111-1111-5111-8111-111111111111",
			Rank:       1,
			Methods:    []string{"exact"},
			Confidence: 100,
			FileCount:  3,
			TotalSize:  3072,
			Files: []session.GroupFile{
				{FileID: 1, Path: "/photos/a.jpg", Name: "a.jpg", Size: 1024, Confidence: 100, IsOriginal: true, Reasons: []string{"identical_content"}},
				{FileID: 2, Path: "/photos/b.jpg", Name: "b.jpg", Size: 1024, Confidence: 100, Reasons: []string{"identical_content"}},
				{FileID: 3, Path: "/photos/c.jpg", Name: "c.jpg", Size: 1024, Confidence: 100, Reasons: []string{"identical_content"}},
			},
		},
		{
			ID:                "22222222-2222-5222-8222-222222222222",
			Rank:              2,
			Methods:           []string{"metadata"},
			Confidence:        65,
			FileCount:         2,
			TotalSize:         2048,
			NeedsVerification: true,
			Files: []session.GroupFile{
				{FileID: 4, Path: "/photos/d.jpg", Name: "d.jpg", Size: 1024, Confidence: 65, IsOriginal: true},
				{FileID: 5, Path: "/photos/e.jpg", Name: "e.jpg", Size: 1024, Confidence: 65},
			},
		},
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	sess := sampleSession("sess-1", session.StatusCompleted, created)
	if err := store.Save(ctx, sess, sampleGroups()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.GetByID(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil {
		t.Fatal("GetByID returned nil for stored session")
	}
	if got.Status != session.StatusCompleted {
		t.Fatalf("status = %q, want completed", got.Status)
	}
	if got.TotalGroups != 2 || got.TotalDuplicates != 4 {
		t.Fatalf("totals = %d groups / %d duplicates, want 2 / 4", got.TotalGroups, got.TotalDuplicates)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, created)
	}
	if !got.CompletedAt.Equal(created.Add(time.Second)) {
		t.Fatalf("completed_at = %v, want %v", got.CompletedAt, created.Add(time.Second))
	}
	if len(got.Performance) != 1 {
		t.Fatalf("performance rows = %d, want 1", len(got.Performance))
	}
	perf := got.Performance[0]
	if perf.Detector != "exact-content" || perf.Elapsed != 120*time.Millisecond {
		t.Fatalf("performance = %+v", perf)
	}
	if len(got.Warnings) != 1 {
		t.Fatalf("warnings = %v, want 1 entry", got.Warnings)
	}
}

func TestGroupsReturnRankOrderWithFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := sampleSession("sess-1", session.StatusCompleted, time.Now().UTC())
	if err := store.Save(ctx, sess, sampleGroups()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	groups, err := store.Groups(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if groups[0].Rank != 1 || groups[1].Rank != 2 {
		t.Fatalf("ranks = %d, %d, want 1, 2", groups[0].Rank, groups[1].Rank)
	}
	if len(groups[0].Files) != 3 {
		t.Fatalf("group 1 files = %d, want 3", len(groups[0].Files))
	}
	if !groups[0].Files[0].IsOriginal {
		t.Fatal("expected original file first in group")
	}
	if !groups[1].NeedsVerification {
		t.Fatal("expected metadata-only group to need verification")
	}
	original := groups[1].SuggestedOriginal()
	if original == nil || original.FileID != 4 {
		t.Fatalf("suggested original = %+v, want file 4", original)
	}
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	got, err := store.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil session, got %+v", got)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	older := sampleSession("sess-old", session.StatusCompleted, base)
	newer := sampleSession("sess-new", session.StatusFailed, base.Add(time.Hour))
	if err := store.Save(ctx, older, nil); err != nil {
		t.Fatalf("Save older: %v", err)
	}
	if err := store.Save(ctx, newer, nil); err != nil {
		t.Fatalf("Save newer: %v", err)
	}

	all, err := store.List(ctx, session.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("sessions = %d, want 2", len(all))
	}
	if all[0].ID != "sess-new" {
		t.Fatalf("first session = %q, want newest first", all[0].ID)
	}

	failed, err := store.List(ctx, session.Filter{Status: session.StatusFailed})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "sess-new" {
		t.Fatalf("failed filter = %+v", failed)
	}

	limited, err := store.List(ctx, session.Filter{Limit: 1})
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited = %d sessions, want 1", len(limited))
	}
}

func TestDeleteCascades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sess := sampleSession("sess-1", session.StatusCompleted, time.Now().UTC())
	if err := store.Save(ctx, sess, sampleGroups()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	removed, err := store.Delete(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !removed {
		t.Fatal("expected Delete to report removal")
	}

	groups, err := store.Groups(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Groups after delete: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("groups after delete = %d, want 0", len(groups))
	}

	removed, err = store.Delete(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Delete again: %v", err)
	}
	if removed {
		t.Fatal("expected second Delete to report nothing removed")
	}
}

func TestStatsAggregates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2024, time.June, 1, 9, 0, 0, 0, time.UTC)
	first := sampleSession("sess-1", session.StatusCompleted, base)
	second := sampleSession("sess-2", session.StatusCompletedWithErrors, base.Add(time.Hour))
	second.Mode = "exact"
	if err := store.Save(ctx, first, sampleGroups()); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := store.Save(ctx, second, nil); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalSessions != 2 {
		t.Fatalf("total sessions = %d, want 2", stats.TotalSessions)
	}
	if stats.SessionsByStatus["completed"] != 1 || stats.SessionsByStatus["completed_with_errors"] != 1 {
		t.Fatalf("sessions by status = %v", stats.SessionsByStatus)
	}
	if stats.SessionsByMode["comprehensive"] != 1 || stats.SessionsByMode["exact"] != 1 {
		t.Fatalf("sessions by mode = %v", stats.SessionsByMode)
	}
	if stats.TotalGroups != 4 {
		t.Fatalf("total groups = %d, want 4", stats.TotalGroups)
	}
	if stats.AverageDetectionMs != 150 {
		t.Fatalf("average detection ms = %v, want 150", stats.AverageDetectionMs)
	}
	if !stats.LatestSessionAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("latest session at = %v, want %v", stats.LatestSessionAt, base.Add(time.Hour))
	}
}

func TestSaveRejectsInvalidStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	sess := sampleSession("sess-1", session.Status("exploded"), time.Now().UTC())
	if err := store.Save(context.Background(), sess, nil); err == nil {
		t.Fatal("expected error for invalid status")
	}
}
