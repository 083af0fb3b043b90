// Package metadata flags files whose size and modification time fall inside
// a configurable tolerance window. It is the fallback when content hashes
// and signatures are missing, so its evidence is deliberately weak: groups
// start at a fixed confidence baseline, gain a small increment per extra
// matching field, stay capped below the exact-match score, and always carry
// a needs-verification annotation.
package metadata

import (
	"context"
	"fmt"
	"time"

	"dupscan/internal/detect"
)

const detectorName = "metadata-heuristic"

const (
	confidenceBaseline  = 50.0
	confidenceIncrement = 15.0
	confidenceCap       = 95.0
)

// Detector implements detect.Detector for the metadata heuristic.
type Detector struct{}

// New constructs the metadata heuristic detector.
func New() *Detector {
	return &Detector{}
}

func (d *Detector) Name() string { return detectorName }

func (d *Detector) Method() detect.Method { return detect.MethodMetadata }

// Detect walks the batch with greedy seed grouping: the first unclaimed
// record seeds a group and every later unclaimed record joins when it
// matches the seed's size/time window (and dimensions, when both sides
// know them). Each record lands in at most one group.
func (d *Detector) Detect(ctx context.Context, records []detect.FileRecord, cfg detect.Config) ([]detect.RawGroup, detect.Performance, error) {
	start := time.Now()
	perf := detect.Performance{Detector: detectorName}

	claimed := make([]bool, len(records))
	var groups []detect.RawGroup
	cancelled := false

	for offset := 0; offset < len(records); offset += cfg.BatchSize {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		end := offset + cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}
		for i := offset; i < end; i++ {
			perf.FilesProcessed++
			if claimed[i] {
				continue
			}
			seed := records[i]
			indices := []int{i}
			for j := i + 1; j < len(records); j++ {
				if claimed[j] {
					continue
				}
				if matches(seed, records[j], cfg) {
					indices = append(indices, j)
					claimed[j] = true
				}
			}
			if len(indices) < 2 {
				continue
			}
			claimed[i] = true
			groups = append(groups, buildGroup(records, indices))
		}
	}

	perf.GroupsFound = len(groups)
	perf.Elapsed = time.Since(start)

	if cancelled {
		return groups, perf, context.Cause(ctx)
	}
	return groups, perf, nil
}

func matches(a, b detect.FileRecord, cfg detect.Config) bool {
	delta := a.Size - b.Size
	if delta < 0 {
		delta = -delta
	}
	if delta > cfg.SizeToleranceBytes {
		return false
	}
	if a.ModifiedAt.IsZero() || b.ModifiedAt.IsZero() {
		return false
	}
	diff := a.ModifiedAt.Sub(b.ModifiedAt)
	if diff < 0 {
		diff = -diff
	}
	if diff > time.Duration(cfg.TimeToleranceSeconds)*time.Second {
		return false
	}
	if a.HasDimensions() && b.HasDimensions() {
		if a.Width != b.Width || a.Height != b.Height {
			return false
		}
	}
	return true
}

// buildGroup scores the group against its seed: the baseline covers the
// size/time window membership, and only stronger signals than the window
// itself raise confidence.
func buildGroup(records []detect.FileRecord, indices []int) detect.RawGroup {
	seed := records[indices[0]]

	confidence := confidenceBaseline
	extraReasons := make([]string, 0, 2)

	if identicalMTimes(records, indices) {
		confidence += confidenceIncrement
		extraReasons = append(extraReasons, "matching_mtime")
	}
	if equalDimensions(records, indices) {
		confidence += confidenceIncrement
		extraReasons = append(extraReasons, "matching_dimensions")
	}
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	members := make([]detect.RawMember, 0, len(indices))
	for _, idx := range indices {
		reasons := make([]string, 0, 1+len(extraReasons))
		reasons = append(reasons, "similar_metadata")
		reasons = append(reasons, extraReasons...)
		members = append(members, detect.RawMember{
			FileID:     records[idx].ID,
			Confidence: confidence,
			Reasons:    reasons,
		})
	}

	return detect.RawGroup{
		Method:            detect.MethodMetadata,
		Basis:             fmt.Sprintf("seed/%d", seed.ID),
		Members:           members,
		Confidence:        confidence,
		Similarity:        confidence,
		NeedsVerification: true,
	}
}

func identicalMTimes(records []detect.FileRecord, indices []int) bool {
	first := records[indices[0]].ModifiedAt
	for _, idx := range indices[1:] {
		if !records[idx].ModifiedAt.Equal(first) {
			return false
		}
	}
	return true
}

func equalDimensions(records []detect.FileRecord, indices []int) bool {
	for _, idx := range indices {
		if !records[idx].HasDimensions() {
			return false
		}
	}
	first := records[indices[0]]
	for _, idx := range indices[1:] {
		if records[idx].Width != first.Width || records[idx].Height != first.Height {
			return false
		}
	}
	return true
}
