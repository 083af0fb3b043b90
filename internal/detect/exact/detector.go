// Package exact groups files whose cryptographic content hashes are
// identical. Byte-identity is certain, so every group carries confidence
// 100. Files without a usable hash are skipped and counted; they never fail
// the detector.
package exact

import (
	"context"
	"sort"
	"strings"
	"time"

	"dupscan/internal/detect"
)

const detectorName = "exact-content"

const confidenceExact = 100.0

// Detector implements detect.Detector for exact content matching.
type Detector struct{}

// New constructs the exact content detector.
func New() *Detector {
	return &Detector{}
}

func (d *Detector) Name() string { return detectorName }

func (d *Detector) Method() detect.Method { return detect.MethodExact }

// Detect buckets records by content hash and emits one group per hash value
// shared by two or more files. Singleton hashes are not duplicates.
func (d *Detector) Detect(ctx context.Context, records []detect.FileRecord, cfg detect.Config) ([]detect.RawGroup, detect.Performance, error) {
	start := time.Now()
	perf := detect.Performance{Detector: detectorName}

	byHash := make(map[string][]int64)
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
		for _, record := range records[offset:end] {
			hash := strings.TrimSpace(record.ContentHash)
			if hash == "" {
				perf.FilesSkipped++
				continue
			}
			perf.FilesProcessed++
			byHash[hash] = append(byHash[hash], record.ID)
		}
	}

	hashes := make([]string, 0, len(byHash))
	for hash, ids := range byHash {
		if len(ids) < 2 {
			continue
		}
		hashes = append(hashes, hash)
	}
	sort.Strings(hashes)

	groups := make([]detect.RawGroup, 0, len(hashes))
	for _, hash := range hashes {
		ids := byHash[hash]
		members := make([]detect.RawMember, 0, len(ids))
		for _, id := range ids {
			members = append(members, detect.RawMember{
				FileID:     id,
				Confidence: confidenceExact,
				Reasons:    []string{"identical_content_hash"},
			})
		}
		groups = append(groups, detect.RawGroup{
			Method:     detect.MethodExact,
			Basis:      hash,
			Members:    members,
			Confidence: confidenceExact,
			Similarity: confidenceExact,
		})
	}

	perf.GroupsFound = len(groups)
	perf.Elapsed = time.Since(start)

	if cancelled {
		return groups, perf, context.Cause(ctx)
	}
	return groups, perf, nil
}
