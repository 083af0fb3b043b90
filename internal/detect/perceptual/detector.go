// Package perceptual clusters images whose perceptual signatures fall
// within a configurable similarity threshold.
//
// Candidates are pre-bucketed by a coarse signature prefix so the pairwise
// comparison never runs naively over the whole corpus; within a bucket the
// detector builds a similarity graph and reports its connected components
// as duplicate groups. Buckets are disjoint by construction, so they are
// processed in parallel.
package perceptual

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"dupscan/internal/detect"
)

const detectorName = "perceptual-similarity"

// Detector implements detect.Detector for perceptual image similarity.
type Detector struct{}

// New constructs the perceptual similarity detector.
func New() *Detector {
	return &Detector{}
}

func (d *Detector) Name() string { return detectorName }

func (d *Detector) Method() detect.Method { return detect.MethodPerceptual }

// candidate pairs a file record with its decoded signature.
type candidate struct {
	id  int64
	sig signature
}

// Detect buckets signature-bearing records, compares candidates pairwise
// inside each bucket, and emits connected components of the resulting
// similarity graph. Cancellation is honoured between buckets; groups from
// completed buckets are returned alongside the cancellation error.
func (d *Detector) Detect(ctx context.Context, records []detect.FileRecord, cfg detect.Config) ([]detect.RawGroup, detect.Performance, error) {
	start := time.Now()
	perf := detect.Performance{Detector: detectorName}

	buckets := make(map[string][]candidate)
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
			if record.Signature == "" {
				continue
			}
			sig, ok := decodeSignature(record.Signature)
			if !ok {
				perf.FilesSkipped++
				continue
			}
			perf.FilesProcessed++
			key := bucketKey(sig)
			buckets[key] = append(buckets[key], candidate{id: record.ID, sig: sig})
		}
	}

	keys := make([]string, 0, len(buckets))
	for key, members := range buckets {
		if len(members) < 2 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	bucketGroups := make([][]detect.RawGroup, len(keys))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, key := range keys {
		i, key := i, key
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			bucketGroups[i] = clusterBucket(key, buckets[key], cfg.SimilarityThreshold)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		cancelled = true
	}

	var groups []detect.RawGroup
	for _, found := range bucketGroups {
		groups = append(groups, found...)
	}

	perf.GroupsFound = len(groups)
	perf.Elapsed = time.Since(start)

	if cancelled {
		return groups, perf, context.Cause(ctx)
	}
	return groups, perf, nil
}

// clusterBucket compares every candidate pair in one bucket and converts
// the connected components of the threshold graph into raw groups.
func clusterBucket(key string, members []candidate, threshold float64) []detect.RawGroup {
	uf := newUnionFind(len(members))

	type edge struct {
		a, b       int
		similarity float64
	}
	var edges []edge

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			score := similarity(members[i].sig, members[j].sig)
			if score < threshold {
				continue
			}
			uf.union(i, j)
			edges = append(edges, edge{a: i, b: j, similarity: score})
		}
	}

	if len(edges) == 0 {
		return nil
	}

	// Group confidence is the weakest link that joined the component: a
	// conservative estimate of how alike the whole cluster is.
	componentMin := make(map[int]float64)
	memberBest := make(map[int]float64)
	for _, e := range edges {
		root := uf.find(e.a)
		if current, ok := componentMin[root]; !ok || e.similarity < current {
			componentMin[root] = e.similarity
		}
		if e.similarity > memberBest[e.a] {
			memberBest[e.a] = e.similarity
		}
		if e.similarity > memberBest[e.b] {
			memberBest[e.b] = e.similarity
		}
	}

	componentMembers := make(map[int][]int)
	for i := range members {
		if _, connected := memberBest[i]; !connected {
			continue
		}
		root := uf.find(i)
		componentMembers[root] = append(componentMembers[root], i)
	}

	roots := make([]int, 0, len(componentMembers))
	for root := range componentMembers {
		roots = append(roots, root)
	}
	sort.Ints(roots)

	groups := make([]detect.RawGroup, 0, len(roots))
	for _, root := range roots {
		indices := componentMembers[root]
		if len(indices) < 2 {
			continue
		}
		minID := members[indices[0]].id
		rawMembers := make([]detect.RawMember, 0, len(indices))
		for _, idx := range indices {
			if members[idx].id < minID {
				minID = members[idx].id
			}
			reasons := []string{"similar_signature"}
			if memberBest[idx] >= 100 {
				reasons = append(reasons, "identical_signature")
			}
			rawMembers = append(rawMembers, detect.RawMember{
				FileID:     members[idx].id,
				Confidence: memberBest[idx],
				Reasons:    reasons,
			})
		}
		confidence := componentMin[root]
		groups = append(groups, detect.RawGroup{
			Method:     detect.MethodPerceptual,
			Basis:      fmt.Sprintf("%s/%d", key, minID),
			Members:    rawMembers,
			Confidence: confidence,
			Similarity: confidence,
		})
	}
	return groups
}
