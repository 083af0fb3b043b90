package results

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"dupscan/internal/detect"
	"dupscan/internal/session"
)

// methodDominance orders detection methods by evidence strength. When
// multiple methods agree on a group, the strongest one wins confidence
// ties and decides which similarity value is carried.
var methodDominance = map[detect.Method]int{
	detect.MethodExact:      3,
	detect.MethodPerceptual: 2,
	detect.MethodMetadata:   1,
}

// groupNamespace seeds deterministic group identifiers so consolidation is
// idempotent across runs over the same raw input.
var groupNamespace = uuid.MustParse("5cf1e2a7-2fcb-49c5-9b35-d1c4e742a29d")

// Processor consolidates raw detector groups into ranked duplicate groups.
type Processor struct {
	cfg detect.Config
}

// NewProcessor constructs a results processor for one session.
func NewProcessor(cfg detect.Config) *Processor {
	return &Processor{cfg: cfg}
}

// memberState accumulates one file's contributions across raw groups.
type memberState struct {
	fileID     int64
	confidence float64
	reasons    []string
	seen       map[string]struct{}
}

func (m *memberState) addReasons(reasons []string) {
	for _, reason := range reasons {
		if _, ok := m.seen[reason]; ok {
			continue
		}
		m.seen[reason] = struct{}{}
		m.reasons = append(m.reasons, reason)
	}
}

// mergedGroup is an intermediate cluster of raw groups sharing members.
type mergedGroup struct {
	methods    map[detect.Method]struct{}
	members    map[int64]*memberState
	confidence float64
	similarity float64
	bases      []string
}

// Consolidate merges, scores, ranks, and annotates raw groups. Records
// supply the file metadata the final groups carry; raw members whose file
// id is unknown to the batch are dropped (they cannot be annotated and
// indicate a detector bug upstream).
func (p *Processor) Consolidate(rawGroups []detect.RawGroup, records []detect.FileRecord) []session.DuplicateGroup {
	if len(rawGroups) == 0 {
		return nil
	}

	byID := make(map[int64]detect.FileRecord, len(records))
	for _, record := range records {
		byID[record.ID] = record
	}

	merged := p.merge(rawGroups)

	groups := make([]session.DuplicateGroup, 0, len(merged))
	for _, cluster := range merged {
		if cluster.confidence < p.cfg.MinConfidence {
			continue
		}
		group, ok := p.buildGroup(cluster, byID)
		if !ok {
			continue
		}
		groups = append(groups, group)
	}

	rank(groups)
	return groups
}

// merge unions raw groups that share at least one member file. With
// cross-algorithm validation disabled the raw groups pass through
// unmerged, matching the single-method behavior.
func (p *Processor) merge(rawGroups []detect.RawGroup) []*mergedGroup {
	var clusters []*mergedGroup

	if !p.cfg.CrossAlgorithmValidation {
		for _, raw := range rawGroups {
			cluster := newMergedGroup()
			absorb(cluster, raw)
			clusters = append(clusters, cluster)
		}
		return pruneSingletons(clusters)
	}

	owner := make(map[int64]*mergedGroup)
	for _, raw := range rawGroups {
		var target *mergedGroup
		for _, member := range raw.Members {
			if existing, ok := owner[member.FileID]; ok {
				target = existing
				break
			}
		}
		if target == nil {
			target = newMergedGroup()
			clusters = append(clusters, target)
		}
		absorb(target, raw)
		for _, member := range raw.Members {
			if existing, ok := owner[member.FileID]; ok && existing != target {
				// Bridge member: fold the earlier cluster into this one.
				fold(target, existing)
				for id := range existing.members {
					owner[id] = target
				}
				existing.members = nil
			}
			owner[member.FileID] = target
		}
	}

	return pruneSingletons(clusters)
}

func newMergedGroup() *mergedGroup {
	return &mergedGroup{
		methods: make(map[detect.Method]struct{}),
		members: make(map[int64]*memberState),
	}
}

func pruneSingletons(clusters []*mergedGroup) []*mergedGroup {
	live := clusters[:0]
	for _, cluster := range clusters {
		if len(cluster.members) >= 2 {
			live = append(live, cluster)
		}
	}
	return live
}

func absorb(target *mergedGroup, raw detect.RawGroup) {
	target.methods[raw.Method] = struct{}{}
	target.bases = append(target.bases, fmt.Sprintf("%s:%s", raw.Method, raw.Basis))
	// Consolidated confidence is the maximum across contributing methods:
	// an exact match fully dominates a weaker signal on the same files.
	if raw.Confidence > target.confidence {
		target.confidence = raw.Confidence
	}
	if raw.Method == detect.MethodPerceptual && raw.Similarity > target.similarity {
		target.similarity = raw.Similarity
	}
	for _, member := range raw.Members {
		state, ok := target.members[member.FileID]
		if !ok {
			state = &memberState{fileID: member.FileID, seen: make(map[string]struct{})}
			target.members[member.FileID] = state
		}
		if member.Confidence > state.confidence {
			state.confidence = member.Confidence
		}
		state.addReasons(member.Reasons)
	}
}

func fold(target, source *mergedGroup) {
	for method := range source.methods {
		target.methods[method] = struct{}{}
	}
	target.bases = append(target.bases, source.bases...)
	if source.confidence > target.confidence {
		target.confidence = source.confidence
	}
	if source.similarity > target.similarity {
		target.similarity = source.similarity
	}
	for id, state := range source.members {
		existing, ok := target.members[id]
		if !ok {
			target.members[id] = state
			continue
		}
		if state.confidence > existing.confidence {
			existing.confidence = state.confidence
		}
		existing.addReasons(state.reasons)
	}
}

func (p *Processor) buildGroup(cluster *mergedGroup, byID map[int64]detect.FileRecord) (session.DuplicateGroup, bool) {
	files := make([]session.GroupFile, 0, len(cluster.members))
	var totalSize int64
	for id, state := range cluster.members {
		record, ok := byID[id]
		if !ok {
			continue
		}
		totalSize += record.Size
		files = append(files, session.GroupFile{
			FileID:     id,
			Path:       record.Path,
			Name:       record.Name,
			Size:       record.Size,
			CreatedAt:  record.CreatedAt,
			ModifiedAt: record.ModifiedAt,
			Width:      record.Width,
			Height:     record.Height,
			Confidence: state.confidence,
			Reasons:    state.reasons,
		})
	}
	if len(files) < 2 {
		return session.DuplicateGroup{}, false
	}

	markOriginal(files)

	methods := make([]string, 0, len(cluster.methods))
	for method := range cluster.methods {
		methods = append(methods, string(method))
	}
	sort.Slice(methods, func(i, j int) bool {
		return methodDominance[detect.Method(methods[i])] > methodDominance[detect.Method(methods[j])]
	})

	similarity := cluster.similarity
	if similarity == 0 {
		similarity = cluster.confidence
	}

	// Only pure metadata evidence needs content verification; any stronger
	// contributing method already looked at content.
	_, hasMetadata := cluster.methods[detect.MethodMetadata]
	needsVerification := hasMetadata && len(cluster.methods) == 1

	truth := len(files)
	files = truncate(files, p.cfg.MaxResultsPerGroup)

	sort.Strings(cluster.bases)
	id := uuid.NewSHA1(groupNamespace, []byte(strings.Join(cluster.bases, "|"))).String()

	return session.DuplicateGroup{
		ID:                id,
		Methods:           methods,
		Confidence:        cluster.confidence,
		Similarity:        similarity,
		FileCount:         truth,
		TotalSize:         totalSize,
		NeedsVerification: needsVerification,
		Files:             files,
	}, true
}

// markOriginal applies the fixed total order for the suggested original:
// earliest creation timestamp, then largest size, then lexicographically
// smallest path. Unknown creation times sort after known ones.
func markOriginal(files []session.GroupFile) {
	best := 0
	for i := 1; i < len(files); i++ {
		if originalLess(files[i], files[best]) {
			best = i
		}
	}
	files[best].IsOriginal = true
	files[best].Reasons = appendUnique(files[best].Reasons, "suggested_original")
}

func originalLess(a, b session.GroupFile) bool {
	switch {
	case a.CreatedAt.IsZero() != b.CreatedAt.IsZero():
		return !a.CreatedAt.IsZero()
	case !a.CreatedAt.IsZero() && !a.CreatedAt.Equal(b.CreatedAt):
		return a.CreatedAt.Before(b.CreatedAt)
	case a.Size != b.Size:
		return a.Size > b.Size
	default:
		return a.Path < b.Path
	}
}

// truncate keeps the highest-confidence members up to the limit. The
// suggested original is always retained regardless of its own confidence.
func truncate(files []session.GroupFile, limit int) []session.GroupFile {
	sort.Slice(files, func(i, j int) bool {
		switch {
		case files[i].IsOriginal != files[j].IsOriginal:
			return files[i].IsOriginal
		case files[i].Confidence != files[j].Confidence:
			return files[i].Confidence > files[j].Confidence
		default:
			return files[i].Path < files[j].Path
		}
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files
}

// rank orders groups by consolidated confidence, then total member size,
// with the smallest member path as the final deterministic tie-break, and
// assigns 1-based ranks.
func rank(groups []session.DuplicateGroup) {
	sort.Slice(groups, func(i, j int) bool {
		switch {
		case groups[i].Confidence != groups[j].Confidence:
			return groups[i].Confidence > groups[j].Confidence
		case groups[i].TotalSize != groups[j].TotalSize:
			return groups[i].TotalSize > groups[j].TotalSize
		default:
			return smallestPath(groups[i]) < smallestPath(groups[j])
		}
	})
	for i := range groups {
		groups[i].Rank = i + 1
	}
}

func smallestPath(group session.DuplicateGroup) string {
	smallest := ""
	for i, file := range group.Files {
		if i == 0 || file.Path < smallest {
			smallest = file.Path
		}
	}
	return smallest
}

func appendUnique(reasons []string, reason string) []string {
	for _, existing := range reasons {
		if existing == reason {
			return reasons
		}
	}
	return append(reasons, reason)
}
