package detect

import (
	"strings"
	"time"
)

// Method identifies the algorithm that produced a raw group.
type Method string

const (
	MethodExact      Method = "exact"
	MethodPerceptual Method = "perceptual"
	MethodMetadata   Method = "metadata"
)

// Mode selects which detectors participate in a run.
type Mode string

const (
	ModeExact         Mode = "exact"
	ModeSimilar       Mode = "similar"
	ModeMetadata      Mode = "metadata"
	ModeComprehensive Mode = "comprehensive"
)

var allModes = []Mode{ModeExact, ModeSimilar, ModeMetadata, ModeComprehensive}

// ParseMode maps a user-supplied string onto a Mode. Unknown values return
// false so callers can surface the valid set.
func ParseMode(value string) (Mode, bool) {
	candidate := Mode(strings.ToLower(strings.TrimSpace(value)))
	for _, mode := range allModes {
		if candidate == mode {
			return mode, true
		}
	}
	return "", false
}

// ModeNames returns the accepted mode strings in display order.
func ModeNames() []string {
	names := make([]string, len(allModes))
	for i, mode := range allModes {
		names[i] = string(mode)
	}
	return names
}

// FileRecord is the immutable snapshot of one file supplied by the catalog.
// Detectors never mutate records; optional fields use zero values to mean
// "unknown" (empty ContentHash, zero timestamps, zero dimensions).
type FileRecord struct {
	ID          int64
	Path        string
	Name        string
	Size        int64
	CreatedAt   time.Time
	ModifiedAt  time.Time
	ContentHash string
	Signature   string
	MediaType   string
	Width       int
	Height      int
}

// HasDimensions reports whether pixel dimensions are known for the record.
func (r FileRecord) HasDimensions() bool {
	return r.Width > 0 && r.Height > 0
}

// RawMember is one file inside a raw detector group.
type RawMember struct {
	FileID     int64
	Confidence float64
	Reasons    []string
}

// RawGroup is the unconsolidated output of a single detector.
type RawGroup struct {
	Method Method
	// Basis identifies what bound the members together: the shared content
	// hash for exact groups, a cluster id for perceptual groups, or the
	// seed file id for metadata groups.
	Basis             string
	Members           []RawMember
	Confidence        float64
	Similarity        float64
	NeedsVerification bool
}

// Performance captures per-algorithm counters for one run.
type Performance struct {
	Detector       string        `json:"detector"`
	FilesProcessed int           `json:"files_processed"`
	FilesSkipped   int           `json:"files_skipped"`
	GroupsFound    int           `json:"groups_found"`
	Elapsed        time.Duration `json:"elapsed_ns"`
	Errored        bool          `json:"errored"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}

// FilesPerSecond derives the processing rate for reporting.
func (p Performance) FilesPerSecond() float64 {
	seconds := p.Elapsed.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(p.FilesProcessed) / seconds
}
