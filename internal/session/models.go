package session

import (
	"time"

	"dupscan/internal/detect"
)

// Status represents the lifecycle of a detection session.
type Status string

const (
	StatusInitialized         Status = "initialized"
	StatusRunning             Status = "running"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
	StatusCancelled           Status = "cancelled"
)

var allStatuses = []Status{
	StatusInitialized,
	StatusRunning,
	StatusCompleted,
	StatusCompletedWithErrors,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// IsValid reports whether the status is a known lifecycle value.
func (s Status) IsValid() bool {
	_, ok := statusSet[s]
	return ok
}

// IsTerminal reports whether the status is final. Terminal sessions are
// frozen; a caller retries by starting a new session.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// StatusNames returns the lifecycle values in declaration order.
func StatusNames() []string {
	names := make([]string, len(allStatuses))
	for i, status := range allStatuses {
		names[i] = string(status)
	}
	return names
}

// GroupFile is one member of a consolidated duplicate group, annotated with
// its own confidence and the reasons each detector contributed.
type GroupFile struct {
	FileID     int64     `json:"file_id"`
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at,omitzero"`
	ModifiedAt time.Time `json:"modified_at,omitzero"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	Confidence float64   `json:"confidence"`
	IsOriginal bool      `json:"is_original"`
	Reasons    []string  `json:"reasons,omitempty"`
}

// DuplicateGroup is the consolidated output of one cluster of duplicates.
// FileCount always reflects the true member count even when Files was
// truncated to the configured reporting limit.
type DuplicateGroup struct {
	ID                string      `json:"id"`
	Rank              int         `json:"rank"`
	Methods           []string    `json:"methods"`
	Confidence        float64     `json:"confidence"`
	Similarity        float64     `json:"similarity"`
	FileCount         int         `json:"file_count"`
	TotalSize         int64       `json:"total_size"`
	NeedsVerification bool        `json:"needs_verification"`
	Files             []GroupFile `json:"files"`
}

// SuggestedOriginal returns the member marked as the original. Every
// consolidated group has exactly one.
func (g DuplicateGroup) SuggestedOriginal() *GroupFile {
	for i := range g.Files {
		if g.Files[i].IsOriginal {
			return &g.Files[i]
		}
	}
	return nil
}

// Session is the immutable record of one detection run. Sessions are
// append-only: once a terminal status and summary are written, nothing is
// ever edited.
type Session struct {
	ID              string               `json:"id"`
	Mode            string               `json:"mode"`
	Status          Status               `json:"status"`
	ConfigJSON      string               `json:"config_json"`
	TotalFiles      int                  `json:"total_files"`
	TotalGroups     int                  `json:"total_groups"`
	TotalDuplicates int                  `json:"total_duplicates"`
	DetectionTimeMs int64                `json:"detection_time_ms"`
	Performance     []detect.Performance `json:"performance,omitempty"`
	Errors          []string             `json:"errors,omitempty"`
	Warnings        []string             `json:"warnings,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	CompletedAt     time.Time            `json:"completed_at,omitzero"`
}

// SuccessRate reports the share of scanned files that were processed
// without a recorded error, as a percentage.
func (s Session) SuccessRate() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	rate := float64(s.TotalFiles-len(s.Errors)) / float64(s.TotalFiles) * 100
	if rate < 0 {
		return 0
	}
	return rate
}

// DuplicatePercentage reports how many of the scanned files ended up inside
// a duplicate group, as a percentage.
func (s Session) DuplicatePercentage() float64 {
	if s.TotalFiles == 0 {
		return 0
	}
	return float64(s.TotalDuplicates) / float64(s.TotalFiles) * 100
}
