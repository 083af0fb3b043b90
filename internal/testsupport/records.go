package testsupport

import (
	"fmt"
	"time"

	"dupscan/internal/detect"
)

// RecordOption mutates a generated file record.
type RecordOption func(*detect.FileRecord)

// NewRecord builds a file record with sensible defaults for detector tests.
// The path, name, and timestamps derive from the identifier so records stay
// distinct without per-test boilerplate.
func NewRecord(id int64, opts ...RecordOption) detect.FileRecord {
	record := detect.FileRecord{
		ID:         id,
		Path:       fmt.Sprintf("/photos/img_%04d.jpg", id),
		Name:       fmt.Sprintf("img_%04d.jpg", id),
		Size:       1024 * id,
		CreatedAt:  time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
		ModifiedAt: time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Minute),
		MediaType:  "image/jpeg",
	}
	for _, opt := range opts {
		opt(&record)
	}
	return record
}

// WithPath sets the record path and derives the name from its final element.
func WithPath(path string) RecordOption {
	return func(r *detect.FileRecord) {
		r.Path = path
		for i := len(path) - 1; i >= 0; i-- {
			if path[i] == '/' {
				r.Name = path[i+1:]
				return
			}
		}
		r.Name = path
	}
}

// WithSize sets the record size in bytes.
func WithSize(size int64) RecordOption {
	return func(r *detect.FileRecord) {
		r.Size = size
	}
}

// WithHash sets the exact-content hash.
func WithHash(hash string) RecordOption {
	return func(r *detect.FileRecord) {
		r.ContentHash = hash
	}
}

// WithSignature sets the perceptual signature hex string.
func WithSignature(signature string) RecordOption {
	return func(r *detect.FileRecord) {
		r.Signature = signature
	}
}

// WithTimes sets both filesystem timestamps.
func WithTimes(created, modified time.Time) RecordOption {
	return func(r *detect.FileRecord) {
		r.CreatedAt = created
		r.ModifiedAt = modified
	}
}

// WithDimensions sets the pixel dimensions.
func WithDimensions(width, height int) RecordOption {
	return func(r *detect.FileRecord) {
		r.Width = width
		r.Height = height
	}
}
