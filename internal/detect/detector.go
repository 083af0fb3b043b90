package detect

import "context"

// Detector is the contract every detection algorithm implements.
//
// Detect receives the full read-only batch and the normalized configuration.
// It returns the raw groups it found together with performance counters.
// A non-nil error means the whole algorithm failed and its output must be
// discarded; per-file problems are reported through Performance.FilesSkipped
// instead. Implementations check ctx between batches and return whatever
// partial groups they have produced when it is cancelled.
type Detector interface {
	Name() string
	Method() Method
	Detect(ctx context.Context, records []FileRecord, cfg Config) ([]RawGroup, Performance, error)
}
