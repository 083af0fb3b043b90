// Package detect defines the shared vocabulary of the duplicate detection
// engine: file records, detection configuration, raw detector output, and
// the Detector contract every algorithm implements.
//
// Detectors are pure functions over a read-only batch of FileRecords. Each
// one reports the groups it found, performance counters, and a fatal error
// when the whole algorithm could not run. Per-file problems (missing hash,
// corrupt signature) are counted as skips and never fail a detector.
//
// The engine package orchestrates detectors; the results package merges
// their raw output into consolidated duplicate groups. Keep this package
// free of orchestration and persistence concerns so detectors stay testable
// in isolation.
package detect
