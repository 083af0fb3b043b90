package detect

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying detection failures. FileAccess problems are
// per-file and never fatal; Algorithm errors discard one detector's output;
// Persistence errors are fatal for the run that hit them.
var (
	ErrFileAccess  = errors.New("file access error")
	ErrAlgorithm   = errors.New("algorithm error")
	ErrPersistence = errors.New("persistence error")
)

// Wrap tags an error with one of the sentinel markers above while adding
// detector and operation context for logs and session error lists.
func Wrap(marker error, detector, operation string, err error) error {
	detail := buildDetail(detector, operation)
	if marker == nil {
		marker = ErrAlgorithm
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(detector, operation string) string {
	parts := make([]string, 0, 2)
	if detector = strings.TrimSpace(detector); detector != "" {
		parts = append(parts, detector)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if len(parts) == 0 {
		return "detection failure"
	}
	return strings.Join(parts, ": ")
}
