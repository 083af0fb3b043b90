package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dupscan/internal/detect"
)

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var (
		sess         Session
		statusStr    string
		errorsJSON   string
		warningsJSON string
		createdRaw   string
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&sess.ID,
		&sess.Mode,
		&statusStr,
		&sess.ConfigJSON,
		&sess.TotalFiles,
		&sess.TotalGroups,
		&sess.TotalDuplicates,
		&sess.DetectionTimeMs,
		&errorsJSON,
		&warningsJSON,
		&createdRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	sess.Status = Status(statusStr)
	if err := json.Unmarshal([]byte(errorsJSON), &sess.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if err := json.Unmarshal([]byte(warningsJSON), &sess.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}

	var err error
	if sess.CreatedAt, err = time.Parse(time.RFC3339Nano, createdRaw); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sess.CompletedAt, err = parseNullableTime(completedRaw); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	return &sess, nil
}

func (s *Store) loadPerformance(ctx context.Context, sess *Session) error {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT detector, files_processed, files_skipped, groups_found,
            elapsed_ms, errored, error_message
        FROM algorithm_performance WHERE session_id = ? ORDER BY detector`,
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("query performance: %w", err)
	}
	defer rows.Close()

	sess.Performance = nil
	for rows.Next() {
		var (
			perf      detect.Performance
			elapsedMs int64
			errored   int64
		)
		if err := rows.Scan(
			&perf.Detector,
			&perf.FilesProcessed,
			&perf.FilesSkipped,
			&perf.GroupsFound,
			&elapsedMs,
			&errored,
			&perf.ErrorMessage,
		); err != nil {
			return fmt.Errorf("scan performance row: %w", err)
		}
		perf.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		perf.Errored = errored != 0
		sess.Performance = append(sess.Performance, perf)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate performance: %w", err)
	}
	return nil
}

func marshalStrings(values []string) (string, error) {
	if values == nil {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return formatTime(value)
}

func parseNullableTime(raw sql.NullString) (time.Time, error) {
	if !raw.Valid || raw.String == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return time.Time{}, err
	}
	return parsed, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
