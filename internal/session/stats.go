package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Stats aggregates the stored sessions for reporting.
type Stats struct {
	TotalSessions      int            `json:"total_sessions"`
	SessionsByStatus   map[string]int `json:"sessions_by_status"`
	SessionsByMode     map[string]int `json:"sessions_by_mode"`
	TotalGroups        int            `json:"total_groups"`
	TotalDuplicates    int            `json:"total_duplicates"`
	TotalFilesScanned  int            `json:"total_files_scanned"`
	AverageDetectionMs float64        `json:"average_detection_ms"`
	LatestSessionAt    time.Time      `json:"latest_session_at,omitzero"`
}

// Stats computes aggregate counters across every stored session.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		SessionsByStatus: make(map[string]int),
		SessionsByMode:   make(map[string]int),
	}

	var (
		avgMs     sql.NullFloat64
		latestRaw sql.NullString
	)
	row := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
            COALESCE(SUM(total_groups), 0),
            COALESCE(SUM(total_duplicates), 0),
            COALESCE(SUM(total_files), 0),
            AVG(detection_time_ms),
            MAX(created_at)
        FROM sessions`)
	if err := row.Scan(
		&stats.TotalSessions,
		&stats.TotalGroups,
		&stats.TotalDuplicates,
		&stats.TotalFilesScanned,
		&avgMs,
		&latestRaw,
	); err != nil {
		return nil, fmt.Errorf("scan session totals: %w", err)
	}
	if avgMs.Valid {
		stats.AverageDetectionMs = avgMs.Float64
	}
	if latest, err := parseNullableTime(latestRaw); err == nil {
		stats.LatestSessionAt = latest
	} else {
		return nil, fmt.Errorf("parse latest session time: %w", err)
	}

	if err := s.countBy(ctx, "status", stats.SessionsByStatus); err != nil {
		return nil, err
	}
	if err := s.countBy(ctx, "mode", stats.SessionsByMode); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) countBy(ctx context.Context, column string, into map[string]int) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+column+", COUNT(1) FROM sessions GROUP BY "+column)
	if err != nil {
		return fmt.Errorf("count sessions by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("scan %s count: %w", column, err)
		}
		into[key] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s counts: %w", column, err)
	}
	return nil
}
