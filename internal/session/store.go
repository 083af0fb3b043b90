package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"dupscan/internal/config"
)

// ErrStoreLocked indicates another process holds the session store.
var ErrStoreLocked = errors.New("session store is locked by another process")

// Store manages session persistence backed by SQLite. Sessions are
// append-only: Save writes a finished session and its groups in one
// transaction, and nothing ever updates a stored row afterwards.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the session database, takes the
// single-writer lock, and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "dupscan.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return nil, ErrStoreLocked
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, lock: lock}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Close releases the store lock and closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Save persists a finished session together with its consolidated groups.
// The write is a single transaction so a session never appears without its
// groups or vice versa.
func (s *Store) Save(ctx context.Context, sess *Session, groups []DuplicateGroup) error {
	if sess == nil {
		return errors.New("save session: nil session")
	}
	if !sess.Status.IsValid() {
		return fmt.Errorf("save session: invalid status %q", sess.Status)
	}

	errorsJSON, err := marshalStrings(sess.Errors)
	if err != nil {
		return fmt.Errorf("marshal session errors: %w", err)
	}
	warningsJSON, err := marshalStrings(sess.Warnings)
	if err != nil {
		return fmt.Errorf("marshal session warnings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO sessions (
            id, mode, status, config_json, total_files, total_groups,
            total_duplicates, detection_time_ms, errors_json, warnings_json,
            created_at, completed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.Mode,
		string(sess.Status),
		sess.ConfigJSON,
		sess.TotalFiles,
		sess.TotalGroups,
		sess.TotalDuplicates,
		sess.DetectionTimeMs,
		errorsJSON,
		warningsJSON,
		formatTime(sess.CreatedAt),
		nullableTime(sess.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	for _, perf := range sess.Performance {
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO algorithm_performance (
                session_id, detector, files_processed, files_skipped,
                groups_found, elapsed_ms, errored, error_message
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID,
			perf.Detector,
			perf.FilesProcessed,
			perf.FilesSkipped,
			perf.GroupsFound,
			perf.Elapsed.Milliseconds(),
			boolToInt(perf.Errored),
			perf.ErrorMessage,
		)
		if err != nil {
			return fmt.Errorf("insert performance %s: %w", perf.Detector, err)
		}
	}

	for _, group := range groups {
		methodsJSON, err := marshalStrings(group.Methods)
		if err != nil {
			return fmt.Errorf("marshal group methods: %w", err)
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO duplicate_groups (
                session_id, id, group_rank, methods_json, confidence,
                similarity, file_count, total_size, needs_verification
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID,
			group.ID,
			group.Rank,
			methodsJSON,
			group.Confidence,
			group.Similarity,
			group.FileCount,
			group.TotalSize,
			boolToInt(group.NeedsVerification),
		)
		if err != nil {
			return fmt.Errorf("insert group %s: %w", group.ID, err)
		}

		for _, file := range group.Files {
			reasonsJSON, err := marshalStrings(file.Reasons)
			if err != nil {
				return fmt.Errorf("marshal file reasons: %w", err)
			}
			_, err = tx.ExecContext(
				ctx,
				`INSERT INTO group_files (
                    session_id, group_id, file_id, path, name, size,
                    created_at, modified_at, width, height, confidence,
                    is_original, reasons_json
                ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				sess.ID,
				group.ID,
				file.FileID,
				file.Path,
				file.Name,
				file.Size,
				nullableTime(file.CreatedAt),
				nullableTime(file.ModifiedAt),
				file.Width,
				file.Height,
				file.Confidence,
				boolToInt(file.IsOriginal),
				reasonsJSON,
			)
			if err != nil {
				return fmt.Errorf("insert group file %d: %w", file.FileID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

const sessionColumns = "id, mode, status, config_json, total_files, total_groups, total_duplicates, detection_time_ms, errors_json, warnings_json, created_at, completed_at"

// GetByID returns a session by identifier, or nil when it does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	if err := s.loadPerformance(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Status Status
	Mode   string
	Limit  int
}

// List returns sessions newest-first, optionally filtered by status and
// mode and capped at Limit rows.
func (s *Store) List(ctx context.Context, filter Filter) ([]*Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions"
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Mode != "" {
		clauses = append(clauses, "mode = ?")
		args = append(args, filter.Mode)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	for _, sess := range sessions {
		if err := s.loadPerformance(ctx, sess); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// Groups returns a session's consolidated groups in rank order with their
// member files.
func (s *Store) Groups(ctx context.Context, sessionID string) ([]DuplicateGroup, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, group_rank, methods_json, confidence, similarity,
            file_count, total_size, needs_verification
        FROM duplicate_groups WHERE session_id = ? ORDER BY group_rank`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []DuplicateGroup
	for rows.Next() {
		var (
			group       DuplicateGroup
			methodsJSON string
			needsVerify int64
		)
		if err := rows.Scan(
			&group.ID,
			&group.Rank,
			&methodsJSON,
			&group.Confidence,
			&group.Similarity,
			&group.FileCount,
			&group.TotalSize,
			&needsVerify,
		); err != nil {
			return nil, fmt.Errorf("scan group row: %w", err)
		}
		group.NeedsVerification = needsVerify != 0
		if err := json.Unmarshal([]byte(methodsJSON), &group.Methods); err != nil {
			return nil, fmt.Errorf("unmarshal group methods: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	for i := range groups {
		files, err := s.groupFiles(ctx, sessionID, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Files = files
	}
	return groups, nil
}

func (s *Store) groupFiles(ctx context.Context, sessionID, groupID string) ([]GroupFile, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT file_id, path, name, size, created_at, modified_at,
            width, height, confidence, is_original, reasons_json
        FROM group_files WHERE session_id = ? AND group_id = ?
        ORDER BY is_original DESC, confidence DESC, path`,
		sessionID,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("query group files: %w", err)
	}
	defer rows.Close()

	var files []GroupFile
	for rows.Next() {
		var (
			file        GroupFile
			createdRaw  sql.NullString
			modifiedRaw sql.NullString
			isOriginal  int64
			reasonsJSON string
		)
		if err := rows.Scan(
			&file.FileID,
			&file.Path,
			&file.Name,
			&file.Size,
			&createdRaw,
			&modifiedRaw,
			&file.Width,
			&file.Height,
			&file.Confidence,
			&isOriginal,
			&reasonsJSON,
		); err != nil {
			return nil, fmt.Errorf("scan group file row: %w", err)
		}
		file.IsOriginal = isOriginal != 0
		if file.CreatedAt, err = parseNullableTime(createdRaw); err != nil {
			return nil, fmt.Errorf("parse file created_at: %w", err)
		}
		if file.ModifiedAt, err = parseNullableTime(modifiedRaw); err != nil {
			return nil, fmt.Errorf("parse file modified_at: %w", err)
		}
		if err := json.Unmarshal([]byte(reasonsJSON), &file.Reasons); err != nil {
			return nil, fmt.Errorf("unmarshal file reasons: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group files: %w", err)
	}
	return files, nil
}

// Delete removes a session and, through cascading foreign keys, its groups
// and files. It reports whether a session was actually removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session rows affected: %w", err)
	}
	return affected > 0, nil
}
