package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"dupscan/internal/config"
	"dupscan/internal/detect"
	"dupscan/internal/logging"
)

// Scanner builds file records from directory trees.
type Scanner struct {
	cfg    config.Catalog
	logger *slog.Logger
}

// New constructs a scanner for the supplied catalog settings.
func New(cfg config.Catalog, logger *slog.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
}

// Result is the outcome of one catalog pass.
type Result struct {
	Records []detect.FileRecord
	// Problems lists per-file failures: unreadable files, undecodable
	// images. The affected records stay in Records with the failed field
	// left empty.
	Problems []string
	// Truncated reports that the max_files cap stopped the walk early.
	Truncated bool
}

// Scan walks the given roots and returns records for every eligible file,
// ordered by path. Record identifiers are assigned sequentially after
// ordering so a rescan of the same tree yields the same IDs.
func (s *Scanner) Scan(ctx context.Context, roots ...string) (*Result, error) {
	result := &Result{}

	var paths []string
	for _, root := range roots {
		expanded, err := config.ExpandPath(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", root, err)
		}
		done, err := s.collect(ctx, expanded, &paths)
		if err != nil {
			return nil, err
		}
		if done {
			result.Truncated = true
			break
		}
	}

	sort.Strings(paths)

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, context.Cause(ctx)
		}
		record, problems := s.buildRecord(int64(i+1), path)
		result.Records = append(result.Records, record)
		result.Problems = append(result.Problems, problems...)
	}

	s.logger.Info("catalog built",
		slog.Int("files", len(result.Records)),
		slog.Int("problems", len(result.Problems)),
		slog.Bool("truncated", result.Truncated),
	)
	return result, nil
}

// collect appends eligible paths under root, reporting done=true once the
// max_files cap is hit.
func (s *Scanner) collect(ctx context.Context, root string, paths *[]string) (bool, error) {
	capped := false
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return context.Cause(ctx)
		}
		if walkErr != nil {
			s.logger.Warn("walk error", slog.String(logging.FieldPath, path), logging.Error(walkErr))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := entry.Name()
		hidden := strings.HasPrefix(name, ".") && name != "." && name != ".."
		if entry.IsDir() {
			if hidden && !s.cfg.IncludeHidden && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if hidden && !s.cfg.IncludeHidden {
			return nil
		}
		if entry.Type()&fs.ModeSymlink != 0 && !s.cfg.FollowSymlinks {
			return nil
		}
		if !s.eligible(name) {
			return nil
		}

		if len(*paths) >= s.cfg.MaxFiles {
			capped = true
			return fs.SkipAll
		}
		*paths = append(*paths, norm.NFC.String(path))
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("walk %q: %w", root, err)
	}
	return capped, nil
}

func (s *Scanner) eligible(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	for _, allowed := range s.cfg.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (s *Scanner) buildRecord(id int64, path string) (detect.FileRecord, []string) {
	var problems []string

	record := detect.FileRecord{
		ID:   id,
		Path: path,
		Name: filepath.Base(path),
	}
	if mediaType := mime.TypeByExtension(filepath.Ext(path)); mediaType != "" {
		record.MediaType = mediaType
	}

	if err := statTimes(&record); err != nil {
		problems = append(problems, fmt.Sprintf("%s: stat: %v", path, err))
		return record, problems
	}

	hash, err := hashFile(path)
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s: hash: %v", path, err))
	} else {
		record.ContentHash = hash
	}

	signature, width, height, err := signatureFile(path)
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s: signature: %v", path, err))
	} else {
		record.Signature = signature
		record.Width = width
		record.Height = height
	}

	return record, problems
}
