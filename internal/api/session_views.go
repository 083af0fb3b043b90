package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"dupscan/internal/config"
	"dupscan/internal/session"
)

// ErrSessionNotFound reports a lookup for a session the store does not hold.
var ErrSessionNotFound = errors.New("session not found")

// SessionResult pairs a stored session with its consolidated groups.
type SessionResult struct {
	Session *session.Session
	Groups  []session.DuplicateGroup
}

// GetSessionResult loads one session and its duplicate groups.
func GetSessionResult(ctx context.Context, cfg *config.Config, sessionID string) (*SessionResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	store, err := session.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	sess, err := store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	groups, err := store.Groups(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Session: sess, Groups: groups}, nil
}

// ListSessionsRequest narrows the session listing.
type ListSessionsRequest struct {
	Config *config.Config
	Status string
	Mode   string
	Limit  int
}

// ListSessions returns stored sessions newest-first.
func ListSessions(ctx context.Context, req ListSessionsRequest) ([]*session.Session, error) {
	if req.Config == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	filter := session.Filter{Mode: strings.TrimSpace(req.Mode), Limit: req.Limit}
	if trimmed := strings.TrimSpace(req.Status); trimmed != "" {
		status := session.Status(trimmed)
		if !status.IsValid() {
			return nil, fmt.Errorf("unknown status %q (valid: %v)", trimmed, session.StatusNames())
		}
		filter.Status = status
	}

	store, err := session.Open(req.Config)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	return store.List(ctx, filter)
}

// DeleteSession removes a stored session and its groups.
func DeleteSession(ctx context.Context, cfg *config.Config, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if cfg == nil {
		return fmt.Errorf("configuration is required")
	}
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	store, err := session.Open(cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	removed, err := store.Delete(ctx, sessionID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// GetStatistics aggregates counters across every stored session.
func GetStatistics(ctx context.Context, cfg *config.Config) (*session.Stats, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	store, err := session.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	return store.Stats(ctx)
}
