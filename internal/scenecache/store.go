// Package scenecache persists the per-project scene list between CLI runs.
package scenecache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/colsephiroth/storyreel/common"
)

const schema = `CREATE TABLE IF NOT EXISTS scene_cache (
    cache_key  TEXT PRIMARY KEY,
    value_json TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// Key returns the cache key for a project's scene list.
func Key(projectID string) string {
	return "filmgen:project:" + projectID + ":scenes"
}

// Store is a SQLite-backed key/value table of scene lists.
type Store struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Open creates or connects to the cache database at path.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create scene_cache table: %w", err)
	}

	return &Store{db: db, path: path, logger: logger}, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Read returns the cached scenes for a project. Missing or unreadable
// entries read as an empty list.
func (s *Store) Read(ctx context.Context, projectID string) []common.Scene {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value_json FROM scene_cache WHERE cache_key = ?`, Key(projectID)).Scan(&raw)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn().Err(err).Str("project_id", projectID).Msg("read scene cache")
		}
		return []common.Scene{}
	}

	var scenes []common.Scene
	if err := json.Unmarshal([]byte(raw), &scenes); err != nil {
		s.logger.Warn().Err(err).Str("project_id", projectID).Msg("discarding unreadable scene cache entry")
		return []common.Scene{}
	}
	if scenes == nil {
		scenes = []common.Scene{}
	}
	return scenes
}

// Write replaces the cached scenes for a project.
func (s *Store) Write(ctx context.Context, projectID string, scenes []common.Scene) error {
	if scenes == nil {
		scenes = []common.Scene{}
	}
	payload, err := json.Marshal(scenes)
	if err != nil {
		return fmt.Errorf("marshal scenes: %w", err)
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO scene_cache (cache_key, value_json, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(cache_key) DO UPDATE SET value_json = excluded.value_json, updated_at = excluded.updated_at`,
		Key(projectID),
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write scene cache: %w", err)
	}
	return nil
}

// Delete drops a project's cached scenes.
func (s *Store) Delete(ctx context.Context, projectID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM scene_cache WHERE cache_key = ?`, Key(projectID)); err != nil {
		return fmt.Errorf("delete scene cache: %w", err)
	}
	return nil
}
