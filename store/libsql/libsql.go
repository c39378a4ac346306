// Package libsql implements fissio.PipelineStore using libSQL
// (SQLite-compatible) for Turso deployments.
package libsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fissio/fissio"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Store implements fissio.PipelineStore backed by libSQL / Turso.
//
// It uses fresh connections per call to avoid STREAM_EXPIRED errors
// on remote Turso databases.
type Store struct {
	dbPath string
	dbURL  string // for Turso remote
	token  string // for Turso auth
}

var _ fissio.PipelineStore = (*Store)(nil)

// New creates a Store that uses a local SQLite file at dbPath.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// NewRemote creates a Store that connects to a remote Turso database.
func NewRemote(url, token string) *Store {
	return &Store{dbURL: url, token: token}
}

// openDB opens a fresh database connection.
// For local mode it uses the pure-Go modernc.org/sqlite driver.
// For remote Turso, it uses the libsql:// URL scheme (requires the
// go-libsql driver in production; this implementation uses the sqlite
// driver for local/test use).
func (s *Store) openDB() (*sql.DB, error) {
	if s.dbURL != "" {
		// Remote Turso: use the URL with auth token as query param.
		// In production you'd use github.com/tursodatabase/go-libsql connector.
		// For now, this returns an error since pure-Go sqlite can't talk to Turso.
		return nil, fmt.Errorf("remote Turso connections require the go-libsql driver; use New() for local databases")
	}
	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// Init creates the parent directory and the user_pipelines table.
func (s *Store) Init(ctx context.Context) error {
	if s.dbPath != "" {
		if dir := filepath.Dir(s.dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create db directory: %w", err)
			}
		}
	}

	db, err := s.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS user_pipelines (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		config_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// List returns all saved pipelines in creation order.
func (s *Store) List(ctx context.Context) ([]fissio.PipelineRecord, error) {
	db, err := s.openDB()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		`SELECT id, name, description, config_json, created_at, updated_at
		 FROM user_pipelines
		 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list pipelines: %w", err)
	}
	defer rows.Close()

	var records []fissio.PipelineRecord
	for rows.Next() {
		var rec fissio.PipelineRecord
		var config string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Description, &config, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pipeline: %w", err)
		}
		rec.Config = []byte(config)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipelines: %w", err)
	}
	return records, nil
}

// Get returns the pipeline saved under id.
func (s *Store) Get(ctx context.Context, id string) (fissio.PipelineRecord, error) {
	db, err := s.openDB()
	if err != nil {
		return fissio.PipelineRecord{}, err
	}
	defer db.Close()

	var rec fissio.PipelineRecord
	var config string
	err = db.QueryRowContext(ctx,
		`SELECT id, name, description, config_json, created_at, updated_at
		 FROM user_pipelines WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Name, &rec.Description, &config, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fissio.PipelineRecord{}, &fissio.ErrNotFound{Kind: "pipeline", ID: id}
	}
	if err != nil {
		return fissio.PipelineRecord{}, fmt.Errorf("get pipeline: %w", err)
	}
	rec.Config = []byte(config)
	return rec, nil
}

// Save upserts a pipeline, preserving created_at on update.
func (s *Store) Save(ctx context.Context, rec fissio.PipelineRecord) error {
	db, err := s.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	now := fissio.NowUnix()
	_, err = db.ExecContext(ctx,
		`INSERT INTO user_pipelines (id, name, description, config_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   config_json = excluded.config_json,
		   updated_at = excluded.updated_at`,
		rec.ID, rec.Name, rec.Description, string(rec.Config), now, now)
	if err != nil {
		return fmt.Errorf("save pipeline: %w", err)
	}
	return nil
}

// Delete removes a pipeline. Unknown IDs are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	db, err := s.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, `DELETE FROM user_pipelines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	return nil
}

// Close is a no-op since we use fresh connections per call.
func (s *Store) Close() error {
	return nil
}
