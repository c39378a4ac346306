// Package sqlite implements fissio.PipelineStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fissio/fissio"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. When set, the store
// emits debug logs for every operation including timing and key parameters.
// If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements fissio.PipelineStore backed by a local SQLite file.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ fissio.PipelineStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, path: dbPath, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the parent directory and the user_pipelines table.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS user_pipelines (
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

	s.logger.Info("sqlite: init completed", "path", s.path, "duration", time.Since(start))
	return nil
}

// List returns all saved pipelines in creation order.
func (s *Store) List(ctx context.Context) ([]fissio.PipelineRecord, error) {
	start := time.Now()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, config_json, created_at, updated_at
		 FROM user_pipelines
		 ORDER BY created_at, id`)
	if err != nil {
		s.logger.Error("sqlite: list pipelines failed", "error", err, "duration", time.Since(start))
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

	s.logger.Debug("sqlite: list pipelines ok", "count", len(records), "duration", time.Since(start))
	return records, nil
}

// Get returns the pipeline saved under id.
func (s *Store) Get(ctx context.Context, id string) (fissio.PipelineRecord, error) {
	var rec fissio.PipelineRecord
	var config string
	err := s.db.QueryRowContext(ctx,
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
	start := time.Now()
	now := fissio.NowUnix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_pipelines (id, name, description, config_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   description = excluded.description,
		   config_json = excluded.config_json,
		   updated_at = excluded.updated_at`,
		rec.ID, rec.Name, rec.Description, string(rec.Config), now, now)
	if err != nil {
		s.logger.Error("sqlite: save pipeline failed", "id", rec.ID, "error", err, "duration", time.Since(start))
		return fmt.Errorf("save pipeline: %w", err)
	}

	s.logger.Debug("sqlite: save pipeline ok", "id", rec.ID, "name", rec.Name, "duration", time.Since(start))
	return nil
}

// Delete removes a pipeline. Unknown IDs are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_pipelines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	s.logger.Debug("sqlite: delete pipeline ok", "id", id)
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
