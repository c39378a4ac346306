// Package postgres implements fissio.PipelineStore using PostgreSQL.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool; Close here is a no-op
// so that several stores can share one pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fissio/fissio"
)

// Store implements fissio.PipelineStore backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ fissio.PipelineStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates the user_pipelines table.
// Safe to call multiple times (the statement is idempotent).
func (s *Store) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS user_pipelines (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		config_json TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// List returns all saved pipelines in creation order.
func (s *Store) List(ctx context.Context) ([]fissio.PipelineRecord, error) {
	rows, err := s.pool.Query(ctx,
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
	var rec fissio.PipelineRecord
	var config string
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, description, config_json, created_at, updated_at
		 FROM user_pipelines WHERE id = $1`, id).
		Scan(&rec.ID, &rec.Name, &rec.Description, &config, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
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
	now := fissio.NowUnix()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_pipelines (id, name, description, config_json, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name,
		   description = EXCLUDED.description,
		   config_json = EXCLUDED.config_json,
		   updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.Name, rec.Description, string(rec.Config), now, now)
	if err != nil {
		return fmt.Errorf("save pipeline: %w", err)
	}
	return nil
}

// Delete removes a pipeline. Unknown IDs are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM user_pipelines WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete pipeline: %w", err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }
