package fissio

import (
	"context"
	"encoding/json"
)

// PipelineRecord is a user-saved pipeline template. Config holds the raw
// {"nodes": ..., "edges": ..., "layout": ...} document exactly as the editor
// submitted it; the server round-trips layout metadata without touching it.
type PipelineRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Config      json.RawMessage `json:"config"`
	CreatedAt   int64           `json:"created_at"`
	UpdatedAt   int64           `json:"updated_at"`
}

// PipelineStore abstracts persistence for user-saved pipelines.
type PipelineStore interface {
	// List returns all saved pipelines in creation order.
	List(ctx context.Context) ([]PipelineRecord, error)
	// Get returns the pipeline saved under id, or ErrNotFound.
	Get(ctx context.Context, id string) (PipelineRecord, error)
	// Save upserts a pipeline. The store sets CreatedAt on first insert and
	// bumps UpdatedAt on every call.
	Save(ctx context.Context, rec PipelineRecord) error
	// Delete removes a pipeline. Unknown IDs are not an error.
	Delete(ctx context.Context, id string) error

	// --- Lifecycle ---
	Init(ctx context.Context) error
	Close() error
}
