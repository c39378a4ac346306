package fissio

import (
	"context"
	"encoding/json"
	"sort"
)

// Tool is an externally callable capability with a JSON-schema parameter
// contract. Tools may perform arbitrary I/O and must be safe to share
// across concurrent requests.
type Tool interface {
	// Schema returns the tool's stable name, description, and parameter schema.
	Schema() ToolSchema
	// Execute runs the tool with the given JSON arguments and returns its
	// string output. Argument and execution failures are returned as errors;
	// the engine wraps them when raised inside the agentic loop.
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

// ToolRegistry maps tool names to tools. It is immutable after construction
// time; concurrent reads are unsynchronized.
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{tools: make(map[string]Tool)}
}

// Register adds a tool, replacing any previous tool with the same name.
func (r *ToolRegistry) Register(t Tool) {
	r.tools[t.Schema().Name] = t
}

// Get returns the tool registered under name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered under name.
func (r *ToolRegistry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

// Schemas returns the schemas of all registered tools, sorted by name.
func (r *ToolRegistry) Schemas() []ToolSchema {
	return r.SchemasFor(r.Names())
}

// SchemasFor returns schemas for the named tools in the given order.
// Unknown names are silently skipped.
func (r *ToolRegistry) SchemasFor(names []string) []ToolSchema {
	var out []ToolSchema
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			out = append(out, t.Schema())
		}
	}
	return out
}

// Names returns all registered tool names, sorted.
func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
