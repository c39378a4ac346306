package fissio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// PresetRegistry holds shipped pipeline templates, keyed by config ID.
type PresetRegistry struct {
	presets map[string]PipelineConfig
}

// NewPresetRegistry creates an empty registry.
func NewPresetRegistry() *PresetRegistry {
	return &PresetRegistry{presets: make(map[string]PipelineConfig)}
}

// LoadPresets reads every *.json file in dir as a pipeline config. Any
// unreadable or invalid file aborts the whole load with the offending path
// in the error.
func LoadPresets(dir string) (*PresetRegistry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read preset dir: %w", err)
	}
	r := NewPresetRegistry()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		cfg, err := LoadPipelineConfig(path)
		if err != nil {
			return nil, fmt.Errorf("load preset %s: %w", path, err)
		}
		r.presets[cfg.ID] = cfg
	}
	return r, nil
}

// Add registers a preset, replacing any previous one with the same ID.
func (r *PresetRegistry) Add(cfg PipelineConfig) {
	r.presets[cfg.ID] = cfg
}

// Get returns the preset registered under id.
func (r *PresetRegistry) Get(id string) (PipelineConfig, bool) {
	cfg, ok := r.presets[id]
	return cfg, ok
}

// List returns all presets sorted by ID.
func (r *PresetRegistry) List() []PipelineConfig {
	out := make([]PipelineConfig, 0, len(r.presets))
	for _, cfg := range r.presets {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IDs returns all preset IDs, sorted.
func (r *PresetRegistry) IDs() []string {
	ids := make([]string, 0, len(r.presets))
	for id := range r.presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
