package server

import (
	"encoding/json"

	"github.com/fissio/fissio"
)

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message        string                 `json:"message"`
	ModelID        string                 `json:"model_id"`
	PipelineID     string                 `json:"pipeline_id"`
	NodeModels     map[string]string      `json:"node_models"`
	Verbose        bool                   `json:"verbose"`
	History        []fissio.Message       `json:"history"`
	PipelineConfig *RuntimePipelineConfig `json:"pipeline_config"`
	SystemPrompt   string                 `json:"system_prompt"`
}

// RuntimePipelineConfig is an unsaved pipeline shipped inline with a chat
// request, straight from the editor canvas.
type RuntimePipelineConfig struct {
	Nodes []RuntimeNodeConfig `json:"nodes"`
	Edges []fissio.EdgeConfig `json:"edges"`
}

// RuntimeNodeConfig carries the node type as a free string. Unknown types
// fall back to llm during conversion instead of failing the request.
type RuntimeNodeConfig struct {
	ID     string   `json:"id"`
	Type   string   `json:"type"`
	Model  *string  `json:"model"`
	Prompt *string  `json:"prompt"`
	Tools  []string `json:"tools"`
}

// NodeInfo is a pipeline node as the editor renders it.
type NodeInfo struct {
	ID       string   `json:"id"`
	NodeType string   `json:"node_type"`
	Model    *string  `json:"model"`
	Prompt   *string  `json:"prompt"`
	Tools    []string `json:"tools,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
}

// EdgeInfo keeps endpoints as raw JSON so scalar and array forms survive a
// round trip through the store unchanged.
type EdgeInfo struct {
	From     json.RawMessage `json:"from"`
	To       json.RawMessage `json:"to"`
	EdgeType *string         `json:"edge_type,omitempty"`
}

// Position is a node's coordinates on the editor canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PipelineInfo is a full pipeline as served to the frontend, used for both
// shipped templates and saved configs.
type PipelineInfo struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Nodes       []NodeInfo          `json:"nodes"`
	Edges       []EdgeInfo          `json:"edges"`
	Layout      map[string]Position `json:"layout,omitempty"`
}

// SavePipelineRequest is the body of POST /pipelines/save. An empty ID asks
// the server to mint one.
type SavePipelineRequest struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Nodes       []NodeInfo          `json:"nodes"`
	Edges       []EdgeInfo          `json:"edges"`
	Layout      map[string]Position `json:"layout"`
}

type SavePipelineResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// DeletePipelineRequest is the body of POST /pipelines/delete.
type DeletePipelineRequest struct {
	ID string `json:"id"`
}

type DeletePipelineResponse struct {
	Success bool `json:"success"`
}

// InitResponse is the single payload the frontend boots from: the model
// catalog, the shipped templates, and the user's saved configs.
type InitResponse struct {
	Models    []fissio.ModelConfig `json:"models"`
	Templates []PipelineInfo       `json:"templates"`
	Configs   []PipelineInfo       `json:"configs"`
}

type WakeResponse struct {
	Success bool   `json:"success"`
	Model   string `json:"model"`
}

type UnloadResponse struct {
	Success bool `json:"success"`
}

// ToolInfo describes one registered tool for GET /tools.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ChatMetadata is the terminal payload of a chat stream. The last four
// fields are present only when the request ran against the native Ollama
// API in verbose mode.
type ChatMetadata struct {
	InputTokens    int      `json:"input_tokens"`
	OutputTokens   int      `json:"output_tokens"`
	ElapsedMs      int64    `json:"elapsed_ms"`
	LoadDurationMs *int64   `json:"load_duration_ms,omitempty"`
	PromptEvalMs   *int64   `json:"prompt_eval_ms,omitempty"`
	EvalMs         *int64   `json:"eval_ms,omitempty"`
	TokensPerSec   *float64 `json:"tokens_per_sec,omitempty"`
}

// storedDoc is the Config document inside a fissio.PipelineRecord: the
// editor's nodes and edges verbatim, plus the optional canvas layout.
type storedDoc struct {
	Nodes  []NodeInfo          `json:"nodes"`
	Edges  []EdgeInfo          `json:"edges"`
	Layout map[string]Position `json:"layout,omitempty"`
}

func recordToInfo(rec fissio.PipelineRecord) (PipelineInfo, error) {
	var doc storedDoc
	if err := json.Unmarshal(rec.Config, &doc); err != nil {
		return PipelineInfo{}, err
	}
	return PipelineInfo{
		ID:          rec.ID,
		Name:        rec.Name,
		Description: rec.Description,
		Nodes:       doc.Nodes,
		Edges:       doc.Edges,
		Layout:      doc.Layout,
	}, nil
}

// configToInfo converts a preset into the editor's shape. Templates carry no
// layout; the frontend auto-arranges them.
func configToInfo(cfg fissio.PipelineConfig) PipelineInfo {
	nodes := make([]NodeInfo, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		var tools []string
		if len(n.Tools) > 0 {
			tools = n.Tools
		}
		nodes = append(nodes, NodeInfo{
			ID:       n.ID,
			NodeType: string(n.Type),
			Model:    n.Model,
			Prompt:   n.Prompt,
			Tools:    tools,
		})
	}
	edges := make([]EdgeInfo, 0, len(cfg.Edges))
	for _, e := range cfg.Edges {
		from, _ := json.Marshal(e.From)
		to, _ := json.Marshal(e.To)
		info := EdgeInfo{From: from, To: to}
		if e.Type != fissio.EdgeDirect {
			t := string(e.Type)
			info.EdgeType = &t
		}
		edges = append(edges, info)
	}
	return PipelineInfo{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Description: cfg.Description,
		Nodes:       nodes,
		Edges:       edges,
	}
}
