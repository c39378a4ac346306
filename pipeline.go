package fissio

import (
	"encoding/json"
	"fmt"
	"os"
)

// --- Node types ---

// NodeType determines how a node executes. Only LLM and worker nodes make a
// plain model call and routers make a classification call; every other type
// passes its input through unchanged and exists to name a stage in the graph.
type NodeType string

const (
	NodeLLM          NodeType = "llm"
	NodeGate         NodeType = "gate"
	NodeRouter       NodeType = "router"
	NodeCoordinator  NodeType = "coordinator"
	NodeAggregator   NodeType = "aggregator"
	NodeOrchestrator NodeType = "orchestrator"
	NodeWorker       NodeType = "worker"
	NodeSynthesizer  NodeType = "synthesizer"
	NodeEvaluator    NodeType = "evaluator"
)

// ParseNodeType converts a config string into a NodeType. Unknown values are
// an error so that a typo fails the whole pipeline at load time instead of
// silently changing execution behavior.
func ParseNodeType(s string) (NodeType, error) {
	switch t := NodeType(s); t {
	case NodeLLM, NodeGate, NodeRouter, NodeCoordinator, NodeAggregator,
		NodeOrchestrator, NodeWorker, NodeSynthesizer, NodeEvaluator:
		return t, nil
	}
	return "", &ErrParse{Op: "node type", Detail: fmt.Sprintf("unknown type %q", s)}
}

func (t *NodeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseNodeType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// RequiresLLM reports whether executing this node makes a model call.
func (t NodeType) RequiresLLM() bool {
	return t == NodeLLM || t == NodeWorker
}

// IsRouter reports whether this node classifies input to pick a branch.
func (t NodeType) IsRouter() bool {
	return t == NodeRouter
}

// ActionLabel is a short human-readable label used in execution logs.
func (t NodeType) ActionLabel() string {
	switch t {
	case NodeLLM:
		return "Calling LLM"
	case NodeGate:
		return "Gate check"
	case NodeRouter:
		return "Routing"
	case NodeCoordinator:
		return "Coordinating"
	case NodeOrchestrator:
		return "Orchestrating"
	case NodeAggregator:
		return "Aggregating"
	case NodeSynthesizer:
		return "Synthesizing"
	case NodeWorker:
		return "Worker executing"
	case NodeEvaluator:
		return "Evaluating"
	}
	return "Executing"
}

// --- Edge types ---

// EdgeType determines how an edge is traversed: direct edges run targets
// sequentially, parallel edges fan out concurrently, conditional edges let a
// router pick the branch, and dynamic edges let an orchestrator pick targets.
type EdgeType string

const (
	EdgeDirect      EdgeType = "direct"
	EdgeParallel    EdgeType = "parallel"
	EdgeConditional EdgeType = "conditional"
	EdgeDynamic     EdgeType = "dynamic"
)

// ParseEdgeType is deliberately lenient: unknown strings degrade to direct.
func ParseEdgeType(s string) EdgeType {
	switch t := EdgeType(s); t {
	case EdgeParallel, EdgeConditional, EdgeDynamic:
		return t
	}
	return EdgeDirect
}

func (t *EdgeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseEdgeType(s)
	return nil
}

// --- Edge endpoints ---

// Endpoint is one side of an edge: a single node ID, or an ordered node ID
// list for fan-out and fan-in. Traversal always sees the list view through
// IDs; the scalar-or-array JSON form is preserved on round-trip.
type Endpoint struct {
	ids  []string
	list bool
}

// Single returns an endpoint naming one node.
func Single(id string) Endpoint {
	return Endpoint{ids: []string{id}}
}

// Multi returns a list endpoint.
func Multi(ids ...string) Endpoint {
	return Endpoint{ids: append([]string(nil), ids...), list: true}
}

// IDs returns the endpoint's node IDs in declared order.
func (e Endpoint) IDs() []string {
	return e.ids
}

// IsOnly reports whether the endpoint names exactly the one given node.
// A single ID and a one-element list are equivalent.
func (e Endpoint) IsOnly(id string) bool {
	return len(e.ids) == 1 && e.ids[0] == id
}

// Contains reports whether id appears anywhere in the endpoint.
func (e Endpoint) Contains(id string) bool {
	for _, v := range e.ids {
		if v == id {
			return true
		}
	}
	return false
}

func (e Endpoint) MarshalJSON() ([]byte, error) {
	if e.list {
		return json.Marshal(e.ids)
	}
	if len(e.ids) == 0 {
		return json.Marshal("")
	}
	return json.Marshal(e.ids[0])
}

// UnmarshalJSON accepts a JSON string (single) or array (list). Non-string
// array elements are dropped; any other JSON value becomes a single empty ID,
// which no traversal will ever match.
func (e *Endpoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = Single(s)
		return nil
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err == nil {
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			if id, ok := v.(string); ok {
				ids = append(ids, id)
			}
		}
		*e = Endpoint{ids: ids, list: true}
		return nil
	}
	*e = Single("")
	return nil
}

// --- Pipeline configuration ---

// NodeConfig declares one processing step. The reserved IDs "input" and
// "output" never have a NodeConfig entry; they are implicit graph terminals.
type NodeConfig struct {
	ID     string          `json:"id"`
	Type   NodeType        `json:"type"`
	Model  *string         `json:"model,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
	Prompt *string         `json:"prompt,omitempty"`
	Tools  []string        `json:"tools,omitempty"`
}

// EdgeConfig connects nodes. A missing edge_type means direct.
type EdgeConfig struct {
	From Endpoint `json:"from"`
	To   Endpoint `json:"to"`
	Type EdgeType `json:"edge_type"`
}

func (e *EdgeConfig) UnmarshalJSON(data []byte) error {
	type alias EdgeConfig
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Type == "" {
		a.Type = EdgeDirect
	}
	*e = EdgeConfig(a)
	return nil
}

// PipelineConfig is a complete executable graph: nodes in declared order and
// the edges connecting them. Declared order is significant; it breaks ties
// everywhere the engine scans nodes or edges.
type PipelineConfig struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Nodes       []NodeConfig `json:"nodes"`
	Edges       []EdgeConfig `json:"edges"`
}

// Node returns the node declared under id.
func (c *PipelineConfig) Node(id string) (NodeConfig, bool) {
	for _, n := range c.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return NodeConfig{}, false
}

// JSON renders the config as indented JSON.
func (c *PipelineConfig) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ParsePipelineConfig decodes a pipeline from JSON. An unknown node type
// fails the whole config; unknown edge types degrade to direct.
func ParsePipelineConfig(data []byte) (PipelineConfig, error) {
	var cfg PipelineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return PipelineConfig{}, err
	}
	return cfg, nil
}

// LoadPipelineConfig reads and decodes a pipeline JSON file.
func LoadPipelineConfig(path string) (PipelineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PipelineConfig{}, err
	}
	return ParsePipelineConfig(data)
}
