package fissio

// PipelineBuilder assembles a PipelineConfig fluently. Node and edge calls
// append in declaration order, which is the order the engine will honor.
type PipelineBuilder struct {
	cfg PipelineConfig
}

// NewPipeline starts a builder for a pipeline with the given ID and name.
func NewPipeline(id, name string) *PipelineBuilder {
	return &PipelineBuilder{cfg: PipelineConfig{ID: id, Name: name}}
}

// Description sets the pipeline description.
func (b *PipelineBuilder) Description(desc string) *PipelineBuilder {
	b.cfg.Description = desc
	return b
}

// Node adds a bare node.
func (b *PipelineBuilder) Node(id string, t NodeType) *PipelineBuilder {
	b.cfg.Nodes = append(b.cfg.Nodes, NodeConfig{ID: id, Type: t})
	return b
}

// NodeWithPrompt adds a node with a system prompt.
func (b *PipelineBuilder) NodeWithPrompt(id string, t NodeType, prompt string) *PipelineBuilder {
	b.cfg.Nodes = append(b.cfg.Nodes, NodeConfig{ID: id, Type: t, Prompt: &prompt})
	return b
}

// NodeWithModel adds a node pinned to a specific model ID.
func (b *PipelineBuilder) NodeWithModel(id string, t NodeType, model, prompt string) *PipelineBuilder {
	b.cfg.Nodes = append(b.cfg.Nodes, NodeConfig{ID: id, Type: t, Model: &model, Prompt: &prompt})
	return b
}

// NodeWithTools adds a node with access to the named tools.
func (b *PipelineBuilder) NodeWithTools(id string, t NodeType, prompt string, tools ...string) *PipelineBuilder {
	b.cfg.Nodes = append(b.cfg.Nodes, NodeConfig{ID: id, Type: t, Prompt: &prompt, Tools: tools})
	return b
}

// Edge adds a direct edge between two nodes.
func (b *PipelineBuilder) Edge(from, to string) *PipelineBuilder {
	return b.EdgeTyped(from, to, EdgeDirect)
}

// EdgeTyped adds a one-to-one edge with an explicit type.
func (b *PipelineBuilder) EdgeTyped(from, to string, t EdgeType) *PipelineBuilder {
	b.cfg.Edges = append(b.cfg.Edges, EdgeConfig{From: Single(from), To: Single(to), Type: t})
	return b
}

// FanOut adds a parallel edge from one node to several targets.
func (b *PipelineBuilder) FanOut(from string, targets ...string) *PipelineBuilder {
	b.cfg.Edges = append(b.cfg.Edges, EdgeConfig{From: Single(from), To: Multi(targets...), Type: EdgeParallel})
	return b
}

// FanIn adds a direct edge joining several sources into one target.
func (b *PipelineBuilder) FanIn(sources []string, to string) *PipelineBuilder {
	b.cfg.Edges = append(b.cfg.Edges, EdgeConfig{From: Multi(sources...), To: Single(to), Type: EdgeDirect})
	return b
}

// Conditional adds a conditional edge from a router to its candidate targets.
func (b *PipelineBuilder) Conditional(from string, targets ...string) *PipelineBuilder {
	b.cfg.Edges = append(b.cfg.Edges, EdgeConfig{From: Single(from), To: Multi(targets...), Type: EdgeConditional})
	return b
}

// Build returns the assembled config.
func (b *PipelineBuilder) Build() PipelineConfig {
	return b.cfg
}
