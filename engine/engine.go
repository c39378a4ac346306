// Package engine executes pipeline configs as directed graphs: sequential
// chains, parallel fan-out with joined fan-in, router-driven branching, and
// agentic tool loops on individual nodes.
package engine

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/fissio/fissio"
	"github.com/fissio/fissio/provider/resolve"
	"github.com/fissio/fissio/tools"
)

// Output is the result of a run. Graph execution always fills Complete;
// Stream exists for callers that bypass the graph and talk to a provider
// directly.
type Output struct {
	Stream   <-chan fissio.Chunk
	Complete string
}

// modelResolver maps model IDs to their configs with a default fallback.
type modelResolver struct {
	models       map[string]fissio.ModelConfig
	defaultModel fissio.ModelConfig
}

func newModelResolver(models []fissio.ModelConfig, def fissio.ModelConfig) *modelResolver {
	m := make(map[string]fissio.ModelConfig, len(models))
	for _, mc := range models {
		m[mc.ID] = mc
	}
	return &modelResolver{models: m, defaultModel: def}
}

// resolve returns the config registered under id, or the default when id is
// empty or unknown.
func (r *modelResolver) resolve(id string) fissio.ModelConfig {
	if mc, ok := r.models[id]; ok {
		return mc
	}
	return r.defaultModel
}

// Engine executes one pipeline config. Construction is cheap; the server
// builds a fresh engine per request with that request's node overrides.
type Engine struct {
	cfg       fissio.PipelineConfig
	resolver  *modelResolver
	overrides map[string]string
	clients   fissio.ClientFactory
	tools     *fissio.ToolRegistry
	logger    *slog.Logger
	tracer    fissio.Tracer
}

// Option customizes an Engine.
type Option func(*Engine)

// WithTools replaces the default tool registry.
func WithTools(reg *fissio.ToolRegistry) Option {
	return func(e *Engine) { e.tools = reg }
}

// WithClients replaces the default model-to-provider selection.
func WithClients(factory fissio.ClientFactory) Option {
	return func(e *Engine) { e.clients = factory }
}

// WithLogger sets the logger for run and node logs.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTracer enables span creation around runs, nodes, and tool calls.
func WithTracer(tracer fissio.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

// New creates an engine for cfg. overrides maps node IDs to per-request
// model IDs and may be nil. Model IDs that match nothing in models resolve
// to defaultModel.
func New(cfg fissio.PipelineConfig, models []fissio.ModelConfig, defaultModel fissio.ModelConfig, overrides map[string]string, opts ...Option) *Engine {
	e := &Engine{
		cfg:       cfg,
		resolver:  newModelResolver(models, defaultModel),
		overrides: overrides,
		clients:   resolve.Factory,
		tools:     tools.DefaultRegistry(),
		logger:    nopLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// nodeModel resolves the model for a node: request override first, then the
// node's own model ID, then the default.
func (e *Engine) nodeModel(node fissio.NodeConfig) fissio.ModelConfig {
	id, ok := e.overrides[node.ID]
	if !ok && node.Model != nil {
		id = *node.Model
	}
	return e.resolver.resolve(id)
}

// outgoingEdges returns the edges leaving a node, in declared order.
func (e *Engine) outgoingEdges(nodeID string) []fissio.EdgeConfig {
	var out []fissio.EdgeConfig
	for _, edge := range e.cfg.Edges {
		if edge.From.Contains(nodeID) {
			out = append(out, edge)
		}
	}
	return out
}

// outgoingTargets returns every downstream node ID except the output
// terminal. Routers classify against this set.
func (e *Engine) outgoingTargets(nodeID string) []string {
	var out []string
	for _, edge := range e.outgoingEdges(nodeID) {
		for _, id := range edge.To.IDs() {
			if id != "output" {
				out = append(out, id)
			}
		}
	}
	return out
}

// Execute runs the pipeline against one user message and returns the final
// output. history is accepted for signature parity with direct chat; graph
// nodes always start from the message alone.
func (e *Engine) Execute(ctx context.Context, message string, history []fissio.Message) (Output, error) {
	runID := fissio.NewID()
	log := e.logger.With("run", runID, "pipeline", e.cfg.ID)

	log.Info("pipeline start", "name", e.cfg.Name, "nodes", len(e.cfg.Nodes), "edges", len(e.cfg.Edges))
	if len(e.overrides) > 0 {
		log.Info("node model overrides", "overrides", e.overrides)
	}

	var span fissio.Span
	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "pipeline.execute",
			fissio.StringAttr("pipeline.id", e.cfg.ID),
			fissio.StringAttr("pipeline.name", e.cfg.Name),
			fissio.IntAttr("pipeline.nodes", len(e.cfg.Nodes)))
		defer span.End()
	}

	r := &run{Engine: e, log: log, state: newExecState(message)}

	for _, edge := range e.cfg.Edges {
		if !edge.From.IsOnly("input") {
			continue
		}
		if err := r.processEdge(ctx, edge); err != nil {
			if span != nil {
				span.Error(err)
			}
			return Output{}, err
		}
	}

	// The first edge into the output terminal decides the final result:
	// scan its sources in reverse and take the first produced value.
	for _, edge := range e.cfg.Edges {
		if !edge.To.IsOnly("output") {
			continue
		}
		ids := edge.From.IDs()
		output := ""
		for i := len(ids) - 1; i >= 0; i-- {
			if v, ok := r.state.value(ids[i]); ok {
				output = v
				break
			}
		}
		log.Info("pipeline complete", "steps", r.state.steps(), "chars", len(output))
		return Output{Complete: output}, nil
	}

	log.Info("pipeline complete without output edge", "steps", r.state.steps())
	return Output{Complete: ""}, nil
}

// run is one Execute invocation: the engine plus per-run log and state.
type run struct {
	*Engine
	log   *slog.Logger
	state *execState
}

// processEdge executes an edge's targets according to its type. Edges into
// the output terminal are a no-op; the final scan in Execute reads them.
func (r *run) processEdge(ctx context.Context, edge fissio.EdgeConfig) error {
	if edge.To.IsOnly("output") {
		return nil
	}
	if edge.Type == fissio.EdgeParallel {
		return r.executeParallel(ctx, edge.To.IDs())
	}
	return r.executeSequential(ctx, edge.To.IDs())
}

// executeParallel runs all pending targets concurrently. Inputs are
// materialized before anything runs, every write lands before any successor
// is scheduled, and the first error aborts the whole run.
func (r *run) executeParallel(ctx context.Context, targetIDs []string) error {
	r.log.Info("parallel fan-out", "targets", targetIDs)

	type job struct {
		node    fissio.NodeConfig
		model   fissio.ModelConfig
		input   string
		targets []string
	}
	var jobs []job
	for _, id := range targetIDs {
		if r.state.done(id) {
			continue
		}
		node, ok := r.cfg.Node(id)
		if !ok {
			continue
		}
		jobs = append(jobs, job{
			node:    node,
			model:   r.nodeModel(node),
			input:   r.inputFor(id),
			targets: r.outgoingTargets(id),
		})
	}

	results := make([]nodeOutput, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			out, err := r.executeNode(gctx, j.node, j.model, j.input, j.targets)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	decisions := make(map[string][]string)
	for i, j := range jobs {
		r.state.setValue(j.node.ID, results[i].content)
		if len(results[i].next) > 0 {
			decisions[j.node.ID] = results[i].next
		}
		r.state.markDone(j.node.ID)
	}
	r.log.Info("parallel fan-out complete", "targets", targetIDs)

	for _, id := range targetIDs {
		if err := r.processOutgoing(ctx, id, decisions[id]); err != nil {
			return err
		}
	}
	return nil
}

// executeSequential runs targets one at a time in declared order, recursing
// into each node's outgoing edges before moving to the next target.
func (r *run) executeSequential(ctx context.Context, targetIDs []string) error {
	for _, id := range targetIDs {
		if r.state.done(id) || id == "output" {
			continue
		}
		node, ok := r.cfg.Node(id)
		if !ok {
			continue
		}

		out, err := r.executeNode(ctx, node, r.nodeModel(node), r.inputFor(id), r.outgoingTargets(id))
		if err != nil {
			return err
		}
		r.state.setValue(id, out.content)
		r.state.markDone(id)

		if err := r.processOutgoing(ctx, id, out.next); err != nil {
			return err
		}
	}
	return nil
}

// inputFor materializes a node's input. The first incoming edge with at
// least one produced source value wins; its values join in from-list order.
// When no edge has produced anything, the node sees the original user input.
func (r *run) inputFor(nodeID string) string {
	for _, edge := range r.cfg.Edges {
		if !edge.To.Contains(nodeID) {
			continue
		}
		var inputs []string
		for _, id := range edge.From.IDs() {
			if v, ok := r.state.value(id); ok {
				inputs = append(inputs, v)
			}
		}
		if len(inputs) > 0 {
			return joinSegments(inputs)
		}
	}
	v, _ := r.state.value("input")
	return v
}

// processOutgoing walks a node's outgoing edges. Edges with any
// already-executed target are skipped; after a router decision only edges
// whose targets intersect it are followed.
func (r *run) processOutgoing(ctx context.Context, nodeID string, routerTargets []string) error {
	for _, edge := range r.outgoingEdges(nodeID) {
		targets := edge.To.IDs()

		if r.state.anyDone(targets) {
			continue
		}
		if len(routerTargets) > 0 && !anyOverlap(targets, routerTargets) {
			continue
		}

		if err := r.processEdge(ctx, edge); err != nil {
			return err
		}
	}
	return nil
}

func anyOverlap(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// nopLogger is a logger that discards all output. Used when WithLogger is not set.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
