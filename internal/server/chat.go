package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fissio/fissio"
	"github.com/fissio/fissio/engine"
	"github.com/fissio/fissio/provider/ollama"
)

// errorReply is streamed in place of model output when any execution path
// fails. The terminal metadata then reports zero tokens.
const errorReply = "Error generating response."

// handleChat streams a chat response as server-sent events: zero or more
// "stream" events carrying content, then exactly one "end" event carrying
// the run metadata.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	model := s.getModel(req.ModelID)
	s.logger.Info("chat request", "model", model.Name, "message", truncate(req.Message, 50))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sse := &sseWriter{w: w, flusher: flusher}
	start := time.Now()
	res := s.dispatch(r.Context(), sse, &req, model)
	sse.end(buildMetadata(res, time.Since(start).Milliseconds()))
}

// streamResult is what one execution path produced: token usage plus, for
// native Ollama runs, the full timing metrics.
type streamResult struct {
	usage   fissio.Usage
	metrics *ollama.Metrics
}

// dispatch picks the execution path in priority order: native Ollama for
// verbose requests against local models, an inline runtime config, a preset
// named by ID, then plain single-model chat.
func (s *Server) dispatch(ctx context.Context, sse *sseWriter, req *ChatRequest, model fissio.ModelConfig) streamResult {
	system := req.SystemPrompt
	if system == "" {
		system = defaultSystemPrompt
	}

	for _, g := range s.guards {
		if err := g.CheckInput(ctx, req.Message, req.History); err != nil {
			var blocked *fissio.ErrBlocked
			if errors.As(err, &blocked) {
				s.logger.Warn("chat request blocked", "error", err)
				sse.chunk(blocked.Response)
			} else {
				s.logger.Error("guard check failed", "error", err)
				sse.chunk(errorReply)
			}
			return streamResult{}
		}
	}

	if req.Verbose && model.APIBase != "" {
		return s.streamOllama(ctx, sse, model, req, system)
	}
	if req.PipelineConfig != nil {
		cfg := runtimeToPipelineConfig(req.PipelineConfig)
		s.logger.Info("using runtime pipeline config", "nodes", len(cfg.Nodes))
		return s.streamEngine(ctx, sse, cfg, req, model)
	}
	if req.PipelineID != "" {
		if cfg, ok := s.presets.Get(req.PipelineID); ok {
			s.logger.Info("using pipeline preset", "name", cfg.Name)
			return s.streamEngine(ctx, sse, cfg, req, model)
		}
	}
	return s.streamDirect(ctx, sse, model, req, system)
}

// streamOllama talks to the Ollama host directly so the response carries
// load and eval timings the OpenAI-compatible endpoint does not expose.
func (s *Server) streamOllama(ctx context.Context, sse *sseWriter, model fissio.ModelConfig, req *ChatRequest, system string) streamResult {
	s.logger.Info("using native Ollama API for verbose metrics")
	client := ollama.NewClient(model.Model, model.APIBase)

	ch := make(chan fissio.Chunk, 64)
	type streamDone struct {
		metrics ollama.Metrics
		err     error
	}
	done := make(chan streamDone, 1)
	go func() {
		m, err := client.ChatStream(ctx, system, req.History, req.Message, ch)
		done <- streamDone{m, err}
	}()
	usage := sse.consume(ch)
	res := <-done
	if res.err != nil {
		s.logger.Error("ollama stream failed", "model", model.Name, "error", res.err)
		sse.chunk(errorReply)
		return streamResult{}
	}

	s.logger.Info("ollama metrics",
		"tokens_per_sec", res.metrics.TokensPerSec(),
		"tokens", res.metrics.EvalCount,
		"total_ms", res.metrics.TotalDurationMs(),
	)
	return streamResult{usage: usage, metrics: &res.metrics}
}

// streamDirect is plain single-model chat through the provider factory.
func (s *Server) streamDirect(ctx context.Context, sse *sseWriter, model fissio.ModelConfig, req *ChatRequest, system string) streamResult {
	client := s.clients(model)

	ch := make(chan fissio.Chunk, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.ChatStream(ctx, system, req.History, req.Message, ch)
	}()
	usage := sse.consume(ch)
	if err := <-errCh; err != nil {
		s.logger.Error("chat stream failed", "model", model.Name, "error", err)
		sse.chunk(errorReply)
		return streamResult{}
	}
	return streamResult{usage: usage}
}

// streamEngine runs a pipeline config through the graph engine. The engine
// returns the finished text, so the frontend sees it as a single chunk.
func (s *Server) streamEngine(ctx context.Context, sse *sseWriter, cfg fissio.PipelineConfig, req *ChatRequest, model fissio.ModelConfig) streamResult {
	opts := []engine.Option{
		engine.WithTools(s.tools),
		engine.WithClients(s.clients),
		engine.WithLogger(s.logger),
	}
	if s.tracer != nil {
		opts = append(opts, engine.WithTracer(s.tracer))
	}
	eng := engine.New(cfg, s.models, model, req.NodeModels, opts...)

	start := time.Now()
	out, err := eng.Execute(ctx, req.Message, req.History)
	if s.obs != nil {
		s.obs.RecordPipelineRun(ctx, cfg.Name, time.Since(start), err)
	}
	if err != nil {
		s.logger.Error("pipeline execution failed", "pipeline", cfg.Name, "error", err)
		sse.chunk(errorReply)
		return streamResult{}
	}
	if out.Stream != nil {
		return streamResult{usage: sse.consume(out.Stream)}
	}
	sse.chunk(out.Complete)
	return streamResult{}
}

// runtimeToPipelineConfig converts an editor-supplied config into executable
// form. Unknown node types run as plain llm nodes.
func runtimeToPipelineConfig(rc *RuntimePipelineConfig) fissio.PipelineConfig {
	nodes := make([]fissio.NodeConfig, 0, len(rc.Nodes))
	for _, n := range rc.Nodes {
		typ, err := fissio.ParseNodeType(n.Type)
		if err != nil {
			typ = fissio.NodeLLM
		}
		nodes = append(nodes, fissio.NodeConfig{
			ID:     n.ID,
			Type:   typ,
			Model:  n.Model,
			Prompt: n.Prompt,
			Tools:  n.Tools,
		})
	}
	return fissio.PipelineConfig{
		ID:    "runtime",
		Name:  "Runtime Config",
		Nodes: nodes,
		Edges: rc.Edges,
	}
}

func buildMetadata(res streamResult, elapsedMs int64) ChatMetadata {
	meta := ChatMetadata{
		InputTokens:  res.usage.InputTokens,
		OutputTokens: res.usage.OutputTokens,
		ElapsedMs:    elapsedMs,
	}
	if m := res.metrics; m != nil {
		load := m.LoadDurationMs()
		prompt := m.PromptEvalMs()
		eval := m.EvalMs()
		tps := m.TokensPerSec()
		meta.LoadDurationMs = &load
		meta.PromptEvalMs = &prompt
		meta.EvalMs = &eval
		meta.TokensPerSec = &tps
	}
	return meta
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

// sseWriter frames server-sent events for the chat stream. Only two event
// kinds exist: "stream" carries one content chunk, "end" the terminal
// metadata.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

type streamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type endEvent struct {
	Type     string       `json:"type"`
	Metadata ChatMetadata `json:"metadata"`
}

func (sse *sseWriter) chunk(content string) {
	sse.send("stream", streamEvent{Type: "stream", Content: content})
}

func (sse *sseWriter) end(meta ChatMetadata) {
	sse.send("end", endEvent{Type: "end", Metadata: meta})
}

func (sse *sseWriter) send(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(sse.w, "event: %s\ndata: %s\n\n", event, data)
	sse.flusher.Flush()
}

// consume forwards content chunks to the client and returns the usage from
// the terminal usage chunk, if the provider sent one.
func (sse *sseWriter) consume(ch <-chan fissio.Chunk) fissio.Usage {
	var usage fissio.Usage
	for ck := range ch {
		switch ck.Type {
		case fissio.ChunkContent:
			sse.chunk(ck.Content)
		case fissio.ChunkUsage:
			usage = ck.Usage
		}
	}
	return usage
}
