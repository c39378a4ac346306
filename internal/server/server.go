// Package server exposes the pipeline engine over HTTP: a streaming chat
// endpoint, pipeline CRUD backed by a store, model lifecycle calls for local
// Ollama hosts, and the init payload the frontend boots from.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fissio/fissio"
	"github.com/fissio/fissio/observer"
	"github.com/fissio/fissio/provider/resolve"
)

const defaultSystemPrompt = "You are a helpful assistant."

// Server holds the model catalog, preset registry, pipeline store, and tool
// registry behind the HTTP API.
type Server struct {
	models    []fissio.ModelConfig
	presets   *fissio.PresetRegistry
	templates []PipelineInfo
	store     fissio.PipelineStore
	tools     *fissio.ToolRegistry
	clients   fissio.ClientFactory
	guards    []fissio.Guard
	tracer    fissio.Tracer
	obs       *observer.Instruments
	logger    *slog.Logger

	mu      sync.RWMutex
	configs []PipelineInfo
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithClients overrides the client factory used for direct chat, warmup, and
// engine runs.
func WithClients(factory fissio.ClientFactory) Option {
	return func(s *Server) { s.clients = factory }
}

// WithGuards installs input guards that run before any chat dispatch.
func WithGuards(guards ...fissio.Guard) Option {
	return func(s *Server) { s.guards = append(s.guards, guards...) }
}

// WithTracer propagates spans through engine runs.
func WithTracer(tracer fissio.Tracer) Option {
	return func(s *Server) { s.tracer = tracer }
}

// WithObserver records pipeline run counters and durations.
func WithObserver(inst *observer.Instruments) Option {
	return func(s *Server) { s.obs = inst }
}

// New builds a server. models must contain at least one entry; the first is
// the fallback when a request names no model or an unknown one.
func New(models []fissio.ModelConfig, presets *fissio.PresetRegistry, store fissio.PipelineStore, tools *fissio.ToolRegistry, opts ...Option) *Server {
	s := &Server{
		models:  models,
		presets: presets,
		store:   store,
		tools:   tools,
		clients: resolve.Factory,
		logger:  slog.Default(),
		configs: []PipelineInfo{},
	}
	for _, opt := range opts {
		opt(s)
	}

	list := presets.List()
	s.templates = make([]PipelineInfo, 0, len(list))
	for _, p := range list {
		s.templates = append(s.templates, configToInfo(p))
	}
	return s
}

// Templates returns the pipeline templates derived from the presets.
func (s *Server) Templates() []PipelineInfo {
	return s.templates
}

// getModel resolves a model ID, falling back to the first configured model
// for empty or unknown IDs.
func (s *Server) getModel(id string) fissio.ModelConfig {
	for _, m := range s.models {
		if m.ID == id {
			return m
		}
	}
	return s.models[0]
}

// Handler assembles the route table. Every route gets permissive CORS for
// the browser frontend; /health stays outside request logging so probes do
// not flood the log.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(s.logRequests)
		r.Post("/chat", s.handleChat)
		r.Get("/init", s.handleInit)
		r.Post("/models/{id}/wake", s.handleModelWake)
		r.Delete("/models/{id}", s.handleModelUnload)
		r.Get("/pipelines", s.handlePipelineList)
		r.Post("/pipelines/save", s.handlePipelineSave)
		r.Post("/pipelines/delete", s.handlePipelineDelete)
		r.Get("/tools", s.handleTools)
	})

	r.Get("/health", s.handleHealth)
	return r
}

// Start begins serving on addr and blocks until the listener fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleInit(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	configs := slices.Clone(s.configs)
	s.mu.RUnlock()

	writeJSON(w, InitResponse{
		Models:    s.models,
		Templates: s.templates,
		Configs:   configs,
	})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	schemas := s.tools.Schemas()
	infos := make([]ToolInfo, 0, len(schemas))
	for _, sc := range schemas {
		infos = append(infos, ToolInfo{
			Name:        sc.Name,
			Description: sc.Description,
			Parameters:  sc.Parameters,
		})
	}
	writeJSON(w, infos)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// statusWriter captures the response code for request logging. Flush passes
// through so SSE handlers can still stream.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
