package server

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/fissio/fissio"
	"github.com/fissio/fissio/provider/ollama"
)

// handleModelWake preloads a local model so the first real request does not
// pay the load time. When previous_model_id names another local model it is
// unloaded in parallel to free memory for the incoming one.
func (s *Server) handleModelWake(w http.ResponseWriter, r *http.Request) {
	model := s.getModel(chi.URLParam(r, "id"))
	s.logger.Info("warming up model", "name", model.Name)

	var wg sync.WaitGroup
	if prev := r.URL.Query().Get("previous_model_id"); prev != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.unloadModel(r.Context(), prev); err != nil {
				s.logger.Info("could not unload model, may already be unloaded",
					"model", prev, "error", err)
			}
		}()
	}

	err := s.warmup(r.Context(), model)
	wg.Wait()
	if err != nil {
		s.logger.Error("model warmup failed", "name", model.Name, "error", err)
		http.Error(w, "warmup failed", http.StatusInternalServerError)
		return
	}

	s.logger.Info("model ready", "name", model.Name)
	writeJSON(w, WakeResponse{Success: true, Model: model.Name})
}

// warmup sends a throwaway message and drains the reply.
func (s *Server) warmup(ctx context.Context, model fissio.ModelConfig) error {
	client := s.clients(model)
	ch := make(chan fissio.Chunk, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.ChatStream(ctx, defaultSystemPrompt, nil, "hi", ch)
	}()
	for range ch {
	}
	return <-errCh
}

func (s *Server) handleModelUnload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.unloadModel(r.Context(), id); err != nil {
		s.logger.Error("model unload failed", "model", id, "error", err)
		http.Error(w, "unload failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, UnloadResponse{Success: true})
}

// unloadModel asks the Ollama host to evict a model. Models without an
// APIBase are cloud-hosted and unloading them is a no-op.
func (s *Server) unloadModel(ctx context.Context, id string) error {
	model := s.getModel(id)
	if model.APIBase == "" {
		return nil
	}
	host := strings.TrimSuffix(model.APIBase, "/v1")
	s.logger.Info("unloading model", "name", model.Name)
	return ollama.Unload(ctx, host, model.Model)
}
