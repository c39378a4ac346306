package server

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"

	"github.com/fissio/fissio"
)

// LoadConfigs primes the saved-config cache from the store. Records whose
// config document no longer parses are skipped with a warning.
func (s *Server) LoadConfigs(ctx context.Context) error {
	recs, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	configs := make([]PipelineInfo, 0, len(recs))
	for _, rec := range recs {
		info, err := recordToInfo(rec)
		if err != nil {
			s.logger.Warn("skipping unreadable pipeline config", "id", rec.ID, "error", err)
			continue
		}
		configs = append(configs, info)
	}

	s.mu.Lock()
	s.configs = configs
	s.mu.Unlock()
	s.logger.Info("loaded saved configs", "count", len(configs))
	return nil
}

func (s *Server) handlePipelineList(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	configs := slices.Clone(s.configs)
	s.mu.RUnlock()
	writeJSON(w, configs)
}

func (s *Server) handlePipelineSave(w http.ResponseWriter, r *http.Request) {
	var req SavePipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = fissio.NewID()
	}
	s.logger.Info("saving pipeline config", "name", req.Name, "id", req.ID)

	config, err := json.Marshal(storedDoc{Nodes: req.Nodes, Edges: req.Edges, Layout: req.Layout})
	if err != nil {
		s.logger.Error("pipeline save failed", "id", req.ID, "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	rec := fissio.PipelineRecord{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Config:      config,
	}
	if err := s.store.Save(r.Context(), rec); err != nil {
		s.logger.Error("pipeline save failed", "id", req.ID, "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}

	info := PipelineInfo{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Layout:      req.Layout,
	}
	s.mu.Lock()
	idx := slices.IndexFunc(s.configs, func(p PipelineInfo) bool { return p.ID == info.ID })
	if idx >= 0 {
		s.configs[idx] = info
	} else {
		s.configs = append(s.configs, info)
	}
	s.mu.Unlock()

	s.logger.Info("pipeline config saved", "id", req.ID)
	writeJSON(w, SavePipelineResponse{Success: true, ID: req.ID})
}

func (s *Server) handlePipelineDelete(w http.ResponseWriter, r *http.Request) {
	var req DeletePipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.store.Delete(r.Context(), req.ID); err != nil {
		s.logger.Error("pipeline delete failed", "id", req.ID, "error", err)
		http.Error(w, "delete failed", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.configs = slices.DeleteFunc(s.configs, func(p PipelineInfo) bool { return p.ID == req.ID })
	s.mu.Unlock()

	writeJSON(w, DeletePipelineResponse{Success: true})
}
