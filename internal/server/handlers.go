package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/promptforge/promptforge/internal/enhance"
	"github.com/promptforge/promptforge/internal/profile"
)

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	summaries := s.store.List()
	writeSuccess(w, http.StatusOK, map[string]any{
		"profiles": summaries,
		"count":    len(summaries),
	})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var input profile.CreateInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := s.store.Create(input)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"profile": p})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.store.Load(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "profile not found: "+id)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"profile": p})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var partial map[string]any
	if err := decodeBody(r, &partial); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	p, err := s.store.Update(id, partial)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"profile": p})
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"deleted": id})
}

// applyRequest is the body for POST /api/context-profiles/{id}/apply.
type applyRequest struct {
	Prompt           string `json:"prompt"`
	Detailed         bool   `json:"detailed"`
	IncludeNegatives bool   `json:"includeNegatives"`
	Separator        string `json:"separator"`
	Advanced         bool   `json:"useAdvanced"`
	TargetModel      string `json:"targetModel"`
}

func (s *Server) handleApplyProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req applyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	result, err := s.enhancer.EnhanceWithContext(req.Prompt, id, enhance.EnhanceOptions{
		Compose: enhance.Options{
			Separator:        req.Separator,
			Detailed:         req.Detailed,
			IncludeNegatives: req.IncludeNegatives,
		},
		Advanced:    req.Advanced,
		TargetModel: req.TargetModel,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"enhancedPrompt": result.EnhancedPrompt,
		"originalPrompt": result.OriginalPrompt,
		"contextApplied": result.Applied,
		"profile":        result.Profile,
	})
}

func (s *Server) handleScoreProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	p, err := s.store.Load(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "profile not found: "+id)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"compatibility": enhance.Score(req.Prompt, p),
	})
}

func (s *Server) handleRecordSuccess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		Prompt   string `json:"prompt"`
		Quality  int    `json:"quality"`
		Feedback string `json:"feedback"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	if err := s.store.RecordSuccess(id, req.Prompt, req.Quality, req.Feedback); err != nil {
		writeStoreError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"recorded": true})
}
