package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/LiorLearning/social-story/internal/prefs"
	"github.com/LiorLearning/social-story/internal/story"
)

// handleGetPrefs serves GET /prefs/{reader}. Readers who never saved any
// preferences get the defaults.
func (s *Server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Prefs.Get(r.Context(), r.PathValue("reader"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading preferences failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePutPrefs serves PUT /prefs/{reader}.
func (s *Server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	var p prefs.Prefs
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid preferences body")
		return
	}

	if err := s.deps.Prefs.Put(r.Context(), r.PathValue("reader"), p); err != nil {
		if prefs.Validate(p) != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "saving preferences failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleListProgress serves GET /progress/{reader}.
func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.Progress == nil {
		writeError(w, http.StatusNotFound, "progress tracking is not configured")
		return
	}

	records, err := s.deps.Progress.ListForReader(r.Context(), r.PathValue("reader"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading progress failed")
		return
	}
	if records == nil {
		records = []story.Progress{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleGetProgress serves GET /progress/{reader}/{story}.
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	if s.deps.Progress == nil {
		writeError(w, http.StatusNotFound, "progress tracking is not configured")
		return
	}

	p, err := s.deps.Progress.Get(r.Context(), r.PathValue("reader"), r.PathValue("story"))
	if errors.Is(err, story.ErrNoProgress) {
		writeError(w, http.StatusNotFound, "no saved progress")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "loading progress failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleListVoices serves GET /voices.
func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	if s.deps.Voices == nil {
		writeError(w, http.StatusServiceUnavailable, "narration is not configured")
		return
	}

	voices, err := s.deps.Voices.ListVoices(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "listing voices failed")
		return
	}
	writeJSON(w, http.StatusOK, voices)
}
