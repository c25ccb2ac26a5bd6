package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// maxAskBodyBytes bounds the /api/ask request body.
const maxAskBodyBytes = 1 << 16 // 64 KiB

// askRequest is the POST /api/ask body.
type askRequest struct {
	Question string `json:"question"`
}

// handleAsk answers one question from the knowledge base.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeError(w, s.logger, http.StatusUnsupportedMediaType, "expected application/json")
		return
	}

	var req askRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAskBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, s.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, s.logger, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.service.Ask(r.Context(), req.Question)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			// Client went away; no response will be read.
			s.logger.Debug("ask cancelled", "error", err)
			return
		}
		s.logger.Error("ask failed", "error", err)
		writeError(w, s.logger, http.StatusBadGateway, "failed to answer question")
		return
	}

	writeJSON(w, s.logger, http.StatusOK, answer)
}

// handleStats reports knowledge base size and per-source chunk counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", "error", err)
		writeError(w, s.logger, http.StatusInternalServerError, "failed to read stats")
		return
	}
	writeJSON(w, s.logger, http.StatusOK, stats)
}
