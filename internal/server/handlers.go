package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type rankRequest struct {
	// Text is the assessment body; S/O lines may already be folded in.
	Text string `json:"text"`
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	s.logger.Debug("rank request", zap.Int("text_len", len(req.Text)))
	res, err := s.pipeline.RunText(r.Context(), req.Text)
	if err != nil {
		s.logger.Error("ranking failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"meta":       res.Record.Meta,
		"report":     res.Text,
		"candidates": res.Visible,
	})
}

func (s *Server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	record, err := s.pipeline.LoadRecord()
	if err != nil {
		s.logger.Error("loading run record failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if record.Meta.RunID == "" {
		s.respondError(w, http.StatusNotFound, "no run record yet")
		return
	}
	s.respondJSON(w, http.StatusOK, record)
}

type reviewRequest struct {
	// Selection is the checked-off text, one "- [x] CODE\tLABEL" per line.
	Selection string `json:"selection"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	final, err := s.pipeline.Review(req.Selection)
	if err != nil {
		s.logger.Error("review failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"final": final})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	record, err := s.pipeline.LoadRecord()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{
		"last_run_id": record.Meta.RunID,
		"candidates":  len(record.Candidates),
	}
	if !record.Meta.GeneratedAt.IsZero() {
		resp["generated_at"] = record.Meta.GeneratedAt
		resp["classifier_reachable"] = record.Meta.ClassifierReachable
		resp["model"] = record.Meta.Model
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
