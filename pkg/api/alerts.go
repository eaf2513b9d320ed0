package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type draftAlertRequest struct {
	CaseID string `json:"case_id"`
	Notes  string `json:"notes,omitempty"`
}

func (s *Server) handleDraftAlert(w http.ResponseWriter, r *http.Request) {
	var req draftAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CaseID == "" {
		respondError(w, http.StatusBadRequest, "case_id is required")
		return
	}
	alert, err := s.engine.Alerts.Draft(r.Context(), req.CaseID, req.Notes, actor(r))
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, alert)
}

type approveAlertRequest struct {
	Text string `json:"text,omitempty"`
}

func (s *Server) handleApproveAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")

	var req approveAlertRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid approval payload")
			return
		}
	}
	alert, err := s.engine.Alerts.Approve(r.Context(), alertID, req.Text, actor(r))
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.engine.Alerts.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleAlertAudio(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")
	audio, err := s.engine.Alerts.Audio(alertID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if audio == nil {
		respondError(w, http.StatusNotFound, "no audio for this alert")
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}
