package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolftrace/deaddrop/pkg/engine"
	"github.com/wolftrace/deaddrop/pkg/events"
	"github.com/wolftrace/deaddrop/pkg/seed"
	"github.com/wolftrace/deaddrop/pkg/types"
)

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var sub engine.ReportSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, http.StatusBadRequest, "invalid report payload")
		return
	}
	report, err := s.engine.SubmitReport(sub)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports := s.engine.Store.AllReports()
	respondJSON(w, http.StatusOK, map[string]any{"reports": reports, "count": len(reports)})
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"cases": s.engine.Store.AllCases()})
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	snap := s.engine.Store.CaseSnapshot(caseID)
	if snap == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("case %s not found", caseID))
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// handleAddEvidence attaches a new report to an existing case
func (s *Server) handleAddEvidence(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")
	if s.engine.Store.CaseSnapshot(caseID) == nil {
		respondError(w, http.StatusNotFound, fmt.Sprintf("case %s not found", caseID))
		return
	}

	var sub engine.ReportSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, http.StatusBadRequest, "invalid report payload")
		return
	}
	sub.CaseID = caseID
	report, err := s.engine.SubmitReport(sub)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, report)
}

type addEdgeRequest struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Type     string `json:"type"`
}

// officer edge vocabulary to graph edge kinds
var edgeKindByType = map[string]types.EdgeKind{
	"supports":    types.EdgeKindSimilarTo,
	"contradicts": types.EdgeKindDebunkedBy,
	"related":     types.EdgeKindSimilarTo,
}

func (s *Server) handleAddEdge(w http.ResponseWriter, r *http.Request) {
	caseID := chi.URLParam(r, "caseID")

	var req addEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid edge payload")
		return
	}
	kind, ok := edgeKindByType[req.Type]
	if !ok {
		// Direct kinds are accepted too, for tooling.
		switch k := types.EdgeKind(req.Type); k {
		case types.EdgeKindSimilarTo, types.EdgeKindRepostOf, types.EdgeKindMutationOf,
			types.EdgeKindDebunkedBy, types.EdgeKindAmplifiedBy:
			kind = k
		default:
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown edge type %q", req.Type))
			return
		}
	}

	edge, err := s.engine.Store.AddEdge(kind, req.SourceID, req.TargetID, map[string]any{
		"officer_created": true,
		"officer":         actor(r),
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if edge.CaseID != caseID {
		// The edge already exists at this point; report where it went.
		respondJSON(w, http.StatusCreated, edge)
		return
	}

	s.engine.Bus.Emit(events.TopicEdgeCreated, map[string]any{
		"edge_id": edge.ID,
		"case_id": edge.CaseID,
		"kind":    string(edge.Kind),
	})
	respondJSON(w, http.StatusCreated, edge)
}

func (s *Server) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	deleted, err := s.engine.Store.DeleteNode(nodeID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"deleted_node": nodeID, "deleted_edges": deleted})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Store.Stats())
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.engine.Archive == nil {
		respondError(w, http.StatusServiceUnavailable, "archive not configured")
		return
	}
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, err := s.engine.Archive.RecentAudit(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	n, err := seed.Load(s.engine)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cases_created": n})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.Server.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	name := uuid.New().String() + sanitizeExt(header.Filename)
	path := filepath.Join(s.cfg.Server.UploadDir, name)
	dst, err := os.Create(path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"url":      "/uploads/" + name,
		"filename": header.Filename,
	})
}

func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	// The stored names are uuid+ext; anything else is a traversal probe.
	if name != filepath.Base(name) || strings.Contains(name, "..") {
		respondError(w, http.StatusBadRequest, "invalid name")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.Server.UploadDir, name))
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".mp4", ".mov", ".webm", ".mp3", ".wav":
		return ext
	}
	return ""
}
