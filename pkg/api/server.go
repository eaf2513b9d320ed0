package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolftrace/deaddrop/pkg/config"
	"github.com/wolftrace/deaddrop/pkg/engine"
	"github.com/wolftrace/deaddrop/pkg/log"
	"github.com/wolftrace/deaddrop/pkg/metrics"
)

// Server is the HTTP and WebSocket boundary in front of the engine
type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	router chi.Router
	http   *http.Server
}

// New builds the server and its route table
func New(cfg *config.Config, e *engine.Engine) *Server {
	s := &Server{cfg: cfg, engine: e}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestMetrics)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Officer-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Post("/report", s.handleSubmitReport)
		r.Get("/reports", s.handleListReports)

		r.Get("/cases", s.handleListCases)
		r.Get("/cases/{caseID}", s.handleGetCase)
		r.Post("/cases/{caseID}/evidence", s.handleAddEvidence)
		r.Post("/cases/{caseID}/edges", s.handleAddEdge)

		r.Delete("/nodes/{nodeID}", s.handleDeleteNode)

		r.Get("/alerts", s.handleListAlerts)
		r.Post("/alerts/draft", s.handleDraftAlert)
		r.Post("/alerts/{alertID}/approve", s.handleApproveAlert)
		r.Get("/alerts/{alertID}/audio", s.handleAlertAudio)

		r.Get("/audit", s.handleAudit)
		r.Get("/stats", s.handleStats)
		r.Post("/seed", s.handleSeed)

		r.Post("/upload", s.handleUpload)
	})

	r.Get("/uploads/{name}", s.handleServeUpload)

	r.Get("/ws/caseboard", s.handleCaseboardWS)
	r.Get("/ws/alerts", s.handleAlertsWS)

	r.Get("/health", metrics.HealthHandler())
	r.Get("/ready", metrics.ReadyHandler())
	r.Get("/live", metrics.LivenessHandler())
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler exposes the route table, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	if err := os.MkdirAll(s.cfg.Server.UploadDir, 0o755); err != nil {
		return err
	}
	s.http = &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	metrics.RegisterComponent("api", true, "")
	log.WithComponent("api").Info().Str("addr", s.cfg.Server.ListenAddr).Msg("HTTP server listening")

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	metrics.UpdateComponent("api", false, "shutting down")
	return s.http.Shutdown(ctx)
}

// actor names the requesting officer for the audit trail
func actor(r *http.Request) string {
	if id := r.Header.Get("X-Officer-ID"); id != "" {
		return id
	}
	return "officer"
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
