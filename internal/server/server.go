// Package server provides the HTTP REST API for the outreach engine.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/orchestrator"
	"github.com/jonathan/outreach-agent/internal/store"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	store      store.Store
	engine     *orchestrator.Engine
	log        *zap.Logger
}

// Config holds server configuration
type Config struct {
	Addr string
}

// New creates a new server instance over an already-wired store and engine.
func New(cfg Config, st store.Store, engine *orchestrator.Engine, log *zap.Logger) *Server {
	s := &Server{
		store:  st,
		engine: engine,
		log:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Campaign endpoints
	mux.HandleFunc("POST /campaigns", s.handleCreateCampaign)
	mux.HandleFunc("GET /campaigns", s.handleListCampaigns)
	mux.HandleFunc("GET /campaigns/{id}", s.handleGetCampaign)
	mux.HandleFunc("POST /campaigns/{id}/activate", s.handleActivateCampaign)
	mux.HandleFunc("POST /campaigns/{id}/pause", s.handlePauseCampaign)
	mux.HandleFunc("GET /campaigns/{id}/pipeline", s.handleGetPipeline)
	mux.HandleFunc("POST /campaigns/{id}/pipeline", s.handleUpdatePipeline)

	// Candidate endpoints
	mux.HandleFunc("POST /campaigns/{id}/candidates", s.handleEnrollCandidate)
	mux.HandleFunc("GET /campaigns/{id}/candidates", s.handleListCandidates)
	mux.HandleFunc("GET /campaigns/{id}/candidates/{candidate_id}", s.handleGetCandidate)
	mux.HandleFunc("POST /campaigns/{id}/candidates/{candidate_id}/withdraw", s.handleWithdrawCandidate)
	mux.HandleFunc("POST /campaigns/{id}/candidates/{candidate_id}/reset", s.handleResetCandidate)

	// Approval endpoints
	mux.HandleFunc("GET /campaigns/{id}/approvals", s.handleListApprovals)
	mux.HandleFunc("GET /campaigns/{id}/approvals/stats", s.handleApprovalStats)
	mux.HandleFunc("POST /approvals/{id}/decide", s.handleDecideApproval)

	// Audit trail
	mux.HandleFunc("GET /campaigns/{id}/actions", s.handleListActions)

	// Scoring
	mux.HandleFunc("POST /score", s.handleScore)
	mux.HandleFunc("POST /campaigns/{id}/score", s.handleScoreAgainstCampaign)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the configured routing stack, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until SIGINT/SIGTERM, then
// shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("failed to encode JSON response", zap.Error(err))
	}
}

// decodeJSON decodes a JSON request body into dst, rejecting unknown fields.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errorFor maps an error to its HTTP status and writes the response.
func (s *Server) errorFor(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.errorResponse(w, status, err.Error())
}
