// Package server exposes the HTTP surface of the planning service: health,
// ingestion, planning and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wayfarer-labs/concierge/trip"
)

// Logger is the structured logging interface used by handlers.
type Logger interface {
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// PlanRunner executes the planning pipeline over a trip state.
type PlanRunner interface {
	Run(ctx context.Context, state *trip.TripState) error
}

// IngestRunner rebuilds the retrieval index and reports how many chunks it
// wrote.
type IngestRunner interface {
	Run(ctx context.Context) (int, error)
}

// IndexStat reports whether the retrieval index has been built.
type IndexStat interface {
	Exists() bool
}

// CacheInvalidator drops cached index state after an ingest run.
type CacheInvalidator interface {
	Invalidate()
}

// Server holds the handler dependencies.
type Server struct {
	runner   PlanRunner
	ingestor IngestRunner
	index    IndexStat
	cache    CacheInvalidator
	logger   Logger
}

// New creates a Server.
func New(runner PlanRunner, ingestor IngestRunner, index IndexStat, cache CacheInvalidator, logger Logger) *Server {
	return &Server{
		runner:   runner,
		ingestor: ingestor,
		index:    index,
		cache:    cache,
		logger:   logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /ingest", s.handleIngest)
	mux.HandleFunc("POST /plan", s.handlePlan)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// =============================================================================
// Request / Response Shapes
// =============================================================================

type planRequest struct {
	User      string   `json:"user"`
	City      string   `json:"city"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Budget    float64  `json:"budget"`
	Currency  string   `json:"currency"`
	Interests []string `json:"interests"`
	Pace      string   `json:"pace"`
}

type planResponse struct {
	TripID          string               `json:"tripId"`
	FinalizedPlan   string               `json:"finalizedPlan"`
	BudgetBreakdown trip.BudgetBreakdown `json:"budgetBreakdown"`
	ICSPath         *string              `json:"icsPath"`
	Notes           []string             `json:"notes"`
}

type healthResponse struct {
	OK                bool `json:"ok"`
	VectorstoreExists bool `json:"vectorstoreExists"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		OK:                true,
		VectorstoreExists: s.index.Exists(),
	})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	count, err := s.ingestor.Run(r.Context())
	if err != nil {
		s.logger.Error("ingest_failed", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	s.cache.Invalidate()
	s.logger.Info("ingest_completed", "chunks", count)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	// Precondition check before any stage runs.
	if !s.index.Exists() {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error: "retrieval index not found; run POST /ingest first",
		})
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	state := trip.New(req.User, req.City, req.StartDate, req.EndDate)
	state.Budget = req.Budget
	if req.Currency != "" {
		state.Currency = strings.ToUpper(req.Currency)
	}
	if len(req.Interests) > 0 {
		state.Interests = req.Interests
	}
	if req.Pace != "" {
		state.Pace = req.Pace
	}

	if err := state.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if err := s.runner.Run(r.Context(), state); err != nil {
		s.logger.Error("plan_failed", "request_id", state.RequestID, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "planning failed: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, buildPlanResponse(state))
}

// buildPlanResponse normalizes the pipeline output defensively: notes are
// never null and the ics path is null rather than empty when export failed.
func buildPlanResponse(state *trip.TripState) planResponse {
	resp := planResponse{
		TripID:          state.TripID,
		FinalizedPlan:   state.FinalizedPlan,
		BudgetBreakdown: state.BudgetBreakdown,
		Notes:           state.WorkingNotes,
	}
	if resp.Notes == nil {
		resp.Notes = []string{}
	}
	if state.ExportPath != "" {
		resp.ICSPath = &state.ExportPath
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
