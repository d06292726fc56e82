// Package pipeline implements the trip-planning orchestration core.
//
// Each planning request threads one trip.TripState through a fixed stage
// sequence: research -> draft -> budget -> critic -> {revise | finalize}.
// The critic edge is the only conditional one: revise runs when the critic
// found issues, otherwise control goes straight to finalize. The pipeline is
// a strict single pass; no stage is ever revisited within a run.
//
// All external collaborators (retrieval, weather, currency, POIs, the
// language model, calendar export, the preference store) are injected at
// construction. The Runner owns no clients and no global state.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wayfarer-labs/concierge/observability"
	"github.com/wayfarer-labs/concierge/retrieval"
	"github.com/wayfarer-labs/concierge/trip"
)

const tracerName = "concierge/pipeline"

// =============================================================================
// Stages
// =============================================================================

// Stage identifies one step of the planning pipeline.
type Stage string

const (
	StageResearch Stage = "research"
	StageDraft    Stage = "draft"
	StageBudget   Stage = "budget"
	StageCritic   Stage = "critic"
	StageRevise   Stage = "revise"
	StageFinalize Stage = "finalize"
	StageDone     Stage = "done"
)

// nextStage is the routing function: current stage plus the critic's output
// determine the next stage. Pure; the Run loop is the only caller.
func nextStage(current Stage, critiques []string) Stage {
	switch current {
	case StageResearch:
		return StageDraft
	case StageDraft:
		return StageBudget
	case StageBudget:
		return StageCritic
	case StageCritic:
		if len(critiques) > 0 {
			return StageRevise
		}
		return StageFinalize
	case StageRevise:
		return StageFinalize
	default:
		return StageDone
	}
}

// =============================================================================
// Collaborator Contracts
// =============================================================================

// Logger is the structured logging interface used by the runner.
type Logger interface {
	Info(msg string, fields ...any)
	Debug(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Bind(fields ...any) Logger
}

// Retriever answers ranked-snippet queries over the knowledge index.
type Retriever interface {
	Search(ctx context.Context, city string, interests []string, k int) ([]retrieval.Chunk, error)
}

// WeatherService produces a per-day forecast brief for a city and date range.
type WeatherService interface {
	Brief(ctx context.Context, city, startDate, endDate string) (string, error)
}

// CurrencyService converts an amount between currencies. Identity conversions
// return the amount unchanged with rate 1.0.
type CurrencyService interface {
	Convert(ctx context.Context, amount float64, fromCcy, toCcy string) (converted float64, rate float64, err error)
}

// POIService lists points of interest near a city. Best-effort only; callers
// treat any failure as an empty list.
type POIService interface {
	ListNearby(ctx context.Context, city string, limit int) ([]string, error)
}

// Completer generates text from a system and user instruction pair.
type Completer interface {
	Complete(ctx context.Context, systemInstruction, userInstruction string) (string, error)
}

// CalendarExporter writes a finalized plan as a calendar file and returns
// the written path.
type CalendarExporter interface {
	Export(planText, city, startDate string, days int) (string, error)
}

// PreferenceStore reads and merges per-user preference mappings.
type PreferenceStore interface {
	Get(user string) map[string]any
	Upsert(user string, prefs map[string]any) error
}

// =============================================================================
// Runner
// =============================================================================

// Deps bundles the collaborators a Runner needs. All fields are required.
type Deps struct {
	Retriever Retriever
	Weather   WeatherService
	Currency  CurrencyService
	POIs      POIService
	LLM       Completer
	Calendar  CalendarExporter
	Prefs     PreferenceStore
	Logger    Logger
}

// Runner executes the planning pipeline.
type Runner struct {
	deps Deps
}

// NewRunner creates a Runner, rejecting missing collaborators up front so a
// miswired process fails at startup rather than mid-request.
func NewRunner(deps Deps) (*Runner, error) {
	switch {
	case deps.Retriever == nil:
		return nil, fmt.Errorf("pipeline: retriever is required")
	case deps.Weather == nil:
		return nil, fmt.Errorf("pipeline: weather service is required")
	case deps.Currency == nil:
		return nil, fmt.Errorf("pipeline: currency service is required")
	case deps.POIs == nil:
		return nil, fmt.Errorf("pipeline: poi service is required")
	case deps.LLM == nil:
		return nil, fmt.Errorf("pipeline: llm completer is required")
	case deps.Calendar == nil:
		return nil, fmt.Errorf("pipeline: calendar exporter is required")
	case deps.Prefs == nil:
		return nil, fmt.Errorf("pipeline: preference store is required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("pipeline: logger is required")
	}
	return &Runner{deps: deps}, nil
}

// Run executes all stages over the given state. The state is mutated in
// place; on success FinalizedPlan, TripID and (best-effort) ExportPath are
// set. An error means a required stage could not complete and the state
// should be discarded.
func (r *Runner) Run(ctx context.Context, state *trip.TripState) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", state.RequestID),
		attribute.String("city", state.City),
	)

	log := r.deps.Logger.Bind("request_id", state.RequestID, "city", state.City)
	log.Info("pipeline_started",
		"user", state.User,
		"start_date", state.StartDate,
		"end_date", state.EndDate,
		"pace", state.Pace,
	)

	start := time.Now()
	for stage := StageResearch; stage != StageDone; stage = nextStage(stage, state.Critiques) {
		stageStart := time.Now()
		err := r.runStage(ctx, stage, state)
		stageMS := int(time.Since(stageStart).Milliseconds())

		if err != nil {
			observability.RecordStageExecution(string(stage), "error", stageMS)
			observability.RecordPipelineExecution("error", int(time.Since(start).Milliseconds()))
			log.Error("stage_failed", "stage", string(stage), "error", err.Error())
			return fmt.Errorf("stage %s: %w", stage, err)
		}

		observability.RecordStageExecution(string(stage), "success", stageMS)
		log.Debug("stage_completed", "stage", string(stage), "duration_ms", stageMS)
	}

	totalMS := int(time.Since(start).Milliseconds())
	observability.RecordPipelineExecution("success", totalMS)
	log.Info("pipeline_completed",
		"trip_id", state.TripID,
		"critique_count", len(state.Critiques),
		"duration_ms", totalMS,
	)
	return nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, state *trip.TripState) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "stage."+string(stage))
	defer span.End()

	switch stage {
	case StageResearch:
		return r.research(ctx, state)
	case StageDraft:
		r.draft(ctx, state)
		return nil
	case StageBudget:
		r.budget(state)
		return nil
	case StageCritic:
		state.Critiques = Critique(state.CandidatePlan)
		return nil
	case StageRevise:
		state.CandidatePlan = Revise(state.CandidatePlan, state.Critiques)
		return nil
	case StageFinalize:
		return r.finalize(ctx, state)
	default:
		return fmt.Errorf("unknown stage: %s", stage)
	}
}
