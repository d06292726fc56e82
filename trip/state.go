// Package trip provides the TripState - the per-request planning record
// threaded through the pipeline.
package trip

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for trip dates.
const DateLayout = "2006-01-02"

// Pace settings accepted by the planner.
const (
	PaceRelaxed = "relaxed"
	PacePacked  = "packed"
)

// BudgetBreakdown holds the numeric facts each stage contributes.
//
// Fields are owned by the stage that writes them: the research stage sets the
// input echoes and fx rate, the budget stage sets the day count and estimates.
// Named fields instead of an open map keep the stages from colliding on keys.
type BudgetBreakdown struct {
	// Research stage
	BudgetInput *float64 `json:"budgetInput,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	FXRate      *float64 `json:"fxRate,omitempty"`

	// Budget stage
	Days            *int `json:"days,omitempty"`
	EstimatedTotal  *int `json:"estimatedTotal,omitempty"`
	EstimatedPerDay *int `json:"estimatedPerDay,omitempty"`
}

// TripState is the mutable record threaded through one pipeline run.
//
// One instance is created per planning request and passed by exclusive
// ownership through each stage. FinalizedPlan, TripID and ExportPath are
// unset until the finalize stage runs and are never mutated afterwards.
// WorkingNotes only grows during a run; Critiques is recomputed whenever
// the critic stage runs.
type TripState struct {
	// Identification
	RequestID string `json:"request_id"`
	User      string `json:"user"`

	// Request parameters
	City      string   `json:"city"`
	StartDate string   `json:"start_date"`
	EndDate   string   `json:"end_date"`
	Budget    float64  `json:"budget"`
	Currency  string   `json:"currency"`
	Interests []string `json:"interests"`
	Pace      string   `json:"pace"`

	// Working state
	WorkingNotes    []string        `json:"working_notes"`
	CandidatePlan   string          `json:"candidate_plan,omitempty"`
	BudgetBreakdown BudgetBreakdown `json:"budget_breakdown"`
	Critiques       []string        `json:"critiques"`

	// Set once by the finalize stage
	FinalizedPlan string `json:"finalized_plan,omitempty"`
	TripID        string `json:"trip_id,omitempty"`
	ExportPath    string `json:"export_path,omitempty"`

	ReceivedAt time.Time `json:"received_at"`
}

// New creates a TripState for a planning request with defaults applied.
func New(user, city, startDate, endDate string) *TripState {
	if user == "" {
		user = "demo"
	}
	return &TripState{
		RequestID:    "req_" + uuid.New().String()[:16],
		User:         user,
		City:         city,
		StartDate:    startDate,
		EndDate:      endDate,
		Currency:     "USD",
		Interests:    []string{},
		Pace:         PaceRelaxed,
		WorkingNotes: []string{},
		Critiques:    []string{},
		ReceivedAt:   time.Now().UTC(),
	}
}

// Validate checks the request parameters before the pipeline runs.
func (s *TripState) Validate() error {
	if s.City == "" {
		return fmt.Errorf("city is required")
	}
	start, err := time.Parse(DateLayout, s.StartDate)
	if err != nil {
		return fmt.Errorf("invalid startDate %q: expected YYYY-MM-DD", s.StartDate)
	}
	end, err := time.Parse(DateLayout, s.EndDate)
	if err != nil {
		return fmt.Errorf("invalid endDate %q: expected YYYY-MM-DD", s.EndDate)
	}
	if end.Before(start) {
		return fmt.Errorf("endDate %s is before startDate %s", s.EndDate, s.StartDate)
	}
	if s.Pace != PaceRelaxed && s.Pace != PacePacked {
		return fmt.Errorf("invalid pace %q: must be %q or %q", s.Pace, PaceRelaxed, PacePacked)
	}
	return nil
}

// Days returns the inclusive day count of the trip, clamped to a minimum of 1.
// Unparseable dates count as a single day; Validate catches them up front.
func (s *TripState) Days() int {
	return DayCount(s.StartDate, s.EndDate)
}

// AppendNote records a working note. Notes are append-only within a run and
// surfaced to the caller as an audit trail, so append order matters.
func (s *TripState) AppendNote(format string, args ...any) {
	s.WorkingNotes = append(s.WorkingNotes, fmt.Sprintf(format, args...))
}

// DayCount computes the inclusive number of days between two ISO dates,
// clamped to a minimum of 1.
func DayCount(startDate, endDate string) int {
	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return 1
	}
	end, err := time.Parse(DateLayout, endDate)
	if err != nil {
		return 1
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}
