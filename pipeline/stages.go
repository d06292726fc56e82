package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/wayfarer-labs/concierge/retrieval"
	"github.com/wayfarer-labs/concierge/trip"
	"github.com/wayfarer-labs/concierge/typeutil"
)

const (
	retrievalK       = 10
	maxSnippetLabels = 12
	auxPOILimit      = 10
)

const draftSystemInstruction = "You are a travel planner. Produce concise, feasible day-by-day itineraries."

// research gathers everything the planner needs: stored preferences, guide
// snippets, the weather brief, auxiliary POIs and the FX rate, then seeds the
// candidate plan with the rule-based itinerary. Lookup failures other than
// retrieval degrade to working notes; retrieval failure aborts the run since
// there is nothing to plan from.
func (r *Runner) research(ctx context.Context, s *trip.TripState) error {
	prefs := r.deps.Prefs.Get(s.User)
	if len(prefs) > 0 {
		s.AppendNote("Loaded user prefs: %v", prefs)
		if stored, ok := typeutil.SafeStringSlice(prefs["interests"]); ok && len(stored) > 0 {
			s.Interests = lo.Union(s.Interests, stored)
		}
	}

	chunks, err := r.deps.Retriever.Search(ctx, s.City, s.Interests, retrievalK)
	if err != nil {
		return fmt.Errorf("retrieval search failed: %w", err)
	}
	labels := snippetLabels(chunks, maxSnippetLabels)

	var weatherLines []string
	brief, err := r.deps.Weather.Brief(ctx, s.City, s.StartDate, s.EndDate)
	if err != nil {
		s.AppendNote("weather lookup failed: %v; continuing without forecast", err)
	} else {
		weatherLines = briefLines(brief)
	}

	s.AppendNote("RAG results gathered")
	s.AppendNote("POI candidates: %s", strings.Join(headOf(labels, 10), ", "))

	aux, err := r.deps.POIs.ListNearby(ctx, s.City, auxPOILimit)
	if err != nil {
		s.AppendNote("poi lookup failed: %v; continuing without nearby places", err)
		aux = nil
	}

	// Retrieval-derived labels first, then auxiliary POIs not already listed.
	poiList := lo.Compact(labels)
	for _, p := range aux {
		if p != "" && !lo.Contains(poiList, p) {
			poiList = append(poiList, p)
		}
	}

	s.BudgetBreakdown.BudgetInput = &s.Budget
	s.BudgetBreakdown.Currency = s.Currency
	_, rate, fxErr := r.deps.Currency.Convert(ctx, s.Budget, s.Currency, s.Currency)
	if fxErr != nil {
		s.AppendNote("fx lookup failed: %v", fxErr)
	} else {
		s.BudgetBreakdown.FXRate = &rate
	}

	s.AppendNote("Weather lines: %s", strings.Join(headOf(weatherLines, 3), " | "))
	s.AppendNote("Total POIs considered: %d", len(poiList))
	if fxErr == nil {
		s.AppendNote("FX rate: %g", rate)
	}
	s.AppendNote("Budget (input): %g %s", s.Budget, s.Currency)

	s.CandidatePlan = RuleBasedPlan(s.City, s.Days(), poiList, weatherLines)
	return nil
}

// draft asks the language model to rewrite the rule-based plan. Failure is
// absorbed into a working note; the rule-based plan survives as the fallback.
func (r *Runner) draft(ctx context.Context, s *trip.TripState) {
	userInstruction := fmt.Sprintf(
		"City: %s\nDates: %s to %s\nPace: %s\nInterests: %s\nDraft based on notes:\n%s",
		s.City, s.StartDate, s.EndDate, s.Pace,
		strings.Join(s.Interests, ", "), s.CandidatePlan,
	)

	text, err := r.deps.LLM.Complete(ctx, draftSystemInstruction, userInstruction)
	if err != nil {
		s.AppendNote("llm draft failed: %v; using rule-based plan.", err)
		return
	}
	s.CandidatePlan = text
}

// budget records the day count and cost estimate into the breakdown. Fields
// set by the research stage are left untouched.
func (r *Runner) budget(s *trip.TripState) {
	days := s.Days()
	perDay, total := EstimateBudget(days, s.Pace)
	s.BudgetBreakdown.Days = &days
	s.BudgetBreakdown.EstimatedTotal = &total
	s.BudgetBreakdown.EstimatedPerDay = &perDay
}

// finalize freezes the plan, assigns the trip id, exports the calendar file
// and persists the user's interests and pace. The preference write happens
// unconditionally on reaching this stage.
func (r *Runner) finalize(ctx context.Context, s *trip.TripState) error {
	s.FinalizedPlan = s.CandidatePlan
	s.TripID = uuid.New().String()[:8]

	path, err := r.deps.Calendar.Export(s.FinalizedPlan, s.City, s.StartDate, s.Days())
	if err != nil {
		s.AppendNote("calendar export failed: %v", err)
	} else {
		s.ExportPath = path
	}

	if err := r.deps.Prefs.Upsert(s.User, map[string]any{
		"interests": s.Interests,
		"pace":      s.Pace,
	}); err != nil {
		r.deps.Logger.Warn("prefs_upsert_failed", "user", s.User, "error", err.Error())
	}
	return nil
}

// snippetLabels extracts the first line of each snippet as a POI candidate
// label, stripping markdown heading markers.
func snippetLabels(chunks []retrieval.Chunk, limit int) []string {
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	labels := make([]string, 0, len(chunks))
	for _, c := range chunks {
		line, _, _ := strings.Cut(c.Content, "\n")
		labels = append(labels, strings.TrimSpace(strings.ReplaceAll(line, "#", "")))
	}
	return labels
}

// briefLines splits a forecast brief into per-day lines. The first line is
// always a header, either "Forecast:" or the no-data sentinel, so an empty
// forecast yields no lines.
func briefLines(brief string) []string {
	lines := strings.Split(brief, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func headOf(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
