package pipeline

import (
	"strings"

	"github.com/wayfarer-labs/concierge/trip"
)

// overpackedThreshold is the maximum bullet count a day block may carry
// before the critic flags it.
const overpackedThreshold = 8

const critiqueOverpacked = "Some days are overpacked (>8 items)."

// Per-day cost heuristics by pace.
const (
	perDayCostRelaxed = 90
	perDayCostPacked  = 120
)

// EstimateBudget returns the per-day and total cost estimate for a trip.
func EstimateBudget(days int, pace string) (perDay, total int) {
	perDay = perDayCostRelaxed
	if pace == trip.PacePacked {
		perDay = perDayCostPacked
	}
	return perDay, perDay * days
}

// Critique inspects a candidate plan and returns one issue per day block
// whose bullet count exceeds the threshold. An empty result means the plan
// passed review. Blocks are separated by blank lines; only blocks whose
// first line starts with "day " (case-insensitive) are day blocks.
func Critique(plan string) []string {
	issues := []string{}
	for _, block := range strings.Split(plan, "\n\n") {
		if !isDayBlock(block) {
			continue
		}
		if len(bulletLines(block)) > overpackedThreshold {
			issues = append(issues, critiqueOverpacked)
		}
	}
	return issues
}

// Revise trims each overpacked day block by exactly one bullet: the heading
// and all but the last bullet survive. This is a single pass, not iterated
// to convergence, so a day more than one bullet over the threshold stays
// flagged after revision. Bounded correction is the intended behavior.
func Revise(plan string, critiques []string) string {
	if len(critiques) == 0 {
		return plan
	}

	blocks := strings.Split(plan, "\n\n")
	out := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if !isDayBlock(block) {
			out = append(out, block)
			continue
		}
		items := bulletLines(block)
		if len(items) <= overpackedThreshold {
			out = append(out, block)
			continue
		}
		heading, _, _ := strings.Cut(block, "\n")
		trimmed := append([]string{heading}, items[:len(items)-1]...)
		out = append(out, strings.Join(trimmed, "\n"))
	}
	return strings.Join(out, "\n\n")
}

func isDayBlock(block string) bool {
	return strings.HasPrefix(strings.ToLower(block), "day ")
}

func bulletLines(block string) []string {
	var items []string
	for _, l := range strings.Split(block, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "- ") {
			items = append(items, l)
		}
	}
	return items
}
