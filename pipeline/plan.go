package pipeline

import (
	"fmt"
	"math"
	"strings"
)

// RuleBasedPlan synthesizes a deterministic day-by-day itinerary from an
// ordered POI list and per-day weather lines.
//
// POIs are consumed sequentially from a single cursor shared across days, so
// no POI ever repeats; once the list runs out, later days simply get fewer
// bullets. The per-day quota is ceil(len(pois)/days) clamped to [3,6], or 4
// when there are no POIs at all. The last weather line is reused for days
// beyond the forecast horizon.
func RuleBasedPlan(city string, days int, pois []string, weatherLines []string) string {
	if days < 1 {
		days = 1
	}

	perDay := 4
	if len(pois) > 0 {
		perDay = int(math.Ceil(float64(len(pois)) / float64(days)))
		if perDay < 3 {
			perDay = 3
		}
		if perDay > 6 {
			perDay = 6
		}
	}

	lines := []string{fmt.Sprintf("# Itinerary for %s", city), ""}
	idx := 0
	for d := 0; d < days; d++ {
		lines = append(lines, fmt.Sprintf("Day %d:", d+1))
		for n := 0; n < perDay && idx < len(pois); n++ {
			lines = append(lines, "- "+pois[idx])
			idx++
		}
		if len(weatherLines) > 0 {
			lines = append(lines, "- Weather: "+weatherLines[min(d, len(weatherLines)-1)])
		}
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}
