// Package calendar exports finalized itineraries as ICS calendar files.
package calendar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
)

// DefaultExportDir is where calendar files land unless configured otherwise.
const DefaultExportDir = "exports"

const (
	eventStartHour = 9
	eventDuration  = 8 * time.Hour
)

// Exporter writes one ICS file per finalized plan.
type Exporter struct {
	dir string
}

// NewExporter creates an Exporter writing into dir.
func NewExporter(dir string) *Exporter {
	if dir == "" {
		dir = DefaultExportDir
	}
	return &Exporter{dir: dir}
}

// Export splits the plan text into day blocks on "Day N:" headings and writes
// one calendar event per block: 9am start, 8 hours long, one day apart.
// Returns the path of the written file.
func (e *Exporter) Export(planText, city, startDate string, days int) (string, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return "", fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	blocks := SplitDayBlocks(planText)
	if len(blocks) > days {
		blocks = blocks[:days]
	}

	slug := strings.ReplaceAll(strings.ToLower(city), " ", "_")

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//concierge//travel planner//EN")

	for i, block := range blocks {
		begin := start.AddDate(0, 0, i).Add(eventStartHour * time.Hour)

		event := cal.AddEvent(fmt.Sprintf("%s-day-%d@concierge", slug, i+1))
		event.SetCreatedTime(time.Now().UTC())
		event.SetStartAt(begin)
		event.SetEndAt(begin.Add(eventDuration))
		event.SetSummary(fmt.Sprintf("%s — Day %d", city, i+1))
		event.SetDescription(block)
	}

	path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.ics", slug, startDate))
	if err := os.WriteFile(path, []byte(cal.Serialize()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write calendar file: %w", err)
	}
	return path, nil
}

// SplitDayBlocks groups plan lines into blocks, starting a new block at each
// line that begins (case-insensitively) with "day " and contains a colon.
// Lines before the first heading (titles, preamble) are not day blocks and
// are dropped.
func SplitDayBlocks(planText string) []string {
	var blocks []string
	var current []string
	inBlock := false

	for _, line := range strings.Split(planText, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "day ") && strings.Contains(trimmed, ":") {
			if inBlock {
				blocks = append(blocks, strings.Join(current, "\n"))
			}
			current = []string{line}
			inBlock = true
			continue
		}
		if inBlock {
			current = append(current, line)
		}
	}
	if inBlock {
		blocks = append(blocks, strings.Join(current, "\n"))
	}
	return blocks
}
