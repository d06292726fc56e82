package trip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	s := New("", "Rome", "2025-05-01", "2025-05-03")

	assert.Equal(t, "demo", s.User)
	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, PaceRelaxed, s.Pace)
	assert.Empty(t, s.Interests)
	assert.Empty(t, s.WorkingNotes)
	assert.Empty(t, s.Critiques)
	assert.NotEmpty(t, s.RequestID)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TripState)
		wantErr string
	}{
		{"valid", func(s *TripState) {}, ""},
		{"missing city", func(s *TripState) { s.City = "" }, "city is required"},
		{"bad start date", func(s *TripState) { s.StartDate = "05/01/2025" }, "invalid startDate"},
		{"bad end date", func(s *TripState) { s.EndDate = "soon" }, "invalid endDate"},
		{"end before start", func(s *TripState) { s.EndDate = "2025-04-30" }, "before startDate"},
		{"bad pace", func(s *TripState) { s.Pace = "frantic" }, "invalid pace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("demo", "Rome", "2025-05-01", "2025-05-03")
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestDayCount(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"2025-05-01", "2025-05-03", 3},
		{"2025-05-01", "2025-05-01", 1},
		{"2025-05-03", "2025-05-01", 1}, // clamped
		{"2025-12-30", "2026-01-02", 4}, // crosses year boundary
		{"garbage", "2025-05-01", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DayCount(tt.start, tt.end), "%s..%s", tt.start, tt.end)
	}
}

func TestAppendNoteOrder(t *testing.T) {
	s := New("demo", "Rome", "2025-05-01", "2025-05-03")
	s.AppendNote("first")
	s.AppendNote("second: %d", 2)

	require.Len(t, s.WorkingNotes, 2)
	assert.Equal(t, "first", s.WorkingNotes[0])
	assert.Equal(t, "second: 2", s.WorkingNotes[1])
}
