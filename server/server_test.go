package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarer-labs/concierge/calendar"
	"github.com/wayfarer-labs/concierge/llm"
	"github.com/wayfarer-labs/concierge/pipeline"
	"github.com/wayfarer-labs/concierge/prefstore"
	"github.com/wayfarer-labs/concierge/retrieval"
)

// =============================================================================
// Stubs
// =============================================================================

type stubLogger struct{}

func (stubLogger) Info(msg string, fields ...any)    {}
func (stubLogger) Debug(msg string, fields ...any)   {}
func (stubLogger) Warn(msg string, fields ...any)    {}
func (stubLogger) Error(msg string, fields ...any)   {}
func (l stubLogger) Bind(fields ...any) pipeline.Logger { return l }

type stubWeather struct{}

func (stubWeather) Brief(ctx context.Context, city, startDate, endDate string) (string, error) {
	return "Forecast:\n2025-05-01: 12-20C, rain 10%\n2025-05-02: 13-21C, rain 5%\n2025-05-03: 11-19C, rain 0%", nil
}

type stubCurrency struct{}

func (stubCurrency) Convert(ctx context.Context, amount float64, fromCcy, toCcy string) (float64, float64, error) {
	return amount, 1.0, nil
}

type stubPOIs struct{}

func (stubPOIs) ListNearby(ctx context.Context, city string, limit int) ([]string, error) {
	return []string{"Trastevere", "Campo de Fiori"}, nil
}

type stubIngestor struct {
	index *retrieval.Index
	err   error
}

func (s *stubIngestor) Run(ctx context.Context) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	chunks := []retrieval.Chunk{
		{Content: "## Colosseum\nRome's amphitheater.", Metadata: map[string]any{"city": "Rome"}},
		{Content: "## Pantheon\nRome's temple.", Metadata: map[string]any{"city": "Rome"}},
	}
	if err := s.index.Write(chunks); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// newTestServer wires a real runner over real storage in a temp dir, with
// stubbed network lookups and an unconfigured LLM client (so the rule-based
// plan is what comes back).
func newTestServer(t *testing.T) (*Server, *retrieval.Index) {
	t.Helper()
	dir := t.TempDir()

	ix := retrieval.NewIndex(filepath.Join(dir, "vectorstore"))
	ret := retrieval.NewRetriever(ix)

	runner, err := pipeline.NewRunner(pipeline.Deps{
		Retriever: ret,
		Weather:   stubWeather{},
		Currency:  stubCurrency{},
		POIs:      stubPOIs{},
		LLM:       llm.NewClient("", "", 0),
		Calendar:  calendar.NewExporter(filepath.Join(dir, "exports")),
		Prefs:     prefstore.NewStore(filepath.Join(dir, "prefs.json")),
		Logger:    stubLogger{},
	})
	require.NoError(t, err)

	return New(runner, &stubIngestor{index: ix}, ix, ret, stubLogger{}), ix
}

func populateIndex(t *testing.T, ix *retrieval.Index) {
	t.Helper()
	chunks := make([]retrieval.Chunk, 0, 10)
	for i := 0; i < 10; i++ {
		chunks = append(chunks, retrieval.Chunk{
			Content:  fmt.Sprintf("## Rome Spot %d\nA guide paragraph about Rome and art.", i),
			Metadata: map[string]any{"city": "Rome"},
		})
	}
	require.NoError(t, ix.Write(chunks))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// Health / Ingest
// =============================================================================

func TestHealth(t *testing.T) {
	srv, ix := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.False(t, resp.VectorstoreExists)

	populateIndex(t, ix)
	rec = doJSON(t, h, http.MethodGet, "/health", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.VectorstoreExists)
}

func TestIngestBuildsIndex(t *testing.T) {
	srv, ix := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/ingest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.True(t, ix.Exists())
}

func TestIngestFailure(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.ingestor = &stubIngestor{err: fmt.Errorf("all sources down")}

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/ingest", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "all sources down")
}

// =============================================================================
// Plan
// =============================================================================

func romeRequest() map[string]any {
	return map[string]any{
		"city":      "Rome",
		"startDate": "2025-05-01",
		"endDate":   "2025-05-03",
		"budget":    300,
		"currency":  "USD",
		"interests": []string{"art"},
		"pace":      "relaxed",
	}
}

func TestPlanMissingIndex(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/plan", romeRequest())
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "run POST /ingest first")
}

func TestPlanEndToEnd(t *testing.T) {
	srv, ix := newTestServer(t)
	populateIndex(t, ix)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/plan", romeRequest())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp planResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{8}$`), resp.TripID)
	assert.Equal(t, 3, strings.Count(resp.FinalizedPlan, "Day "))

	require.NotNil(t, resp.BudgetBreakdown.Days)
	assert.Equal(t, 3, *resp.BudgetBreakdown.Days)
	require.NotNil(t, resp.BudgetBreakdown.EstimatedPerDay)
	assert.Equal(t, 90, *resp.BudgetBreakdown.EstimatedPerDay)
	require.NotNil(t, resp.BudgetBreakdown.EstimatedTotal)
	assert.Equal(t, 270, *resp.BudgetBreakdown.EstimatedTotal)

	require.NotNil(t, resp.ICSPath)
	assert.True(t, strings.HasSuffix(*resp.ICSPath, "rome_2025-05-01.ics"))

	assert.NotEmpty(t, resp.Notes)
}

func TestPlanDefaults(t *testing.T) {
	srv, ix := newTestServer(t)
	populateIndex(t, ix)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/plan", map[string]any{
		"city":      "Rome",
		"startDate": "2025-05-01",
		"endDate":   "2025-05-01",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp planResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "USD", resp.BudgetBreakdown.Currency)
	assert.Equal(t, 1, *resp.BudgetBreakdown.Days)
}

func TestPlanValidation(t *testing.T) {
	srv, ix := newTestServer(t)
	populateIndex(t, ix)
	h := srv.Handler()

	tests := []struct {
		name   string
		body   map[string]any
		errHas string
	}{
		{"missing city", map[string]any{"startDate": "2025-05-01", "endDate": "2025-05-02"}, "city"},
		{"bad date", map[string]any{"city": "Rome", "startDate": "May 1", "endDate": "2025-05-02"}, "startDate"},
		{"reversed dates", map[string]any{"city": "Rome", "startDate": "2025-05-03", "endDate": "2025-05-01"}, "before"},
		{"bad pace", map[string]any{"city": "Rome", "startDate": "2025-05-01", "endDate": "2025-05-02", "pace": "frantic"}, "pace"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/plan", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.errHas)
		})
	}
}

func TestPlanMalformedBody(t *testing.T) {
	srv, ix := newTestServer(t)
	populateIndex(t, ix)

	req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestPlanPersistsPreferencesAcrossRequests(t *testing.T) {
	srv, ix := newTestServer(t)
	populateIndex(t, ix)
	h := srv.Handler()

	first := romeRequest()
	first["user"] = "ada"
	first["interests"] = []string{"food"}
	rec := doJSON(t, h, http.MethodPost, "/plan", first)
	require.Equal(t, http.StatusOK, rec.Code)

	second := romeRequest()
	second["user"] = "ada"
	second["interests"] = []string{"art"}
	rec = doJSON(t, h, http.MethodPost, "/plan", second)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp planResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// The stored "food" interest from the first trip is merged back in.
	assert.Contains(t, strings.Join(resp.Notes, "\n"), "Loaded user prefs")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
