package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wayfarer-labs/concierge/observability"
)

// DefaultForecastURL is the Open-Meteo forecast endpoint.
const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

// briefMaxLines caps the forecast brief to keep plans readable.
const briefMaxLines = 5

// Forecast is the subset of the Open-Meteo daily response the planner uses.
type Forecast struct {
	Daily struct {
		Time                        []string  `json:"time"`
		TemperatureMax              []float64 `json:"temperature_2m_max"`
		TemperatureMin              []float64 `json:"temperature_2m_min"`
		PrecipitationProbabilityMax []float64 `json:"precipitation_probability_max"`
		PrecipitationSum            []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// WeatherClient fetches daily forecasts from Open-Meteo.
type WeatherClient struct {
	geocoder *Geocoder
	client   *http.Client
	baseURL  string
}

// NewWeatherClient creates a WeatherClient.
func NewWeatherClient(geocoder *Geocoder, client *http.Client, baseURL string) *WeatherClient {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	return &WeatherClient{geocoder: geocoder, client: client, baseURL: baseURL}
}

// GetForecast fetches the daily forecast for a city between two ISO dates.
// It first asks for precipitation probability; some deployments only support
// precipitation sums, so an HTTP 4xx triggers one retry with that field.
func (w *WeatherClient) GetForecast(ctx context.Context, city, startDate, endDate string) (*Forecast, error) {
	start := time.Now()
	forecast, err := w.getForecast(ctx, city, startDate, endDate)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordLookupCall("weather", status, int(time.Since(start).Milliseconds()))
	return forecast, err
}

func (w *WeatherClient) getForecast(ctx context.Context, city, startDate, endDate string) (*Forecast, error) {
	loc, err := w.geocoder.Lookup(ctx, city)
	if err != nil {
		return nil, err
	}

	base := url.Values{}
	base.Set("latitude", fmt.Sprintf("%f", loc.Latitude))
	base.Set("longitude", fmt.Sprintf("%f", loc.Longitude))
	base.Set("timezone", loc.Timezone)
	base.Set("start_date", startDate)
	base.Set("end_date", endDate)

	forecast, status, err := w.fetch(ctx, base, "temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	if err == nil {
		return forecast, nil
	}
	if status < 400 {
		return nil, err
	}

	// Fallback daily variables
	forecast, _, err = w.fetch(ctx, base, "temperature_2m_max,temperature_2m_min,precipitation_sum")
	if err != nil {
		return nil, err
	}
	return forecast, nil
}

func (w *WeatherClient) fetch(ctx context.Context, base url.Values, daily string) (*Forecast, int, error) {
	params := url.Values{}
	for k, v := range base {
		params[k] = v
	}
	params.Set("daily", daily)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, resp.StatusCode, fmt.Errorf("forecast error: %s", resp.Status)
	}

	var forecast Forecast
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("forecast decode failed: %w", err)
	}
	return &forecast, resp.StatusCode, nil
}

// Brief fetches a forecast and renders it as a short text summary, one line
// per day after the "Forecast:" header.
func (w *WeatherClient) Brief(ctx context.Context, city, startDate, endDate string) (string, error) {
	forecast, err := w.GetForecast(ctx, city, startDate, endDate)
	if err != nil {
		return "", err
	}
	return Summarize(forecast), nil
}

// Summarize renders a forecast as per-day text lines under a "Forecast:"
// header. Missing precipitation data degrades to "precip N/A".
func Summarize(f *Forecast) string {
	if f == nil || len(f.Daily.Time) == 0 {
		return "No weather data."
	}

	lines := make([]string, 0, len(f.Daily.Time))
	for i, day := range f.Daily.Time {
		tmax := valueAt(f.Daily.TemperatureMax, i)
		tmin := valueAt(f.Daily.TemperatureMin, i)

		var precip string
		switch {
		case i < len(f.Daily.PrecipitationProbabilityMax):
			precip = fmt.Sprintf("rain %.0f%%", f.Daily.PrecipitationProbabilityMax[i])
		case i < len(f.Daily.PrecipitationSum):
			precip = fmt.Sprintf("precip %.1f mm", f.Daily.PrecipitationSum[i])
		default:
			precip = "precip N/A"
		}

		lines = append(lines, fmt.Sprintf("%s: %.0f–%.0f°C, %s", day, tmin, tmax, precip))
	}

	if len(lines) > briefMaxLines {
		lines = lines[:briefMaxLines]
	}
	return "Forecast:\n" + strings.Join(lines, "\n")
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
