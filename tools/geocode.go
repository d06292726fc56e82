// Package tools provides the auxiliary external lookups used by the planning
// pipeline: geocoding, weather forecasts, currency conversion and nearby
// points of interest. Every call is bounded by the injected HTTP client's
// timeout and returns an explicit error; callers decide how to degrade.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultGeocodingURL is the Open-Meteo geocoding endpoint.
const DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"

// Location is a geocoded city center.
type Location struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}

// Geocoder resolves city names to coordinates via the Open-Meteo geocoding
// API. Results are cached; city coordinates do not move.
type Geocoder struct {
	client  *http.Client
	baseURL string
	cache   *cache.Cache
}

// NewGeocoder creates a Geocoder. A nil client falls back to a 20s-timeout default.
func NewGeocoder(client *http.Client, baseURL string) *Geocoder {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultGeocodingURL
	}
	return &Geocoder{
		client:  client,
		baseURL: baseURL,
		cache:   cache.New(24*time.Hour, time.Hour),
	}
}

// Lookup resolves a city to its coordinates and timezone.
func (g *Geocoder) Lookup(ctx context.Context, city string) (Location, error) {
	key := strings.ToLower(strings.TrimSpace(city))
	if cached, found := g.cache.Get(key); found {
		return cached.(Location), nil
	}

	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Location{}, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Location{}, fmt.Errorf("geocoding error: %s", resp.Status)
	}

	var payload struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Timezone  string  `json:"timezone"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Location{}, fmt.Errorf("geocoding decode failed: %w", err)
	}
	if len(payload.Results) == 0 {
		return Location{}, fmt.Errorf("city not found: %s", city)
	}

	loc := Location{
		Latitude:  payload.Results[0].Latitude,
		Longitude: payload.Results[0].Longitude,
		Timezone:  payload.Results[0].Timezone,
	}
	if loc.Timezone == "" {
		loc.Timezone = "auto"
	}

	g.cache.Set(key, loc, cache.DefaultExpiration)
	return loc, nil
}
