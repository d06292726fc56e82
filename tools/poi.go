package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/wayfarer-labs/concierge/observability"
)

// DefaultPOIURL is the Wikipedia API endpoint used for geosearch.
const DefaultPOIURL = "https://en.wikipedia.org/w/api.php"

const (
	poiSearchRadiusM = 3000
	poiLimitMax      = 50 // Wikipedia geosearch cap
)

// POIClient lists named points of interest near a city center using the
// Wikipedia geosearch API. It is a best-effort source: callers are expected
// to treat failures as an empty list.
type POIClient struct {
	geocoder *Geocoder
	client   *http.Client
	baseURL  string
}

// NewPOIClient creates a POIClient.
func NewPOIClient(geocoder *Geocoder, client *http.Client, baseURL string) *POIClient {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultPOIURL
	}
	return &POIClient{geocoder: geocoder, client: client, baseURL: baseURL}
}

// ListNearby returns up to limit POI names around the city center, in the
// API's relevance order.
func (p *POIClient) ListNearby(ctx context.Context, city string, limit int) ([]string, error) {
	start := time.Now()
	names, err := p.listNearby(ctx, city, limit)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordLookupCall("poi", status, int(time.Since(start).Milliseconds()))
	return names, err
}

func (p *POIClient) listNearby(ctx context.Context, city string, limit int) ([]string, error) {
	loc, err := p.geocoder.Lookup(ctx, city)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > poiLimitMax {
		limit = poiLimitMax
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "geosearch")
	params.Set("gscoord", fmt.Sprintf("%f|%f", loc.Latitude, loc.Longitude))
	params.Set("gsradius", fmt.Sprintf("%d", poiSearchRadiusM))
	params.Set("gslimit", fmt.Sprintf("%d", limit))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poi request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("poi error: %s", resp.Status)
	}

	var payload struct {
		Query struct {
			Geosearch []struct {
				Title string `json:"title"`
			} `json:"geosearch"`
		} `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("poi decode failed: %w", err)
	}

	names := make([]string, 0, len(payload.Query.Geosearch))
	for _, item := range payload.Query.Geosearch {
		if item.Title != "" {
			names = append(names, item.Title)
		}
	}
	return names, nil
}
