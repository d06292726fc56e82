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

// DefaultFXURL is the Frankfurter conversion endpoint.
const DefaultFXURL = "https://api.frankfurter.app/latest"

// FXClient converts currency amounts via the Frankfurter API.
type FXClient struct {
	client  *http.Client
	baseURL string
}

// NewFXClient creates an FXClient.
func NewFXClient(client *http.Client, baseURL string) *FXClient {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultFXURL
	}
	return &FXClient{client: client, baseURL: baseURL}
}

// Convert converts an amount between currencies, returning the converted
// amount and the effective rate. Matching currencies (case-insensitive) are an
// identity conversion: the amount comes back unchanged with rate 1.0 and no
// network call is made.
func (c *FXClient) Convert(ctx context.Context, amount float64, fromCcy, toCcy string) (float64, float64, error) {
	from := strings.ToUpper(strings.TrimSpace(fromCcy))
	to := strings.ToUpper(strings.TrimSpace(toCcy))
	if from == to {
		return amount, 1.0, nil
	}

	start := time.Now()
	converted, rate, err := c.convert(ctx, amount, from, to)
	status := "success"
	if err != nil {
		status = "error"
	}
	observability.RecordLookupCall("fx", status, int(time.Since(start).Milliseconds()))
	return converted, rate, err
}

func (c *FXClient) convert(ctx context.Context, amount float64, from, to string) (float64, float64, error) {
	params := url.Values{}
	params.Set("amount", fmt.Sprintf("%f", amount))
	params.Set("from", from)
	params.Set("to", to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("fx request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, 0, fmt.Errorf("fx error: %s", resp.Status)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, 0, fmt.Errorf("fx decode failed: %w", err)
	}

	converted, ok := payload.Rates[to]
	if !ok {
		return 0, 0, fmt.Errorf("fx response missing rate for %s", to)
	}

	rate := 0.0
	if amount != 0 {
		rate = converted / amount
	}
	return converted, rate, nil
}
