package intensity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// DefaultBaseURL is the public national carbon-intensity API.
const DefaultBaseURL = "https://api.carbonintensity.org.uk"

// Client fetches raw payloads from the carbon-intensity API with retries,
// backoff, and a circuit breaker shared across endpoints.
type Client struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewClient builds a Client on top of a shared *http.Client. The caller owns
// the client's timeout.
func NewClient(client *http.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "carbonintensity",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

// FetchIntensity retrieves the current national intensity window.
func (c *Client) FetchIntensity(ctx context.Context) (IntensityPayload, error) {
	var payload IntensityPayload
	if err := c.get(ctx, "/intensity", &payload); err != nil {
		return IntensityPayload{}, err
	}
	return payload, nil
}

// FetchGeneration retrieves the current national generation mix.
func (c *Client) FetchGeneration(ctx context.Context) (GenerationPayload, error) {
	var payload GenerationPayload
	if err := c.get(ctx, "/generation", &payload); err != nil {
		return GenerationPayload{}, err
	}
	return payload, nil
}

// FetchRegional retrieves the current per-region intensity breakdown.
func (c *Client) FetchRegional(ctx context.Context) (RegionalPayload, error) {
	var payload RegionalPayload
	if err := c.get(ctx, "/regional", &payload); err != nil {
		return RegionalPayload{}, err
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, buildRequest)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: %w: undecodable body: %v", path, ErrUpstream, err)
	}
	return nil
}
