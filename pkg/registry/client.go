// Package registry provides the HTTP client for a remote canonical-company
// registry service.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/resilience"
)

// Options configures the registry client.
type Options struct {
	BaseURL string
	APIKey  string

	// Timeout bounds each lookup. Default: 10s.
	Timeout time.Duration

	// RequestsPerSecond throttles outbound queries. Default: 5.
	RequestsPerSecond float64

	// Retry controls the per-lookup retry budget. Zero value uses the
	// default two attempts with backoff.
	Retry resilience.RetryConfig
}

// Client queries a remote registry over HTTP. Persistent failures surface as
// resilience.ErrLookupUnavailable so callers can degrade mentions to pending
// instead of failing the batch.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a registry client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry:   opts.Retry,
	}
}

// queryResponse is the wire shape of a registry query result.
type queryResponse struct {
	Companies []model.CanonicalCompany `json:"companies"`
}

// Query looks up candidate companies for a raw name and country hint.
func (c *Client) Query(ctx context.Context, name, countryHint string) ([]model.CanonicalCompany, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "registry: rate limit wait")
	}

	companies, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]model.CanonicalCompany, error) {
		return c.queryOnce(ctx, name, countryHint)
	})
	if err != nil {
		zap.L().Warn("registry: lookup failed after retries",
			zap.String("name", name),
			zap.String("country_hint", countryHint),
			zap.Error(err))
		return nil, err
	}
	return companies, nil
}

func (c *Client) queryOnce(ctx context.Context, name, countryHint string) ([]model.CanonicalCompany, error) {
	u, err := url.Parse(c.baseURL + "/v1/companies")
	if err != nil {
		return nil, eris.Wrap(err, "registry: parse base url")
	}
	q := u.Query()
	q.Set("name", name)
	if countryHint != "" {
		q.Set("country", countryHint)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "registry: build request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(resilience.ErrLookupUnavailable, "registry: query %q: %v", name, err)
	}
	defer resp.Body.Close()

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, eris.Wrapf(resilience.ErrLookupUnavailable, "registry: query %q: status %d", name, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("registry: query %q: unexpected status %d", name, resp.StatusCode)
	}

	var body queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, eris.Wrap(err, "registry: decode response")
	}
	return body.Companies, nil
}

// Healthy pings the registry health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return eris.Wrap(err, "registry: build health request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrapf(resilience.ErrLookupUnavailable, "registry: health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry: health: status %d", resp.StatusCode)
	}
	return nil
}
