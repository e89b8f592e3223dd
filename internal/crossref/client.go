// Package crossref fetches work records from the Crossref REST API and maps
// them onto publication records.
package crossref

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Crossref REST API base URL.
	BaseURL = "https://api.crossref.org"

	// DefaultTimeout bounds each lookup.
	DefaultTimeout = 30 * time.Second

	// DefaultRate is the maximum number of request starts per second.
	DefaultRate = 50.0

	// UserAgent identifies this client to Crossref.
	UserAgent = "pubmanager/1.0"
)

// Client is a rate-limited HTTP client for Crossref work lookups.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithMailto sets the contact address sent in the User-Agent.
func WithMailto(addr string) ClientOption {
	return func(c *Client) {
		c.mailto = addr
	}
}

// WithRate sets the maximum request starts per second. Non-positive values
// keep the default.
func WithRate(perSecond float64) ClientOption {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithTimeout sets the per-request timeout. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a new Crossref client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRate), 1),
		baseURL:    BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// userAgent returns the User-Agent header value.
func (c *Client) userAgent() string {
	if c.mailto == "" {
		return UserAgent
	}
	return fmt.Sprintf("%s (mailto:%s)", UserAgent, c.mailto)
}

// GetWork fetches the work record for a DOI. Request starts are spaced by
// the client's rate limit regardless of how long earlier requests took.
func (c *Client) GetWork(ctx context.Context, doi string) (*Work, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL + "/v1/works/" + url.PathEscape(doi)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp, doi); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrNetworkError, err)
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, ErrInvalidResponse
	}
	if result.Status != "ok" || result.Message == nil {
		return nil, ErrInvalidResponse
	}
	return result.Message, nil
}

// checkHTTPErrors returns an error if the HTTP response is not 2xx.
func checkHTTPErrors(resp *http.Response, doi string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP Error: %d", resp.StatusCode),
		DOI:        doi,
	}
}
