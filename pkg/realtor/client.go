// Package realtor provides a client for the realtor.ca PropertySearch_Post API.
package realtor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultSearchURL = "https://api2.realtor.ca/Listing.svc/PropertySearch_Post"
	defaultReferer   = "https://www.realtor.ca/"
	defaultUserAgent = "listing-cli/1.0"
)

// Client issues property search queries.
type Client interface {
	// Search posts the form-encoded query and returns the decoded response.
	Search(ctx context.Context, form url.Values) (*Response, error)
}

// Response is the PropertySearch_Post JSON envelope. Results are left raw so
// callers decide how strictly to decode each listing.
type Response struct {
	ErrorCode ErrorCode         `json:"ErrorCode"`
	Paging    Paging            `json:"Paging"`
	Results   []json.RawMessage `json:"Results"`
}

// ErrorCode is the server-side status block.
type ErrorCode struct {
	ID          int    `json:"Id"`
	Description string `json:"Description"`
}

// Paging describes the result set size and the page returned.
type Paging struct {
	RecordsPerPage int `json:"RecordsPerPage"`
	CurrentPage    int `json:"CurrentPage"`
	TotalRecords   int `json:"TotalRecords"`
	MaxRecords     int `json:"MaxRecords"`
	TotalPages     int `json:"TotalPages"`
}

// StatusError is returned when the endpoint answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("realtor: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the search endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.searchURL = u
	}
}

// WithReferer overrides the Referer header.
func WithReferer(referer string) Option {
	return func(c *httpClient) {
		c.referer = referer
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *httpClient) {
		c.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	cookie    string
	searchURL string
	referer   string
	userAgent string
	http      *http.Client
}

// NewClient creates a search client that forwards cookie verbatim on every
// request.
func NewClient(cookie string, opts ...Option) Client {
	c := &httpClient{
		cookie:    cookie,
		searchURL: defaultSearchURL,
		referer:   defaultReferer,
		userAgent: defaultUserAgent,
		http:      &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.searchURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "realtor: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", c.referer)
	req.Header.Set("User-Agent", c.userAgent)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "realtor: search request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "realtor: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var result Response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "realtor: unmarshal response")
	}

	return &result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
