// Package score talks to the package-health scoring API.
package score

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sambabib/scorecheck/pkg/logger"
)

// Unknown stands in for a rating the API did not return.
const Unknown = "Unknown"

// ErrPackageNotFound is returned when the API has no score for the package.
var ErrPackageNotFound = errors.New("package not found")

// RequestFailedError reports a non-200, non-404 response.
type RequestFailedError struct {
	StatusCode int
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.StatusCode)
}

// RequestError reports a transport or decoding failure.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("error: %v", e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Rating is one categorical score, e.g. {"value": "Mature"}.
type Rating struct {
	Value string   `json:"value"`
	Notes []string `json:"notes,omitempty"`
}

// Source holds the ratings computed from the package's source repository.
type Source struct {
	Maturity   *Rating `json:"maturity,omitempty"`
	HealthRisk *Rating `json:"health_risk,omitempty"`
}

// Response is the body of GET /api/package/<ecosystem>/<name>.
type Response struct {
	Source *Source `json:"source,omitempty"`
}

// Found reports whether the response carries a score. A nil response, an
// empty body and a body without "source" all mean the package is unknown.
func (r *Response) Found() bool {
	return r != nil && r.Source != nil
}

// Maturity returns the maturity rating or Unknown.
func (r *Response) Maturity() string {
	if !r.Found() {
		return Unknown
	}
	return r.Source.Maturity.value()
}

// HealthRisk returns the health-risk rating or Unknown.
func (r *Response) HealthRisk() string {
	if !r.Found() {
		return Unknown
	}
	return r.Source.HealthRisk.value()
}

func (r *Rating) value() string {
	if r == nil || strings.TrimSpace(r.Value) == "" {
		return Unknown
	}
	return r.Value
}

// Client fetches scores one package at a time.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a Client for the API at baseURL using http.DefaultClient.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: http.DefaultClient,
	}
}

// PackageURL builds the score URL for a package.
func (c *Client) PackageURL(ecosystem, name string) string {
	return fmt.Sprintf("%s/api/package/%s/%s",
		strings.TrimRight(c.BaseURL, "/"), url.PathEscape(ecosystem), url.PathEscape(name))
}

// Fetch performs a single GET for the package. There are no retries.
func (c *Client) Fetch(ctx context.Context, ecosystem, name string) (*Response, error) {
	scoreURL := c.PackageURL(ecosystem, name)
	logger.Debugf("score: fetching %s", scoreURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scoreURL, nil)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		logger.Debugf("score: %s returned %s", scoreURL, resp.Status)
		return nil, &RequestFailedError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &Response{}, nil
	}

	var score Response
	if err := json.Unmarshal(body, &score); err != nil {
		return nil, &RequestError{Err: fmt.Errorf("decoding response for %s: %w", name, err)}
	}
	return &score, nil
}
