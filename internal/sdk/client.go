// Package sdk provides the authenticated HTTP client used by runtimes to
// fetch time-windowed analytical data and call back into platform APIs.
// Well-formed server-side errors are returned in Result.Error; only
// network-level failures surface as Go errors.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alphaarc/platform/internal/domain"
)

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	AuthURL string // defaults to BaseURL + "/auth/exchange"
	Timeout time.Duration
}

// Result is the outcome of a Post-style call: exactly one of Data or Error
// is meaningful.
type Result struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Client is the data/platform API client.
type Client struct {
	baseURL string
	http    *http.Client
	auth    *AuthManager
}

// NewClient creates a Client from the given config.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	base := strings.TrimRight(cfg.BaseURL, "/")
	authURL := cfg.AuthURL
	if authURL == "" {
		authURL = base + "/auth/exchange"
	}
	return &Client{
		baseURL: base,
		http:    httpClient,
		auth:    NewAuthManager(cfg.APIKey, authURL, httpClient),
	}
}

// IsLoggedIn reports whether the client holds a usable credential.
func (c *Client) IsLoggedIn() bool { return !c.auth.Expired() }

// Login obtains or refreshes the bearer credential.
func (c *Client) Login(ctx context.Context) error {
	return c.auth.ExchangeToken(ctx)
}

// Get performs an authenticated GET and returns the raw response body.
// Non-2xx statuses are errors.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get %s: http %d", path, resp.StatusCode)
	}
	return b, nil
}

// Post performs an authenticated POST. A non-2xx response carrying a JSON
// {error} body is translated into Result.Error instead of a Go error.
func (c *Client) Post(ctx context.Context, path string, body any) (*Result, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Result{Data: b}, nil
	}

	var serverErr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &serverErr); err == nil && serverErr.Error != "" {
		return &Result{Error: serverErr.Error}, nil
	}
	return nil, fmt.Errorf("post %s: http %d", path, resp.StatusCode)
}

// Query fetches a bounded slice of analytical data for the given query and
// time window.
func (c *Client) Query(ctx context.Context, query string, interval domain.TimeInterval) (*Result, error) {
	return c.Post(ctx, "/data/query", domain.QueryRequest{
		Query:        query,
		TimeInterval: interval,
	})
}

func (c *Client) authorize(req *http.Request) {
	if tok := c.auth.AccessToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}
