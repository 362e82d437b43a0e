package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nhle/task-notifier/internal/source"
)

// APIError is a non-2xx response from the Notion API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Method     string
	Path       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf(
			"notion API error (%d %s) on %s %s: %s",
			e.StatusCode, e.Code, e.Method, e.Path, e.Message,
		)
	}
	return fmt.Sprintf(
		"unexpected status %d on %s %s: %s",
		e.StatusCode, e.Method, e.Path, e.Message,
	)
}

// IsNotFound reports whether err is a Notion 404 (object_not_found).
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ClientOptions configures a Client. Zero values select defaults.
type ClientOptions struct {
	BaseURL    string
	Token      string
	APIVersion string

	// RequestsPerSecond paces outgoing calls. Notion allows an average
	// of three requests per second per integration.
	RequestsPerSecond float64

	HTTPClient *http.Client
}

// Client is a thin HTTP client for the Notion REST API v1. It handles
// Bearer token authentication, the Notion-Version header, request pacing
// and JSON (de)serialization. Failed calls are not retried.
type Client struct {
	baseURL    string
	token      string
	apiVersion string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Notion HTTP client.
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.notion.com"
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "2022-06-28"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		baseURL:    baseURL,
		token:      opts.Token,
		apiVersion: apiVersion,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an HTTP POST request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Patch performs an HTTP PATCH request with a JSON body and unmarshals
// the JSON response.
func (c *Client) Patch(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPatch, path, body, result)
}

// do builds the request, applies auth headers, waits for the rate
// limiter and maps error responses.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	result any,
) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request %s %s: %w", method, path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response body: %w", readErr)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return &source.AuthError{
			SourceType: source.SourceTypeNotion,
			Message:    "authentication failed (401): check the integration token",
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Message:    strings.TrimSpace(string(respBody)),
		}
		var notionErr ErrorResponse
		if json.Unmarshal(respBody, &notionErr) == nil && notionErr.Code != "" {
			apiErr.Code = notionErr.Code
			apiErr.Message = notionErr.Message
		}
		return apiErr
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf(
			"unmarshaling response from %s %s: %w",
			method, path, err,
		)
	}

	return nil
}
