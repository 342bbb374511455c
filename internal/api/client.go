// Package api is a thin HTTP client for the TaskFlow backend REST API.
// It handles the cookie-based session, JSON marshaling, and the
// translation of error responses into the client error taxonomy.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// errorBody is the shape the backend uses for error responses.
type errorBody struct {
	Message string `json:"message"`
}

// Client is the REST client. All requests carry the session cookie
// held in the underlying jar; no token is managed explicitly.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	jar         http.CookieJar
	credentials CredentialStore
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The client's
// Jar is overwritten with the session cookie jar.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCredentialStore sets the store used to persist the session
// cookie between runs. Without one, sessions last for the process
// lifetime only.
func WithCredentialStore(cs CredentialStore) Option {
	return func(c *Client) {
		c.credentials = cs
	}
}

// NewClient creates a REST client for the backend rooted at baseURL
// (e.g. http://localhost:5000/api/v1).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		jar: jar,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.httpClient.Jar = jar

	if c.credentials != nil {
		// A stale or unreadable persisted session is not fatal; the
		// next authenticated call will surface an AuthError.
		_ = c.restoreSession()
	}

	return c, nil
}

// BaseURL returns the configured backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get performs an HTTP GET request and unmarshals the JSON response.
func (c *Client) get(ctx context.Context, path string, query url.Values, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, result)
}

// post performs an HTTP POST request with an optional JSON body.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, result)
}

// put performs an HTTP PUT request with a JSON body.
func (c *Client) put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, nil, body, result)
}

// delete performs an HTTP DELETE request.
func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do is the core HTTP method that builds the request and handles JSON
// (de)serialization and error translation.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	query url.Values,
	body interface{},
	result interface{},
) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

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

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return translateError(resp.StatusCode, respBody)
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.StatusCode == http.StatusNoContent || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}

	return nil
}

// translateError maps a non-2xx response onto the error taxonomy,
// preserving the server-provided message where present.
func translateError(status int, body []byte) error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)
	message := eb.Message
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	switch status {
	case http.StatusUnauthorized:
		return &AuthError{Message: message}
	case http.StatusConflict:
		return &ConflictError{Message: message}
	default:
		return &RequestError{StatusCode: status, Message: message}
	}
}
