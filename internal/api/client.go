// Package api provides the HTTP client for the chatbridge backend.
package api

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
	"github.com/charmbracelet/log"

	apierrors "github.com/diogo/chatbridge/internal/errors"
	"github.com/diogo/chatbridge/internal/logging"
	"github.com/diogo/chatbridge/internal/models"
)

const (
	// DefaultTimeout is applied to every backend request
	DefaultTimeout = 300 * time.Second

	maxResponseSize  = 32 * 1024 * 1024
	maxErrorBodySize = 4096
)

// HTTPDoer is the subset of tls_client.HttpClient used by the client
type HTTPDoer interface {
	Do(req *fhttp.Request) (*fhttp.Response, error)
}

// Client talks to the chat, transcription, speech and account endpoints
type Client struct {
	httpClient HTTPDoer
	baseURL    string
	timeout    time.Duration
	logger     *log.Logger
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithBaseURL sets the backend base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient HTTPDoer) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the request timeout of the default HTTP client
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a new backend client
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		baseURL: models.DefaultBackendURL,
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.logger == nil {
		client.logger = logging.WithPrefix("api")
	}

	if client.httpClient == nil {
		httpClient, err := NewHTTPClient(client.timeout)
		if err != nil {
			return nil, err
		}
		client.httpClient = httpClient
	}

	return client, nil
}

// NewHTTPClient builds the TLS client shared by the backend and identity clients
func NewHTTPClient(timeout time.Duration) (tls_client.HttpClient, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(int(timeout.Seconds())),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}
	return httpClient, nil
}

// BaseURL returns the configured backend URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) url(path string) string {
	return c.baseURL + path
}

// newRequest builds a request against the backend with default headers set
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*fhttp.Request, error) {
	req, err := fhttp.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range models.DefaultHeaders() {
		req.Header.Set(key, value)
	}
	return req, nil
}

// do executes the request and returns the response body.
// Non-2xx responses become an APIError whose message comes from the
// {error, details} envelope, or fallback when the body carries neither.
func (c *Client) do(req *fhttp.Request, operation, path, fallback string) ([]byte, fhttp.Header, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "op", operation, "error", err)
		return nil, nil, apierrors.NewNetworkError(operation, path, err)
	}
	defer func() {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, apierrors.NewNetworkError(operation, path, fmt.Errorf("failed to read response: %w", err))
	}

	c.logger.Debug("request complete",
		"op", operation,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if fallback == "" {
			fallback = fmt.Sprintf("Server error: %d", resp.StatusCode)
		}
		msg := errorMessage(body, fallback)
		errorBody := body
		if len(errorBody) > maxErrorBodySize {
			errorBody = errorBody[:maxErrorBodySize]
		}
		return nil, nil, apierrors.NewAPIError(resp.StatusCode, path, msg).WithBody(string(errorBody))
	}

	return body, resp.Header, nil
}

func bearer(req *fhttp.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
