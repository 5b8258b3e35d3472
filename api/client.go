// Package api provides thin typed clients for the backend's REST resources.
// All calls carry the session's bearer token; failures map onto the same
// status-code messages the portal shows its users.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/empowerhr/empower-client/internal/config"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultRequestTimeout = 30 * time.Second

// TokenSource supplies the bearer credential for API calls. The auth
// Controller satisfies it.
type TokenSource interface {
	AccessToken() (string, bool)
}

// Client is the shared HTTP plumbing behind the typed resource services.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	logger         zerolog.Logger
	onUnauthorized func()
}

// ClientOption modifies a Client instance.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUnauthorizedHandler registers a callback invoked on any 401 response,
// typically wired to the auth controller's Logout.
func WithUnauthorizedHandler(handler func()) ClientOption {
	return func(c *Client) {
		c.onUnauthorized = handler
	}
}

// NewClient creates a Client rooted at the configured API host.
func NewClient(cfg config.EnvConfig, tokens TokenSource, options ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("[NewClient] config is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewClient] token source is required")
	}

	client := &Client{
		baseURL:    cfg.GetAPIURL(),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		tokens:     tokens,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// Bands returns the band maintenance service.
func (c *Client) Bands() *BandsService {
	return &BandsService{client: c}
}

// Titles returns the functional-title maintenance service.
func (c *Client) Titles() *TitlesService {
	return &TitlesService{client: c}
}

// Account returns the account/profile service.
func (c *Client) Account() *AccountService {
	return &AccountService{client: c}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] marshal body")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return errors.Wrap(err, "[Client.do] build request")
	}

	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := c.tokens.AccessToken(); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("method", method).Str("path", path).Str("request_id", requestID).Msg("request failed")
		return &Error{Message: "An error occurred", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request completed")

	if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
		c.onUnauthorized()
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.errorFromResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return errors.Wrap(err, "[Client.do] decode response")
	}
	return nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Detail = body.Message
		if apiErr.Detail == "" {
			apiErr.Detail = body.ErrorDescription
		}
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		apiErr.Message = "Bad Request"
		if apiErr.Detail != "" {
			apiErr.Message = apiErr.Detail
		}
	case http.StatusUnauthorized:
		apiErr.Message = "Unauthorized. Please login again."
	case http.StatusForbidden:
		apiErr.Message = "Access Forbidden"
	case http.StatusNotFound:
		apiErr.Message = "Resource not found"
	case http.StatusInternalServerError:
		apiErr.Message = "Internal Server Error"
	default:
		apiErr.Message = fmt.Sprintf("Error Code: %d", resp.StatusCode)
	}
	return apiErr
}
