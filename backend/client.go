// Package backend talks to the HR portal's auth endpoints directly, without the request
// authorizer in the path. The refresh coordinator relies on this to avoid re-entering itself.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-hr-session/internal/config"
	autherrors "github.com/jrsteele09/go-hr-session/internal/errors"
	"github.com/rs/zerolog"
)

const maxErrorBody = 64 << 10

type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a client for baseURL. A nil httpClient uses a client with no timeout.
func New(baseURL string, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     logger,
	}
}

// NewFromConfig bounds every call, refresh included, by the configured request timeout.
func NewFromConfig(cfg config.APIConfig, logger zerolog.Logger) *Client {
	return New(cfg.GetBaseURL(), &http.Client{Timeout: cfg.GetRequestTimeout()}, logger)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// URL resolves a route against the base URL.
func (c *Client) URL(route string) string {
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return c.baseURL + route
}

func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.post(ctx, RouteLogin, "", creds, &resp, autherrors.ErrInvalidCredentials); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.Access == "" || resp.Refresh == "" {
		return nil, fmt.Errorf("login: missing tokens in response: %w", autherrors.ErrUnexpectedResponse)
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) (*LoginResponse, error) {
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	var resp LoginResponse
	if err := c.post(ctx, RouteRegister, "", reg, &resp, autherrors.ErrInvalidCredentials); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if resp.Access == "" || resp.Refresh == "" {
		return nil, fmt.Errorf("register: missing tokens in response: %w", autherrors.ErrUnexpectedResponse)
	}
	return &resp, nil
}

// Refresh exchanges a refresh token for a new access token. Any 4xx answer wraps
// ErrRefreshRejected.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.post(ctx, RouteRefresh, "", RefreshRequest{Refresh: refreshToken}, &resp, autherrors.ErrRefreshRejected); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	if resp.Access == "" {
		return nil, fmt.Errorf("refresh: missing access token: %w", autherrors.ErrUnexpectedResponse)
	}
	return &resp, nil
}

// Revoke blacklists the refresh token server side.
func (c *Client) Revoke(ctx context.Context, accessToken, refreshToken string) error {
	if err := c.post(ctx, RouteLogout, accessToken, RefreshRequest{Refresh: refreshToken}, nil, autherrors.ErrUnauthorized); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	return nil
}

// post sends body as JSON. clientErr is wrapped into the APIError for 4xx answers.
func (c *Client) post(ctx context.Context, route, bearer string, body, out any, clientErr error) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(route), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := NewAPIError(resp.StatusCode, raw, autherrors.ErrUnexpectedResponse)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			apiErr.Err = clientErr
		}
		c.log.Debug().Str("route", route).Int("status", resp.StatusCode).Str("detail", apiErr.Detail).Msg("backend error")
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %v: %w", err, autherrors.ErrUnexpectedResponse)
	}
	return nil
}
