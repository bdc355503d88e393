package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sciencehabits/sciencehabits/internal/api"
	"github.com/sciencehabits/sciencehabits/internal/common"
)

// HTTPClient implements Client over the companion server's JSON API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client for the given base URL, e.g.
// "http://127.0.0.1:8080". Request deadlines come from the caller's context;
// the transport timeout is a safety net for stuck connections.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Close() error { return nil }

func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %s", ErrUnavailable, resp.Status)
	}
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/register",
		"", api.RegisterRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return c.statusError(resp)
	}
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) (*Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/login",
		"", api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return c.decodeSession(resp)
}

func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/refresh",
		"", api.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return c.decodeSession(resp)
}

func (c *HTTPClient) PushOps(ctx context.Context, accessToken string, ops []api.Operation) ([]api.OperationResult, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/sync", accessToken, api.SyncRequest{Operations: ops})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		return nil, c.statusError(resp)
	}

	var out api.SyncResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sync response: %w", err)
	}
	return out.Results, nil
}

func (c *HTTPClient) FetchContent(ctx context.Context, contentType, language string) (json.RawMessage, error) {
	path := fmt.Sprintf("/api/%s/%s", url.PathEscape(contentType), url.PathEscape(language))
	resp, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, common.ErrorNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content body: %w", err)
	}
	return json.RawMessage(body), nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, accessToken string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func (c *HTTPClient) decodeSession(resp *http.Response) (*Session, error) {
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		return nil, c.statusError(resp)
	}

	var tokens api.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &Session{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, nil
}

func (c *HTTPClient) statusError(resp *http.Response) error {
	var body api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("server error (%s): %s", resp.Status, body.Error)
	}
	return fmt.Errorf("server error: %s", resp.Status)
}
