// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/aichat-tui/internal/model"
)

// Configuration constants.
const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultListTimeout bounds a model-list request.
	DefaultListTimeout = 15 * time.Second

	// DefaultStreamTimeout bounds a whole streamed chat request.
	DefaultStreamTimeout = 60 * time.Second

	// MaxResponseSize is the maximum allowed non-streamed body size.
	MaxResponseSize = 10 * 1024 * 1024

	// maxErrorDetail truncates unparseable error bodies.
	maxErrorDetail = 200

	userAgent = "aichat/0.1.0"
)

// sharedTransport pools connections for every client.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
	TLSClientConfig: &tls.Config{
		MinVersion: tls.VersionTLS12,
	},
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the base URL or API key is missing.
	ErrNotConfigured = errors.New("API not configured")

	// ErrNetwork indicates a transport failure or non-2xx response.
	ErrNetwork = errors.New("network or API error")

	// ErrTimeout indicates the request deadline expired.
	ErrTimeout = errors.New("request timed out")

	// ErrResponseParse indicates a body that could not be decoded.
	ErrResponseParse = errors.New("unexpected API response")

	// ErrAuthFailed indicates an invalid or expired API key.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// Unwrap returns ErrNetwork.
func (e *APIError) Unwrap() error {
	return ErrNetwork
}

// Is matches the status-specific sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthFailed:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrModelNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// Describe returns the one-line text shown to the user for err.
func Describe(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "Request timed out."
	case errors.As(err, &apiErr):
		return "API Error: " + apiErr.Message
	case errors.Is(err, ErrResponseParse):
		return "API Response Error: " + strings.TrimPrefix(err.Error(), ErrResponseParse.Error()+": ")
	case errors.Is(err, ErrNetwork):
		return "Network or API Error: " + strings.TrimPrefix(err.Error(), ErrNetwork.Error()+": ")
	default:
		return "Unexpected Error: " + err.Error()
	}
}

// apiErrorResponse is the OpenAI error envelope.
type apiErrorResponse struct {
	Error struct {
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one OpenAI-compatible endpoint.
type Client struct {
	baseURL       string
	apiKey        string
	listTimeout   time.Duration
	streamTimeout time.Duration

	httpClient *http.Client
	logger     *zap.Logger

	// malformed throttles warnings about undecodable stream lines.
	malformed *rate.Sometimes
}

// NewClient creates a client. A trailing slash on baseURL is ignored.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:        strings.TrimSpace(apiKey),
		listTimeout:   DefaultListTimeout,
		streamTimeout: DefaultStreamTimeout,
		httpClient:    &http.Client{Transport: sharedTransport},
		logger:        zap.NewNop(),
		malformed:     &rate.Sometimes{First: 3, Interval: 10 * time.Second},
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// WithTimeouts sets the model-list and chat deadlines. Zero keeps a value.
func (c *Client) WithTimeouts(list, stream time.Duration) *Client {
	if list > 0 {
		c.listTimeout = list
	}
	if stream > 0 {
		c.streamTimeout = stream
	}
	return c
}

// WithLogger sets the logger.
func (c *Client) WithLogger(l *zap.Logger) *Client {
	if l != nil {
		c.logger = l.Named("cloud")
	}
	return c
}

// BaseURL returns the endpoint root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsConfigured returns true if both base URL and API key are set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// KeyFingerprint returns a short SHA-256 fingerprint of the API key.
func (c *Client) KeyFingerprint() string {
	if c.apiKey == "" {
		return "(none)"
	}
	sum := sha256.Sum256([]byte(c.apiKey))
	return "sha256:" + hex.EncodeToString(sum[:4])
}

// =============================================================================
// MODELS
// =============================================================================

// ListModels returns the sorted model ids offered by the endpoint.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	c.setHeaders(req)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, handleErrorResponse(resp.StatusCode, body)
	}
	return ParseModels(body)
}

// ParseModels normalises the three model-list shapes seen in the wild:
// {"data":[{"id":...}]}, {"models":["..."]} and a bare [{"id":...}] array.
// Elements of the wrong type for their shape are a parse error.
func ParseModels(body []byte) ([]string, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResponseParse, err)
	}
	unexpected := fmt.Errorf("%w: unexpected format for models: %s", ErrResponseParse, truncate(string(body), 100))

	var (
		list      []any
		stringIDs bool
	)
	switch v := raw.(type) {
	case map[string]any:
		if data, ok := v["data"].([]any); ok {
			list = data
		} else if models, ok := v["models"].([]any); ok {
			list, stringIDs = models, true
		} else {
			return nil, unexpected
		}
	case []any:
		list = v
	default:
		return nil, unexpected
	}

	ids := make([]string, 0, len(list))
	for _, item := range list {
		if stringIDs {
			id, ok := item.(string)
			if !ok {
				return nil, unexpected
			}
			if id != "" {
				ids = append(ids, id)
			}
			continue
		}
		m, ok := item.(map[string]any)
		if !ok {
			return nil, unexpected
		}
		if id, ok := m["id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
}

// do sends req and maps transport failures onto the error taxonomy. Headers
// and bodies are never logged.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	c.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("key", c.KeyFingerprint()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(req.Context(), err)
	}
	c.logger.Debug("api response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func transportError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w", ErrNetwork, ErrTimeout)
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

// readResponse reads a body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, transportError(resp.Request.Context(), err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", ErrResponseParse, MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse builds an APIError, preferring the server's message.
func handleErrorResponse(status int, body []byte) error {
	apiErr := &APIError{Status: status}

	var env apiErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		apiErr.Message = env.Error.Message
		apiErr.Code = strings.Trim(string(env.Error.Code), `"`)
		if apiErr.Code == "null" {
			apiErr.Code = ""
		}
		return apiErr
	}

	apiErr.Message = truncate(strings.TrimSpace(string(body)), maxErrorDetail)
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// toWire converts history to the request format, dropping error entries.
func toWire(msgs []model.Message) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == model.RoleError {
			continue
		}
		out = append(out, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
