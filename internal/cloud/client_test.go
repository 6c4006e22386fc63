// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aichat-tui/internal/model"
)

func newTestClient(url string) *Client {
	return NewClient(url+"/", "sk-test-key")
}

// =============================================================================
// MODEL LIST TESTS
// =============================================================================

func TestParseModels_Shapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{"data objects", `{"data":[{"id":"gpt-b"},{"id":"gpt-a"}]}`, []string{"gpt-a", "gpt-b"}},
		{"models strings", `{"models":["m2","m1"]}`, []string{"m1", "m2"}},
		{"bare array", `[{"id":"z"},{"id":"a"},{"name":"no-id"}]`, []string{"a", "z"}},
		{"empty data", `{"data":[]}`, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseModels([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseModels_Invalid(t *testing.T) {
	for _, body := range []string{
		`{"foo":1}`, `"x"`, `not json`,
		`{"data":["x"]}`, `{"models":[{"id":"x"}]}`, `["x"]`,
	} {
		_, err := ParseModels([]byte(body))
		assert.ErrorIs(t, err, ErrResponseParse, "body %s", body)
	}
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer sk-test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[{"id":"gpt-b"},{"id":"gpt-a"}]}`)
	}))
	defer server.Close()

	models, err := newTestClient(server.URL).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-a", "gpt-b"}, models)
}

func TestListModels_NotConfigured(t *testing.T) {
	_, err := NewClient("", "").ListModels(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestListModels_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","code":"invalid_api_key"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ListModels(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, ErrAuthFailed)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad key", apiErr.Message)
	assert.Equal(t, "invalid_api_key", apiErr.Code)
	assert.Equal(t, "API Error: bad key", Describe(err))
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var req chatRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.True(t, req.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprint(w, l+"\n")
			w.(http.Flusher).Flush()
		}
	}))
}

func delta(s string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]string{"content": s}}},
	})
	return "data: " + string(b)
}

func TestStreamChat_Deltas(t *testing.T) {
	server := sseServer(t, []string{
		": keep-alive",
		delta("Hel"),
		"",
		"data: {not json",
		delta(""),
		delta("lo"),
		"data: [DONE]",
		delta("after done"),
	})
	defer server.Close()

	var got []string
	full, err := newTestClient(server.URL).StreamChat(context.Background(), "m",
		[]model.Message{model.NewUserMessage("Hi")},
		func(d string) { got = append(got, d) })

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, got)
	assert.Equal(t, "Hello", full)
}

func TestStreamChat_EOFWithoutDone(t *testing.T) {
	server := sseServer(t, []string{delta("a"), delta("b")})
	defer server.Close()

	full, err := newTestClient(server.URL).StreamChat(context.Background(), "m", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ab", full)
}

func TestStreamChat_DropsErrorRoleMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.Len(t, req.Messages, 2) {
			return
		}
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		fmt.Fprint(w, "data: [DONE]\n")
	}))
	defer server.Close()

	msgs := []model.Message{
		model.NewSystemMessage("sys"),
		model.NewMessage(model.RoleError, "boom"),
		model.NewUserMessage("hi"),
	}
	_, err := newTestClient(server.URL).StreamChat(context.Background(), "m", msgs, nil)
	require.NoError(t, err)
}

func TestStreamChat_APIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"model overloaded"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).StreamChat(context.Background(), "m", nil, nil)
	assert.Equal(t, "API Error: model overloaded", Describe(err))
}

func TestStreamChat_PlainErrorBodyTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, strings.Repeat("x", 500))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).StreamChat(context.Background(), "m", nil, nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Len(t, apiErr.Message, maxErrorDetail)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestStreamChat_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := newTestClient(server.URL).WithTimeouts(0, 50*time.Millisecond)
	_, err := client.StreamChat(context.Background(), "m", nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, "Request timed out.", Describe(err))
}

func TestStreamChat_NotConfigured(t *testing.T) {
	_, err := NewClient("https://example.invalid", "").StreamChat(context.Background(), "m", nil, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader_SkipsNonSSELines(t *testing.T) {
	var skipped []string
	r := NewSSEReader(strings.NewReader("garbage\nevent: x\ndata:{\"a\":1}\r\n\ndata: last"))

	first, err := r.Next(func(l string) { skipped = append(skipped, l) })
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, first)

	last, err := r.Next(nil)
	require.NoError(t, err)
	assert.Equal(t, "last", last)

	_, err = r.Next(nil)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []string{"garbage"}, skipped)
}

// =============================================================================
// MISC
// =============================================================================

func TestKeyFingerprint_NeverContainsKey(t *testing.T) {
	c := NewClient("https://x", "sk-secret-value")
	fp := c.KeyFingerprint()
	assert.True(t, strings.HasPrefix(fp, "sha256:"))
	assert.NotContains(t, fp, "secret")
	assert.Equal(t, "(none)", NewClient("https://x", "").KeyFingerprint())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "", Describe(nil))
	assert.Equal(t, "Unexpected Error: boom", Describe(errors.New("boom")))
	assert.Equal(t, "Network or API Error: dial failed",
		Describe(fmt.Errorf("%w: %w", ErrNetwork, errors.New("dial failed"))))
}

func TestNewClient_TrimsBaseURL(t *testing.T) {
	c := NewClient(" https://api.example.com/v1/ ", " key ")
	assert.Equal(t, "https://api.example.com/v1", c.BaseURL())
	assert.True(t, c.IsConfigured())
}
