// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/aichat-tui/internal/model"
)

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// MaxLineSize is the largest SSE line accepted.
const MaxLineSize = 1024 * 1024

const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

// =============================================================================
// STREAMING TYPES
// =============================================================================

// wireMessage is one message in a chat request.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the body of a chat completion request.
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// StreamChunk is a single decoded SSE payload.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the content from the first choice's delta.
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// DeltaFunc receives each non-empty content delta in order.
type DeltaFunc func(delta string)

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader yields the payload of each "data: " line.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a reader over r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next returns the next data payload. Blank lines, comments and other
// fields are skipped; non-SSE text is reported through skipped.
// It returns io.EOF at the end of the stream.
func (s *SSEReader) Next(skipped func(line string)) (string, error) {
	for {
		line, err := s.readLine()
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}

		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case strings.HasPrefix(trimmed, dataPrefix):
			return strings.TrimSpace(trimmed[len(dataPrefix):]), nil
		case strings.HasPrefix(trimmed, "data:"):
			return strings.TrimSpace(trimmed[len("data:"):]), nil
		case strings.TrimSpace(trimmed) == "",
			strings.HasPrefix(trimmed, ":"),
			strings.HasPrefix(trimmed, "event:"),
			strings.HasPrefix(trimmed, "id:"),
			strings.HasPrefix(trimmed, "retry:"):
		default:
			if skipped != nil {
				skipped(trimmed)
			}
		}
		if err == io.EOF {
			return "", io.EOF
		}
	}
}

func (s *SSEReader) readLine() (string, error) {
	var buf bytes.Buffer
	for {
		frag, err := s.reader.ReadSlice('\n')
		buf.Write(frag)
		if buf.Len() > MaxLineSize {
			return "", fmt.Errorf("%w: stream line exceeds %d bytes", ErrResponseParse, MaxLineSize)
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return buf.String(), err
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat posts a streaming chat completion and calls onDelta for each
// content fragment. It returns the concatenation of every fragment. On error
// the text received so far is still returned.
func (c *Client) StreamChat(ctx context.Context, modelID string, messages []model.Message, onDelta DeltaFunc) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.streamTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{Model: modelID, Messages: toWire(messages), Stream: true})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, rerr := readResponse(resp)
		if rerr != nil {
			return "", rerr
		}
		return "", handleErrorResponse(resp.StatusCode, errBody)
	}

	return c.processStream(ctx, resp.Body, onDelta)
}

// processStream reads SSE payloads until [DONE] or EOF.
func (c *Client) processStream(ctx context.Context, body io.Reader, onDelta DeltaFunc) (string, error) {
	reader := NewSSEReader(body)
	var full strings.Builder

	skipped := func(line string) {
		c.logger.Warn("unexpected non-SSE line", zap.String("line", truncate(line, 120)))
	}

	for {
		payload, err := reader.Next(skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return full.String(), nil
			}
			if errors.Is(err, ErrResponseParse) {
				return full.String(), err
			}
			return full.String(), transportError(ctx, err)
		}
		if payload == doneMarker {
			return full.String(), nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.malformed.Do(func() {
				c.logger.Warn("skipping malformed stream chunk",
					zap.String("payload", truncate(payload, 120)),
					zap.Error(err))
			})
			continue
		}

		if delta := chunk.GetContent(); delta != "" {
			full.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
	}
}
