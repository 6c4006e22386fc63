// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the client for OpenAI-compatible chat APIs.
//
// Any server that implements GET /models and a streaming
// POST /chat/completions in the OpenAI wire format works: OpenAI itself,
// OpenRouter, local gateways and so on.
//
// # Key Types
//
//   - Client: HTTP client bound to a base URL and API key
//   - APIError: non-2xx response with the server's error message
//   - SSEReader: server-sent event line reader
//
// # Usage
//
//	client := cloud.NewClient(baseURL, apiKey).WithLogger(logger)
//	models, err := client.ListModels(ctx)
//	full, err := client.StreamChat(ctx, "gpt-4o-mini", msgs, func(delta string) {
//	    queue.Push(stream.Chunk(id, delta))
//	})
//
// # Errors
//
// Transport failures and non-2xx responses wrap ErrNetwork; deadline
// expiry additionally wraps ErrTimeout. Bodies that cannot be decoded wrap
// ErrResponseParse. Describe turns any of these into the one-line text shown
// to the user. Requests are never retried.
//
// # Security
//
// API keys are never logged. Logs carry a SHA-256 fingerprint instead.
package cloud
