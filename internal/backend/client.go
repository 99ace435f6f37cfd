// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Configuration constants for the backend client.
const (
	// DefaultBaseURL is the base URL of the chat backend.
	DefaultBaseURL = "http://localhost:8002"

	// DefaultTimeout is the timeout for non-streaming API requests.
	DefaultTimeout = 30 * time.Second

	// streamReadSize is the buffer size for a single read from a streaming
	// response body. The decoder accepts chunks of any size, so this only
	// bounds per-read memory.
	streamReadSize = 4 * 1024

	// maxErrorBodySize limits how much of an error response body is read
	// when building a TransportError.
	maxErrorBodySize = 8 * 1024
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// One shared transport serves both clients; the streaming client has no
// overall timeout because stream lifetime is controlled via context.
var sharedTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
	TLSHandshakeTimeout: 10 * time.Second,
}

// TokenFunc is invoked for every decoded token, synchronously relative to the
// read loop. Handlers must be fast and non-blocking - accumulate, don't
// compute.
type TokenFunc func(token string)

// SendRequest is the payload of the streaming send operation.
type SendRequest struct {
	Message       string    `json:"message"`
	Files         []string  `json:"files"`
	PersonalityID string    `json:"personality_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// createChatRequest is the payload of the create-chat operation.
type createChatRequest struct {
	ChatTitle     string `json:"chat_title"`
	PersonalityID string `json:"personality_id"`
}

// Client talks to the cortex chat backend. It performs no state mutation
// beyond the network call itself: driving the chat state store from the
// results is the orchestrator's job.
type Client struct {
	baseURL    string
	httpClient *http.Client
	// streamClient has no timeout; streaming requests are bounded by the
	// caller's context instead.
	streamClient *http.Client
}

// NewClient creates a client for the backend at baseURL. An empty baseURL
// selects DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: sharedTransport,
			Timeout:   DefaultTimeout,
		},
		streamClient: &http.Client{
			Transport: sharedTransport,
		},
	}
}

// WithTimeout overrides the timeout used for non-streaming requests.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// STREAMING SEND
// =============================================================================

// StreamMessage performs one chat-send round trip against the per-chat
// streaming endpoint and drives the stream decoder over the response body.
//
// onToken is invoked once per decoded token, in the order tokens are read
// from the network (strict FIFO; there is no reordering buffer). On success
// the returned string is the full concatenated response text, equal to the
// concatenation of all tokens passed to onToken, marker text excluded.
//
// Failure modes:
//   - transport-level failure (non-success status, network error, unreadable
//     body) returns a *TransportError; onToken is never invoked after failure
//   - an [ERROR] marker in the stream returns a *StreamError carrying the
//     embedded message
//   - context cancellation is honored at the next chunk-read boundary and
//     returns ctx.Err()
//
// The response body is released on every exit path.
func (c *Client) StreamMessage(ctx context.Context, chatID string, req *SendRequest, onToken TokenFunc) (string, error) {
	if req.Files == nil {
		req.Files = []string{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling send request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/"+chatID, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating send request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Status: resp.StatusCode, Cause: readErrorBody(resp.Body)}
	}

	decoder := NewStreamDecoder()
	buf := make([]byte, streamReadSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			res := decoder.Decode(buf[:n])
			if res.Failed {
				return "", &StreamError{Message: res.Message}
			}
			if res.Token != "" {
				onToken(res.Token)
			}
			if res.Done {
				return decoder.Text(), nil
			}
		}
		if readErr == io.EOF {
			// End-of-stream without [END] is an implicit clean completion.
			res := decoder.Finish()
			if res.Token != "" {
				onToken(res.Token)
			}
			return decoder.Text(), nil
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &TransportError{Cause: readErr}
		}
	}
}

// =============================================================================
// CHAT CRUD
// =============================================================================

// Ping checks backend reachability.
func (c *Client) Ping(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/ping", nil, nil)
}

// doJSON performs a non-streaming JSON round trip. A nil out discards the
// response body; a nil in sends no body.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrChatNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Status: resp.StatusCode, Cause: readErrorBody(resp.Body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransportError{Cause: fmt.Errorf("decoding response: %w", err)}
		}
	}
	return nil
}

// readErrorBody extracts a bounded amount of an error response body for
// diagnostics. Never fails; an unreadable body yields nil.
func readErrorBody(r io.Reader) error {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return fmt.Errorf("%s", bytes.TrimSpace(data))
}
