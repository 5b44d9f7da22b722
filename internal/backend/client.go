// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/crmchat/internal/config"
	"github.com/jeranaias/crmchat/internal/util"
)

// DefaultMaxResponseSize bounds how much of a reply is read.
// SECURITY: Response size limit prevents memory exhaustion.
const DefaultMaxResponseSize = 10 * 1024 * 1024

var (
	// ErrTransport indicates the request produced no usable response.
	ErrTransport = errors.New("transport failure")

	// ErrMalformedResponse indicates a 2xx reply that could not be decoded
	// or lacked the "response" field.
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError is returned for any non-2xx reply. Body is the reply text as
// received.
type StatusError struct {
	Status int
	Body   string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// ChatRequest is the body sent to the chat endpoint.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatResponse is the decoded reply. AgentUsed is empty when the server
// did not name an agent.
type ChatResponse struct {
	Response  string
	AgentUsed string
}

// wireResponse distinguishes a missing "response" from an empty one.
// The server also echoes session_id; it is ignored.
type wireResponse struct {
	Response  *string `json:"response"`
	AgentUsed *string `json:"agent_used"`
}

// Client talks to one chat endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	maxBytes   int64
	log        zerolog.Logger
}

// NewClient builds a client for cfg.Endpoint(). A zero timeout waits
// indefinitely.
func NewClient(cfg config.BackendConfig, logger zerolog.Logger) (*Client, error) {
	endpoint := cfg.Endpoint()
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("invalid chat endpoint %q: %w", endpoint, err)
	}

	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseSize
	}

	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
		},
		maxBytes: maxBytes,
		log:      logger,
	}, nil
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Endpoint returns the full chat URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Chat performs one exchange. The message is sent exactly as given.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logExchange(req, 0, start, err)
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	// SECURITY: Read response with size limit to prevent memory exhaustion
	body, truncated, err := c.readBody(resp.Body)
	if err != nil {
		c.logExchange(req, resp.StatusCode, start, err)
		return nil, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Status: resp.StatusCode, Body: string(body)}
		c.logExchange(req, resp.StatusCode, start, fmt.Errorf("HTTP %d", resp.StatusCode))
		return nil, statusErr
	}

	if truncated {
		err := fmt.Errorf("%w: response exceeded maximum size of %d bytes", ErrMalformedResponse, c.maxBytes)
		c.logExchange(req, resp.StatusCode, start, err)
		return nil, err
	}

	out, err := decode(body)
	c.logExchange(req, resp.StatusCode, start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// readBody reads at most maxBytes and reports whether more was available.
func (c *Client) readBody(r io.Reader) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > c.maxBytes {
		return body[:c.maxBytes], true, nil
	}
	return body, false, nil
}

func decode(body []byte) (*ChatResponse, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if wire.Response == nil {
		return nil, fmt.Errorf("%w: missing \"response\" field", ErrMalformedResponse)
	}

	out := &ChatResponse{Response: *wire.Response}
	if wire.AgentUsed != nil {
		out.AgentUsed = *wire.AgentUsed
	}
	return out, nil
}

// logExchange records one request. Message and reply bodies are never logged.
func (c *Client) logExchange(req ChatRequest, status int, start time.Time, err error) {
	var ev *zerolog.Event
	if err != nil {
		ev = c.log.Warn().Err(err)
	} else {
		ev = c.log.Debug()
	}
	ev.Str("method", http.MethodPost).
		Str("endpoint", c.endpoint).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Str("session", util.Abbreviate(req.SessionID, 8)).
		Int("message_len", len(req.Message)).
		Msg("chat exchange")
}
