// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/crmchat/internal/config"
)

func newTestClient(t *testing.T, url string, mutate ...func(*config.BackendConfig)) *Client {
	t.Helper()
	cfg := config.Default().Backend
	cfg.BaseURL = url
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg, zerolog.Nop())
	require.NoError(t, err)
	return c
}

// =============================================================================
// REQUEST SHAPE
// =============================================================================

func TestChat_SendsExpectedRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		var body map[string]string
		assert.NoError(t, json.Unmarshal(raw, &body))
		assert.Equal(t, map[string]string{
			"session_id": "sess-1",
			"message":    "  hello there \n",
		}, body)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"hi","agent_used":"lead_agent","session_id":"sess-1"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Chat(context.Background(), ChatRequest{SessionID: "sess-1", Message: "  hello there \n"})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Response)
	assert.Equal(t, "lead_agent", resp.AgentUsed)
	assert.EqualValues(t, 1, calls.Load(), "exactly one request per exchange")
}

func TestChat_TrailingSlashBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL+"/")
	_, err := c.Chat(context.Background(), ChatRequest{SessionID: "s", Message: "m"})
	require.NoError(t, err)
}

// =============================================================================
// RESPONSE HANDLING
// =============================================================================

func TestChat_AgentOptional(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"absent", `{"response":"plain"}`},
		{"null", `{"response":"plain","agent_used":null}`},
		{"empty", `{"response":"plain","agent_used":""}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			resp, err := newTestClient(t, server.URL).Chat(context.Background(), ChatRequest{SessionID: "s", Message: "m"})
			require.NoError(t, err)
			assert.Equal(t, "plain", resp.Response)
			assert.Empty(t, resp.AgentUsed)
		})
	}
}

func TestChat_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Chat(context.Background(), ChatRequest{SessionID: "s", Message: "m"})
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "want *StatusError, got %T", err)
	assert.Equal(t, 500, statusErr.Status)
	assert.Equal(t, "boom", statusErr.Body)
	assert.Equal(t, "HTTP 500: boom", err.Error())
	assert.False(t, errors.Is(err, ErrTransport))
}

func TestChat_NonOKSuccessCodesAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"response":"created"}`))
	}))
	defer server.Close()

	resp, err := newTestClient(t, server.URL).Chat(context.Background(), ChatRequest{SessionID: "s", Message: "m"})
	require.NoError(t, err)
	assert.Equal(t, "created", resp.Response)
}

func TestChat_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"not json", "<html>gateway</html>"},
		{"missing response", `{"agent_used":"lead_agent"}`},
		{"null response", `{"response":null}`},
		{"wrong type", `{"response":42}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newTestClient(t, server.URL).Chat(context.Background(), ChatRequest{SessionID: "s", Message: "m"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedResponse), "got %v", err)
		})
	}
}

func TestChat_OversizedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"` + strings.Repeat("x", 200) + `"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, func(b *config.BackendConfig) { b.MaxResponseBytes = 64 })
	_, err := c.Chat(context.Background(), ChatRequest{SessionID: "s", Message: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
}

// =============================================================================
// TRANSPORT FAILURES
// =============================================================================

func TestChat_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(t, url).Chat(context.Background(), ChatRequest{SessionID: "s", Message: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport), "got %v", err)

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestChat_TimeoutIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	c := newTestClient(t, server.URL)
	c.WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond})

	_, err := c.Chat(context.Background(), ChatRequest{SessionID: "s", Message: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestChat_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":"late"}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, server.URL).Chat(ctx, ChatRequest{SessionID: "s", Message: "m"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewClient_InvalidEndpoint(t *testing.T) {
	cfg := config.Default().Backend
	cfg.BaseURL = "::not a url"
	_, err := NewClient(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestNewClient_Endpoint(t *testing.T) {
	c := newTestClient(t, "http://crm.internal:8000")
	assert.Equal(t, "http://crm.internal:8000/chat", c.Endpoint())
}
