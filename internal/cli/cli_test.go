// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This test file covers the crmchat commands end to end against a fake
// chat backend: ask, chat, session, config and version.
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/crmchat/internal/backend"
	"github.com/jeranaias/crmchat/internal/config"
	"github.com/jeranaias/crmchat/internal/storage"
)

func TestMain(m *testing.M) {
	ForceColorsEnabled(false)
	os.Exit(m.Run())
}

// =============================================================================
// TEST HELPERS
// =============================================================================

// fakeBackend records every request and answers with handle.
type fakeBackend struct {
	mu       sync.Mutex
	requests []backend.ChatRequest
	handle   func(w http.ResponseWriter, req backend.ChatRequest)
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req backend.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	f.handle(w, req)
}

func (f *fakeBackend) sessionIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, len(f.requests))
	for i, r := range f.requests {
		ids[i] = r.SessionID
	}
	return ids
}

func echo(w http.ResponseWriter, req backend.ChatRequest) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"response": %q, "agent_used": "lead_agent"}`, "Echo: "+req.Message)
}

func fail(status int, body string) func(http.ResponseWriter, backend.ChatRequest) {
	return func(w http.ResponseWriter, _ backend.ChatRequest) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

// testEnv points HOME at a temp dir and writes a config file that talks
// to a fake backend. It returns the config path.
func testEnv(t *testing.T, fb *fakeBackend) (string, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)

	path := writeConfig(t, dir, srv.URL)
	return path, srv
}

func writeConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	content := fmt.Sprintf(`
[backend]
base_url = %q

[session]
store = "file"
path = %q

[ui]
welcome = "Hi there"
confirm_clear = true

[log]
level = "debug"
file = %q
`, baseURL, filepath.Join(dir, "session.json"), filepath.Join(dir, "crmchat.log"))

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// run executes the command tree with the given config and arguments.
func run(t *testing.T, cfgPath string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))

	full := append([]string{"--config", cfgPath}, args...)
	code := Run(context.Background(), root, full)
	return code, stdout.String(), stderr.String()
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", NewUsageError("bad"), ExitUsageError},
		{"config", &ConfigError{Err: errors.New("broken")}, ExitConfigError},
		{"validation", fmt.Errorf("invalid config: %w", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}), ExitConfigError},
		{"unauthorized", &backend.StatusError{Status: 401}, ExitAuthError},
		{"forbidden", &backend.StatusError{Status: 403}, ExitAuthError},
		{"not found", &backend.StatusError{Status: 404}, ExitNotFoundError},
		{"gateway timeout", &backend.StatusError{Status: 504}, ExitTimeoutError},
		{"server error", &backend.StatusError{Status: 500, Body: "boom"}, ExitGeneralError},
		{"transport", fmt.Errorf("%w: connection refused", backend.ErrTransport), ExitNetworkError},
		{"deadline", fmt.Errorf("%w: %w", backend.ErrTransport, context.DeadlineExceeded), ExitTimeoutError},
		{"malformed", fmt.Errorf("%w: eof", backend.ErrMalformedResponse), ExitGeneralError},
		{"store miss", storage.ErrNotFound, ExitNotFoundError},
		{"reported", &reportedError{err: &backend.StatusError{Status: 401}}, ExitAuthError},
		{"other", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_PrintsReplyAndKeepsSession(t *testing.T) {
	fb := &fakeBackend{handle: echo}
	cfg, _ := testEnv(t, fb)

	code, out, errOut := run(t, cfg, "ask", "show", "my", "leads")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "Echo: show my leads")
	assert.Contains(t, out, "lead agent")
	assert.NotContains(t, out, "You:")

	code, _, _ = run(t, cfg, "ask", "and tomorrow?")
	require.Equal(t, ExitSuccess, code)

	ids := fb.sessionIDs()
	require.Len(t, ids, 2)
	assert.NotEmpty(t, ids[0])
	assert.Equal(t, ids[0], ids[1], "follow-up asks reuse the stored session")
}

func TestAsk_JSON(t *testing.T) {
	fb := &fakeBackend{handle: echo}
	cfg, _ := testEnv(t, fb)

	code, out, _ := run(t, cfg, "ask", "--json", "hello")
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Success bool      `json:"success"`
		Data    AskResult `json:"data"`
		Command string    `json:"command"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "ask", resp.Command)
	assert.Equal(t, "hello", resp.Data.Message)
	assert.Equal(t, "Echo: hello", resp.Data.Response)
	assert.Equal(t, "lead_agent", resp.Data.AgentUsed)
	assert.Equal(t, fb.sessionIDs()[0], resp.Data.SessionID)
}

func TestAsk_ServerErrorShownOnce(t *testing.T) {
	cfg, _ := testEnv(t, &fakeBackend{handle: fail(http.StatusInternalServerError, "boom")})

	code, out, errOut := run(t, cfg, "ask", "hello")
	assert.Equal(t, ExitGeneralError, code)
	assert.Contains(t, out, "⚠️ HTTP 500: boom")
	assert.Empty(t, errOut)
}

func TestAsk_UnauthorizedExitCode(t *testing.T) {
	cfg, _ := testEnv(t, &fakeBackend{handle: fail(http.StatusUnauthorized, "no")})

	code, _, _ := run(t, cfg, "ask", "hello")
	assert.Equal(t, ExitAuthError, code)
}

func TestAsk_UnreachableBackend(t *testing.T) {
	cfg, srv := testEnv(t, &fakeBackend{handle: echo})
	srv.Close()

	code, out, _ := run(t, cfg, "ask", "hello")
	assert.Equal(t, ExitNetworkError, code)
	assert.Contains(t, out, config.DefaultFallbackError)
}

func TestAsk_MalformedResponse(t *testing.T) {
	cfg, _ := testEnv(t, &fakeBackend{handle: fail(http.StatusOK, "not json")})

	code, out, _ := run(t, cfg, "ask", "hello")
	assert.Equal(t, ExitGeneralError, code)
	assert.Contains(t, out, "Malformed response from server")
}

func TestAsk_JSONErrorGoesToStderr(t *testing.T) {
	cfg, _ := testEnv(t, &fakeBackend{handle: fail(http.StatusInternalServerError, "boom")})

	code, out, errOut := run(t, cfg, "ask", "--json", "hello")
	assert.Equal(t, ExitGeneralError, code)
	assert.Empty(t, out)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal([]byte(errOut), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Contains(t, *resp.Error, "HTTP 500")
}

func TestAsk_UsageErrors(t *testing.T) {
	cfg, _ := testEnv(t, &fakeBackend{handle: echo})

	code, _, errOut := run(t, cfg, "ask")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "usage error")

	code, _, _ = run(t, cfg, "ask", "   ")
	assert.Equal(t, ExitUsageError, code)

	code, _, _ = run(t, cfg, "ask", "--nope", "hi")
	assert.Equal(t, ExitUsageError, code)
}

func TestBadConfigExitCode(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfg := writeConfig(t, dir, "ftp://example.com")

	code, _, errOut := run(t, cfg, "ask", "hello")
	assert.Equal(t, ExitConfigError, code)
	assert.Contains(t, errOut, "backend.base_url")
}

func TestBackendFlagOverridesConfig(t *testing.T) {
	fb := &fakeBackend{handle: echo}
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	srv := httptest.NewServer(fb)
	defer srv.Close()
	cfg := writeConfig(t, dir, "http://127.0.0.1:1")

	code, out, _ := run(t, cfg, "--backend", srv.URL, "ask", "hi")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Echo: hi")
}

func TestAsk_TranscriptSavedOnClose(t *testing.T) {
	cfg, _ := testEnv(t, &fakeBackend{handle: echo})
	transcript := filepath.Join(filepath.Dir(cfg), "transcript.html")

	code, _, _ := run(t, cfg, "--transcript", transcript, "ask", "hello")
	require.Equal(t, ExitSuccess, code)

	data, err := os.ReadFile(transcript)
	require.NoError(t, err)
	page := string(data)
	assert.Contains(t, page, TranscriptTitle)
	assert.Contains(t, page, "Echo: hello")
}

func TestAsk_TranscriptTrustedHTML(t *testing.T) {
	raw := func(w http.ResponseWriter, _ backend.ChatRequest) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"response": "<b onclick=\"x()\">hot</b>"}`)
	}
	save := func(t *testing.T) string {
		cfg, _ := testEnv(t, &fakeBackend{handle: raw})
		transcript := filepath.Join(filepath.Dir(cfg), "transcript.html")
		code, _, errOut := run(t, cfg, "--transcript", transcript, "ask", "leads")
		require.Equal(t, ExitSuccess, code, errOut)
		data, err := os.ReadFile(transcript)
		require.NoError(t, err)
		return string(data)
	}

	assert.NotContains(t, save(t), "onclick")

	t.Setenv("CRMCHAT_UI_TRUSTED_HTML", "true")
	assert.Contains(t, save(t), `onclick="x()"`)
}

// =============================================================================
// SESSION
// =============================================================================

func sessionShowJSON(t *testing.T, cfg string) SessionInfo {
	t.Helper()
	code, out, errOut := run(t, cfg, "session", "show", "--json")
	require.Equal(t, ExitSuccess, code, errOut)
	var resp struct {
		Data SessionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp.Data
}

func TestSession_ShowAndClear(t *testing.T) {
	fb := &fakeBackend{handle: echo}
	cfg, _ := testEnv(t, fb)

	info := sessionShowJSON(t, cfg)
	assert.False(t, info.Exists, "show must not create a session")
	assert.Equal(t, "file", info.Store)

	code, _, _ := run(t, cfg, "ask", "hello")
	require.Equal(t, ExitSuccess, code)

	info = sessionShowJSON(t, cfg)
	assert.True(t, info.Exists)
	assert.Equal(t, fb.sessionIDs()[0], info.SessionID)
	assert.True(t, strings.HasPrefix(info.Label, "Session: "+info.SessionID[:8]))

	code, out, _ := run(t, cfg, "session")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, info.SessionID)

	// stdin is not a terminal, so clearing needs --confirm
	code, _, _ = run(t, cfg, "session", "clear")
	assert.Equal(t, ExitUsageError, code)
	assert.True(t, sessionShowJSON(t, cfg).Exists)

	code, out, _ = run(t, cfg, "session", "clear", "--confirm")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Session cleared.")
	assert.False(t, sessionShowJSON(t, cfg).Exists)

	code, _, _ = run(t, cfg, "ask", "again")
	require.Equal(t, ExitSuccess, code)
	ids := fb.sessionIDs()
	assert.NotEqual(t, ids[0], ids[1], "a cleared session starts a new conversation")
}

func TestSession_ClearPrompts(t *testing.T) {
	cfg, _ := testEnv(t, &fakeBackend{handle: echo})
	app, err := NewApp(&GlobalOptions{ConfigPath: cfg})
	require.NoError(t, err)
	defer app.Close()

	_, err = app.Sessions.ObtainOrCreate()
	require.NoError(t, err)

	var out bytes.Buffer
	err = HandleSessionClear(app, strings.NewReader("n\n"), &out, ConfirmationOptions{Interactive: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Cancelled.")
	_, ok, err := app.Sessions.Peek()
	require.NoError(t, err)
	assert.True(t, ok)

	out.Reset()
	err = HandleSessionClear(app, strings.NewReader("yes\n"), &out, ConfirmationOptions{Interactive: true})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Are you sure you want to clear the stored session id? [y/N]: ")
	_, ok, err = app.Sessions.Peek()
	require.NoError(t, err)
	assert.False(t, ok)
}

// =============================================================================
// CONFIRMATION
// =============================================================================

func TestRequireConfirmationWithOpts(t *testing.T) {
	ok, err := RequireConfirmationWithOpts("x", ConfirmationOptions{ConfirmFlag: true})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = RequireConfirmationWithOpts("x", ConfirmationOptions{JSONMode: true, Interactive: true})
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	_, err = RequireConfirmationWithOpts("x", ConfirmationOptions{In: strings.NewReader("y\n")})
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	var out bytes.Buffer
	ok, err = RequireConfirmationWithOpts("x", ConfirmationOptions{
		Interactive: true,
		In:          strings.NewReader("Y"),
		Out:         &out,
	})
	require.NoError(t, err)
	assert.True(t, ok, "a final answer without newline still counts")
}

func TestIsYes(t *testing.T) {
	for _, s := range []string{"y", "Y", "yes", " YES \n"} {
		assert.True(t, IsYes(s), s)
	}
	for _, s := range []string{"", "n", "no", "yep", "sure"} {
		assert.False(t, IsYes(s), s)
	}
}

// =============================================================================
// CONFIG
// =============================================================================

func TestConfig_InitGetSet(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfg := filepath.Join(dir, "fresh", "config.toml")

	code, out, errOut := run(t, cfg, "config", "init")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, cfg)

	info, err := os.Stat(cfg)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	code, _, _ = run(t, cfg, "config", "init")
	assert.Equal(t, ExitUsageError, code, "init refuses to overwrite")

	code, _, _ = run(t, cfg, "config", "init", "--force")
	assert.Equal(t, ExitSuccess, code)

	code, _, _ = run(t, cfg, "config", "set", "backend.timeout_secs", "30")
	require.Equal(t, ExitSuccess, code)

	code, out, _ = run(t, cfg, "config", "get", "backend.timeout_secs")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "30\n", out)

	code, _, _ = run(t, cfg, "config", "set", "ui.theme", "neon")
	assert.Equal(t, ExitConfigError, code)

	code, _, _ = run(t, cfg, "config", "set", "nope.key", "1")
	assert.Equal(t, ExitUsageError, code)

	code, _, _ = run(t, cfg, "config", "set", "backend.timeout_secs", "soon")
	assert.Equal(t, ExitUsageError, code)

	code, out, _ = run(t, cfg, "config", "get")
	require.Equal(t, ExitSuccess, code)
	for _, k := range config.Keys() {
		assert.Contains(t, out, k+" = ")
	}
}

func TestConfig_SetDoesNotPersistOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfg := filepath.Join(dir, "config.toml")
	t.Setenv("CRMCHAT_BACKEND_BASE_URL", "https://from-env.example.com")

	code, _, _ := run(t, cfg, "config", "set", "ui.word_wrap", "100")
	require.Equal(t, ExitSuccess, code)

	data, err := os.ReadFile(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "from-env")
	assert.Contains(t, string(data), "word_wrap = 100")

	code, out, _ := run(t, cfg, "config", "get", "backend.base_url")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "https://from-env.example.com\n", out)
}

func TestConfig_ShowAndPath(t *testing.T) {
	cfg, srv := testEnv(t, &fakeBackend{handle: echo})

	code, out, _ := run(t, cfg, "config", "path")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, cfg+"\n", out)

	code, out, _ = run(t, cfg, "config", "show", "--json")
	require.Equal(t, ExitSuccess, code)
	var resp struct {
		Data config.Config `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, srv.URL, resp.Data.Backend.BaseURL)
	assert.Equal(t, "Hi there", resp.Data.UI.Welcome)

	code, out, _ = run(t, cfg, "config")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "[backend]")
}

func TestVersion(t *testing.T) {
	cfg, _ := testEnv(t, &fakeBackend{handle: echo})
	code, out, _ := run(t, cfg, "version")
	require.Equal(t, ExitSuccess, code)
	assert.True(t, strings.HasPrefix(out, "crmchat "+Version))
}

// =============================================================================
// LINE-MODE CHAT
// =============================================================================

// scriptedInput replays lines and answers, then reports EOF.
type scriptedInput struct {
	lines   []string
	answers []bool
	prompts []string
}

func (s *scriptedInput) ReadInput(prompt string) (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) Confirm(prompt string) (bool, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		return false, io.EOF
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *scriptedInput) Close() {}

func newTestChat(t *testing.T, fb *fakeBackend, input *scriptedInput) (*ChatSession, *bytes.Buffer) {
	t.Helper()
	cfg, _ := testEnv(t, fb)
	app, err := NewApp(&GlobalOptions{ConfigPath: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	var out bytes.Buffer
	s, err := NewChatSession(app, &out, input)
	require.NoError(t, err)
	return s, &out
}

func TestChatSession_Conversation(t *testing.T) {
	fb := &fakeBackend{handle: echo}
	input := &scriptedInput{lines: []string{"hello", "", "  ", "how are you", "/quit", "never sent"}}
	s, out := newTestChat(t, fb, input)

	require.NoError(t, s.Run(context.Background()))

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "Hi there"))
	assert.Contains(t, text, "Echo: hello")
	assert.Contains(t, text, "Echo: how are you")
	assert.NotContains(t, text, "never sent")

	ids := fb.sessionIDs()
	require.Len(t, ids, 2)
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, s.orch.SessionID(), ids[0])
}

func TestChatSession_ClearStartsNewSession(t *testing.T) {
	fb := &fakeBackend{handle: echo}
	input := &scriptedInput{
		lines:   []string{"first", "/clear", "/clear", "second"},
		answers: []bool{false, true},
	}
	s, out := newTestChat(t, fb, input)

	require.NoError(t, s.Run(context.Background()), "EOF ends the session")

	text := out.String()
	require.Len(t, input.prompts, 2)
	assert.Contains(t, input.prompts[0], "Clear chat history? (y/n)")
	assert.Equal(t, 1, strings.Count(text, "conversation cleared"))
	assert.Equal(t, 2, strings.Count(text, "Hi there"), "welcome shown again after clear")

	ids := fb.sessionIDs()
	require.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestChatSession_SlashCommands(t *testing.T) {
	fb := &fakeBackend{handle: echo}
	input := &scriptedInput{lines: []string{"/help", "/session", "/bogus", "exit"}}
	s, out := newTestChat(t, fb, input)

	require.NoError(t, s.Run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "/clear, /c")
	assert.Contains(t, text, "Session ID:")
	assert.Contains(t, text, s.orch.SessionID())
	assert.Contains(t, text, "unknown command: /bogus")
	assert.Empty(t, fb.sessionIDs())
}

func TestChatSession_ErrorNotice(t *testing.T) {
	fb := &fakeBackend{handle: fail(http.StatusBadGateway, "upstream down")}
	input := &scriptedInput{lines: []string{"hello"}}
	s, out := newTestChat(t, fb, input)

	require.NoError(t, s.Run(context.Background()))
	assert.Contains(t, out.String(), "⚠️ HTTP 502: upstream down")
	assert.False(t, s.orch.Pending(), "a failed exchange releases the lock")
}

func TestChatSession_ThinkingIndicatorErasedBeforeReply(t *testing.T) {
	ForceColorsEnabled(true)
	t.Cleanup(func() { ForceColorsEnabled(false) })

	fb := &fakeBackend{handle: echo}
	input := &scriptedInput{lines: []string{"hello"}}
	s, out := newTestChat(t, fb, input)

	require.NoError(t, s.Run(context.Background()))

	text := out.String()
	eraseLine := termenv.CSI + termenv.EraseEntireLineSeq
	thinking := strings.Index(text, "Thinking...")
	require.GreaterOrEqual(t, thinking, 0, "indicator shown while the reply is pending")
	erased := strings.Index(text[thinking:], "\r"+eraseLine)
	require.GreaterOrEqual(t, erased, 0, "indicator erased")
	reply := strings.LastIndex(text, "Echo")
	assert.Less(t, thinking+erased, reply, "indicator erased before the reply is written")
	assert.Equal(t, strings.Count(text, "Thinking..."), strings.Count(text, "\r"+eraseLine))
}

func TestChatSession_ThinkingIndicatorErasedBeforeError(t *testing.T) {
	ForceColorsEnabled(true)
	t.Cleanup(func() { ForceColorsEnabled(false) })

	fb := &fakeBackend{handle: fail(http.StatusInternalServerError, "boom")}
	input := &scriptedInput{lines: []string{"hello"}}
	s, out := newTestChat(t, fb, input)

	require.NoError(t, s.Run(context.Background()))

	text := out.String()
	eraseLine := "\r" + termenv.CSI + termenv.EraseEntireLineSeq
	thinking := strings.Index(text, "Thinking...")
	require.GreaterOrEqual(t, thinking, 0)
	erased := strings.Index(text, eraseLine)
	assert.Greater(t, erased, thinking)
	assert.Less(t, erased, strings.Index(text, "boom"))
}

func TestChatSession_DoubleSlashSendsMessage(t *testing.T) {
	fb := &fakeBackend{handle: echo}
	input := &scriptedInput{lines: []string{"//etc/hosts please", "/etc"}}
	s, out := newTestChat(t, fb, input)

	require.NoError(t, s.Run(context.Background()))

	fb.mu.Lock()
	reqs := append([]backend.ChatRequest(nil), fb.requests...)
	fb.mu.Unlock()
	require.Len(t, reqs, 1, "a single slash is still a command")
	assert.Equal(t, "/etc/hosts please", reqs[0].Message)
	assert.Contains(t, out.String(), "unknown command: /etc")
}

// brokenWriter fails every write.
type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestAsk_WriteFailureIsReported(t *testing.T) {
	cfg, _ := testEnv(t, &fakeBackend{handle: echo})
	app, err := NewApp(&GlobalOptions{ConfigPath: cfg})
	require.NoError(t, err)
	defer app.Close()

	err = HandleAsk(context.Background(), app, "hello", false, brokenWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}
