// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/jeranaias/crmchat/internal/logging"
	"github.com/jeranaias/crmchat/internal/model"
	"github.com/jeranaias/crmchat/internal/orchestrator"
	"github.com/jeranaias/crmchat/internal/render"
	"github.com/jeranaias/crmchat/internal/session"
	"github.com/jeranaias/crmchat/internal/ui/styles"
)

const (
	// Title is shown at the left of the header.
	Title = "CRM Assistant"

	// ConfirmClearPrompt is shown in the footer while a clear awaits y/n.
	ConfirmClearPrompt = "Clear chat history? (y/n)"

	// Placeholder is shown in the empty input.
	Placeholder = "Type your message..."

	sendIcon = "➤"

	defaultWidth         = 80
	defaultHeight        = 24
	defaultMaxInputLines = 6
	minInputWidth        = 10
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a chat Model.
type Options struct {
	Theme    *styles.Theme
	Sessions *session.Provider
	Backend  orchestrator.Chatter

	// Transcript, if set, receives every rendered entry as well. When it
	// implements render.Clearer it is cleared along with the widget.
	Transcript render.View

	Welcome       string
	FallbackError string
	ConfirmClear  bool
	MaxInputLines int
	WordWrap      int

	// Styled enables glamour Markdown and lipgloss framing in the pane.
	Styled bool

	Logger zerolog.Logger
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat widget.
//
// It is both the render.View and the orchestrator.Controls of its
// orchestrator, so all methods use pointer receivers and the program must
// be started with the pointer returned by New.
type Model struct {
	opts  Options
	theme *styles.Theme
	keys  KeyMap
	log   zerolog.Logger

	// Conversation pane
	formatter *render.Formatter
	entries   []render.Entry
	rendered  []string

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	width  int
	height int

	// Exchange state
	sessionID string
	orch      *orchestrator.Orchestrator
	gen       int
	cancel    context.CancelFunc
	loading   bool

	confirming bool
	status     string
	quitting   bool
}

// New creates the widget, obtains the session id and renders the welcome
// message.
func New(opts Options) (*Model, error) {
	if opts.Theme == nil {
		return nil, errors.New("chat: theme is required")
	}
	if opts.Sessions == nil {
		return nil, errors.New("chat: session provider is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("chat: backend is required")
	}
	if opts.MaxInputLines <= 0 {
		opts.MaxInputLines = defaultMaxInputLines
	}
	if opts.WordWrap <= 0 {
		opts.WordWrap = defaultWidth
	}

	formatter, err := render.NewFormatter(opts.Theme, opts.WordWrap, opts.Styled)
	if err != nil {
		return nil, err
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = Placeholder
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.KeyMap.InsertNewline = keys.NewLine
	ta.SetHeight(1)
	ta.Focus()

	sp := spinner.New(spinner.WithSpinner(styles.TypingSpinner.Bubble()))

	m := &Model{
		opts:      opts,
		theme:     opts.Theme,
		keys:      keys,
		log:       logging.WithComponent(opts.Logger, "tui"),
		formatter: formatter,
		viewport:  viewport.New(defaultWidth, defaultHeight),
		input:     ta,
		spinner:   sp,
	}

	if err := m.startConversation(); err != nil {
		return nil, err
	}
	m.layout()
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case exchangeDoneMsg:
		return m.handleExchangeDone(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StatusMsg:
		m.status = msg.Text
		return m, nil

	case ClearRequestMsg:
		return m, m.resetConversation()
	}

	// Cursor blink and friends
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	if m.confirming {
		m.confirming = false
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.resetConversation()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Clear):
		if m.opts.ConfirmClear {
			m.confirming = true
			return m, nil
		}
		return m, m.resetConversation()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	m.status = ""

	// Input is disabled while a reply is pending.
	if m.loading {
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.autosize()
	return m, cmd
}

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	wrap := min(msg.Width, m.opts.WordWrap)
	before := m.formatter.Width()
	if err := m.formatter.SetWidth(wrap); err != nil {
		m.log.Error().Err(err).Int("width", wrap).Msg("failed to resize renderer")
	} else if m.formatter.Width() != before {
		m.rerender()
	}

	m.layout()
	return m, nil
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	ex, ok := m.orch.Begin(m.input.Value())
	if !ok {
		return m, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	return m, tea.Batch(runExchange(ctx, ex, m.gen), m.spinner.Tick)
}

func (m *Model) handleExchangeDone(msg exchangeDoneMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		m.log.Debug().Int("gen", msg.gen).Msg("dropping reply for a cleared conversation")
		return m, nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.orch.Complete(msg.outcome)
	return m, textarea.Blink
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.quitting = true
	return m, tea.Quit
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

// startConversation binds an orchestrator to the current session id and
// renders the welcome message.
func (m *Model) startConversation() error {
	id, orch, err := m.newConversation()
	if err != nil {
		return err
	}
	m.adopt(id, orch)
	return nil
}

// newConversation obtains the session id and builds its orchestrator
// without touching the model.
func (m *Model) newConversation() (string, *orchestrator.Orchestrator, error) {
	id, err := m.opts.Sessions.ObtainOrCreate()
	if err != nil {
		return "", nil, fmt.Errorf("failed to obtain session id: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.State{
		SessionID:     id,
		View:          m.view(),
		Controls:      m,
		Backend:       m.opts.Backend,
		FallbackError: m.opts.FallbackError,
		Logger:        m.opts.Logger,
	})
	if err != nil {
		return "", nil, err
	}
	return id, orch, nil
}

// adopt makes orch the active conversation. Replies still in flight for
// the previous one are dropped by generation.
func (m *Model) adopt(id string, orch *orchestrator.Orchestrator) {
	m.sessionID = id
	m.orch = orch
	m.gen++

	if m.opts.Welcome != "" {
		m.view().RenderMessage(model.NewAssistantMessage(m.opts.Welcome, ""))
	}
}

// resetConversation drops the history and the stored session id, then
// starts over with a fresh id. A pending reply is abandoned. If either
// step fails the current conversation stays as it is.
func (m *Model) resetConversation() tea.Cmd {
	m.confirming = false

	if err := m.opts.Sessions.Clear(); err != nil {
		m.log.Error().Err(err).Msg("failed to clear session id")
		m.status = "Failed to clear session: " + err.Error()
		return nil
	}
	id, orch, err := m.newConversation()
	if err != nil {
		m.log.Error().Err(err).Msg("failed to start new conversation")
		m.status = err.Error()
		return nil
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.loading = false
	if c, ok := m.view().(render.Clearer); ok {
		c.Clear()
	}
	m.adopt(id, orch)

	m.log.Info().Str("session", session.Label(m.sessionID)).Msg("conversation cleared")
	m.input.Focus()
	return textarea.Blink
}

// view is the render target handed to the orchestrator.
func (m *Model) view() render.View {
	if m.opts.Transcript == nil {
		return m
	}
	return render.Tee{m, m.opts.Transcript}
}

// =============================================================================
// render.View
// =============================================================================

// RenderMessage appends a message bubble to the pane.
func (m *Model) RenderMessage(msg model.Message) {
	m.appendEntry(render.MessageEntry(msg))
}

// RenderError appends an error notice to the pane.
func (m *Model) RenderError(message string) {
	m.appendEntry(render.ErrorEntry(message))
}

// ScrollToLatest scrolls the pane to the newest entry.
func (m *Model) ScrollToLatest() {
	m.viewport.GotoBottom()
}

// Clear empties the pane.
func (m *Model) Clear() {
	m.entries = nil
	m.rendered = nil
	m.refresh()
}

func (m *Model) appendEntry(e render.Entry) {
	m.entries = append(m.entries, e)
	m.rendered = append(m.rendered, m.formatter.Format(e))
	m.refresh()
	m.ScrollToLatest()
}

// rerender formats every entry again after a width change.
func (m *Model) rerender() {
	m.rendered = m.rendered[:0]
	for _, e := range m.entries {
		m.rendered = append(m.rendered, m.formatter.Format(e))
	}
	atBottom := m.viewport.AtBottom()
	m.refresh()
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(strings.Join(m.rendered, "\n\n"))
}

// =============================================================================
// orchestrator.Controls
// =============================================================================

// ClearInput empties the textarea and shrinks it back to one line.
func (m *Model) ClearInput() {
	m.input.Reset()
	m.autosize()
}

// SetLoading swaps the send icon for the spinner and disables input.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
	if loading {
		m.input.Blur()
	}
}

// FocusInput returns keyboard focus to the textarea.
func (m *Model) FocusInput() {
	m.input.Focus()
}

// =============================================================================
// LAYOUT
// =============================================================================

// autosize grows the textarea with its content, up to MaxInputLines.
func (m *Model) autosize() {
	lines := m.input.LineCount()
	if lines < 1 {
		lines = 1
	}
	if lines > m.opts.MaxInputLines {
		lines = m.opts.MaxInputLines
	}
	if lines != m.input.Height() {
		m.input.SetHeight(lines)
		m.layout()
	}
}

// layout sizes the viewport to whatever the fixed rows leave over.
func (m *Model) layout() {
	w, h := m.size()

	// border + space + icon with padding
	chrome := m.theme.InputContainer.GetHorizontalFrameSize() + 1 + lipgloss.Width(m.renderIcon())
	m.input.SetWidth(max(w-chrome, minInputWidth))

	fixed := lipgloss.Height(m.renderHeader()) + lipgloss.Height(m.renderInput()) + lipgloss.Height(m.renderFooter())
	vh := max(h-fixed, 1)

	atBottom := m.viewport.AtBottom()
	m.viewport.Width = w
	m.viewport.Height = vh
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) size() (int, int) {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// =============================================================================
// ACCESSORS
// =============================================================================

// SessionID returns the session id of the current conversation.
func (m *Model) SessionID() string { return m.sessionID }

// Entries returns a copy of what the pane currently shows.
func (m *Model) Entries() []render.Entry {
	out := make([]render.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Loading reports whether a reply is pending.
func (m *Model) Loading() bool { return m.loading }

// Confirming reports whether a clear awaits confirmation.
func (m *Model) Confirming() bool { return m.confirming }
