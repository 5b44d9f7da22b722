// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat command.
//
// Command: chat
// Short:   Start a line-mode chat session
//
// Interactive Commands (during chat):
//
//	/help, /h           Show available commands
//	/clear, /c          Clear the conversation and start a new session
//	/session, /s        Show the session id
//	/quit, /q           Exit chat
//	Ctrl+C              Cancel the pending request, or exit at the prompt
//	Ctrl+D              Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/muesli/termenv"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/crmchat/internal/config"
	"github.com/jeranaias/crmchat/internal/model"
	"github.com/jeranaias/crmchat/internal/orchestrator"
	"github.com/jeranaias/crmchat/internal/render"
	"github.com/jeranaias/crmchat/internal/session"
	chatui "github.com/jeranaias/crmchat/internal/ui/chat"
	"github.com/jeranaias/crmchat/internal/ui/styles"
)

const historyFileName = "chat_history"

func newChatCommand(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start a line-mode chat session",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *App) error {
				return HandleChat(cmd.Context(), app, cmd.OutOrStdout())
			})
		},
	}
}

// =============================================================================
// INPUT HISTORY
// =============================================================================

// LineReader is the input side of the REPL.
type LineReader interface {
	ReadInput(prompt string) (string, error)
	Confirm(prompt string) (bool, error)
	Close()
}

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI that keeps its history in historyFile.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}
	c.LoadHistory()
	return c
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Confirm asks a y/n question. Anything but y or yes is no.
func (c *ChatCLI) Confirm(prompt string) (bool, error) {
	answer, err := c.line.Prompt(prompt)
	if err != nil {
		return false, err
	}
	return IsYes(answer), nil
}

// SaveHistory persists command history to file.
// SECURITY: History may contain customer data, so the file is 0600.
func (c *ChatCLI) SaveHistory() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state of a line-mode conversation.
type ChatSession struct {
	app      *App
	out      io.Writer
	input    LineReader
	term     *render.Terminal
	view     render.Tee
	controls *lineControls
	orch     *orchestrator.Orchestrator
}

// NewChatSession binds a conversation to out and input.
func NewChatSession(app *App, out io.Writer, input LineReader) (*ChatSession, error) {
	formatter, err := newTerminalFormatter(app)
	if err != nil {
		return nil, err
	}

	term := render.NewTerminal(out, formatter)
	controls := newLineControls(out)

	// The typed line is already on screen, so the terminal skips the echo.
	// The thinking indicator is erased before the reply is drawn over it.
	view := render.Tee{replyView{View: term, beforeWrite: controls.hide}}
	if tv := app.TranscriptView(); tv != nil {
		view = append(view, tv)
	}

	s := &ChatSession{
		app:      app,
		out:      out,
		input:    input,
		term:     term,
		view:     view,
		controls: controls,
	}

	fmt.Fprintln(out, RenderConditional(welcomeStyle, chatui.Title)+" "+
		RenderConditional(DimStyle, "Type /help for commands."))

	if err := s.start(); err != nil {
		return nil, err
	}
	return s, nil
}

// start binds an orchestrator to the current session id and shows the
// welcome message.
func (s *ChatSession) start() error {
	id, err := s.app.Sessions.ObtainOrCreate()
	if err != nil {
		return fmt.Errorf("failed to obtain session id: %w", err)
	}
	orch, err := orchestrator.New(orchestrator.State{
		SessionID:     id,
		View:          s.view,
		Controls:      s.controls,
		Backend:       s.app.Client,
		FallbackError: s.app.Config.UI.FallbackError,
		Logger:        s.app.Logger,
	})
	if err != nil {
		return err
	}
	s.orch = orch

	if welcome := s.app.Config.UI.Welcome; welcome != "" {
		s.view.RenderMessage(model.NewAssistantMessage(welcome, ""))
	}
	return nil
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the line-mode chat on the terminal.
func HandleChat(ctx context.Context, app *App, out io.Writer) error {
	historyFile := historyFileName
	if dir, err := config.ConfigDir(); err == nil {
		historyFile = filepath.Join(dir, historyFileName)
	}

	input := NewChatCLI(historyFile)
	defer input.Close()

	s, err := NewChatSession(app, out, input)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// Run reads and sends lines until the user quits.
func (s *ChatSession) Run(ctx context.Context) error {
	for {
		line, err := s.input.ReadInput(RenderConditional(promptStyle, "you> "))
		if err != nil {
			// Ctrl+C at the prompt or Ctrl+D
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// "//" sends a message that starts with a slash.
		if strings.HasPrefix(trimmed, "//") {
			line = strings.Replace(line, "//", "/", 1)
		} else if strings.HasPrefix(trimmed, "/") {
			keepGoing, err := s.handleSlashCommand(trimmed)
			if err != nil {
				fmt.Fprintf(s.out, "%s %v\n", RenderConditional(ErrorStyle, "[Error]"), err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}

		if strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit") {
			return nil
		}

		s.send(ctx, line)
		if err := s.term.Err(); err != nil {
			return fmt.Errorf("failed to write reply: %w", err)
		}
	}
}

// send runs one exchange. Ctrl+C cancels it.
func (s *ChatSession) send(ctx context.Context, text string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	s.orch.Send(ctx, text)
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs a /command. It returns false when chat should end.
func (s *ChatSession) handleSlashCommand(input string) (bool, error) {
	fields := strings.Fields(input)
	switch strings.ToLower(fields[0]) {
	case "/help", "/h", "/?":
		s.printHelp()
	case "/clear", "/c":
		return true, s.clear()
	case "/session", "/s":
		s.printSession()
	case "/quit", "/q", "/exit":
		return false, nil
	default:
		return true, fmt.Errorf("unknown command: %s (try /help, or start with // to send it as a message)", fields[0])
	}
	return true, nil
}

// clear drops the conversation and the stored session id.
func (s *ChatSession) clear() error {
	if s.app.Config.UI.ConfirmClear {
		ok, err := s.input.Confirm(RenderConditional(WarningStyle, chatui.ConfirmClearPrompt) + " ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return err
		}
		if !ok {
			return nil
		}
	}

	s.view.Clear()
	if err := s.app.Sessions.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return s.start()
}

func (s *ChatSession) printHelp() {
	cmds := [][2]string{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Clear the conversation and start a new session"},
		{"/session, /s", "Show the session id"},
		{"/quit, /q", "Exit chat"},
		{"//text", "Send a message that starts with /"},
	}
	for _, c := range cmds {
		fmt.Fprintf(s.out, "  %s %s\n", RenderConditional(commandStyle, fmt.Sprintf("%-14s", c[0])), c[1])
	}
}

func (s *ChatSession) printSession() {
	id := s.orch.SessionID()
	fmt.Fprintf(s.out, "%s\n%s %s\n",
		RenderConditional(TitleStyle, session.Label(id)),
		RenderLabel("Session ID:"),
		RenderConditional(ValueStyle, id))
}

// =============================================================================
// CONTROLS
// =============================================================================

// lineControls shows a thinking indicator while a reply is pending.
// The indicator is drawn only on terminals; pipes get nothing.
type lineControls struct {
	out     *termenv.Output
	enabled bool
	shown   bool
}

func newLineControls(w io.Writer) *lineControls {
	return &lineControls{
		out:     termenv.NewOutput(w),
		enabled: ColorsEnabled(),
	}
}

func (c *lineControls) ClearInput() {}

func (c *lineControls) SetLoading(loading bool) {
	if !c.enabled {
		return
	}
	if loading {
		fmt.Fprint(c.out, DimStyle.Render("Thinking..."))
		c.shown = true
		return
	}
	c.hide()
}

// hide erases the indicator if it is on screen.
func (c *lineControls) hide() {
	if !c.shown {
		return
	}
	fmt.Fprint(c.out, "\r")
	c.out.ClearLine()
	c.shown = false
}

func (c *lineControls) FocusInput() {}

// newTerminalFormatter renders Markdown with glamour on terminals and
// plain text everywhere else.
func newTerminalFormatter(app *App) (*render.Formatter, error) {
	theme := styles.NewTheme(app.Config.UI.Theme)
	width := min(GetTerminalWidth(), app.Config.UI.WordWrap)
	return render.NewFormatter(theme, width, ColorsEnabled())
}
