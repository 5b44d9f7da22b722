// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot message command.
//
// Command: ask MESSAGE...
// Short:   Send one message and print the reply
//
// Examples:
//
//	crmchat ask "Which deals close this month?"
//	crmchat ask --json "List open tickets for Acme"
//
// The message joins the persisted session, so a follow-up ask continues
// the same conversation. Exit codes reflect the failure category.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/crmchat/internal/model"
	"github.com/jeranaias/crmchat/internal/orchestrator"
	"github.com/jeranaias/crmchat/internal/render"
)

// AskResult is the data payload of `ask --json`.
type AskResult struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Response  string `json:"response"`
	AgentUsed string `json:"agent_used,omitempty"`
}

func newAskCommand(opts *GlobalOptions) *cobra.Command {
	var jsonMode bool

	cmd := &cobra.Command{
		Use:   "ask MESSAGE...",
		Short: "Send one message and print the reply",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := strings.Join(args, " ")
			return withApp(opts, func(app *App) error {
				return HandleAsk(cmd.Context(), app, message, jsonMode, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "output JSON")
	return cmd
}

// HandleAsk sends message on the current session and writes the reply to
// out. The returned error carries the exchange failure, if any.
func HandleAsk(ctx context.Context, app *App, message string, jsonMode bool, out io.Writer) error {
	if strings.TrimSpace(message) == "" {
		return NewUsageError("message must not be empty")
	}

	sessionID, err := app.Sessions.ObtainOrCreate()
	if err != nil {
		return err
	}

	var term *render.Terminal
	views := render.Tee{}
	if !jsonMode {
		formatter, err := newTerminalFormatter(app)
		if err != nil {
			return err
		}
		term = render.NewTerminal(out, formatter)
		views = append(views, replyView{View: term})
	}
	if tv := app.TranscriptView(); tv != nil {
		views = append(views, tv)
	}

	orch, err := orchestrator.New(orchestrator.State{
		SessionID:     sessionID,
		View:          views,
		Controls:      nopControls{},
		Backend:       app.Client,
		FallbackError: app.Config.UI.FallbackError,
		Logger:        app.Logger,
	})
	if err != nil {
		return err
	}

	ex, ok := orch.Begin(message)
	if !ok {
		return NewUsageError("message must not be empty")
	}
	outcome := ex.Do(ctx)
	orch.Complete(outcome)

	if term != nil {
		if err := term.Err(); err != nil {
			return fmt.Errorf("failed to write reply: %w", err)
		}
	}

	if outcome.Err != nil {
		if jsonMode {
			return outcome.Err
		}
		// The notice is already on stdout.
		return &reportedError{err: outcome.Err}
	}

	if outcome.Response == nil {
		return &reportedError{err: errors.New(app.Config.UI.FallbackError)}
	}

	if jsonMode {
		return NewJSONResponse("ask", AskResult{
			SessionID: sessionID,
			Message:   message,
			Response:  outcome.Response.Response,
			AgentUsed: outcome.Response.AgentUsed,
		}).Print(out)
	}
	return nil
}

// replyView hides the echoed user message; the user just typed it.
type replyView struct {
	render.View
	// beforeWrite, if set, runs ahead of every entry written.
	beforeWrite func()
}

func (v replyView) RenderMessage(msg model.Message) {
	if msg.IsUser() {
		return
	}
	v.prepare()
	v.View.RenderMessage(msg)
}

func (v replyView) RenderError(message string) {
	v.prepare()
	v.View.RenderError(message)
}

func (v replyView) prepare() {
	if v.beforeWrite != nil {
		v.beforeWrite()
	}
}

// Clear forwards to the wrapped view when it can be cleared.
func (v replyView) Clear() {
	if c, ok := v.View.(render.Clearer); ok {
		c.Clear()
	}
}

// nopControls is the input control set of a front end without an input
// widget.
type nopControls struct{}

func (nopControls) ClearInput() {}
func (nopControls) SetLoading(bool) {}
func (nopControls) FocusInput() {}
