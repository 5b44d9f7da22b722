// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// session_cmd.go - Session id management commands.
//
// Command: session [show|clear]
//
// Examples:
//
//	crmchat session show            Show the stored session id
//	crmchat session show --json     Same, as JSON
//	crmchat session clear           Forget the id (asks first)
//	crmchat session clear --confirm Forget the id without asking
//
// Clearing only forgets the id locally; the next message starts a new
// conversation on the backend.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeranaias/crmchat/internal/session"
)

// SessionInfo is the data payload of `session show --json`.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	Label     string `json:"label,omitempty"`
	Exists    bool   `json:"exists"`
	Store     string `json:"store"`
	Path      string `json:"path,omitempty"`
}

func newSessionCommand(opts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Show or clear the stored session id",
		Args:    usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *App) error {
				return HandleSessionShow(app, cmd.OutOrStdout(), false)
			})
		},
	}

	var showJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the stored session id",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *App) error {
				return HandleSessionShow(app, cmd.OutOrStdout(), showJSON)
			})
		},
	}
	show.Flags().BoolVar(&showJSON, "json", false, "output JSON")

	var confirm, clearJSON bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the stored session id",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *App) error {
				return HandleSessionClear(app, cmd.InOrStdin(), cmd.OutOrStdout(), ConfirmationOptions{
					ConfirmFlag: confirm,
					JSONMode:    clearJSON,
					Interactive: cmd.InOrStdin() == os.Stdin && IsTTY(),
				})
			})
		},
	}
	clearCmd.Flags().BoolVarP(&confirm, "confirm", "y", false, "do not ask for confirmation")
	clearCmd.Flags().BoolVar(&clearJSON, "json", false, "output JSON")

	cmd.AddCommand(show, clearCmd)
	return cmd
}

// HandleSessionShow prints the stored session id without creating one.
func HandleSessionShow(app *App, out io.Writer, jsonMode bool) error {
	id, ok, err := app.Sessions.Peek()
	if err != nil {
		return err
	}

	info := SessionInfo{
		SessionID: id,
		Exists:    ok,
		Store:     app.Config.Session.Store,
		Path:      app.Config.Session.Path,
	}
	if ok {
		info.Label = session.Label(id)
	}

	if jsonMode {
		return NewJSONResponse("session show", info).Print(out)
	}

	if !ok {
		fmt.Fprintln(out, RenderConditional(DimStyle, "No session id stored. One is created with the first message."))
		return nil
	}
	fmt.Fprintln(out, RenderConditional(TitleStyle, info.Label))
	fmt.Fprintf(out, "%s %s\n", RenderLabel("Session ID:"), id)
	fmt.Fprintf(out, "%s %s\n", RenderLabel("Store:"), info.Store)
	if info.Path != "" {
		fmt.Fprintf(out, "%s %s\n", RenderLabel("Path:"), info.Path)
	}
	return nil
}

// HandleSessionClear forgets the stored session id after confirmation.
func HandleSessionClear(app *App, in io.Reader, out io.Writer, opts ConfirmationOptions) error {
	opts.In = in
	opts.Out = out
	confirmed, err := RequireConfirmationWithOpts("clear the stored session id", opts)
	if err != nil {
		return err
	}
	if !confirmed {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}

	if err := app.Sessions.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	if opts.JSONMode {
		return NewJSONResponse("session clear", map[string]bool{"cleared": true}).Print(out)
	}
	fmt.Fprintln(out, RenderConditional(SuccessStyle, "Session cleared."))
	return nil
}
