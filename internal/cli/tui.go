// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Full-screen chat, the default command.
package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"

	"github.com/jeranaias/crmchat/internal/logging"
	"github.com/jeranaias/crmchat/internal/ui/chat"
	"github.com/jeranaias/crmchat/internal/ui/styles"
)

// RunTUI runs the full-screen chat until the user quits.
func RunTUI(ctx context.Context, app *App) error {
	if !IsTTY() || !IsStdoutTTY() {
		return NewUsageError("the full-screen chat needs a terminal; use `crmchat chat` or `crmchat ask` instead")
	}

	theme := styles.NewTheme(app.Config.UI.Theme)
	m, err := chat.New(chat.Options{
		Theme:         theme,
		Sessions:      app.Sessions,
		Backend:       app.Client,
		Transcript:    app.TranscriptView(),
		Welcome:       app.Config.UI.Welcome,
		FallbackError: app.Config.UI.FallbackError,
		ConfirmClear:  app.Config.UI.ConfirmClear,
		MaxInputLines: app.Config.UI.MaxInputLines,
		WordWrap:      app.Config.UI.WordWrap,
		Styled:        theme.ColorProfile != termenv.Ascii,
		Logger:        logging.WithComponent(app.Logger, "chat"),
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI failed: %w", err)
	}
	return nil
}
