// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/crmchat/internal/model"
	"github.com/jeranaias/crmchat/internal/ui/styles"
)

// minWidth keeps bubbles readable on very narrow terminals.
const minWidth = 24

// Formatter turns entries into terminal text.
//
// With styled output enabled, assistant Markdown is rendered by glamour and
// entries are framed with the theme's lipgloss styles. Without it, entries
// are plain text suitable for pipes and log files.
type Formatter struct {
	theme  *styles.Theme
	styled bool
	width  int
	md     *glamour.TermRenderer
}

// NewFormatter builds a Formatter for the given width.
func NewFormatter(theme *styles.Theme, width int, styled bool) (*Formatter, error) {
	f := &Formatter{theme: theme, styled: styled}
	if err := f.SetWidth(width); err != nil {
		return nil, err
	}
	return f, nil
}

// Width returns the current wrap width.
func (f *Formatter) Width() int { return f.width }

// SetWidth changes the wrap width, rebuilding the Markdown renderer.
func (f *Formatter) SetWidth(width int) error {
	if width < minWidth {
		width = minWidth
	}
	if width == f.width && f.md != nil {
		return nil
	}
	f.width = width
	if !f.styled {
		return nil
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(f.theme.GlamourStyle()),
		glamour.WithWordWrap(f.bubbleWidth()-2),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	f.md = md
	return nil
}

// bubbleWidth leaves room for the bubble margin and border.
func (f *Formatter) bubbleWidth() int {
	w := f.width - 6
	if w < minWidth-6 {
		w = minWidth - 6
	}
	return w
}

// Format renders one entry.
func (f *Formatter) Format(e Entry) string {
	if e.Kind == EntryError {
		return f.formatError(e.Notice)
	}
	if e.Message.IsUser() {
		return f.formatUser(e.Message)
	}
	return f.formatAssistant(e.Message)
}

func (f *Formatter) formatUser(msg model.Message) string {
	if !f.styled {
		return model.RoleUser.DisplayName() + ": " + msg.Body
	}
	label := f.theme.UserLabel.Render(model.RoleUser.DisplayName())
	bubble := f.theme.UserBubble.Width(f.bubbleWidth()).Render(msg.Body)
	return label + "\n" + bubble
}

func (f *Formatter) formatAssistant(msg model.Message) string {
	if !f.styled {
		header := model.RoleAssistant.DisplayName()
		if msg.HasBadge() {
			header += " [" + msg.Badge() + "]"
		}
		return header + ":\n" + msg.Body
	}

	header := f.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName())
	if msg.HasBadge() {
		header = lipgloss.JoinHorizontal(lipgloss.Top, header, " ", f.theme.AgentBadge.Render(msg.Badge()))
	}

	body, err := f.md.Render(msg.Body)
	if err != nil {
		body = msg.Body
	}
	body = strings.Trim(body, "\n")
	return header + "\n" + f.theme.AssistantBubble.Render(body)
}

func (f *Formatter) formatError(notice string) string {
	if !f.styled {
		return notice
	}
	return f.theme.ErrorNotice.Width(f.bubbleWidth()).Render(notice)
}
