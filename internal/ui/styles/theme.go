// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the chat front ends.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header        lipgloss.Style
	HeaderTitle   lipgloss.Style
	HeaderSession lipgloss.Style
	HeaderHint    lipgloss.Style

	// Messages
	UserLabel       lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantLabel  lipgloss.Style
	AssistantBubble lipgloss.Style
	AgentBadge      lipgloss.Style
	ErrorNotice     lipgloss.Style

	// Input
	InputContainer        lipgloss.Style
	InputContainerFocused lipgloss.Style
	SendIcon              lipgloss.Style
	SendIconDisabled      lipgloss.Style
	Spinner               lipgloss.Style

	// Prompts
	ConfirmPrompt lipgloss.Style
	Hint          lipgloss.Style
}

// NewTheme creates a theme for the given mode. Unknown modes behave like auto.
func NewTheme(mode string) *Theme {
	isDark := termenv.HasDarkBackground()
	switch strings.ToLower(mode) {
	case ModeDark:
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case ModeLight:
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	if t.ColorProfile == termenv.Ascii {
		return "notty"
	}
	if t.IsDark {
		return "dark"
	}
	return "light"
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Foreground(Cyan).
		Background(SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.HeaderSession = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.HeaderHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(UserBubbleBorder)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.AssistantBubble = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		MarginRight(4)

	t.AgentBadge = lipgloss.NewStyle().
		Foreground(BadgeFg).
		Background(BadgeBg).
		Padding(0, 1)

	t.ErrorNotice = lipgloss.NewStyle().
		Foreground(ErrorFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderTop(false).
		BorderRight(false).
		BorderBottom(false).
		BorderForeground(ErrorBorder).
		PaddingLeft(1)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay)

	t.InputContainerFocused = t.InputContainer.
		BorderForeground(Cyan)

	t.SendIcon = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Padding(0, 1)

	t.SendIconDisabled = t.SendIcon.
		Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Purple).
		Padding(0, 1)

	t.ConfirmPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber)

	t.Hint = lipgloss.NewStyle().
		Foreground(TextMuted)
}
