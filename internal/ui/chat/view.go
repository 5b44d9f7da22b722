// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/crmchat/internal/session"
	"github.com/jeranaias/crmchat/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderFooter(),
	)
}

// renderHeader draws the title on the left and the session label plus the
// clear hint on the right.
func (m *Model) renderHeader() string {
	w, _ := m.size()
	style := m.theme.Header
	inner := w - style.GetHorizontalFrameSize()

	title := Title
	label := session.Label(m.sessionID)
	hint := m.keys.Clear.Help().Key + " to clear"

	// Right-align the label against the hint.
	labelWidth := inner - util.DisplayWidth(title) - util.DisplayWidth(hint) - 2
	label = util.PadLeftTo(label, labelWidth)

	line := m.theme.HeaderTitle.Render(title) +
		m.theme.HeaderSession.Render(label) + "  " +
		m.theme.HeaderHint.Render(hint)

	return style.Width(w - style.GetHorizontalBorderSize()).Render(line)
}

// =============================================================================
// INPUT AREA
// =============================================================================

func (m *Model) renderInput() string {
	box := m.theme.InputContainer
	if m.input.Focused() {
		box = m.theme.InputContainerFocused
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		box.Render(m.input.View()),
		" ",
		m.renderIcon(),
	)
}

// renderIcon shows the spinner while a reply is pending, otherwise the send
// arrow, dimmed when there is nothing to send.
func (m *Model) renderIcon() string {
	switch {
	case m.loading:
		return m.theme.Spinner.Render(m.spinner.View())
	case strings.TrimSpace(m.input.Value()) == "":
		return m.theme.SendIconDisabled.Render(sendIcon)
	default:
		return m.theme.SendIcon.Render(sendIcon)
	}
}

// =============================================================================
// FOOTER
// =============================================================================

func (m *Model) renderFooter() string {
	switch {
	case m.confirming:
		return m.theme.ConfirmPrompt.Render(ConfirmClearPrompt)
	case m.status != "":
		return m.theme.Hint.Render(m.status)
	}
	return m.theme.Hint.Render(HelpLine(m.keys.ShortHelp()))
}
