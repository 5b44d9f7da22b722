// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the crmchat terminal
// front ends.
//
// # Color Palette
//
// Colors are lipgloss.AdaptiveColor values so they follow the terminal's
// light or dark background:
//
//   - Purple: brand accent, assistant bubbles
//   - Cyan: header and focus ring
//   - Blue: user bubbles
//   - Rose: inline error notices
//   - Amber: confirmation prompts and agent badges
//
// # Theme
//
// NewTheme builds every lipgloss.Style the chat view needs. The mode is the
// ui.theme setting: "auto" detects the background via termenv, "dark" and
// "light" force it.
//
//	theme := styles.NewTheme("auto")
//	header := theme.Header.Render(session.Label(id))
//
// # Spinners
//
// SpinnerConfig frames convert to a bubbles spinner with Bubble().
package styles
