// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/crmchat/internal/orchestrator"
)

// =============================================================================
// EXCHANGE MESSAGES
// =============================================================================

// exchangeDoneMsg carries the result of a backend round trip back to the
// event loop. gen identifies the conversation it belongs to; outcomes from
// a conversation that has since been cleared are dropped.
type exchangeDoneMsg struct {
	gen     int
	outcome orchestrator.Outcome
}

// runExchange performs the network half of an exchange off the event loop.
func runExchange(ctx context.Context, ex *orchestrator.Exchange, gen int) tea.Cmd {
	return func() tea.Msg {
		return exchangeDoneMsg{gen: gen, outcome: ex.Do(ctx)}
	}
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// StatusMsg sets the footer status line until the next key press.
type StatusMsg struct {
	Text string
}

// ClearRequestMsg asks the widget to clear the conversation without
// confirmation.
type ClearRequestMsg struct{}
