// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the full-screen chat widget.
//
// The Model is a Bubble Tea program that doubles as the conversation view
// and the input controls of an orchestrator.Orchestrator. The network half
// of each exchange runs in a tea.Cmd so the event loop never blocks; the
// outcome comes back as a message and is rendered on the loop goroutine.
//
// Layout, top to bottom:
//
//	header     title, session label, clear hint
//	messages   scrollable viewport
//	input      auto-growing textarea with send icon / spinner
//	footer     key help or the clear confirmation prompt
package chat
