// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the crmchat command tree.
//
// Running crmchat with no command opens the full-screen chat. The other
// front ends share one App (config, logger, session store, backend client)
// and drive the same orchestrator.
//
// # Commands Overview
//
//   - (default): full-screen chat
//   - chat: line-mode chat with history and slash commands
//   - ask: send one message and print the reply
//   - session: show or clear the stored session id
//   - config: view and edit configuration
//   - version: print build information
//
// # Exit Codes
//
//   - 0: success
//   - 1: general failure, including HTTP errors from the backend
//   - 2: usage error
//   - 3: configuration error
//   - 4: backend rejected the request (401/403)
//   - 5: backend unreachable
//   - 7: not found
//   - 8: timeout
//
// Commands that print data accept --json and wrap their output in a
// JSONResponse.
package cli
