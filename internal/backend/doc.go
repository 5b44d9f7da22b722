// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the CRM assistant's chat endpoint.
//
// One call is one exchange: a JSON body {"session_id", "message"} is POSTed
// and the reply {"response", "agent_used"} is decoded. There are no retries.
//
// Failures come back in three shapes so callers can word them differently:
//
//   - *StatusError: the server answered with a non-2xx status
//   - ErrTransport: no usable response arrived (refused, reset, timeout)
//   - ErrMalformedResponse: a 2xx reply that is not the expected JSON
package backend
