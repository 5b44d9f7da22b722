// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package orchestrator runs one chat exchange from input to rendered reply.
//
// A send moves Idle -> Pending -> Idle:
//
//	ex, ok := o.Begin(text)     // echo user text, clear input, show spinner
//	if ok {
//	    o.Complete(ex.Do(ctx))  // POST /chat, render reply or notice, reset UI
//	}
//
// Begin and Complete touch the view and controls, so event-loop front ends
// call them on their UI goroutine and run Do elsewhere. Send chains all three
// for synchronous callers.
//
// Only one exchange can be pending. Begin refuses empty input and refuses to
// start while another exchange is in flight.
package orchestrator
