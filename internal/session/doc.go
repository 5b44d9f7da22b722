// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the conversation identifier sent with every chat
// request.
//
// The identifier is an opaque random UUID kept under one key in a
// storage.Store. It is created the first time it is asked for, cached for the
// rest of the process, and removed only by Clear.
//
//	p := session.NewProvider(store, "crm_session_id", logger)
//	id, err := p.ObtainOrCreate()
//	if err != nil {
//	    return err // never chat without an identifier
//	}
//	header := session.Label(id) // "Session: 3f2a9c1e…"
package session
