// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the small key/value stores crmchat keeps local
// state in.
//
// Three backends implement Store:
//
//   - FileStore: a JSON object in a single 0600 file, rewritten atomically
//   - SQLiteStore: a one-table SQLite database (pure Go driver)
//   - MemoryStore: process-local, for tests and throwaway sessions
//
// Get reports a missing key with ErrNotFound. Delete of a missing key is not
// an error.
package storage
