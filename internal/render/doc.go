// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns conversation events into output.
//
// Every front end draws through a View. Appends are ordered, never
// deduplicated, and each one is followed by ScrollToLatest so the newest
// entry is visible.
//
// # Implementations
//
//   - Recorder: keeps entries in memory; used headless and in tests
//   - Terminal: writes styled text to an io.Writer, Markdown via glamour
//   - HTML: builds a DOM tree with golang.org/x/net/html for transcripts
//   - Tee: forwards each call to several views
//
// User text is always shown literally. Assistant text is Markdown.
package render
