// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/muesli/termenv"

	"github.com/jeranaias/crmchat/internal/model"
)

// Terminal is a View that appends formatted entries to a writer.
// Output scrolls on its own; ScrollToLatest flushes buffered writers.
type Terminal struct {
	mu  sync.Mutex
	w   io.Writer
	f   *Formatter
	out *termenv.Output
	err error
}

// NewTerminal writes entries formatted by f to w.
func NewTerminal(w io.Writer, f *Formatter) *Terminal {
	return &Terminal{w: w, f: f, out: termenv.NewOutput(w)}
}

func (t *Terminal) RenderMessage(msg model.Message) {
	t.write(MessageEntry(msg))
	t.ScrollToLatest()
}

func (t *Terminal) RenderError(message string) {
	t.write(ErrorEntry(message))
	t.ScrollToLatest()
}

func (t *Terminal) ScrollToLatest() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fl, ok := t.w.(interface{ Flush() error }); ok {
		t.keep(fl.Flush())
	}
}

// Err returns the first write or flush error. View methods cannot
// return errors, so callers check it after rendering.
func (t *Terminal) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Terminal) keep(err error) {
	if err != nil && t.err == nil {
		t.err = err
	}
}

// Clear wipes the screen when output is styled, and prints a divider otherwise.
func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.f.styled {
		t.out.ClearScreen()
		return
	}
	_, err := fmt.Fprintln(t.w, "--- conversation cleared ---")
	t.keep(err)
}

func (t *Terminal) write(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprint(t.w, t.f.Format(e), "\n\n")
	t.keep(err)
}
