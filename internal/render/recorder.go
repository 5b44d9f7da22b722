// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"sync"

	"github.com/jeranaias/crmchat/internal/model"
)

// Recorder is a View that keeps entries in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	scrolls int
	// scrolledAt is the entry count at the last ScrollToLatest.
	scrolledAt int
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) RenderMessage(msg model.Message) {
	r.mu.Lock()
	r.entries = append(r.entries, MessageEntry(msg))
	r.mu.Unlock()
	r.ScrollToLatest()
}

func (r *Recorder) RenderError(message string) {
	r.mu.Lock()
	r.entries = append(r.entries, ErrorEntry(message))
	r.mu.Unlock()
	r.ScrollToLatest()
}

func (r *Recorder) ScrollToLatest() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrolls++
	r.scrolledAt = len(r.entries)
}

// Clear drops all entries.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.scrolledAt = 0
}

// Entries returns a copy of everything rendered so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages returns only the message entries.
func (r *Recorder) Messages() []model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Message
	for _, e := range r.entries {
		if e.Kind == EntryMessage {
			out = append(out, e.Message)
		}
	}
	return out
}

// Errors returns the notice text of every error entry.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.entries {
		if e.Kind == EntryError {
			out = append(out, e.Notice)
		}
	}
	return out
}

// Len reports how many entries are shown.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
