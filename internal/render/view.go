// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "github.com/jeranaias/crmchat/internal/model"

// View is the conversation surface.
type View interface {
	// RenderMessage appends a message.
	RenderMessage(msg model.Message)
	// RenderError appends an inline notice; the warning prefix is added by the view.
	RenderError(message string)
	// ScrollToLatest brings the newest entry into view.
	ScrollToLatest()
}

// Clearer is implemented by views that can drop everything they show.
type Clearer interface {
	Clear()
}

// EntryKind distinguishes messages from error notices.
type EntryKind int

const (
	EntryMessage EntryKind = iota
	EntryError
)

// Entry is one item in the conversation list.
type Entry struct {
	Kind    EntryKind
	Message model.Message
	// Notice is the full error text including the warning prefix.
	Notice string
}

// MessageEntry wraps msg as an Entry.
func MessageEntry(msg model.Message) Entry {
	return Entry{Kind: EntryMessage, Message: msg}
}

// ErrorEntry builds the notice entry for message.
func ErrorEntry(message string) Entry {
	return Entry{Kind: EntryError, Notice: model.ErrorNotice(message)}
}

// Tee forwards every call to each view in order.
type Tee []View

func (t Tee) RenderMessage(msg model.Message) {
	for _, v := range t {
		v.RenderMessage(msg)
	}
}

func (t Tee) RenderError(message string) {
	for _, v := range t {
		v.RenderError(message)
	}
}

func (t Tee) ScrollToLatest() {
	for _, v := range t {
		v.ScrollToLatest()
	}
}

// Clear clears every member that supports it.
func (t Tee) Clear() {
	for _, v := range t {
		if c, ok := v.(Clearer); ok {
			c.Clear()
		}
	}
}
