// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// BadgeIcon precedes the agent name in an attribution badge.
const BadgeIcon = "🤖 "

// ErrorPrefix precedes every inline error notice.
const ErrorPrefix = "⚠️ "

// Message is one turn in the rendered conversation.
//
// Body is plain text for user messages and Markdown for assistant messages.
// AgentUsed names the backend agent that produced an assistant reply and is
// empty otherwise.
type Message struct {
	Role      Role
	Body      string
	AgentUsed string
}

// NewUserMessage returns a user message carrying text exactly as typed.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Body: text}
}

// NewAssistantMessage returns an assistant message with an optional agent.
func NewAssistantMessage(markdown, agent string) Message {
	return Message{Role: RoleAssistant, Body: markdown, AgentUsed: agent}
}

// IsUser reports whether the message was typed locally.
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// HasBadge reports whether an attribution badge should be shown.
func (m Message) HasBadge() bool {
	return m.Role == RoleAssistant && m.AgentUsed != ""
}

// Badge returns the attribution badge text, or "" when there is none.
func (m Message) Badge() string {
	if !m.HasBadge() {
		return ""
	}
	return AgentBadge(m.AgentUsed)
}

// AgentBadge formats an agent identifier for display: underscores become
// spaces and the robot icon is prepended.
func AgentBadge(agent string) string {
	return BadgeIcon + strings.ReplaceAll(agent, "_", " ")
}

// ErrorNotice formats an inline error notice.
func ErrorNotice(message string) string {
	return ErrorPrefix + message
}
