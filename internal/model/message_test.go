// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "testing"

func TestRole_DisplayName(t *testing.T) {
	testCases := []struct {
		role     Role
		expected string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{Role("other"), "other"},
	}

	for _, tc := range testCases {
		if got := tc.role.DisplayName(); got != tc.expected {
			t.Errorf("Role(%q).DisplayName() = %q, want %q", tc.role, got, tc.expected)
		}
	}
}

func TestNewUserMessage_KeepsTextVerbatim(t *testing.T) {
	msg := NewUserMessage("  **not markdown**  \n")
	if msg.Body != "  **not markdown**  \n" {
		t.Errorf("Body = %q, want untouched input", msg.Body)
	}
	if !msg.IsUser() {
		t.Error("IsUser() should be true")
	}
	if msg.HasBadge() {
		t.Error("user messages never carry a badge")
	}
}

func TestMessage_Badge(t *testing.T) {
	testCases := []struct {
		name     string
		msg      Message
		expected string
	}{
		{"single underscore", NewAssistantMessage("x", "lead_agent"), "🤖 lead agent"},
		{"many underscores", NewAssistantMessage("x", "crm_data_query_agent"), "🤖 crm data query agent"},
		{"no underscore", NewAssistantMessage("x", "router"), "🤖 router"},
		{"no agent", NewAssistantMessage("x", ""), ""},
		{"user with agent field", Message{Role: RoleUser, Body: "x", AgentUsed: "lead_agent"}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.Badge(); got != tc.expected {
				t.Errorf("Badge() = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestErrorNotice(t *testing.T) {
	if got := ErrorNotice("HTTP 500: boom"); got != "⚠️ HTTP 500: boom" {
		t.Errorf("ErrorNotice = %q", got)
	}
}
