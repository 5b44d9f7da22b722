// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the display types for a chat conversation.
//
// Messages are created once, rendered, and never changed. They are not
// persisted; clearing the conversation is the only way they go away.
//
// # Key Types
//
//   - Role: who sent a message (user or assistant)
//   - Message: one rendered turn, with an optional agent attribution
//
// # Usage
//
//	msg := model.NewAssistantMessage("**Done.**", "lead_agent")
//	fmt.Println(msg.Badge()) // 🤖 lead agent
package model
