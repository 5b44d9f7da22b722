// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for crmchat.
//
// Supports TOML, JSON and YAML configuration files, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - BackendConfig: Location of the assistant's chat endpoint
//   - SessionConfig: Where the session identifier is persisted
//   - UIConfig: Front-end behaviour (welcome text, theme, input size)
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (CRMCHAT_*), including values from a .env file
//   - The file named by --config
//   - ~/.crmchat/config.toml
//   - ~/.crmchat/config.json
//   - ~/.crmchat/config.yaml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	endpoint := cfg.Backend.Endpoint()
package config
