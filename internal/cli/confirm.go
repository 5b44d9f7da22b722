// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Unified confirmation handling for destructive commands.
//
//  1. If --confirm is present, proceed without prompting
//  2. In --json mode, require --confirm (no interactive prompts)
//  3. If stdin is not a TTY, require --confirm (can't prompt)
//  4. Otherwise, prompt and wait for y/n
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConfirmationOptions configures RequireConfirmationWithOpts.
type ConfirmationOptions struct {
	// ConfirmFlag indicates --confirm was passed
	ConfirmFlag bool
	// JSONMode indicates --json was passed
	JSONMode bool
	// Interactive reports whether a prompt can be shown
	Interactive bool

	In  io.Reader
	Out io.Writer
}

// RequireConfirmationWithOpts checks if the user has confirmed a
// destructive action.
func RequireConfirmationWithOpts(action string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}
	if opts.JSONMode {
		return false, NewUsageError("confirmation required: use --confirm in JSON mode")
	}
	if !opts.Interactive || opts.In == nil {
		return false, NewUsageError("confirmation required but stdin is not a terminal; use --confirm")
	}

	fmt.Fprintf(opts.Out, "Are you sure you want to %s? [y/N]: ", action)

	input, err := bufio.NewReader(opts.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return IsYes(input), nil
}

// IsYes reports whether a prompt answer means yes.
func IsYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
