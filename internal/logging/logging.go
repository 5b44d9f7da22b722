// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zerolog logger shared by crmchat components.
//
// The full-screen UI owns the terminal, so logs default to a file under
// ~/.crmchat. Setting the file to "-" sends them to stderr instead.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/crmchat/internal/config"
)

// Stderr is the LogConfig.File value that selects standard error.
const Stderr = "-"

// New returns a logger configured from cfg and a close function for the
// underlying file, if one was opened.
func New(cfg config.LogConfig) (zerolog.Logger, func() error, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), noopClose, err
	}

	var out io.Writer
	closeFn := noopClose

	switch cfg.File {
	case "", Stderr:
		out = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
			return zerolog.Nop(), noopClose, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return zerolog.Nop(), noopClose, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closeFn = f.Close
	}

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.File != "" && cfg.File != Stderr,
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closeFn, nil
}

// WithComponent tags every event from the returned logger with a component name.
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

func parseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func noopClose() error { return nil }
