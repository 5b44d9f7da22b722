// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Config command implementation for crmchat.
//
// Command: config [subcommand]
// Short:   View and modify configuration
//
// Subcommands:
//
//	show (default)      Display the effective configuration
//	path                Show configuration file path
//	init                Write a default config file
//	get [key]           Print one value, or list every key
//	set <key> <value>   Set a value in the config file
//
// Examples:
//
//	crmchat config show --json
//	crmchat config set backend.base_url https://crm.example.com
//	crmchat config set backend.timeout_secs 30
//	crmchat config set ui.confirm_clear false
//	crmchat config get session.store
//
// Environment variables prefixed with CRMCHAT_ override the file; show
// reports the merged result while set only edits the file.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/crmchat/internal/config"
)

func newConfigCommand(opts *GlobalOptions) *cobra.Command {
	var showJSON bool
	showRun := func(cmd *cobra.Command, _ []string) error {
		return HandleConfigShow(opts, cmd.OutOrStdout(), showJSON)
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  showRun,
	}
	cmd.Flags().BoolVar(&showJSON, "json", false, "output JSON")

	show := &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		Args:  usageArgs(cobra.NoArgs),
		RunE:  showRun,
	}
	show.Flags().BoolVar(&showJSON, "json", false, "output JSON")

	path := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := configFilePath(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return HandleConfigInit(opts, cmd.OutOrStdout(), force)
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	get := &cobra.Command{
		Use:   "get [KEY]",
		Short: "Print a configuration value, or list every key",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			}
			return HandleConfigGet(opts, cmd.OutOrStdout(), key)
		},
	}

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a value in the config file",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return HandleConfigSet(opts, cmd.OutOrStdout(), args[0], args[1])
		},
	}

	cmd.AddCommand(show, path, initCmd, get, set)
	return cmd
}

// configFilePath is the file config init and config set write to.
func configFilePath(opts *GlobalOptions) (string, error) {
	if opts.ConfigPath != "" {
		return opts.ConfigPath, nil
	}
	p, err := config.ConfigPathTOML()
	if err != nil {
		return "", &ConfigError{Err: err}
	}
	return p, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// HandleConfigShow prints the merged configuration.
func HandleConfigShow(opts *GlobalOptions, out io.Writer, jsonMode bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if jsonMode {
		return NewJSONResponse("config show", cfg).Print(out)
	}

	path, _ := configFilePath(opts)
	fmt.Fprintln(out, RenderConditional(TitleStyle, "crmchat configuration"))
	fmt.Fprintf(out, "%s %s\n\n", RenderLabel("File:"), RenderConditional(DimStyle, path))
	fmt.Fprint(out, cfg.String())
	return nil
}

// HandleConfigInit writes the default configuration unless a file exists.
func HandleConfigInit(opts *GlobalOptions, out io.Writer, force bool) error {
	path, err := configFilePath(opts)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return NewUsageError("%s already exists; use --force to overwrite", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	if err := config.SaveTOML(config.Default(), path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	fmt.Fprintf(out, "%s %s\n", RenderConditional(SuccessStyle, "Wrote"), path)
	return nil
}

// HandleConfigGet prints one value, or every key with its value when key
// is empty.
func HandleConfigGet(opts *GlobalOptions, out io.Writer, key string) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if key == "" {
		for _, k := range config.Keys() {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s = %v\n", k, v)
		}
		return nil
	}

	v, err := cfg.Get(key)
	if err != nil {
		return NewUsageError("%v", err)
	}
	fmt.Fprintln(out, v)
	return nil
}

// HandleConfigSet edits one key in the config file. Only the file's own
// values are read back, so environment and flag overrides are never saved.
func HandleConfigSet(opts *GlobalOptions, out io.Writer, key, value string) error {
	path, err := configFilePath(opts)
	if err != nil {
		return err
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".toml" && ext != "" {
		return NewUsageError("config set only edits TOML files, got %s", path)
	}

	cfg := config.Default()
	if _, statErr := os.Stat(path); statErr == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return &ConfigError{Path: path, Err: err}
		}
	} else if !errors.Is(statErr, os.ErrNotExist) {
		return &ConfigError{Path: path, Err: statErr}
	}

	if err := cfg.Set(key, value); err != nil {
		return NewUsageError("%v", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Path: path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return &ConfigError{Path: path, Err: err}
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return &ConfigError{Path: path, Err: err}
	}

	fmt.Fprintf(out, "%s %s = %s\n", RenderConditional(SuccessStyle, "Set"), key, value)
	return nil
}
