// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Root command, global flags and shared wiring for crmchat.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jeranaias/crmchat/internal/backend"
	"github.com/jeranaias/crmchat/internal/config"
	"github.com/jeranaias/crmchat/internal/logging"
	"github.com/jeranaias/crmchat/internal/render"
	"github.com/jeranaias/crmchat/internal/session"
	"github.com/jeranaias/crmchat/internal/storage"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// TranscriptTitle is the <title> of saved HTML transcripts.
const TranscriptTitle = "CRM Assistant transcript"

// GlobalOptions holds flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	Backend    string
	LogLevel   string
	Transcript string
}

// =============================================================================
// ROOT COMMAND
// =============================================================================

// NewRootCommand builds the crmchat command tree.
func NewRootCommand() *cobra.Command {
	opts := &GlobalOptions{}

	root := &cobra.Command{
		Use:   "crmchat",
		Short: "Terminal chat client for the CRM assistant",
		Long: `crmchat talks to the CRM assistant backend.

Run without a command to open the full-screen chat. Use "chat" for a
line-mode session or "ask" for a single message. The conversation is tied
to a session id that persists between runs until you clear it.`,
		Args:          usageArgs(cobra.NoArgs),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(opts, func(app *App) error {
				return RunTUI(cmd.Context(), app)
			})
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default ~/.crmchat/config.toml)")
	pf.StringVar(&opts.Backend, "backend", "", "backend base URL, overrides backend.base_url")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level: trace, debug, info, warn, error, disabled")
	pf.StringVar(&opts.Transcript, "transcript", "", "write an HTML transcript to this file on exit")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Reason: err.Error()}
	})

	root.AddCommand(
		newChatCommand(opts),
		newAskCommand(opts),
		newSessionCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	// .env is optional
	_ = godotenv.Load()
	return Run(context.Background(), NewRootCommand(), os.Args[1:])
}

// Run executes root with args, displays any error and maps it to an exit
// code.
func Run(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)
	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitSuccess
	}

	var reported *reportedError
	if !errors.As(err, &reported) {
		jsonMode := false
		if cmd != nil {
			jsonMode, _ = cmd.Flags().GetBool("json")
		}
		name := ""
		if cmd != nil {
			name = cmd.Name()
		}
		DisplayError(root.ErrOrStderr(), name, err, jsonMode)
	}
	return GetExitCode(err)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "crmchat %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}

// usageArgs turns positional argument failures into usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return &UsageError{Reason: err.Error()}
		}
		return nil
	}
}

// reportedError marks a failure the command already showed the user.
// Run maps it to an exit code without printing it again.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// App bundles the pieces every chat front end needs.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    storage.Store
	Sessions *session.Provider
	Client   *backend.Client

	// Transcript is nil unless a transcript path is configured.
	Transcript *render.HTML

	closeLog func() error
}

// NewApp loads configuration and opens the session store, logger and
// backend client.
func NewApp(opts *GlobalOptions) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, &ConfigError{Err: err}
	}

	store, err := storage.Open(cfg.Session)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	client, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		_ = store.Close()
		_ = closeLog()
		return nil, &ConfigError{Err: err}
	}

	app := &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Sessions: session.NewProvider(store, cfg.Session.Key, logger),
		Client:   client,
		closeLog: closeLog,
	}
	if cfg.UI.Transcript != "" {
		app.Transcript = render.NewHTML()
		app.Transcript.SetTrusted(cfg.UI.TrustedHTML)
	}

	logger.Debug().
		Str("endpoint", client.Endpoint()).
		Str("store", cfg.Session.Store).
		Msg("crmchat started")
	return app, nil
}

// TranscriptView returns the transcript as a render.View, or nil.
func (a *App) TranscriptView() render.View {
	if a.Transcript == nil {
		return nil
	}
	return a.Transcript
}

// Close writes the transcript, if any, then releases the store and log.
func (a *App) Close() error {
	var errs []error
	if a.Transcript != nil {
		path := a.Config.UI.Transcript
		if err := a.Transcript.Save(path, TranscriptTitle); err != nil {
			errs = append(errs, fmt.Errorf("failed to save transcript: %w", err))
		} else {
			a.Logger.Info().Str("path", path).Msg("transcript saved")
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close session store: %w", err))
	}
	if err := a.closeLog(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// withApp runs fn with a freshly built App and closes it afterwards.
func withApp(opts *GlobalOptions, fn func(app *App) error) (err error) {
	app, err := NewApp(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(app)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(opts *GlobalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, &ConfigError{Path: opts.ConfigPath, Err: err}
	}

	if opts.Backend != "" {
		cfg.Backend.BaseURL = opts.Backend
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.Transcript != "" {
		cfg.UI.Transcript = opts.Transcript
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Err: err}
	}
	return cfg, nil
}
