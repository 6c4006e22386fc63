// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/aichat-tui/internal/config"
	"github.com/jeranaias/aichat-tui/internal/controller"
	"github.com/jeranaias/aichat-tui/internal/logging"
)

// Version information, set by main from build flags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// app holds the global flags and the injectable pieces shared by every
// command.
type app struct {
	configPath string
	verbose    bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	// newClient builds API clients for the controller and the models command.
	newClient controller.ClientFactory
	// runPanel runs the full-screen panel. Replaced in tests.
	runPanel func(ctx context.Context, p panelParams) error
}

func newApp() *app {
	a := &app{
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		getenv:    os.Getenv,
		newClient: controller.DefaultClientFactory,
	}
	a.runPanel = a.runTUI
	return a
}

// NewRootCommand builds the aichat command tree.
func NewRootCommand() *cobra.Command {
	return newApp().rootCommand()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "aichat",
		Short: "Chat with an OpenAI-compatible model from the terminal",
		Long: `aichat is a terminal chat panel for OpenAI-compatible APIs.

Replies stream into a transcript with Markdown emphasis and highlighted
code blocks. Run without a subcommand to open the full-screen panel.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPanel(cmd.Context(), panelParams{})
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (default: ~/.aichat/config.toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(a.explainCommand())
	root.AddCommand(a.chatCommand())
	root.AddCommand(a.modelsCommand())
	root.AddCommand(a.configCommand())
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ErrorStyle.Render("Error:"), err)
		return 1
	}
	return 0
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// resolveConfigPath returns the --config value or the default location.
func (a *app) resolveConfigPath() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPath()
}

// loadConfig loads the effective configuration, environment overrides
// included.
func (a *app) loadConfig() (*config.Config, string, error) {
	path, err := a.resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// fileLogger opens the log file. The panel owns the terminal, so failures
// fall back to a no-op logger after a warning.
func (a *app) fileLogger(cfg *config.Config) *zap.Logger {
	logger, err := logging.New(cfg, a.verbose)
	if err != nil {
		fmt.Fprintf(a.stderr, "%s %v\n", WarningStyle.Render("Warning: logging disabled:"), err)
		return zap.NewNop()
	}
	return logger
}

// newController creates the controller for cfg.
func (a *app) newController(cfg *config.Config, path string, logger *zap.Logger) *controller.Controller {
	return controller.New(cfg,
		controller.WithLogger(logger),
		controller.WithConfigPath(path),
		controller.WithClientFactory(a.newClient))
}

// closeController saves the settings and stops the workers.
func (a *app) closeController(ctrl *controller.Controller) error {
	if err := ctrl.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
