// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/aichat-tui/internal/cloud"
	"github.com/jeranaias/aichat-tui/internal/controller"
	"github.com/jeranaias/aichat-tui/internal/logging"
)

func (a *app) modelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models offered by the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			if !cfg.IsComplete() {
				return fmt.Errorf("%w: set %s", controller.ErrConfigMissing, strings.Join(cfg.Missing(), ", "))
			}

			logger := logging.NewStderr(a.verbose)
			defer func() { _ = logger.Sync() }()

			models, err := a.newClient(cfg, logger).ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list models: %s", cloud.Describe(err))
			}
			if len(models) == 0 {
				fmt.Fprintln(a.stdout, DimStyle.Render("No models available."))
				return nil
			}
			for _, id := range models {
				marker := "  "
				if id == cfg.API.Model {
					marker = "* "
				}
				fmt.Fprintln(a.stdout, marker+ModelStyle.Render(id))
			}
			return nil
		},
	}
}
