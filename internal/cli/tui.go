// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/aichat-tui/internal/config"
	"github.com/jeranaias/aichat-tui/internal/ui/chat"
	"github.com/jeranaias/aichat-tui/internal/ui/styles"
)

// panelParams describes one run of the full-screen panel.
type panelParams struct {
	// explain, when set, is sent as an explain request on startup.
	explain *explainRequest
	// ttyInput reads keys from the controlling terminal because stdin
	// carried the selection.
	ttyInput bool
}

// explainRequest is a selection to explain.
type explainRequest struct {
	selection string
	source    string
}

// runTUI opens the panel and blocks until it exits.
func (a *app) runTUI(ctx context.Context, p panelParams) error {
	cfg, path, err := a.loadConfig()
	if err != nil {
		return err
	}
	logger := a.fileLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctrl := a.newController(cfg, path, logger)

	updates := make(chan *config.Config, 1)
	watcher, err := config.Watch(ctx, path, logger, func(c *config.Config) {
		offerLatest(updates, c)
	})
	if err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Close()
	}

	opts := []chat.Option{
		chat.WithLogger(logger),
		chat.WithConfigUpdates(updates),
	}
	if p.explain != nil {
		opts = append(opts, chat.WithExplain(p.explain.selection, p.explain.source))
	}
	panel := chat.New(ctrl, styles.NewTheme(cfg.UI.Theme), opts...)
	defer panel.Close()

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if p.ttyInput {
		progOpts = append(progOpts, tea.WithInputTTY())
	}

	logger.Info("panel starting", zap.String("config", path), zap.Bool("explain", p.explain != nil))
	_, runErr := tea.NewProgram(panel, progOpts...).Run()
	if errors.Is(runErr, tea.ErrProgramKilled) {
		runErr = nil
	}

	closeErr := a.closeController(ctrl)
	logger.Info("panel stopped")
	return errors.Join(runErr, closeErr)
}

// offerLatest puts c on ch, replacing a value nobody has read yet.
func offerLatest(ch chan *config.Config, c *config.Config) {
	for {
		select {
		case ch <- c:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
