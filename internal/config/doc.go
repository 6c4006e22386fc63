// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and persistence for aichat.
//
// Settings live in a TOML file with sensible defaults, environment variable
// overrides, and validation.
//
// # Key Types
//
//   - Config: the whole settings file
//   - APIConfig: endpoint, key and selected model
//   - NetworkConfig: request deadlines
//   - UIConfig / LogConfig: panel and log settings
//   - Watcher: reloads the file after external edits
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (AICHAT_*)
//   - ~/.aichat/config.toml (or the --config path)
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	if !cfg.IsComplete() {
//	    // prompt for cfg.Missing()
//	}
package config
