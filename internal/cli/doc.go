// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the aichat command line.
//
// Running aichat with no subcommand opens the full-screen chat panel. The
// subcommands cover the same features from a plain terminal:
//
//	aichat                              open the chat panel
//	aichat explain [file] --source S    explain a selection in the panel
//	aichat chat --plain                 line-mode chat with history
//	aichat models                       list the models offered by the API
//	aichat config show|path|set         inspect or edit the config file
//
// The global --config flag selects the config file and --verbose raises the
// log level to debug.
package cli
