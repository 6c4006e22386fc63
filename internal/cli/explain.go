// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/aichat-tui/internal/controller"
)

// MaxSelectionSize bounds the text read for an explain request.
const MaxSelectionSize = 1 << 20

// ErrNoSelection is returned when explain has nothing to read.
var ErrNoSelection = errors.New("no selection: pass a file or pipe text on stdin")

func (a *app) explainCommand() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "explain [file]",
		Short: "Open the panel and explain a selection",
		Long: `Open the chat panel and ask the model to explain a selection.

The selection is read from the file argument, or from stdin when stdin is
piped. --source tells the model where the text came from.`,
		Example: `  aichat explain main.go
  git diff | aichat explain --source console`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if source != controller.SourceEditor && source != controller.SourceConsole {
				return fmt.Errorf("invalid --source %q: must be %s or %s",
					source, controller.SourceEditor, controller.SourceConsole)
			}
			selection, fromStdin, err := a.readSelection(args)
			if err != nil {
				return err
			}
			return a.runPanel(cmd.Context(), panelParams{
				explain:  &explainRequest{selection: selection, source: source},
				ttyInput: fromStdin,
			})
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", controller.SourceEditor, "Where the selection came from (editor|console)")
	return cmd
}

// readSelection reads the selection from the file in args, or from stdin when
// stdin is not a terminal. fromStdin reports which one was used.
func (a *app) readSelection(args []string) (selection string, fromStdin bool, err error) {
	var data []byte
	switch {
	case len(args) == 1:
		f, err := os.Open(args[0])
		if err != nil {
			return "", false, fmt.Errorf("failed to open selection: %w", err)
		}
		defer f.Close()
		data, err = io.ReadAll(io.LimitReader(f, MaxSelectionSize+1))
		if err != nil {
			return "", false, fmt.Errorf("failed to read %s: %w", args[0], err)
		}
	case !isTerminal(a.stdin):
		fromStdin = true
		data, err = io.ReadAll(io.LimitReader(a.stdin, MaxSelectionSize+1))
		if err != nil {
			return "", true, fmt.Errorf("failed to read stdin: %w", err)
		}
	default:
		return "", false, ErrNoSelection
	}

	if len(data) > MaxSelectionSize {
		return "", fromStdin, fmt.Errorf("selection exceeds %d bytes", MaxSelectionSize)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fromStdin, ErrNoSelection
	}
	return string(data), fromStdin, nil
}
