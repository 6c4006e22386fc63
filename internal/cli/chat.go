// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/aichat-tui/internal/cloud"
	"github.com/jeranaias/aichat-tui/internal/config"
	"github.com/jeranaias/aichat-tui/internal/controller"
	"github.com/jeranaias/aichat-tui/internal/export"
	"github.com/jeranaias/aichat-tui/internal/model"
	"github.com/jeranaias/aichat-tui/internal/session"
	"github.com/jeranaias/aichat-tui/internal/transcript"
	"github.com/jeranaias/aichat-tui/internal/util"
)

// HistoryFileName is the line-mode input history in the config directory.
const HistoryFileName = "chat_history"

func (a *app) chatCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat in the terminal",
		Long: `Chat with the model.

With --plain the conversation runs as a line-mode REPL with input history
instead of the full-screen panel. Slash commands: /clear, /models,
/model <id>, /save [md|json], /help, /quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !plain {
				return a.runPanel(cmd.Context(), panelParams{})
			}
			return a.runPlainChat(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Line-mode chat instead of the full-screen panel")
	return cmd
}

// =============================================================================
// LINE EDITING
// =============================================================================

// lineReader reads one line of input.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// ChatCLI provides input history and line editing for line-mode chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads the saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, HistoryFileName)}
	c.loadHistory()
	return c
}

func (c *ChatCLI) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
}

// Prompt reads a line. Non-empty input is added to the history.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with 0600 permissions and restores the terminal.
func (c *ChatCLI) Close() {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			_, _ = c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// replPoll bounds how long the REPL waits between pumps.
const replPoll = 100 * time.Millisecond

// repl is one line-mode chat session.
type repl struct {
	ctrl   *controller.Controller
	in     lineReader
	out    io.Writer
	logger *zap.Logger

	// markdown renders finished replies; nil streams raw text instead.
	markdown *glamour.TermRenderer
	// exportDir receives /save output.
	exportDir string
}

func (a *app) runPlainChat(ctx context.Context) error {
	cfg, path, err := a.loadConfig()
	if err != nil {
		return err
	}
	logger := a.fileLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctrl := a.newController(cfg, path, logger)

	input := NewChatCLI()
	r := &repl{ctrl: ctrl, in: input, out: a.stdout, logger: logger, exportDir: "."}
	if isTerminal(a.stdout) && colorsEnabled(a.stdout, a.getenv) {
		r.markdown = newMarkdownRenderer(cfg.UI.Theme, terminalWidth(a.stdout))
	}

	runErr := r.run(ctx)
	input.Close()
	return errors.Join(runErr, a.closeController(ctrl))
}

// newMarkdownRenderer returns nil when glamour cannot be set up.
func newMarkdownRenderer(theme string, width int) *glamour.TermRenderer {
	style := "dark"
	if theme == "light" {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return nil
	}
	return r
}

// run reads lines until /quit, EOF, Ctrl+C or ctx is cancelled.
func (r *repl) run(ctx context.Context) error {
	r.printWelcome()
	if r.ctrl.Settings().IsComplete() {
		r.refreshModels(ctx)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.in.Prompt(PromptStyle.Render("aichat> "))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "/"):
			if !r.handleSlashCommand(ctx, line) {
				return nil
			}
		default:
			r.send(ctx, line)
		}
	}
}

// handleSlashCommand runs a slash command. It returns false to end the
// session.
func (r *repl) handleSlashCommand(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit", "/q":
		return false
	case "/clear":
		r.ctrl.Clear()
		fmt.Fprintln(r.out, DimStyle.Render("Conversation cleared."))
	case "/models":
		r.refreshModels(ctx)
		r.printModels()
	case "/model":
		if len(fields) < 2 {
			fmt.Fprintf(r.out, "Current model: %s\n", ModelStyle.Render(orNone(r.ctrl.SelectedModel())))
			break
		}
		if err := r.ctrl.SelectModel(fields[1]); err != nil {
			r.printError(err.Error())
			break
		}
		fmt.Fprintf(r.out, "Model set to %s\n", ModelStyle.Render(fields[1]))
	case "/save":
		format := ""
		if len(fields) > 1 {
			format = fields[1]
		}
		r.save(format)
	case "/help", "/?":
		r.printHelp()
	default:
		r.printError(fmt.Sprintf("Unknown command %s. Type /help for commands.", fields[0]))
	}
	return true
}

// send dispatches text and prints the reply as it streams.
func (r *repl) send(ctx context.Context, text string) {
	var (
		active  transcript.ID
		printed int
		state   session.State
		errMsg  string
		done    bool
	)
	doc := r.ctrl.Document()
	unsubDoc := doc.Subscribe(func(c transcript.Change) {
		switch c.Kind {
		case transcript.ChangeAppended:
			if msg, ok := doc.Message(c.MessageID); ok && msg.Role == model.RoleAssistant {
				active = c.MessageID
			}
		case transcript.ChangeExtended:
			if c.MessageID != active || r.markdown != nil {
				return
			}
			content := doc.Content(active)
			if len(content) > printed {
				fmt.Fprint(r.out, content[printed:])
				printed = len(content)
			}
		}
	})
	defer unsubDoc()
	unsub := r.ctrl.Subscribe(func(n controller.Notice) {
		if n.Kind == controller.NoticeSessionFinished {
			state, errMsg, done = n.State, n.Message, true
		}
	})
	defer unsub()

	if err := r.ctrl.SendMessage(text); err != nil {
		r.printSendError(err)
		return
	}
	if r.markdown != nil {
		fmt.Fprint(r.out, DimStyle.Render("..."))
	}

	r.pumpUntil(ctx, func() bool { return done })
	if !done {
		fmt.Fprintln(r.out)
		r.printError("Interrupted.")
		return
	}

	switch {
	case state == session.StateErrored:
		if r.markdown != nil {
			fmt.Fprint(r.out, "\r\033[K")
		} else if printed > 0 {
			fmt.Fprintln(r.out)
		}
		r.printError(errMsg)
	case r.markdown != nil:
		fmt.Fprint(r.out, "\r\033[K")
		if msg, ok := doc.Message(active); ok {
			r.printMarkdown(msg.Raw)
		}
	default:
		fmt.Fprintln(r.out)
	}
}

// save exports the conversation to the export directory.
func (r *repl) save(format string) {
	opts := export.DefaultOptions()
	opts.OutputDir = r.exportDir
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		r.printError(err.Error())
		return
	}
	conv := export.FromDocument(r.ctrl.Document(), r.ctrl.SelectedModel())
	path, err := export.ExportToFile(conv, exporter, opts)
	if err != nil {
		r.printError("Export failed: " + err.Error())
		return
	}
	fmt.Fprintln(r.out, DimStyle.Render("Exported to "+path))
}

// refreshModels fetches the model list and waits for the answer.
func (r *repl) refreshModels(ctx context.Context) {
	var done bool
	unsub := r.ctrl.Subscribe(func(n controller.Notice) {
		switch n.Kind {
		case controller.NoticeModelsUpdated:
			done = true
		case controller.NoticeModelsFailed:
			done = true
			r.printError("Failed to load models: " + n.Message)
		}
	})
	defer unsub()

	if err := r.ctrl.FetchModels(); err != nil {
		r.printSendError(err)
		return
	}
	r.pumpUntil(ctx, func() bool { return done })
}

// pumpUntil delivers controller events on this goroutine until cond holds or
// ctx is cancelled.
func (r *repl) pumpUntil(ctx context.Context, cond func() bool) {
	ticker := time.NewTicker(replPoll)
	defer ticker.Stop()
	for {
		r.ctrl.Pump()
		if cond() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-r.ctrl.Ready():
		case <-ticker.C:
		}
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) printWelcome() {
	fmt.Fprintln(r.out, TitleStyle.Render("aichat")+" "+DimStyle.Render("line mode. Type /help for commands."))
	if missing := r.ctrl.Settings().Missing(); len(missing) > 0 {
		r.printError("Not configured: set " + strings.Join(missing, ", ") + " with 'aichat config set'.")
	}
}

func (r *repl) printHelp() {
	fmt.Fprintln(r.out, TitleStyle.Render("Commands"))
	for _, row := range [][2]string{
		{"/clear", "Clear the conversation"},
		{"/models", "Refresh and list the models"},
		{"/model <id>", "Select a model"},
		{"/save [md|json]", "Export the conversation"},
		{"/help", "Show this help"},
		{"/quit", "Exit (also Ctrl+C or Ctrl+D)"},
	} {
		fmt.Fprintf(r.out, "  %s %s\n", util.PadWidth(row[0], 16), DimStyle.Render(row[1]))
	}
}

func (r *repl) printModels() {
	models := r.ctrl.Models()
	if len(models) == 0 {
		fmt.Fprintln(r.out, DimStyle.Render("No models available."))
		return
	}
	selected := r.ctrl.SelectedModel()
	for _, id := range models {
		marker := "  "
		if id == selected {
			marker = "* "
		}
		fmt.Fprintln(r.out, marker+ModelStyle.Render(id))
	}
}

func (r *repl) printMarkdown(text string) {
	out, err := r.markdown.Render(text)
	if err != nil {
		r.logger.Debug("markdown render failed", zap.Error(err))
		fmt.Fprintln(r.out, text)
		return
	}
	fmt.Fprint(r.out, out)
}

func (r *repl) printSendError(err error) {
	switch {
	case errors.Is(err, controller.ErrEmptyMessage):
	case errors.Is(err, controller.ErrBusy):
		r.printError("Please wait for the current reply to finish.")
	case errors.Is(err, controller.ErrConfigMissing):
		r.printError(err.Error() + " (use 'aichat config set' or /models)")
	default:
		r.printError(cloud.Describe(err))
	}
}

func (r *repl) printError(msg string) {
	fmt.Fprintln(r.out, ErrorStyle.Render("[X]")+" "+msg)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
