// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aichat-tui/internal/config"
	"github.com/jeranaias/aichat-tui/internal/ui/styles"
	"github.com/jeranaias/aichat-tui/internal/util"
)

// =============================================================================
// SETTINGS DIALOG
// =============================================================================

const (
	fieldBaseURL = iota
	fieldAPIKey
	fieldModel
	fieldCount
)

// modelRows is how many model ids the picker shows at once.
const modelRows = 5

// settingsDialog edits the endpoint, key and model. It never writes the
// configuration itself; the panel commits or discards its draft.
type settingsDialog struct {
	theme *styles.Theme

	baseURL textinput.Model
	apiKey  textinput.Model

	models   []string
	modelIdx int
	fallback string // model kept when no list is loaded

	focus   int
	loading bool
	err     string

	// applied is set once a draft was handed to the controller for a
	// refresh, so cancelling has to restore the saved settings.
	applied bool
}

func newSettingsDialog(theme *styles.Theme) *settingsDialog {
	newInput := func(placeholder string) textinput.Model {
		ti := textinput.New()
		ti.Placeholder = placeholder
		ti.Prompt = ""
		ti.CharLimit = 512
		ti.Width = 48
		ti.TextStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)
		ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true)
		return ti
	}

	key := newInput("sk-...")
	key.EchoMode = textinput.EchoPassword
	key.EchoCharacter = '•'

	return &settingsDialog{
		theme:   theme,
		baseURL: newInput(config.DefaultBaseURL),
		apiKey:  key,
	}
}

// load fills the dialog from cfg and the current model list.
func (d *settingsDialog) load(cfg *config.Config, models []string, selected string) {
	d.baseURL.SetValue(cfg.API.BaseURL)
	d.apiKey.SetValue(cfg.API.APIKey)
	d.baseURL.CursorEnd()
	d.apiKey.CursorEnd()
	d.err = ""
	d.loading = false
	d.applied = false
	d.setModels(models, selected)
	d.setFocus(fieldBaseURL)
}

// setModels replaces the picker contents, keeping selected under the cursor
// when it is listed.
func (d *settingsDialog) setModels(models []string, selected string) {
	d.models = slices.Clone(models)
	d.fallback = selected
	d.modelIdx = 0
	if i := slices.Index(d.models, selected); i >= 0 {
		d.modelIdx = i
	}
	d.loading = false
}

// selectedModel returns the model under the picker cursor.
func (d *settingsDialog) selectedModel() string {
	if len(d.models) == 0 {
		return d.fallback
	}
	return d.models[d.modelIdx]
}

// draft returns base with the dialog's values applied.
func (d *settingsDialog) draft(base *config.Config) *config.Config {
	cfg := base.Clone()
	cfg.API.BaseURL = strings.TrimSpace(d.baseURL.Value())
	cfg.API.APIKey = strings.TrimSpace(d.apiKey.Value())
	cfg.API.Model = d.selectedModel()
	return cfg
}

func (d *settingsDialog) setFocus(field int) {
	d.focus = (field + fieldCount) % fieldCount
	d.baseURL.Blur()
	d.apiKey.Blur()
	switch d.focus {
	case fieldBaseURL:
		d.baseURL.Focus()
	case fieldAPIKey:
		d.apiKey.Focus()
	}
}

// update handles keys other than save, cancel and refresh.
func (d *settingsDialog) update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab":
		d.setFocus(d.focus + 1)
		return nil
	case "shift+tab":
		d.setFocus(d.focus - 1)
		return nil
	}

	var cmd tea.Cmd
	switch d.focus {
	case fieldBaseURL:
		d.baseURL, cmd = d.baseURL.Update(msg)
	case fieldAPIKey:
		d.apiKey, cmd = d.apiKey.Update(msg)
	case fieldModel:
		if len(d.models) == 0 {
			return nil
		}
		switch msg.String() {
		case "up", "k":
			d.modelIdx = max(d.modelIdx-1, 0)
		case "down", "j":
			d.modelIdx = min(d.modelIdx+1, len(d.models)-1)
		case "home":
			d.modelIdx = 0
		case "end":
			d.modelIdx = len(d.models) - 1
		}
	}
	return cmd
}

// view renders the dialog box.
func (d *settingsDialog) view() string {
	t := d.theme
	label := func(field int, text string) string {
		if d.focus == field {
			return t.FieldFocused.Render(text)
		}
		return t.FieldLabel.Render(text)
	}

	var b strings.Builder
	b.WriteString(t.DialogTitle.Render("Settings"))
	b.WriteString("\n")
	b.WriteString(label(fieldBaseURL, "Base URL") + " " + d.baseURL.View() + "\n")
	b.WriteString(label(fieldAPIKey, "API Key") + " " + d.apiKey.View() + "\n")
	b.WriteString(label(fieldModel, "Model") + " " + d.modelSummary() + "\n")
	if rows := d.modelList(); rows != "" {
		b.WriteString(rows + "\n")
	}
	if d.err != "" {
		b.WriteString("\n" + t.Error.Render(util.TruncateWidth(util.FirstLine(d.err), 60)) + "\n")
	}
	b.WriteString("\n" + t.Muted.Render("Tab next field  Ctrl+R refresh models  Enter save  Esc cancel"))
	return t.Dialog.Render(b.String())
}

func (d *settingsDialog) modelSummary() string {
	switch {
	case d.loading:
		return d.theme.StatusBusy.Render("loading...")
	case len(d.models) == 0 && d.fallback != "":
		return d.fallback + d.theme.Muted.Render("  (Ctrl+R to load the list)")
	case len(d.models) == 0:
		return d.theme.Muted.Render("none (Ctrl+R to load the list)")
	default:
		return fmt.Sprintf("%s %s", d.selectedModel(),
			d.theme.Muted.Render(fmt.Sprintf("(%d of %d)", d.modelIdx+1, len(d.models))))
	}
}

// modelList renders a window of the picker around the cursor.
func (d *settingsDialog) modelList() string {
	if d.focus != fieldModel || len(d.models) == 0 {
		return ""
	}
	start := d.modelIdx - modelRows/2
	start = max(0, min(start, len(d.models)-modelRows))
	end := min(start+modelRows, len(d.models))

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		style := d.theme.MenuItem
		if i == d.modelIdx {
			style = d.theme.MenuSelected
		}
		rows = append(rows, strings.Repeat(" ", 11)+style.Render(util.TruncateWidth(d.models[i], 44)))
	}
	return strings.Join(rows, "\n")
}
