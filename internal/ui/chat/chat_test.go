// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/jeranaias/aichat-tui/internal/cloud"
	"github.com/jeranaias/aichat-tui/internal/config"
	"github.com/jeranaias/aichat-tui/internal/controller"
	"github.com/jeranaias/aichat-tui/internal/model"
	"github.com/jeranaias/aichat-tui/internal/transcript"
	"github.com/jeranaias/aichat-tui/internal/ui/components"
	"github.com/jeranaias/aichat-tui/internal/ui/styles"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// HELPERS
// =============================================================================

// fakeAPI answers every request from memory.
type fakeAPI struct {
	mu        sync.Mutex
	models    []string
	modelsErr error
	deltas    []string
	release   chan struct{}
	configs   []*config.Config
}

func (f *fakeAPI) ListModels(ctx context.Context) ([]string, error) {
	return f.models, f.modelsErr
}

func (f *fakeAPI) StreamChat(ctx context.Context, modelID string, msgs []model.Message, onDelta cloud.DeltaFunc) (string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	var full strings.Builder
	for _, d := range f.deltas {
		full.WriteString(d)
		onDelta(d)
	}
	return full.String(), nil
}

func (f *fakeAPI) factory(cfg *config.Config, _ *zap.Logger) controller.ChatAPI {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, cfg.Clone())
	return f
}

func (f *fakeAPI) lastConfig() *config.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.configs) == 0 {
		return nil
	}
	return f.configs[len(f.configs)-1]
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.API.BaseURL = "https://api.example.com/v1"
	cfg.API.APIKey = "sk-test"
	cfg.API.Model = "gpt-a"
	return cfg
}

func newPanel(t *testing.T, api *fakeAPI, cfg *config.Config, opts ...Option) (Model, *controller.Controller) {
	t.Helper()
	lipgloss.SetColorProfile(termenv.Ascii)

	ctrl := controller.New(cfg,
		controller.WithLanguage("English"),
		controller.WithConfigPath(filepath.Join(t.TempDir(), "config.toml")),
		controller.WithClientFactory(api.factory))
	t.Cleanup(func() { _ = ctrl.Close() })

	theme := styles.NewTheme("dark")
	theme.ColorProfile = termenv.Ascii

	m := New(ctrl, theme, opts...)
	m = send(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	return m, ctrl
}

func send(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func sendCmd(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// pump waits for the workers and delivers one tick.
func pump(m Model, ctrl *controller.Controller) Model {
	ctrl.Wait()
	return send(m, tickMsg(time.Now()))
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

var (
	keyEnter   = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc     = tea.KeyMsg{Type: tea.KeyEsc}
	keyMenu    = tea.KeyMsg{Type: tea.KeyCtrlO}
	keyDown    = tea.KeyMsg{Type: tea.KeyDown}
	keyAltUp   = tea.KeyMsg{Type: tea.KeyUp, Alt: true}
	keyClear   = tea.KeyMsg{Type: tea.KeyCtrlL}
	keyRefresh = tea.KeyMsg{Type: tea.KeyCtrlR}
)

// =============================================================================
// SENDING
// =============================================================================

func TestPanel_SendStreamsReply(t *testing.T) {
	api := &fakeAPI{deltas: []string{"Hi", " there"}}
	m, ctrl := newPanel(t, api, testConfig())

	m = typeText(m, "Hello")
	m = send(m, keyEnter)

	assert.Equal(t, "", m.input.Value())
	assert.Equal(t, "User: Hello\n\nAssistant: ...", ctrl.Document().Text())
	assert.Equal(t, components.StatusSending, m.status.Status)

	m = pump(m, ctrl)
	assert.Equal(t, "User: Hello\n\nAssistant: Hi there", ctrl.Document().Text())
	assert.Equal(t, components.StatusReady, m.status.Status)

	view := m.View()
	assert.Contains(t, view, "User: Hello")
	assert.Contains(t, view, "Assistant: Hi there")
}

func TestPanel_EmptyEnterIsIgnored(t *testing.T) {
	m, ctrl := newPanel(t, &fakeAPI{}, testConfig())
	m = typeText(m, "   ")
	m = send(m, keyEnter)

	assert.Equal(t, 0, ctrl.Document().Len())
	assert.Equal(t, overlayNone, m.overlay)
}

func TestPanel_ConfigMissingOpensDialog(t *testing.T) {
	cfg := testConfig()
	cfg.API.APIKey = ""
	m, ctrl := newPanel(t, &fakeAPI{}, cfg)

	m = typeText(m, "Hello")
	m = send(m, keyEnter)

	assert.Equal(t, overlayConfigMissing, m.overlay)
	assert.Equal(t, 0, ctrl.Document().Len(), "nothing is rendered")
	assert.Equal(t, "Hello", m.input.Value(), "the draft is kept")
	assert.Contains(t, m.View(), "Configuration Missing")
	assert.Contains(t, m.View(), "api.api_key")

	m = send(m, keyEnter)
	assert.Equal(t, overlaySettings, m.overlay)
}

func TestPanel_BusyNotice(t *testing.T) {
	api := &fakeAPI{deltas: []string{"ok"}, release: make(chan struct{})}
	m, ctrl := newPanel(t, api, testConfig())

	m = typeText(m, "one")
	m = send(m, keyEnter)
	m = typeText(m, "two")
	m = send(m, keyEnter)

	assert.Equal(t, "two", m.input.Value())
	assert.Contains(t, m.status.Notice, "Please wait")
	assert.Equal(t, 1, strings.Count(ctrl.Document().Text(), "User:"))

	close(api.release)
	m = pump(m, ctrl)
	assert.Equal(t, "User: one\n\nAssistant: ok", ctrl.Document().Text())
}

func TestPanel_Explain(t *testing.T) {
	api := &fakeAPI{deltas: []string{"It assigns."}}
	m, ctrl := newPanel(t, api, testConfig(), WithExplain("x := 1", controller.SourceConsole))

	m = send(m, startMsg{})
	m = pump(m, ctrl)

	text := ctrl.Document().Text()
	assert.Contains(t, text, "Explain the following console selection (please respond in English):")
	assert.Contains(t, text, "Assistant: It assigns.")
}

func TestPanel_ExplainWaitsForModelList(t *testing.T) {
	cfg := testConfig()
	cfg.API.Model = ""
	api := &fakeAPI{models: []string{"gpt-z"}, deltas: []string{"ok"}}
	m, ctrl := newPanel(t, api, cfg, WithExplain("x", controller.SourceEditor))

	m = send(m, startMsg{})
	assert.Equal(t, 0, ctrl.Document().Len())

	m = pump(m, ctrl)
	assert.Equal(t, "gpt-z", ctrl.SelectedModel())
	assert.Contains(t, ctrl.Document().Text(), "editor selection")

	m = pump(m, ctrl)
	assert.Contains(t, ctrl.Document().Text(), "Assistant: ok")
}

// =============================================================================
// MODELS
// =============================================================================

func TestPanel_StartupFetchesModels(t *testing.T) {
	api := &fakeAPI{models: []string{"gpt-a", "gpt-b"}}
	m, ctrl := newPanel(t, api, testConfig())

	m = send(m, startMsg{})
	assert.Equal(t, components.StatusLoadingModels, m.status.Status)

	m = pump(m, ctrl)
	assert.Equal(t, components.StatusReady, m.status.Status)
	assert.Equal(t, "gpt-a", m.status.Model)
	assert.Equal(t, []string{"gpt-a", "gpt-b"}, ctrl.Models())
	assert.Contains(t, m.status.Notice, "2 models")
}

func TestPanel_ModelsFailed(t *testing.T) {
	api := &fakeAPI{modelsErr: errors.New("boom")}
	m, ctrl := newPanel(t, api, testConfig())

	m = send(m, keyRefresh)
	m = pump(m, ctrl)

	assert.Equal(t, "", m.status.Model)
	assert.Contains(t, m.status.Notice, "Failed to load models")
}

func TestPanel_StartupWithoutConfig(t *testing.T) {
	cfg := config.Default()
	cfg.API.APIKey = ""
	m, _ := newPanel(t, &fakeAPI{}, cfg)

	m = send(m, startMsg{})
	assert.Equal(t, components.StatusNotConfigured, m.status.Status)
	assert.Contains(t, m.status.Notice, "F2")
}

// =============================================================================
// CONTEXT MENU
// =============================================================================

func TestPanel_CopyActions(t *testing.T) {
	api := &fakeAPI{deltas: []string{"Use:\n```go\nx := 1\n```\n", "**done**"}}
	var copied []string
	clip := func(s string) error {
		copied = append(copied, s)
		return nil
	}
	m, ctrl := newPanel(t, api, testConfig(), WithClipboard(clip))

	m = typeText(m, "Hi")
	m = send(m, keyEnter)
	m = pump(m, ctrl)

	// Copy Code Block is the first item.
	m = send(m, keyMenu)
	assert.Equal(t, overlayMenu, m.overlay)
	m, cmd := sendCmd(m, keyEnter)
	assert.Equal(t, overlayNone, m.overlay)
	require.NotNil(t, cmd)
	m = send(m, cmd())

	// Copy Message (Markdown) on the assistant message.
	m = send(m, keyMenu)
	m = send(m, keyDown)
	m, cmd = sendCmd(m, keyEnter)
	require.NotNil(t, cmd)
	m = send(m, cmd())

	// Copy Message (Text) on the user message.
	m = send(m, keyAltUp)
	m = send(m, keyAltUp)
	assert.Equal(t, 0, m.view.selected)
	m = send(m, keyMenu)
	assert.Equal(t, 1, m.menu.Selected(), "no code block in the user message")
	m = send(m, keyDown)
	m, cmd = sendCmd(m, keyEnter)
	require.NotNil(t, cmd)
	m = send(m, cmd())

	assert.Equal(t, []string{
		"x := 1",
		"Use:\n```go\nx := 1\n```\n**done**",
		"Hi",
	}, copied)
	assert.Contains(t, m.status.Notice, "Copied message text")
}

func TestPanel_CopyFailureIsReported(t *testing.T) {
	api := &fakeAPI{deltas: []string{"text"}}
	clip := func(string) error { return errors.New("no display") }
	m, ctrl := newPanel(t, api, testConfig(), WithClipboard(clip))

	m = typeText(m, "Hi")
	m = send(m, keyEnter)
	m = pump(m, ctrl)

	m = send(m, keyMenu)
	assert.Equal(t, 1, m.menu.Selected())
	m, cmd := sendCmd(m, keyEnter)
	require.NotNil(t, cmd)
	m = send(m, cmd())
	assert.Contains(t, m.status.Notice, "Clipboard unavailable: no display")
}

func TestPanel_ExportConversation(t *testing.T) {
	dir := t.TempDir()
	api := &fakeAPI{deltas: []string{"**ok**"}}
	m, ctrl := newPanel(t, api, testConfig(), WithExportDir(dir))

	m = typeText(m, "Hi")
	m = send(m, keyEnter)
	m = pump(m, ctrl)

	m = send(m, keyMenu)
	m = send(m, keyDown)
	m = send(m, keyDown)
	assert.Equal(t, 3, m.menu.Selected())
	m, cmd := sendCmd(m, keyEnter)
	require.NotNil(t, cmd)
	m = send(m, cmd())
	assert.Contains(t, m.status.Notice, "Exported to "+dir)

	files, err := filepath.Glob(filepath.Join(dir, "conversation_Hi_*.md"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "### [Assistant]\n\n**ok**")
}

func TestPanel_ClearNeedsConfirmation(t *testing.T) {
	api := &fakeAPI{deltas: []string{"ok"}}
	m, ctrl := newPanel(t, api, testConfig())
	m = typeText(m, "Hi")
	m = send(m, keyEnter)
	m = pump(m, ctrl)

	m = send(m, keyClear)
	assert.Equal(t, overlayConfirmClear, m.overlay)
	assert.Contains(t, m.View(), "Clear the transcript")
	m = send(m, keyRune('n'))
	assert.Equal(t, overlayNone, m.overlay)
	assert.NotZero(t, ctrl.Document().Len())

	m = send(m, keyClear)
	m = send(m, keyRune('y'))
	assert.Equal(t, 0, ctrl.Document().Len())
	assert.Empty(t, ctrl.History())
	assert.Contains(t, m.status.Notice, "cleared")
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestPanel_SettingsSave(t *testing.T) {
	api := &fakeAPI{models: []string{"gpt-a"}}
	m, ctrl := newPanel(t, api, testConfig())

	m = send(m, tea.KeyMsg{Type: tea.KeyF2})
	require.Equal(t, overlaySettings, m.overlay)
	assert.Equal(t, "https://api.example.com/v1", m.settings.baseURL.Value())
	assert.Contains(t, m.View(), "Settings")
	assert.NotContains(t, m.View(), "sk-test", "the key is masked")

	m.settings.baseURL.SetValue("https://other.example.com/v1")
	m = send(m, keyEnter)

	assert.Equal(t, overlayNone, m.overlay)
	assert.Equal(t, "https://other.example.com/v1", ctrl.Settings().API.BaseURL)
	assert.Contains(t, m.status.Notice, "Settings saved")

	m = pump(m, ctrl)
	assert.Equal(t, []string{"gpt-a"}, ctrl.Models(), "saving loads the model list")
}

func TestPanel_SettingsInvalid(t *testing.T) {
	m, ctrl := newPanel(t, &fakeAPI{}, testConfig())

	m = send(m, tea.KeyMsg{Type: tea.KeyF2})
	m.settings.baseURL.SetValue("ftp://nowhere")
	m = send(m, keyEnter)

	assert.Equal(t, overlaySettings, m.overlay)
	assert.NotEmpty(t, m.settings.err)
	assert.Equal(t, "https://api.example.com/v1", ctrl.Settings().API.BaseURL)
}

func TestPanel_SettingsRefreshUsesDraftAndCancelRestores(t *testing.T) {
	api := &fakeAPI{models: []string{"m1", "m2"}}
	m, ctrl := newPanel(t, api, testConfig())

	// Persist the starting point so cancel has something to reload.
	require.NoError(t, ctrl.ApplySettings(ctrl.Settings()))

	m = send(m, tea.KeyMsg{Type: tea.KeyF2})
	m.settings.apiKey.SetValue("sk-draft")
	m = send(m, keyRefresh)
	assert.True(t, m.settings.loading)
	assert.Equal(t, "sk-draft", api.lastConfig().API.APIKey)

	m = pump(m, ctrl)
	assert.Equal(t, []string{"m1", "m2"}, m.settings.models)
	assert.False(t, m.settings.loading)

	m = send(m, keyEsc)
	assert.Equal(t, overlayNone, m.overlay)
	assert.Equal(t, "sk-test", ctrl.Settings().API.APIKey)
}

func TestSettingsDialog_ModelPicker(t *testing.T) {
	d := newSettingsDialog(styles.NewTheme("dark"))
	d.load(testConfig(), []string{"a", "b", "c"}, "b")
	assert.Equal(t, "b", d.selectedModel())

	d.setFocus(fieldModel)
	d.update(keyDown)
	assert.Equal(t, "c", d.selectedModel())
	d.update(keyDown)
	assert.Equal(t, "c", d.selectedModel(), "the cursor stops at the end")

	d.update(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldAPIKey, d.focus)

	cfg := d.draft(testConfig())
	assert.Equal(t, "c", cfg.API.Model)

	d.setModels(nil, "kept")
	assert.Equal(t, "kept", d.selectedModel())
}

func TestPanel_ConfigReloadedFromDisk(t *testing.T) {
	ch := make(chan *config.Config, 1)
	m, ctrl := newPanel(t, &fakeAPI{}, testConfig(), WithConfigUpdates(ch))

	cfg := testConfig()
	cfg.API.Model = "gpt-z"
	m, cmd := sendCmd(m, configChangedMsg{cfg: cfg})

	assert.Equal(t, "gpt-z", ctrl.SelectedModel())
	assert.Equal(t, "gpt-z", m.status.Model)
	require.NotNil(t, cmd)

	ch <- testConfig()
	assert.Equal(t, configChangedMsg{cfg: testConfig()}, cmd())
}

// =============================================================================
// OTHER OVERLAYS
// =============================================================================

func TestPanel_Help(t *testing.T) {
	m, _ := newPanel(t, &fakeAPI{}, testConfig())

	m = send(m, tea.KeyMsg{Type: tea.KeyF1})
	assert.Equal(t, overlayHelp, m.overlay)
	view := m.View()
	assert.Contains(t, view, "aichat")
	assert.Contains(t, view, "select previous message")

	m = send(m, keyEsc)
	assert.Equal(t, overlayNone, m.overlay)
}

func TestPanel_Quit(t *testing.T) {
	m, _ := newPanel(t, &fakeAPI{}, testConfig())
	_, cmd := sendCmd(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Nil(t, m.view.unsubscribe)
}

// =============================================================================
// RENDERING
// =============================================================================

func TestRenderTranscript(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	theme := styles.NewTheme("dark")
	theme.ColorProfile = termenv.Ascii

	doc := transcript.New(nil)
	_, err := doc.AppendMessage(doc.NewID(model.RoleUser), model.RoleUser, "Hello **world**")
	require.NoError(t, err)
	_, err = doc.AppendMessage(doc.NewID(model.RoleAssistant), model.RoleAssistant, "Code:\n```go\nx := 1\n```\n")
	require.NoError(t, err)

	out, offsets := renderTranscript(doc, theme, 80, selection{message: -1})
	assert.Contains(t, out, "User: Hello world")
	assert.NotContains(t, out, "**")
	assert.Contains(t, out, "x := 1")
	assert.NotContains(t, out, "```")
	assert.Equal(t, []int{0, 2}, offsets)

	selected, _ := renderTranscript(doc, theme, 80, selection{message: 1})
	assert.Contains(t, selected, selectedMarker+"Assistant: ")
}

func TestRenderTranscript_Placeholder(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	theme := styles.NewTheme("dark")

	doc := transcript.New(nil)
	_, err := doc.StartMessage(doc.NewID(model.RoleAssistant), model.RoleAssistant, transcript.Placeholder)
	require.NoError(t, err)

	out, _ := renderTranscript(doc, theme, 80, selection{message: -1})
	assert.Equal(t, "Assistant: ...", out)
}

func TestRenderLines(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)
	assert.Equal(t, "a\n\nbb", renderLines(lipgloss.NewStyle(), "a\n\nbb"))
	assert.Equal(t, "", renderLines(lipgloss.NewStyle(), ""))
}

func TestNew_DoesNotWriteSettings(t *testing.T) {
	dir := t.TempDir()
	ctrl := controller.New(testConfig(), controller.WithConfigPath(filepath.Join(dir, "config.toml")))
	New(ctrl, styles.NewTheme("dark")).Close()
	ctrl.Wait()
	_, err := os.Stat(filepath.Join(dir, "config.toml"))
	assert.True(t, os.IsNotExist(err))
	_ = ctrl.Close()
}
