// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/aichat-tui/internal/config"
	"github.com/jeranaias/aichat-tui/internal/controller"
	"github.com/jeranaias/aichat-tui/internal/session"
	"github.com/jeranaias/aichat-tui/internal/transcript"
	"github.com/jeranaias/aichat-tui/internal/ui/components"
	"github.com/jeranaias/aichat-tui/internal/ui/styles"
)

// =============================================================================
// OVERLAYS
// =============================================================================

type overlay int

const (
	overlayNone overlay = iota
	overlayMenu
	overlaySettings
	overlayHelp
	overlayConfirmClear
	overlayConfigMissing
)

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Model.
type Option func(*Model)

// WithExplain dispatches an explain request once the panel starts.
func WithExplain(selection, source string) Option {
	return func(m *Model) {
		m.explain = &explainRequest{selection: selection, source: source}
	}
}

// WithConfigUpdates feeds configurations reloaded from disk to the panel.
func WithConfigUpdates(ch <-chan *config.Config) Option {
	return func(m *Model) {
		m.configCh = ch
	}
}

// WithClipboard replaces the clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copy = write
		}
	}
}

// WithExportDir sets the directory for exported transcripts.
func WithExportDir(dir string) Option {
	return func(m *Model) {
		if dir != "" {
			m.exportDir = dir
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l.Named("ui")
		}
	}
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// viewState is shared by every copy of the Model. The document and the
// controller write to it from their callbacks.
type viewState struct {
	dirty         bool
	follow        bool
	selected      int
	block         int
	offsets       []int
	loadingModels bool

	notice   string
	noticeAt time.Time

	helpText    string
	missingText string

	pendingExplain *explainRequest

	unsubscribe []func()
}

func (v *viewState) setNotice(msg string) {
	v.notice = msg
	v.noticeAt = time.Now()
}

// Model is the Bubble Tea model for the chat panel.
type Model struct {
	ctrl   *controller.Controller
	theme  *styles.Theme
	keys   KeyMap
	logger *zap.Logger

	// Dimensions
	width  int
	height int

	// UI Components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	status   *components.StatusBar
	menu     *components.Menu
	settings *settingsDialog

	overlay overlay
	view    *viewState

	pumpInterval time.Duration
	explain      *explainRequest
	configCh     <-chan *config.Config
	copy         func(string) error
	exportDir    string
}

// New creates the panel for ctrl. The panel subscribes to the controller
// and its transcript; Close removes the subscriptions.
func New(ctrl *controller.Controller, theme *styles.Theme, opts ...Option) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask a question... (Enter to send, Alt+Enter for newline)"
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Amber)

	m := Model{
		ctrl:         ctrl,
		theme:        theme,
		keys:         DefaultKeyMap(),
		logger:       zap.NewNop(),
		viewport:     viewport.New(80, 20),
		input:        ta,
		spinner:      sp,
		help:         help.New(),
		status:       components.NewStatusBar(theme),
		menu:         components.NewMenu(theme),
		settings:     newSettingsDialog(theme),
		view:         &viewState{dirty: true, follow: true, selected: -1},
		pumpInterval: ctrl.Settings().PumpInterval(),
		copy:         clipboard.WriteAll,
		exportDir:    ".",
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.status.Model = ctrl.SelectedModel()
	m.buildMenu()

	view, status, settings := m.view, m.status, m.settings
	view.unsubscribe = append(view.unsubscribe,
		ctrl.Document().Subscribe(func(transcript.Change) {
			view.dirty = true
		}),
		ctrl.Subscribe(func(n controller.Notice) {
			handleNotice(n, view, status, settings)
		}),
	)
	return m
}

// handleNotice runs on the rendering goroutine, inside Pump or an action.
func handleNotice(n controller.Notice, view *viewState, status *components.StatusBar, settings *settingsDialog) {
	switch n.Kind {
	case controller.NoticeModelsUpdated:
		status.Model = n.Selected
		settings.setModels(n.Models, n.Selected)
		view.loadingModels = false
		view.setNotice(fmt.Sprintf("%d models available", len(n.Models)))
	case controller.NoticeModelsFailed:
		status.Model = ""
		settings.setModels(nil, "")
		settings.err = n.Message
		view.loadingModels = false
		view.setNotice("Failed to load models: " + n.Message)
	case controller.NoticeSessionStarted:
		view.follow = true
	case controller.NoticeSessionFinished:
		if n.State == session.StateErrored {
			view.setNotice(n.Message)
		}
	case controller.NoticeBusy:
		view.setNotice("Please wait for the current reply to finish.")
	case controller.NoticeSettingsChanged:
		status.Model = n.Selected
		if !settings.loading {
			settings.setModels(n.Models, n.Selected)
		}
	case controller.NoticeCleared:
		view.selected = -1
		view.block = 0
		view.setNotice("Conversation cleared.")
	}
}

// Close removes the panel's subscriptions. The controller stays open.
func (m Model) Close() {
	for _, fn := range m.view.unsubscribe {
		fn()
	}
	m.view.unsubscribe = nil
}

// Init starts the pump and the startup actions.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.spinner.Tick,
		m.tick(),
		func() tea.Msg { return startMsg{} },
	}
	if m.configCh != nil {
		cmds = append(cmds, waitForConfig(m.configCh))
	}
	return tea.Batch(cmds...)
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.pumpInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForConfig(ch <-chan *config.Config) tea.Cmd {
	return func() tea.Msg {
		cfg, ok := <-ch
		if !ok {
			return nil
		}
		return configChangedMsg{cfg: cfg}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	next.syncStatus()
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m.handleTick()

	case startMsg:
		return m.handleStart()

	case configChangedMsg:
		if m.overlay != overlaySettings {
			m.ctrl.SetConfig(msg.cfg)
			m.view.setNotice("Settings reloaded from disk.")
		}
		return m, waitForConfig(m.configCh)

	case openOverlayMsg:
		return m.openOverlay(msg.overlay)

	case refreshModelsMsg:
		return m.refreshModels()

	case copiedMsg:
		if msg.err != nil {
			m.logger.Warn("clipboard write failed", zap.Error(msg.err))
			m.view.setNotice("Clipboard unavailable: " + msg.err.Error())
		} else {
			m.view.setNotice("Copied " + msg.what + " to clipboard.")
		}
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.logger.Warn("export failed", zap.Error(msg.err))
			m.view.setNotice("Export failed: " + msg.err.Error())
		} else {
			m.logger.Info("conversation exported", zap.String("path", msg.path))
			m.view.setNotice("Exported to " + msg.path)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.view.follow = m.viewport.AtBottom()
		return m, cmd
	}

	if m.overlay == overlayNone {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

const (
	headerHeight    = 1
	separatorHeight = 1
	inputHeight     = 3
	statusHeight    = 1
)

func (m Model) handleResize(msg tea.WindowSizeMsg) (Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	m.viewport.Width = max(msg.Width, 1)
	m.viewport.Height = max(msg.Height-headerHeight-separatorHeight-inputHeight-statusHeight, 1)
	m.input.SetWidth(max(msg.Width-2, 10))
	m.status.SetWidth(msg.Width)

	m.view.dirty = true
	m.view.helpText = ""
	m.refreshViewport()
	return m, nil
}

func (m Model) handleTick() (Model, tea.Cmd) {
	m.ctrl.Pump()
	if m.view.notice != "" && time.Since(m.view.noticeAt) > NoticeTimeout {
		m.view.notice = ""
	}
	if m.view.pendingExplain != nil && !m.view.loadingModels {
		m, _ = m.dispatchExplain()
	}
	if m.view.dirty {
		m.refreshViewport()
	}
	return m, m.tick()
}

func (m Model) handleStart() (Model, tea.Cmd) {
	m.view.pendingExplain = m.explain
	if !m.ctrl.Settings().IsComplete() {
		if m.view.pendingExplain != nil {
			return m.dispatchExplain()
		}
		m.view.setNotice("Not configured: press F2 to open the settings.")
		return m, nil
	}

	m, cmd := m.refreshModels()
	if m.ctrl.SelectedModel() != "" {
		m, _ = m.dispatchExplain()
	}
	return m, cmd
}

// dispatchExplain sends the pending explain request. Without a model it
// waits for the model list, which selects one.
func (m Model) dispatchExplain() (Model, tea.Cmd) {
	req := m.view.pendingExplain
	if req == nil {
		return m, nil
	}
	m.view.pendingExplain = nil
	return m.handleSendError(m.ctrl.Explain(req.selection, req.source))
}

// handleSendError reacts to the result of SendMessage or Explain.
func (m Model) handleSendError(err error) (Model, tea.Cmd) {
	switch {
	case err == nil:
		m.view.follow = true
		m.view.selected = -1
	case errors.Is(err, controller.ErrEmptyMessage):
	case errors.Is(err, controller.ErrBusy):
		// The busy notice comes from the controller.
	case errors.Is(err, controller.ErrConfigMissing):
		m.view.missingText = err.Error()
		m.overlay = overlayConfigMissing
	default:
		m.logger.Error("send failed", zap.Error(err))
		m.view.setNotice(err.Error())
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.Close()
		return m, tea.Quit
	}

	switch m.overlay {
	case overlayMenu:
		var cmd tea.Cmd
		m.menu, cmd = m.menu.Update(msg)
		if !m.menu.Visible() {
			m.overlay = overlayNone
		}
		return m, cmd
	case overlaySettings:
		return m.handleSettingsKey(msg)
	case overlayConfirmClear:
		switch msg.String() {
		case "y", "Y":
			m.ctrl.Clear()
			m.overlay = overlayNone
		case "n", "N", "esc", "q":
			m.overlay = overlayNone
		}
		return m, nil
	case overlayConfigMissing:
		switch msg.String() {
		case "enter", "f2":
			return m.openOverlay(overlaySettings)
		case "esc", "q":
			m.overlay = overlayNone
		}
		return m, nil
	case overlayHelp:
		switch msg.String() {
		case "esc", "q", "f1", "enter":
			m.overlay = overlayNone
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		err := m.ctrl.SendMessage(m.input.Value())
		if err == nil {
			m.input.Reset()
		}
		return m.handleSendError(err)
	case key.Matches(msg, m.keys.Menu):
		return m.openOverlay(overlayMenu)
	case key.Matches(msg, m.keys.Settings):
		return m.openOverlay(overlaySettings)
	case key.Matches(msg, m.keys.Clear):
		return m.openOverlay(overlayConfirmClear)
	case key.Matches(msg, m.keys.Help):
		return m.openOverlay(overlayHelp)
	case key.Matches(msg, m.keys.Refresh):
		return m.refreshModels()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		m.view.follow = false
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		m.view.follow = m.viewport.AtBottom()
		return m, nil
	case key.Matches(msg, m.keys.SelectPrev):
		return m.selectMessage(-1), nil
	case key.Matches(msg, m.keys.SelectNext):
		return m.selectMessage(1), nil
	case key.Matches(msg, m.keys.NextBlock):
		return m.nextCodeBlock(), nil
	case key.Matches(msg, m.keys.Deselect) && m.view.selected >= 0:
		m.view.selected = -1
		m.view.follow = true
		m.view.dirty = true
		m.refreshViewport()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSettingsKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.settings.applied {
			if err := m.ctrl.ReloadSettings(); err != nil {
				m.logger.Warn("reload settings failed", zap.Error(err))
				m.view.setNotice("Could not reload settings: " + err.Error())
			}
		}
		m.overlay = overlayNone
		m.input.Focus()
		return m, nil

	case "enter", "ctrl+s":
		cfg := m.settings.draft(m.ctrl.Settings())
		if err := m.ctrl.ApplySettings(cfg); err != nil {
			m.settings.err = err.Error()
			return m, nil
		}
		m.overlay = overlayNone
		m.input.Focus()
		m.view.setNotice("Settings saved.")
		if len(m.ctrl.Models()) == 0 {
			return m.refreshModels()
		}
		return m, nil

	case "ctrl+r":
		// Refresh with the values typed so far; Esc restores the saved ones.
		m.ctrl.SetConfig(m.settings.draft(m.ctrl.Settings()))
		m.settings.applied = true
		m.settings.err = ""
		if err := m.ctrl.FetchModels(); err != nil {
			m.settings.err = err.Error()
			return m, nil
		}
		m.settings.loading = true
		m.view.loadingModels = true
		return m, nil
	}
	return m, m.settings.update(msg)
}

func (m Model) openOverlay(o overlay) (Model, tea.Cmd) {
	switch o {
	case overlayMenu:
		m.menu.Show()
	case overlaySettings:
		m.settings.load(m.ctrl.Settings(), m.ctrl.Models(), m.ctrl.SelectedModel())
		m.input.Blur()
	case overlayHelp:
		if m.view.helpText == "" {
			m.view.helpText = m.renderHelp()
		}
	}
	m.overlay = o
	return m, nil
}

func (m Model) refreshModels() (Model, tea.Cmd) {
	if err := m.ctrl.FetchModels(); err != nil {
		if errors.Is(err, controller.ErrConfigMissing) {
			m.view.setNotice("Not configured: press F2 to open the settings.")
		} else {
			m.view.setNotice(err.Error())
		}
		return m, nil
	}
	m.view.loadingModels = true
	return m, nil
}

// =============================================================================
// SELECTION
// =============================================================================

func (m Model) selectMessage(dir int) Model {
	count := len(m.ctrl.Document().Messages())
	if count == 0 {
		return m
	}
	switch {
	case m.view.selected < 0 && dir < 0:
		m.view.selected = count - 1
	case m.view.selected < 0:
		m.view.selected = 0
	default:
		m.view.selected = max(0, min(m.view.selected+dir, count-1))
	}
	m.view.block = 0
	m.view.follow = false
	m.view.dirty = true
	m.refreshViewport()
	return m
}

func (m Model) nextCodeBlock() Model {
	msg, ok := m.target()
	if !ok || m.view.selected < 0 {
		return m
	}
	if blocks := m.ctrl.Document().CodeBlocks(msg.ID); len(blocks) > 0 {
		m.view.block = (m.view.block + 1) % len(blocks)
		m.view.dirty = true
		m.refreshViewport()
	}
	return m
}

// target returns the message the copy actions act on: the selected one, or
// the newest.
func (m Model) target() (transcript.Message, bool) {
	msgs := m.ctrl.Document().Messages()
	if len(msgs) == 0 {
		return transcript.Message{}, false
	}
	if m.view.selected >= 0 && m.view.selected < len(msgs) {
		return msgs[m.view.selected], true
	}
	return msgs[len(msgs)-1], true
}

// =============================================================================
// VIEWPORT
// =============================================================================

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport() {
	doc := m.ctrl.Document()
	if m.view.selected >= len(doc.Messages()) {
		m.view.selected = -1
	}

	content, offsets := renderTranscript(doc, m.theme, m.viewport.Width,
		selection{message: m.view.selected, block: m.view.block})
	m.view.offsets = offsets
	m.view.dirty = false

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(content)

	if sel := m.view.selected; sel >= 0 && sel < len(offsets) {
		top := offsets[sel]
		if top < m.viewport.YOffset || top >= m.viewport.YOffset+m.viewport.Height {
			m.viewport.SetYOffset(top)
		}
		return
	}
	if m.view.follow || atBottom {
		m.viewport.GotoBottom()
	}
}

// syncStatus copies the controller state into the status bar.
func (m *Model) syncStatus() {
	switch {
	case m.ctrl.Busy() && m.ctrl.SessionState() == session.StateStreaming:
		m.status.SetStatus(components.StatusStreaming)
	case m.ctrl.Busy():
		m.status.SetStatus(components.StatusSending)
	case m.view.loadingModels:
		m.status.SetStatus(components.StatusLoadingModels)
	case !m.ctrl.Settings().IsComplete():
		m.status.SetStatus(components.StatusNotConfigured)
	default:
		m.status.SetStatus(components.StatusReady)
	}
	m.status.Spinner = m.spinner.View()
	m.status.SetNotice(m.view.notice)
}
