// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/aichat-tui/internal/cloud"
	"github.com/jeranaias/aichat-tui/internal/config"
	"github.com/jeranaias/aichat-tui/internal/locale"
	"github.com/jeranaias/aichat-tui/internal/model"
	"github.com/jeranaias/aichat-tui/internal/session"
	"github.com/jeranaias/aichat-tui/internal/stream"
	"github.com/jeranaias/aichat-tui/internal/transcript"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("empty message")

	// ErrBusy is returned when a reply is still streaming.
	ErrBusy = errors.New("a reply is still in progress")

	// ErrConfigMissing is returned when the base URL, key or model is unset.
	ErrConfigMissing = errors.New("API configuration incomplete")

	// ErrUnknownModel is returned when selecting a model that is not offered.
	ErrUnknownModel = errors.New("model not offered by the API")
)

// =============================================================================
// API SEAM
// =============================================================================

// ChatAPI is the subset of the cloud client the workers need.
type ChatAPI interface {
	ListModels(ctx context.Context) ([]string, error)
	StreamChat(ctx context.Context, modelID string, messages []model.Message, onDelta cloud.DeltaFunc) (string, error)
}

// ClientFactory builds an API client for the current settings. It is called
// on the rendering goroutine each time a worker starts.
type ClientFactory func(cfg *config.Config, logger *zap.Logger) ChatAPI

// DefaultClientFactory builds a cloud.Client from cfg.
func DefaultClientFactory(cfg *config.Config, logger *zap.Logger) ChatAPI {
	return cloud.NewClient(cfg.API.BaseURL, cfg.API.APIKey).
		WithTimeouts(cfg.ListTimeout(), cfg.StreamTimeout()).
		WithLogger(logger)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l.Named("controller")
		}
	}
}

// WithClientFactory replaces the API client constructor.
func WithClientFactory(f ClientFactory) Option {
	return func(c *Controller) {
		if f != nil {
			c.newClient = f
		}
	}
}

// WithLanguage overrides the detected display language.
func WithLanguage(lang string) Option {
	return func(c *Controller) {
		if lang != "" {
			c.language = lang
		}
	}
}

// WithConfigPath sets where settings are saved and reloaded from. Without it
// the default config path is used.
func WithConfigPath(path string) Option {
	return func(c *Controller) {
		c.configPath = path
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the transcript, the conversation history and the workers.
type Controller struct {
	cfg        *config.Config
	configPath string
	newClient  ClientFactory
	language   string
	logger     *zap.Logger

	queue   *stream.Queue
	doc     *transcript.Document
	history *model.Conversation
	current *session.Session

	models   []string
	selected string

	subscribers map[int]func(Notice)
	nextSubID   int

	// Workers
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	fetching atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// New creates a controller for cfg. The config is copied.
func New(cfg *config.Config, opts ...Option) *Controller {
	if cfg == nil {
		cfg = config.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:         cfg.Clone(),
		newClient:   DefaultClientFactory,
		logger:      zap.NewNop(),
		queue:       stream.NewQueue(),
		history:     model.NewConversation(),
		subscribers: make(map[int]func(Notice)),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.language == "" {
		c.language = locale.Detect()
	}
	c.selected = c.cfg.API.Model
	c.doc = transcript.New(c.logger)
	return c
}

// Document returns the transcript.
func (c *Controller) Document() *transcript.Document { return c.doc }

// History returns a copy of the conversation sent to the model.
func (c *Controller) History() []model.Message { return c.history.Snapshot() }

// Language returns the display language used in prompts.
func (c *Controller) Language() string { return c.language }

// Ready signals that Pump has work. It may fire spuriously.
func (c *Controller) Ready() <-chan struct{} { return c.queue.Ready() }

// Busy reports whether a reply is in flight.
func (c *Controller) Busy() bool {
	return c.current != nil && !c.current.Done()
}

// SessionState returns the state of the latest session, or StateIdle.
func (c *Controller) SessionState() session.State {
	if c.current == nil {
		return session.StateIdle
	}
	return c.current.State()
}

// Subscribe registers fn for notices and returns a function that removes it.
func (c *Controller) Subscribe(fn func(Notice)) func() {
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	return func() { delete(c.subscribers, id) }
}

func (c *Controller) notify(n Notice) {
	for _, fn := range c.subscribers {
		fn(n)
	}
}

// =============================================================================
// ACTIONS
// =============================================================================

// SendMessage sends text as a user message.
func (c *Controller) SendMessage(text string) error {
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if err := c.ready(); err != nil {
		return err
	}
	return c.dispatch(text)
}

// Explain asks the model to explain a selection taken from source
// (SourceEditor or SourceConsole). The request is recorded as a user message.
func (c *Controller) Explain(selection, source string) error {
	selection = norm.NFC.String(selection)
	if strings.TrimSpace(selection) == "" {
		return ErrEmptyMessage
	}
	if source == "" {
		source = SourceEditor
	}
	if err := c.ready(); err != nil {
		return err
	}
	return c.dispatch(ExplainPrompt(source, c.language, selection))
}

func (c *Controller) ready() error {
	if c.Busy() {
		c.notify(Notice{Kind: NoticeBusy, Message: ErrBusy.Error()})
		return ErrBusy
	}
	var missing []string
	missing = append(missing, c.cfg.Missing()...)
	if c.selected == "" {
		missing = append(missing, "api.model")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrConfigMissing, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Controller) dispatch(prompt string) error {
	if _, err := c.doc.AppendMessage(c.doc.NewID(model.RoleUser), model.RoleUser, prompt); err != nil {
		return fmt.Errorf("append user message: %w", err)
	}
	c.history.Append(model.NewUserMessage(prompt))

	sess, err := session.Begin(c.doc, c.logger)
	if err != nil {
		return err
	}
	c.current = sess

	payload := c.history.WithSystemPrompt(SystemPrompt(c.language))
	client := c.newClient(c.cfg, c.logger)
	modelID := c.selected

	c.logger.Info("sending request",
		zap.String("session_id", sess.ID()),
		zap.String("model", modelID),
		zap.Int("history", len(payload)))

	c.wg.Add(1)
	go c.streamWorker(client, sess.ID(), modelID, payload)

	c.notify(Notice{Kind: NoticeSessionStarted, State: sess.State()})
	return nil
}

// FetchModels requests the model list in the background. A request made
// while one is already in flight is absorbed by it.
func (c *Controller) FetchModels() error {
	if !c.cfg.IsComplete() {
		return fmt.Errorf("%w: set %s", ErrConfigMissing, strings.Join(c.cfg.Missing(), ", "))
	}
	if !c.fetching.CompareAndSwap(false, true) {
		c.logger.Debug("model list already in flight")
		return nil
	}
	client := c.newClient(c.cfg, c.logger)
	c.wg.Add(1)
	go c.modelsWorker(client)
	return nil
}

// Clear empties the transcript and the history. A reply still in flight is
// abandoned and its remaining events are discarded.
func (c *Controller) Clear() {
	if c.current != nil {
		c.current.Abandon()
	}
	c.doc.Clear()
	c.history.Clear()
	c.notify(Notice{Kind: NoticeCleared})
}

// =============================================================================
// WORKERS
// =============================================================================

func (c *Controller) streamWorker(client ChatAPI, sessionID, modelID string, payload []model.Message) {
	defer c.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("stream worker panic", zap.Any("panic", r))
			c.queue.Push(stream.Error(sessionID, fmt.Sprintf("Unexpected Error: %v", r)))
		}
	}()

	first := true
	full, err := client.StreamChat(c.ctx, modelID, payload, func(delta string) {
		if first {
			c.queue.Push(stream.ClearPlaceholder(sessionID))
			first = false
		}
		c.queue.Push(stream.Chunk(sessionID, delta))
	})
	if err != nil {
		c.logger.Warn("stream failed", zap.String("session_id", sessionID), zap.Error(err))
		c.queue.Push(stream.Error(sessionID, cloud.Describe(err)))
		return
	}
	c.queue.Push(stream.End(sessionID, full))
}

func (c *Controller) modelsWorker(client ChatAPI) {
	defer c.wg.Done()
	defer c.fetching.Store(false)
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("models worker panic", zap.Any("panic", r))
			c.queue.Push(stream.ModelsError(fmt.Sprintf("Unexpected Error: %v", r)))
		}
	}()

	models, err := client.ListModels(c.ctx)
	if err != nil {
		c.logger.Warn("model list failed", zap.Error(err))
		c.queue.Push(stream.ModelsError(cloud.Describe(err)))
		return
	}
	c.queue.Push(stream.ModelsResult(models))
}

// =============================================================================
// PUMP
// =============================================================================

// Pump applies every pending worker event and returns how many there were.
// It never blocks.
func (c *Controller) Pump() int {
	events := c.queue.DrainAll()
	for _, ev := range events {
		c.handle(ev)
	}
	return len(events)
}

func (c *Controller) handle(ev stream.Event) {
	switch ev.Kind {
	case stream.KindModelsResult:
		c.setModels(ev.Models)
		c.notify(Notice{Kind: NoticeModelsUpdated, Models: c.Models(), Selected: c.selected})
		return
	case stream.KindModelsError:
		c.models = nil
		c.selected = ""
		c.cfg.API.Model = ""
		c.notify(Notice{Kind: NoticeModelsFailed, Message: ev.Message})
		return
	}

	if c.current == nil {
		c.logger.Debug("event without session", zap.Stringer("kind", ev.Kind))
		return
	}
	res, err := c.current.Apply(ev)
	switch {
	case errors.Is(err, session.ErrStale):
		c.logger.Debug("discarding stale event", zap.Error(err))
		return
	case err != nil:
		c.logger.Warn("event rejected", zap.Error(err))
		return
	}

	if res.HasReply {
		c.history.Append(model.NewAssistantMessage(res.Reply))
	}
	if res.State.IsTerminal() {
		c.notify(Notice{Kind: NoticeSessionFinished, State: res.State, Message: res.ErrorMessage})
	}
}

// =============================================================================
// MODELS
// =============================================================================

// Models returns the last fetched model list.
func (c *Controller) Models() []string {
	return slices.Clone(c.models)
}

// SelectedModel returns the model used for new requests.
func (c *Controller) SelectedModel() string {
	return c.selected
}

// SelectModel changes the model for new requests. When a list was fetched
// the id must be on it.
func (c *Controller) SelectModel(id string) error {
	if len(c.models) > 0 && !slices.Contains(c.models, id) {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	c.selected = id
	c.cfg.API.Model = id
	return nil
}

// setModels keeps the current selection if it is still offered, otherwise
// falls back to the first model.
func (c *Controller) setModels(models []string) {
	c.models = slices.Clone(models)
	if !slices.Contains(c.models, c.selected) {
		c.selected = ""
		if len(c.models) > 0 {
			c.selected = c.models[0]
		}
	}
	c.cfg.API.Model = c.selected
	c.logger.Debug("models updated", zap.Int("count", len(c.models)), zap.String("selected", c.selected))
}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings returns a copy of the current settings.
func (c *Controller) Settings() *config.Config {
	return c.cfg.Clone()
}

// ApplySettings validates, adopts and persists cfg.
func (c *Controller) ApplySettings(cfg *config.Config) error {
	next := cfg.Clone()
	next.SetDefaults()
	if err := next.Validate(); err != nil {
		return err
	}
	c.adopt(next)
	return c.save()
}

// ReloadSettings discards unsaved changes by reloading the persisted file.
func (c *Controller) ReloadSettings() error {
	path, err := c.path()
	if err != nil {
		return err
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}
	c.adopt(cfg)
	return nil
}

// SetConfig adopts cfg without saving it. Used for edits made on disk.
func (c *Controller) SetConfig(cfg *config.Config) {
	c.adopt(cfg.Clone())
}

func (c *Controller) adopt(cfg *config.Config) {
	c.cfg = cfg
	c.selected = cfg.API.Model
	c.notify(Notice{Kind: NoticeSettingsChanged, Models: c.Models(), Selected: c.selected})
}

func (c *Controller) path() (string, error) {
	if c.configPath != "" {
		return c.configPath, nil
	}
	return config.ConfigPath()
}

func (c *Controller) save() error {
	path, err := c.path()
	if err != nil {
		return err
	}
	stored, err := config.LoadStored(path)
	if err != nil {
		c.logger.Warn("stored settings unreadable; saving without env overrides", zap.Error(err))
		stored = nil
	}
	if err := config.SaveTOML(c.cfg.WithoutEnvOverrides(stored), path); err != nil {
		return err
	}
	c.logger.Info("settings saved", zap.String("path", path))
	return nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Wait blocks until every worker has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close saves the settings, cancels in-flight requests and waits for the
// workers. It is safe to call more than once.
func (c *Controller) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.save()
		c.cancel()
		c.wg.Wait()
		c.queue.DrainAll()
	})
	return c.closeErr
}
