// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transcript

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/aichat-tui/internal/markup"
	"github.com/jeranaias/aichat-tui/internal/model"
)

// Placeholder is shown in an assistant message until its first chunk arrives.
const Placeholder = "..."

const separator = "\n\n"

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoActiveMessage is returned when appending with no active message.
	ErrNoActiveMessage = errors.New("no active message")

	// ErrActiveMessage is returned when a message would be placed after the
	// active one.
	ErrActiveMessage = errors.New("an active message is still open")

	// ErrNotActive is returned when finalizing a message that is not active.
	ErrNotActive = errors.New("message is not active")

	// ErrDuplicateID is returned when a message id is already in use.
	ErrDuplicateID = errors.New("duplicate message id")

	// ErrUnknownMessage is returned for ids not in the document.
	ErrUnknownMessage = errors.New("unknown message")

	// ErrInconsistent wraps every invariant violation reported by Validate.
	ErrInconsistent = errors.New("document inconsistency")
)

// =============================================================================
// TYPES
// =============================================================================

// ID identifies a message for the lifetime of a Document.
type ID string

// Message describes one rendered message.
type Message struct {
	ID   ID
	Role model.Role
	// Start is the offset of the role label.
	Start int
	// ContentStart is the offset just after the role label.
	ContentStart int
	// End is the exclusive end of the content.
	End int
	// Raw is the content as received, before markup.
	Raw string
}

// Span is a markup tag applied to part of a message's content.
type Span struct {
	Tag       markup.Tag
	Start     int
	End       int
	Lang      string
	MessageID ID
}

// ChangeKind says what a mutation did.
type ChangeKind int

const (
	ChangeAppended ChangeKind = iota
	ChangeExtended
	ChangePlaceholderCleared
	ChangeFinalized
	ChangeDeactivated
	ChangeRemoved
	ChangeCleared
)

// Change is delivered to subscribers after a mutation.
type Change struct {
	Kind      ChangeKind
	MessageID ID
}

type subscriber struct {
	id int
	fn func(Change)
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is the transcript backing store.
type Document struct {
	logger *zap.Logger
	table  markup.Table

	buf      []rune
	messages []*Message
	index    map[ID]*Message
	spans    []Span
	active   ID

	seq     uint64
	subs    []subscriber
	nextSub int
}

// New creates an empty document. A nil logger disables logging.
func New(logger *zap.Logger) *Document {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Document{
		logger: logger,
		table:  markup.DefaultTable(),
		index:  make(map[ID]*Message),
	}
}

// WithTable replaces the markup table used on finalized content.
func (d *Document) WithTable(t markup.Table) *Document {
	d.table = t
	return d
}

// NewID returns a fresh message id for role. Ids are never reused, including
// across Clear.
func (d *Document) NewID(role model.Role) ID {
	d.seq++
	return ID(fmt.Sprintf("%s_%d", role, d.seq))
}

// =============================================================================
// MUTATIONS
// =============================================================================

// AppendMessage renders a complete message at the end of the document and
// applies markup to its content. It returns the offset of the message start.
func (d *Document) AppendMessage(id ID, role model.Role, content string) (int, error) {
	if err := d.canAppend(id); err != nil {
		return 0, err
	}
	m := d.insert(id, role, content)
	markup.Apply(d.editor(id), m.ContentStart, m.End, d.table)

	d.check("append")
	d.publish(Change{Kind: ChangeAppended, MessageID: id})
	return m.Start, nil
}

// StartMessage renders content as a new active message. No markup is applied
// until Finalize.
func (d *Document) StartMessage(id ID, role model.Role, content string) (int, error) {
	if err := d.canAppend(id); err != nil {
		return 0, err
	}
	m := d.insert(id, role, content)
	d.active = id

	d.check("start")
	d.publish(Change{Kind: ChangeAppended, MessageID: id})
	return m.Start, nil
}

// AppendToActive appends raw text to the active message.
func (d *Document) AppendToActive(chunk string) error {
	m := d.activeMessage()
	if m == nil {
		return ErrNoActiveMessage
	}
	if chunk == "" {
		return nil
	}
	d.replace(m.End, m.End, []rune(chunk))
	m.Raw += chunk

	d.check("append to active")
	d.publish(Change{Kind: ChangeExtended, MessageID: m.ID})
	return nil
}

// ClearPlaceholder removes the active message's content if it is still the
// placeholder. It reports whether anything was removed.
func (d *Document) ClearPlaceholder() bool {
	m := d.activeMessage()
	if m == nil {
		return false
	}
	if strings.TrimSpace(string(d.buf[m.ContentStart:m.End])) != Placeholder {
		return false
	}
	d.replace(m.ContentStart, m.End, nil)
	m.Raw = ""

	d.check("clear placeholder")
	d.publish(Change{Kind: ChangePlaceholderCleared, MessageID: m.ID})
	return true
}

// Finalize applies markup to the active message and ends its active status.
func (d *Document) Finalize(id ID) error {
	if d.active == "" || d.active != id {
		return fmt.Errorf("finalize %s: %w", id, ErrNotActive)
	}
	d.active = ""
	m, ok := d.index[id]
	if !ok {
		d.logger.Warn("finalize: message span not found",
			zap.String("message_id", string(id)),
			zap.Error(ErrInconsistent))
		return nil
	}
	markup.Apply(d.editor(id), m.ContentStart, m.End, d.table)

	d.check("finalize")
	d.publish(Change{Kind: ChangeFinalized, MessageID: id})
	return nil
}

// Deactivate ends the active status of id without applying markup.
func (d *Document) Deactivate(id ID) error {
	if d.active == "" || d.active != id {
		return fmt.Errorf("deactivate %s: %w", id, ErrNotActive)
	}
	d.active = ""
	d.check("deactivate")
	d.publish(Change{Kind: ChangeDeactivated, MessageID: id})
	return nil
}

// RemoveMessage deletes a message, its separator and its spans.
func (d *Document) RemoveMessage(id ID) error {
	idx := d.position(id)
	if idx < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrUnknownMessage)
	}
	m := d.messages[idx]

	start, end := m.Start, m.End
	switch {
	case idx > 0:
		start = d.messages[idx-1].End
	case len(d.messages) > 1:
		end = d.messages[1].Start
	}

	kept := d.spans[:0]
	for _, s := range d.spans {
		if s.MessageID != id {
			kept = append(kept, s)
		}
	}
	d.spans = kept
	d.messages = append(d.messages[:idx], d.messages[idx+1:]...)
	delete(d.index, id)
	if d.active == id {
		d.active = ""
	}
	d.replace(start, end, nil)

	d.check("remove")
	d.publish(Change{Kind: ChangeRemoved, MessageID: id})
	return nil
}

// Clear deletes everything. The id sequence keeps counting.
func (d *Document) Clear() {
	d.buf = nil
	d.messages = nil
	d.index = make(map[ID]*Message)
	d.spans = nil
	d.active = ""
	d.publish(Change{Kind: ChangeCleared})
}

// =============================================================================
// QUERIES
// =============================================================================

// Text returns the whole visible text.
func (d *Document) Text() string {
	return string(d.buf)
}

// Len returns the buffer length in runes.
func (d *Document) Len() int {
	return len(d.buf)
}

// Slice returns the text in [start, end), clamped to the buffer.
func (d *Document) Slice(start, end int) string {
	start, end = clamp(start, 0, len(d.buf)), clamp(end, 0, len(d.buf))
	if start >= end {
		return ""
	}
	return string(d.buf[start:end])
}

// Messages returns copies of all messages in order.
func (d *Document) Messages() []Message {
	out := make([]Message, len(d.messages))
	for i, m := range d.messages {
		out[i] = *m
	}
	return out
}

// Message returns a copy of the message with id.
func (d *Document) Message(id ID) (Message, bool) {
	m, ok := d.index[id]
	if !ok {
		return Message{}, false
	}
	return *m, true
}

// Content returns the visible content of a message, without its label.
func (d *Document) Content(id ID) string {
	m, ok := d.index[id]
	if !ok {
		return ""
	}
	return string(d.buf[m.ContentStart:m.End])
}

// Spans returns all markup spans sorted by start.
func (d *Document) Spans() []Span {
	out := append([]Span(nil), d.spans...)
	sortSpans(out)
	return out
}

// SpansFor returns the spans of one message sorted by start.
func (d *Document) SpansFor(id ID) []Span {
	var out []Span
	for _, s := range d.spans {
		if s.MessageID == id {
			out = append(out, s)
		}
	}
	sortSpans(out)
	return out
}

// Active returns the id of the active message.
func (d *Document) Active() (ID, bool) {
	return d.active, d.active != ""
}

// MessageAt returns the message whose rendered range contains offset.
func (d *Document) MessageAt(offset int) (Message, bool) {
	i := sort.Search(len(d.messages), func(i int) bool {
		return d.messages[i].End >= offset
	})
	if i < len(d.messages) && d.messages[i].Start <= offset {
		return *d.messages[i], true
	}
	return Message{}, false
}

// CodeBlockAt returns the code block interior under offset.
func (d *Document) CodeBlockAt(offset int) (string, bool) {
	for _, s := range d.spans {
		if s.Tag == markup.CodeContent && s.Start <= offset && offset < s.End {
			return string(d.buf[s.Start:s.End]), true
		}
	}
	return "", false
}

// CodeBlocks returns the code block interiors of a message in order.
func (d *Document) CodeBlocks(id ID) []string {
	var out []string
	for _, s := range d.SpansFor(id) {
		if s.Tag == markup.CodeContent {
			out = append(out, string(d.buf[s.Start:s.End]))
		}
	}
	return out
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe registers fn for every change. The returned func unsubscribes.
// Callbacks run synchronously on the mutating goroutine.
func (d *Document) Subscribe(fn func(Change)) func() {
	d.nextSub++
	id := d.nextSub
	d.subs = append(d.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range d.subs {
			if s.id == id {
				d.subs = append(d.subs[:i], d.subs[i+1:]...)
				return
			}
		}
	}
}

func (d *Document) publish(c Change) {
	for _, s := range append([]subscriber(nil), d.subs...) {
		s.fn(c)
	}
}

// =============================================================================
// INVARIANTS
// =============================================================================

// Validate checks the structural invariants and returns every violation.
func (d *Document) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInconsistent}, args...)...))
	}

	prevEnd := -1
	for i, m := range d.messages {
		if m.Start > m.ContentStart || m.ContentStart > m.End {
			fail("message %s has disordered offsets %d/%d/%d", m.ID, m.Start, m.ContentStart, m.End)
		}
		if i > 0 && m.Start <= prevEnd {
			fail("message %s starts at %d before previous end %d", m.ID, m.Start, prevEnd)
		}
		if m.End > len(d.buf) {
			fail("message %s ends at %d past buffer %d", m.ID, m.End, len(d.buf))
		}
		prevEnd = m.End
	}

	if d.active != "" {
		m, ok := d.index[d.active]
		switch {
		case !ok:
			fail("active message %s missing", d.active)
		case len(d.messages) == 0 || d.messages[len(d.messages)-1] != m:
			fail("active message %s is not last", d.active)
		case m.End != len(d.buf):
			fail("active message %s ends at %d, buffer at %d", d.active, m.End, len(d.buf))
		}
	}

	for _, s := range d.spans {
		m, ok := d.index[s.MessageID]
		if !ok {
			fail("span %s owned by missing message %s", s.Tag, s.MessageID)
			continue
		}
		if s.Start >= s.End || s.Start < m.ContentStart || s.End > m.End {
			fail("span %s [%d,%d) outside message %s content [%d,%d)",
				s.Tag, s.Start, s.End, m.ID, m.ContentStart, m.End)
		}
	}
	return errors.Join(errs...)
}

func (d *Document) check(op string) {
	if err := d.Validate(); err != nil {
		d.logger.Warn("transcript invariant violated", zap.String("op", op), zap.Error(err))
	}
}

// =============================================================================
// INTERNALS
// =============================================================================

func (d *Document) canAppend(id ID) error {
	if d.active != "" {
		return fmt.Errorf("append %s: %w", id, ErrActiveMessage)
	}
	if _, ok := d.index[id]; ok {
		return fmt.Errorf("append %s: %w", id, ErrDuplicateID)
	}
	return nil
}

func (d *Document) insert(id ID, role model.Role, content string) *Message {
	if len(d.buf) > 0 {
		d.buf = append(d.buf, []rune(separator)...)
	}
	m := &Message{ID: id, Role: role, Start: len(d.buf), Raw: content}
	d.buf = append(d.buf, []rune(role.Label())...)
	m.ContentStart = len(d.buf)
	d.buf = append(d.buf, []rune(content)...)
	m.End = len(d.buf)

	d.messages = append(d.messages, m)
	d.index[id] = m
	return m
}

func (d *Document) activeMessage() *Message {
	if d.active == "" {
		return nil
	}
	return d.index[d.active]
}

func (d *Document) position(id ID) int {
	for i, m := range d.messages {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// replace substitutes buf[s:e] with text and moves every offset after it.
func (d *Document) replace(s, e int, text []rune) {
	n := len(text)
	delta := n - (e - s)

	if s == len(d.buf) && e == s {
		d.buf = append(d.buf, text...)
	} else {
		out := make([]rune, 0, len(d.buf)+delta)
		out = append(out, d.buf[:s]...)
		out = append(out, text...)
		d.buf = append(out, d.buf[e:]...)
	}

	for _, m := range d.messages {
		switch {
		case m.Start >= e:
			m.Start += delta
			m.ContentStart += delta
			m.End += delta
		case m.ContentStart <= s && e <= m.End:
			m.End += delta
		case m.End <= s:
		default:
			d.logger.Warn("edit straddles message boundary",
				zap.String("message_id", string(m.ID)),
				zap.Int("start", s), zap.Int("end", e))
		}
	}

	kept := d.spans[:0]
	for _, sp := range d.spans {
		sp.Start, sp.End = markup.ShiftRange(sp.Start, sp.End, s, e, n)
		if sp.Start < sp.End {
			kept = append(kept, sp)
		}
	}
	d.spans = kept
}

func (d *Document) editor(id ID) markup.Editor {
	return &editor{d: d, id: id}
}

// editor exposes the document to markup.Apply for a single message.
type editor struct {
	d  *Document
	id ID
}

func (e *editor) Runes(start, end int) []rune {
	return append([]rune(nil), e.d.buf[start:end]...)
}

func (e *editor) Replace(start, end int, text string) {
	e.d.replace(start, end, []rune(text))
}

func (e *editor) Tag(tag markup.Tag, start, end int, lang string) {
	if start >= end {
		return
	}
	e.d.spans = append(e.d.spans, Span{Tag: tag, Start: start, End: end, Lang: lang, MessageID: e.id})
}

func (e *editor) Protected(start, end int) [][2]int {
	var out [][2]int
	for _, s := range e.d.spans {
		if s.Tag.IsCode() && s.Start < end && s.End > start {
			out = append(out, [2]int{s.Start, s.End})
		}
	}
	markup.SortRanges(out)
	return out
}

func sortSpans(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool {
		if spans[i].Start != spans[j].Start {
			return spans[i].Start < spans[j].Start
		}
		return spans[i].End > spans[j].End
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
