// Package reveal provides a progressive text-reveal animator with an
// independently blinking cursor.
//
// An Animator owns two periodic schedules: the reveal schedule grows the
// visible prefix by one rune per interval and stops itself once the whole text
// is visible, while the cursor schedule flips cursor visibility every
// CursorBlinkPeriod for as long as the animator lives. Replacing the text
// restarts only the reveal schedule; the cursor keeps its phase.
package reveal

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/zoobzio/clockz"
)

const (
	// DefaultInterval is the delay between revealed characters.
	DefaultInterval = 50 * time.Millisecond

	// CursorBlinkPeriod is the fixed cursor toggle period.
	CursorBlinkPeriod = 530 * time.Millisecond

	// DefaultCursorGlyph is appended to the frame while the cursor is visible.
	DefaultCursorGlyph = "|"
)

// State is a point-in-time view of an animator.
type State struct {
	SourceText    string `json:"text"`
	Revealed      int    `json:"revealed"`
	CursorVisible bool   `json:"cursor"`
}

// Total returns the number of runes in the source text.
func (s State) Total() int {
	return utf8.RuneCountInString(s.SourceText)
}

// Done reports whether the whole text is visible.
func (s State) Done() bool {
	return s.Revealed >= s.Total()
}

// Visible returns the revealed prefix.
func (s State) Visible() string {
	return Prefix(s.SourceText, s.Revealed)
}

// Frame returns the revealed prefix followed by glyph when the cursor is visible.
func (s State) Frame(glyph string) string {
	if s.CursorVisible {
		return s.Visible() + glyph
	}
	return s.Visible()
}

// Option configures an Animator.
type Option func(*Animator)

// WithInterval sets the delay between revealed characters. Non-positive values
// keep the default.
func WithInterval(d time.Duration) Option {
	return func(a *Animator) {
		if d > 0 {
			a.interval = d
		}
	}
}

// WithClock sets the clock driving both schedules.
func WithClock(clock clockz.Clock) Option {
	return func(a *Animator) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithCursorGlyph sets the cursor glyph used by Frame.
func WithCursorGlyph(glyph string) Option {
	return func(a *Animator) {
		a.glyph = glyph
	}
}

// WithOnChange registers an observer invoked after every state change. It is
// called without internal locks held and may call back into the animator.
func WithOnChange(fn func(State)) Option {
	return func(a *Animator) {
		a.onChange = fn
	}
}

// Animator reveals a text one rune at a time while blinking a cursor.
type Animator struct {
	mu sync.Mutex

	clock    clockz.Clock
	interval time.Duration
	glyph    string
	onChange func(State)

	source   string
	runes    []rune
	revealed int
	cursor   bool

	ctx          context.Context
	cancel       context.CancelFunc
	revealCancel context.CancelFunc
	generation   uint64
	started      bool
	stopped      bool
}

// New creates an idle animator. Nothing is scheduled until Start.
func New(opts ...Option) *Animator {
	a := &Animator{
		clock:    clockz.RealClock,
		interval: DefaultInterval,
		glyph:    DefaultCursorGlyph,
		cursor:   true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Interval returns the reveal interval.
func (a *Animator) Interval() time.Duration {
	return a.interval
}

// Glyph returns the cursor glyph.
func (a *Animator) Glyph() string {
	return a.glyph
}

// Start begins the cursor schedule and reveals text. Cancelling ctx tears the
// animator down like Stop. Calling Start again behaves like SetText.
func (a *Animator) Start(ctx context.Context, text string) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	if !a.started {
		a.started = true
		a.ctx, a.cancel = context.WithCancel(ctx)
		context.AfterFunc(a.ctx, a.Stop)

		ticker := a.clock.NewTicker(CursorBlinkPeriod)
		go a.runCursor(a.ctx, ticker)
	}
	state := a.resetLocked(text)
	a.mu.Unlock()

	a.notify(state)
}

// SetText replaces the source text, resets the revealed length to zero and
// restarts the reveal schedule. The cursor schedule is not affected.
func (a *Animator) SetText(text string) {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	state := a.resetLocked(text)
	a.mu.Unlock()

	a.notify(state)
}

// resetLocked cancels the running reveal schedule and, when started, schedules
// a new one for text. Must be called with a.mu held.
func (a *Animator) resetLocked(text string) State {
	if a.revealCancel != nil {
		a.revealCancel()
		a.revealCancel = nil
	}
	a.generation++

	a.source = text
	a.runes = []rune(text)
	a.revealed = 0

	if a.started && len(a.runes) > 0 {
		ctx, cancel := context.WithCancel(a.ctx)
		a.revealCancel = cancel
		ticker := a.clock.NewTicker(a.interval)
		go a.runReveal(ctx, ticker, a.generation)
	}

	return a.stateLocked()
}

func (a *Animator) runReveal(ctx context.Context, ticker clockz.Ticker, generation uint64) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			if !a.tick(generation) {
				return
			}
		}
	}
}

func (a *Animator) runCursor(ctx context.Context, ticker clockz.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			a.mu.Lock()
			if a.stopped {
				a.mu.Unlock()
				return
			}
			a.cursor = !a.cursor
			state := a.stateLocked()
			a.mu.Unlock()

			a.notify(state)
		}
	}
}

// tick performs one scheduled advance for the given generation and reports
// whether the schedule should keep running.
func (a *Animator) tick(generation uint64) bool {
	a.mu.Lock()
	if a.stopped || generation != a.generation {
		a.mu.Unlock()
		return false
	}
	if a.revealed < len(a.runes) {
		a.revealed++
	}
	more := a.revealed < len(a.runes)
	if !more && a.revealCancel != nil {
		a.revealCancel()
		a.revealCancel = nil
	}
	state := a.stateLocked()
	a.mu.Unlock()

	a.notify(state)
	return more
}

// Advance reveals one more rune. It is a no-op once the whole text is visible.
func (a *Animator) Advance() {
	a.mu.Lock()
	if a.revealed >= len(a.runes) {
		a.mu.Unlock()
		return
	}
	a.revealed++
	state := a.stateLocked()
	a.mu.Unlock()

	a.notify(state)
}

// ToggleCursor flips cursor visibility.
func (a *Animator) ToggleCursor() {
	a.mu.Lock()
	a.cursor = !a.cursor
	state := a.stateLocked()
	a.mu.Unlock()

	a.notify(state)
}

// Stop cancels both schedules. It is safe to call more than once.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}
	a.stopped = true
	if a.revealCancel != nil {
		a.revealCancel()
		a.revealCancel = nil
	}
	if a.cancel != nil {
		a.cancel()
	}
}

// Stopped reports whether the animator has been torn down.
func (a *Animator) Stopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Revealing reports whether a reveal schedule is currently active.
func (a *Animator) Revealing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.revealCancel != nil
}

// Snapshot returns the current state.
func (a *Animator) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

// Done reports whether the whole text is visible.
func (a *Animator) Done() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.revealed >= len(a.runes)
}

// Visible returns the revealed prefix.
func (a *Animator) Visible() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Prefix(a.source, a.revealed)
}

// Frame returns the revealed prefix plus the cursor glyph when visible.
func (a *Animator) Frame() string {
	return a.Snapshot().Frame(a.glyph)
}

func (a *Animator) stateLocked() State {
	return State{
		SourceText:    a.source,
		Revealed:      a.revealed,
		CursorVisible: a.cursor,
	}
}

func (a *Animator) notify(state State) {
	if a.onChange != nil {
		a.onChange(state)
	}
}

// Prefix returns the first n runes of text, clamping n to [0, len].
func Prefix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}
