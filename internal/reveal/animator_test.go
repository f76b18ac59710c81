package reveal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

const (
	waitFor = time.Second
	pollFor = 5 * time.Millisecond
)

// step advances the fake clock and waits until cond holds.
func step(t *testing.T, clock *clockz.FakeClock, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	clock.Advance(d)
	clock.BlockUntilReady()
	require.Eventually(t, cond, waitFor, pollFor, msg)
}

func TestPrefix(t *testing.T) {
	testCases := []struct {
		text     string
		n        int
		expected string
	}{
		{"typesim", 0, ""},
		{"typesim", 4, "type"},
		{"typesim", 7, "typesim"},
		{"typesim", 99, "typesim"},
		{"typesim", -3, ""},
		{"", 2, ""},
		{"héllo", 2, "hé"},
		{"日本語", 1, "日"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Prefix(tc.text, tc.n), "Prefix(%q, %d)", tc.text, tc.n)
	}
}

func TestManualAdvance(t *testing.T) {
	a := New()
	a.SetText("abc")

	assert.Equal(t, 0, a.Snapshot().Revealed)
	assert.False(t, a.Done())

	for i := 1; i <= 3; i++ {
		a.Advance()
		assert.Equal(t, i, a.Snapshot().Revealed)
		assert.Equal(t, "abc"[:i], a.Visible())
	}
	assert.True(t, a.Done())

	a.Advance()
	a.Advance()
	assert.Equal(t, 3, a.Snapshot().Revealed, "advance is idempotent at the terminal state")
	assert.False(t, a.Revealing(), "an unstarted animator never schedules")
}

func TestFrame(t *testing.T) {
	a := New(WithCursorGlyph("█"))
	a.SetText("go")
	a.Advance()

	assert.True(t, a.Snapshot().CursorVisible, "cursor starts visible")
	assert.Equal(t, "g█", a.Frame())

	a.ToggleCursor()
	assert.Equal(t, "g", a.Frame())

	state := State{SourceText: "hello", Revealed: 5}
	assert.Equal(t, "hello", state.Frame("|"))
	assert.True(t, state.Done())
	assert.Equal(t, 5, state.Total())
}

func TestOptions(t *testing.T) {
	a := New(WithInterval(30 * time.Millisecond))
	assert.Equal(t, 30*time.Millisecond, a.Interval())
	assert.Equal(t, DefaultCursorGlyph, a.Glyph())

	b := New(WithInterval(0), WithInterval(-time.Second), WithClock(nil))
	assert.Equal(t, DefaultInterval, b.Interval())
	assert.NotNil(t, b.clock)
}

func TestScheduledReveal(t *testing.T) {
	clock := clockz.NewFakeClock()
	a := New(WithClock(clock), WithInterval(50*time.Millisecond))
	defer a.Stop()

	a.Start(context.Background(), "hey")
	assert.Equal(t, 0, a.Snapshot().Revealed)
	assert.True(t, a.Revealing())

	for i := 1; i <= 3; i++ {
		want := i
		step(t, clock, 50*time.Millisecond, func() bool {
			return a.Snapshot().Revealed == want
		}, "reveal tick")
	}

	require.Eventually(t, func() bool { return !a.Revealing() }, waitFor, pollFor,
		"reveal schedule stops once the text is fully visible")
	assert.True(t, a.Done())
	assert.Equal(t, "hey", a.Visible())
}

func TestEmptyTextStillBlinks(t *testing.T) {
	clock := clockz.NewFakeClock()
	a := New(WithClock(clock))
	defer a.Stop()

	a.Start(context.Background(), "")
	assert.True(t, a.Done())
	assert.False(t, a.Revealing())

	step(t, clock, CursorBlinkPeriod, func() bool {
		return !a.Snapshot().CursorVisible
	}, "cursor toggles without any text")
	assert.Equal(t, 0, a.Snapshot().Revealed)
}

func TestCursorBlinksAfterCompletion(t *testing.T) {
	clock := clockz.NewFakeClock()
	a := New(WithClock(clock), WithInterval(100*time.Millisecond))
	defer a.Stop()

	a.Start(context.Background(), "x")
	step(t, clock, 100*time.Millisecond, a.Done, "single rune revealed")

	step(t, clock, 430*time.Millisecond, func() bool {
		return !a.Snapshot().CursorVisible
	}, "first blink at 530ms")

	step(t, clock, CursorBlinkPeriod, func() bool {
		return a.Snapshot().CursorVisible
	}, "second blink at 1060ms")

	step(t, clock, CursorBlinkPeriod, func() bool {
		return !a.Snapshot().CursorVisible
	}, "third blink at 1590ms")

	assert.Equal(t, 1, a.Snapshot().Revealed)
}

func TestSetTextRestartsRevealOnly(t *testing.T) {
	clock := clockz.NewFakeClock()
	a := New(WithClock(clock), WithInterval(100*time.Millisecond))
	defer a.Stop()

	a.Start(context.Background(), "abc")
	step(t, clock, 100*time.Millisecond, func() bool {
		return a.Snapshot().Revealed == 1
	}, "first rune of the original text")

	// t=100ms
	a.SetText("xy")
	state := a.Snapshot()
	assert.Equal(t, "xy", state.SourceText)
	assert.Equal(t, 0, state.Revealed)
	assert.True(t, state.CursorVisible)

	step(t, clock, 100*time.Millisecond, func() bool {
		return a.Snapshot().Revealed == 1
	}, "new schedule starts one interval after the restart")
	step(t, clock, 100*time.Millisecond, a.Done, "new text fully revealed")
	assert.Equal(t, "xy", a.Visible())

	// The cursor was started at t=0; a restart at t=100ms must not move its
	// first toggle to 630ms.
	step(t, clock, 230*time.Millisecond, func() bool {
		return !a.Snapshot().CursorVisible
	}, "cursor phase preserved across restart")
}

func TestStop(t *testing.T) {
	clock := clockz.NewFakeClock()
	a := New(WithClock(clock), WithInterval(100*time.Millisecond))

	a.Start(context.Background(), "stop me")
	step(t, clock, 100*time.Millisecond, func() bool {
		return a.Snapshot().Revealed == 1
	}, "one tick before teardown")

	a.Stop()
	a.Stop()
	assert.True(t, a.Stopped())
	assert.False(t, a.Revealing())

	before := a.Snapshot()
	clock.Advance(CursorBlinkPeriod)
	clock.BlockUntilReady()
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, before, a.Snapshot(), "no scheduled changes after Stop")

	a.SetText("ignored")
	assert.Equal(t, "stop me", a.Snapshot().SourceText)
}

func TestContextCancelTearsDown(t *testing.T) {
	clock := clockz.NewFakeClock()
	a := New(WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx, "bye")
	cancel()

	require.Eventually(t, a.Stopped, waitFor, pollFor)
	assert.False(t, a.Revealing())
}

func TestOnChange(t *testing.T) {
	clock := clockz.NewFakeClock()

	var mu sync.Mutex
	var states []State
	a := New(WithClock(clock), WithInterval(10*time.Millisecond), WithOnChange(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	}))
	defer a.Stop()

	a.Start(context.Background(), "ok")
	for i := 1; i <= 2; i++ {
		want := i
		step(t, clock, 10*time.Millisecond, func() bool {
			return a.Snapshot().Revealed == want
		}, "tick")
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 3
	}, waitFor, pollFor)

	mu.Lock()
	defer mu.Unlock()
	for i, s := range states {
		assert.Equal(t, i, s.Revealed)
		assert.Equal(t, "ok", s.SourceText)
	}
}

func TestIndependentAnimators(t *testing.T) {
	clock := clockz.NewFakeClock()
	a := New(WithClock(clock), WithInterval(100*time.Millisecond))
	b := New(WithClock(clock), WithInterval(100*time.Millisecond))
	defer b.Stop()

	a.Start(context.Background(), "aaa")
	b.Start(context.Background(), "bbb")
	a.Stop()

	step(t, clock, 100*time.Millisecond, func() bool {
		return b.Snapshot().Revealed == 1
	}, "b keeps running after a is stopped")
	assert.Equal(t, 0, a.Snapshot().Revealed)
}
