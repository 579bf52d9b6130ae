package reaction

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

// timerClock remembers every timer it hands out
type timerClock struct {
	*clockwork.FakeClock

	mu     sync.Mutex
	timers []clockwork.Timer
}

func (c *timerClock) AfterFunc(d time.Duration, fn func()) clockwork.Timer {
	tm := c.FakeClock.AfterFunc(d, fn)
	c.mu.Lock()
	c.timers = append(c.timers, tm)
	c.mu.Unlock()
	return tm
}

// live stops and counts the timers that had neither fired nor been stopped
func (c *timerClock) live() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, tm := range c.timers {
		if tm.Stop() {
			n++
		}
	}
	return n
}

func newOverlay() (*Overlay, *timerClock, *atomic.Int32) {
	c := &timerClock{FakeClock: clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))}
	changes := &atomic.Int32{}
	return New(c, DefaultTTL, func() { changes.Add(1) }), c, changes
}

func TestOverlay_ExpiresAfterTTL(t *testing.T) {
	o, c, _ := newOverlay()

	o.Push(7, "🔥")

	c.Advance(2900 * time.Millisecond)
	assert.Equal(t, map[int64]string{7: "🔥"}, o.Active())

	c.Advance(200 * time.Millisecond)
	assert.Eventually(t, func() bool { return len(o.Active()) == 0 }, waitFor, tick)
}

func TestOverlay_PushRestartsTimer(t *testing.T) {
	o, c, _ := newOverlay()

	first := o.Push(7, "👍")
	c.Advance(time.Second)
	second := o.Push(7, "🎉")
	assert.NotEqual(t, first.ID, second.ID)

	// the first timer would have fired at 3s
	c.Advance(2500 * time.Millisecond)
	assert.Equal(t, map[int64]string{7: "🎉"}, o.Active())

	c.Advance(600 * time.Millisecond)
	assert.Eventually(t, func() bool { return len(o.Active()) == 0 }, waitFor, tick)
	assert.Zero(t, c.live())
}

func TestOverlay_IndependentUsers(t *testing.T) {
	o, c, changes := newOverlay()

	o.Push(1, "a")
	c.Advance(2 * time.Second)
	o.Push(2, "b")

	c.Advance(1500 * time.Millisecond)
	assert.Eventually(t, func() bool { return changes.Load() == 3 }, waitFor, tick)
	assert.Equal(t, map[int64]string{2: "b"}, o.Active())
}

func TestOverlay_Close(t *testing.T) {
	o, c, changes := newOverlay()

	o.Push(1, "a")
	o.Push(2, "b")
	o.Close()

	assert.Empty(t, o.Active())
	assert.Zero(t, c.live())

	tok := o.Push(3, "c")
	assert.Equal(t, Token{}, tok)
	assert.Empty(t, o.Active())
	assert.Equal(t, int32(2), changes.Load())

	o.Close()
}

func TestOverlay_ActiveIsCopy(t *testing.T) {
	o, _, _ := newOverlay()
	o.Push(1, "a")

	got := o.Active()
	got[1] = "z"
	assert.Equal(t, "a", o.Active()[1])
}
