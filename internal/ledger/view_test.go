package ledger

import (
	"context"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/splitthebill/internal/notification"
)

// timerClock remembers every timer it hands out
type timerClock struct {
	*clockwork.FakeClock

	mu     sync.Mutex
	timers []clockwork.Timer
}

func newTimerClock() *timerClock {
	return &timerClock{FakeClock: clockwork.NewFakeClockAt(time.Unix(0, 0))}
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

func eventServer(t *testing.T) (*notification.Notifier, string) {
	t.Helper()

	n := notification.NewNotifier(time.Hour, prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Route("/bills", notification.NewHandler(n).Attach)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		n.Close()
		srv.Close()
	})
	return n, srv.URL
}

func TestView_RefreshSignalReloadsBill(t *testing.T) {
	notifier, url := eventServer(t)
	backend := newFakeBackend(1000)

	var changes atomic.Int32
	v, err := Open(context.Background(), ViewConfig{
		Backend:  backend,
		BaseURL:  url,
		UserID:   owner,
		OnChange: func() { changes.Add(1) },
	}, 7)
	require.NoError(t, err)
	defer v.Close()

	require.Eventually(t, func() bool { return notifier.Subscribers(7) == 1 }, 2*time.Second, 10*time.Millisecond)

	// another client splits the bill
	_, err = backend.SplitEqually(context.Background(), 7)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		notifier.NotifyRefresh(7)
		st, _ := v.Ledger().State()
		return st.Participants[0].AllocatedAmount == 334
	}, 2*time.Second, 20*time.Millisecond)
	assert.Positive(t, changes.Load())
}

func TestView_ReactionsExpire(t *testing.T) {
	notifier, url := eventServer(t)
	clk := clockwork.NewFakeClockAt(time.Unix(0, 0))

	v, err := Open(context.Background(), ViewConfig{
		Backend:     newFakeBackend(1000),
		BaseURL:     url,
		UserID:      owner,
		Clock:       clk,
		ReactionTTL: 3 * time.Second,
	}, 7)
	require.NoError(t, err)
	defer v.Close()

	require.Eventually(t, func() bool { return notifier.Subscribers(7) == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		notifier.Broadcast(7, notification.Reaction(bob, "🔥"))
		return v.ActiveReactions()[bob] == "🔥"
	}, 2*time.Second, 20*time.Millisecond)

	// a broadcast still in flight restarts the timer, so keep advancing
	assert.Eventually(t, func() bool {
		clk.Advance(3100 * time.Millisecond)
		return len(v.ActiveReactions()) == 0
	}, 2*time.Second, 50*time.Millisecond)
}

func TestView_CoalescesRefreshes(t *testing.T) {
	backend := newFakeBackend(1000)
	v, err := Open(context.Background(), ViewConfig{Backend: backend, UserID: owner}, 7)
	require.NoError(t, err)
	defer v.Close()

	single, _ := v.Ledger().State()
	backend.fetches.Store(0)
	backend.fetchGate = make(chan struct{})
	backend.fetchEntry = make(chan struct{}, 1)

	v.OnRefresh()
	<-backend.fetchEntry

	// everything arriving while the first fetch is blocked collapses into one more
	for i := 0; i < 50; i++ {
		v.OnRefresh()
	}
	close(backend.fetchGate)

	require.Eventually(t, func() bool { return backend.fetches.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return backend.fetches.Load() > 2 }, 100*time.Millisecond, 10*time.Millisecond)

	st, ok := v.Ledger().State()
	require.True(t, ok)
	assert.Equal(t, single, st)
	requireBalanced(t, v.Ledger())
}

func TestView_CloseDetachesLedger(t *testing.T) {
	clk := newTimerClock()
	v, err := Open(context.Background(), ViewConfig{Backend: newFakeBackend(1000), UserID: owner, Clock: clk}, 7)
	require.NoError(t, err)

	v.OnReaction(bob, "👍")
	require.Equal(t, map[int64]string{bob: "👍"}, v.ActiveReactions())

	v.Close()
	assert.Zero(t, clk.live())
	assert.Empty(t, v.ActiveReactions())
	assert.ErrorIs(t, v.Ledger().RequestSplitEqual(context.Background(), nil), ErrDetached)
}

func TestView_Switch(t *testing.T) {
	v, err := Open(context.Background(), ViewConfig{Backend: newFakeBackend(1000), UserID: owner}, 7)
	require.NoError(t, err)

	next, err := v.Switch(context.Background(), 8)
	require.NoError(t, err)
	defer next.Close()

	assert.Equal(t, int64(8), next.Ledger().BillID())
	_, ok := v.Ledger().State()
	assert.False(t, ok)
}
