// Package reaction keeps the short-lived emoji reactions shown over a bill.
// Reactions are cosmetic: they never touch the ledger.
package reaction

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultTTL is how long a reaction stays visible
const DefaultTTL = 3 * time.Second

// Token identifies one push; a timer only clears the entry it was started for
type Token struct {
	ID uuid.UUID
	At time.Time
}

type entry struct {
	emoji string
	token Token
	timer clockwork.Timer
}

// Overlay holds at most one active reaction per user
type Overlay struct {
	clock    clockwork.Clock
	ttl      time.Duration
	onChange func()

	mu      sync.Mutex
	entries map[int64]*entry
	closed  bool
}

// New creates an overlay. onChange, when set, runs after every visible change,
// outside the overlay's lock.
func New(c clockwork.Clock, ttl time.Duration, onChange func()) *Overlay {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Overlay{
		clock:    c,
		ttl:      ttl,
		onChange: onChange,
		entries:  make(map[int64]*entry),
	}
}

// Push shows emoji for userID, replacing and restarting any reaction they
// already have. Pushes after Close are ignored and return a zero Token.
func (o *Overlay) Push(userID int64, emoji string) Token {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return Token{}
	}

	if prev, ok := o.entries[userID]; ok {
		prev.timer.Stop()
	}

	tok := Token{ID: uuid.New(), At: o.clock.Now()}
	e := &entry{emoji: emoji, token: tok}
	o.entries[userID] = e
	e.timer = o.clock.AfterFunc(o.ttl, func() { o.expire(userID, tok) })
	o.mu.Unlock()

	o.changed()
	return tok
}

func (o *Overlay) expire(userID int64, tok Token) {
	o.mu.Lock()
	e, ok := o.entries[userID]
	if !ok || e.token != tok {
		o.mu.Unlock()
		return
	}
	delete(o.entries, userID)
	o.mu.Unlock()

	o.changed()
}

// Active returns a copy of the visible reactions keyed by user id
func (o *Overlay) Active() map[int64]string {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make(map[int64]string, len(o.entries))
	for uid, e := range o.entries {
		out[uid] = e.emoji
	}
	return out
}

// Close stops every pending timer and drops all reactions
func (o *Overlay) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	for _, e := range o.entries {
		e.timer.Stop()
	}
	o.entries = make(map[int64]*entry)
	o.mu.Unlock()
}

func (o *Overlay) changed() {
	if o.onChange != nil {
		o.onChange()
	}
}
