// Package ledger keeps the client's projection of one bill consistent with
// the backend. Every mutation is validated locally with the same split and
// settlement rules the backend runs, sent, and the server's answer replaces
// the affected part of the snapshot.
package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/fkhayef/splitthebill/internal/amount"
	"github.com/fkhayef/splitthebill/internal/bill/split"
	"github.com/fkhayef/splitthebill/internal/settlement"
)

var (
	// ErrBusy is returned while another mutation is in flight
	ErrBusy = errors.New("another change is still being saved")
	// ErrBillClosed is the same rejection the backend gives for closed bills
	ErrBillClosed = settlement.ErrBillClosed
	// ErrRequestFailed wraps transport failures; backend rejections keep their own message
	ErrRequestFailed = errors.New("request failed, please try again")
	// ErrNotLoaded is returned by mutations before the first Refresh
	ErrNotLoaded = errors.New("bill is not loaded yet")
	// ErrDetached is returned once the owning view has gone away
	ErrDetached = errors.New("bill view is closed")

	ErrInvalidItem        = errors.New("item needs a name, a non-negative price and a count of at least 1")
	ErrInvalidParticipant = errors.New("either a user or a guest name is required")
)

// Backend is the remote side of the ledger
type Backend interface {
	GetBill(ctx context.Context, billID int64) (*State, error)
	SplitEqually(ctx context.Context, billID int64) ([]Participant, error)
	SplitRemainder(ctx context.Context, billID int64, participantIDs []int64) ([]Participant, error)
	AssignAmount(ctx context.Context, billID, participantID, amount int64) (*Participant, error)
	SetPaymentStatus(ctx context.Context, billID, participantID int64, isPaid bool) (*Participant, error)
	AddItem(ctx context.Context, billID int64, draft ItemDraft) (*Item, error)
	RemoveItem(ctx context.Context, billID, itemID int64) error
	AddParticipant(ctx context.Context, billID int64, draft ParticipantDraft) ([]Participant, error)
	RemoveParticipant(ctx context.Context, billID, participantID int64) (*State, error)
}

// Ledger holds the snapshot of one bill for one user
type Ledger struct {
	backend Backend
	billID  int64
	userID  int64
	engine  *split.Factory

	mu    sync.Mutex
	state *State
	gen   uint64 // bumped by Detach; responses from older generations are dropped

	busy     atomic.Bool
	onChange func()
}

// New creates a ledger for billID as seen by userID. onChange, when set,
// runs after every snapshot replacement.
func New(backend Backend, billID, userID int64, onChange func()) *Ledger {
	return &Ledger{
		backend:  backend,
		billID:   billID,
		userID:   userID,
		engine:   split.NewFactory(),
		onChange: onChange,
	}
}

// BillID returns the bill this ledger tracks
func (l *Ledger) BillID() int64 { return l.billID }

// UserID returns the acting user
func (l *Ledger) UserID() int64 { return l.userID }

// Busy reports whether a mutation is in flight
func (l *Ledger) Busy() bool { return l.busy.Load() }

// State returns a deep copy of the current snapshot. ok is false before the first Refresh.
func (l *Ledger) State() (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == nil {
		return State{}, false
	}
	return l.state.Clone(), true
}

// Refresh replaces the whole snapshot with the backend's current bill
func (l *Ledger) Refresh(ctx context.Context) error {
	gen, err := l.generation()
	if err != nil {
		return err
	}

	st, err := l.backend.GetBill(ctx, l.billID)
	if err != nil {
		return err
	}
	st.recount()

	return l.commit(gen, func(cur *State) *State {
		return st
	})
}

// Detach stops the snapshot from changing; late responses are discarded
func (l *Ledger) Detach() {
	l.mu.Lock()
	l.gen++
	l.state = nil
	l.mu.Unlock()
}

func (l *Ledger) generation() (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen > 0 {
		return 0, ErrDetached
	}
	return l.gen, nil
}

// commit applies fn to the snapshot unless the ledger was detached since gen
func (l *Ledger) commit(gen uint64, fn func(cur *State) *State) error {
	l.mu.Lock()
	if l.gen != gen {
		l.mu.Unlock()
		return ErrDetached
	}
	l.state = fn(l.state)
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange()
	}
	return nil
}

// begin takes the busy flag and returns a private copy of the snapshot to
// validate against. done must be called exactly once.
func (l *Ledger) begin() (st State, gen uint64, done func(), err error) {
	if !l.busy.CompareAndSwap(false, true) {
		return State{}, 0, nil, ErrBusy
	}
	done = func() { l.busy.Store(false) }

	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.gen > 0:
		err = ErrDetached
	case l.state == nil:
		err = ErrNotLoaded
	case l.state.Bill.Closed():
		err = ErrBillClosed
	}
	if err != nil {
		done()
		return State{}, 0, nil, err
	}
	return l.state.Clone(), l.gen, done, nil
}

// RequestSplitEqual splits the whole bill equally when subset is empty,
// otherwise shares the remainder among subset.
func (l *Ledger) RequestSplitEqual(ctx context.Context, subset []int64) error {
	st, gen, done, err := l.begin()
	if err != nil {
		return err
	}
	defer done()

	if err := settlement.EnsureOpen(st.Bill.Status); err != nil {
		return err
	}

	kind, mode := split.KindEqual, split.ModeEqual
	in := st.splitInput()
	if len(subset) > 0 {
		kind, mode = split.KindRemainder, split.ModeManual
		in.Selected = subset
	}

	strategy, err := l.engine.Create(kind)
	if err != nil {
		return err
	}
	if _, err := strategy.Calculate(in); err != nil {
		return err
	}

	var participants []Participant
	if len(subset) > 0 {
		participants, err = l.backend.SplitRemainder(ctx, l.billID, subset)
	} else {
		participants, err = l.backend.SplitEqually(ctx, l.billID)
	}
	if err != nil {
		return err
	}

	return l.commit(gen, func(cur *State) *State {
		cur.Participants = participants
		cur.Bill.UnallocatedSum = remainderOf(cur.Bill.TotalSum, participants)
		cur.Bill.SplitType = mode
		return cur
	})
}

// RequestAssign sets a participant's allocation, clamped to what is
// available locally. It returns the amount actually sent. A response that no
// longer fits the snapshot is dropped in favour of a full re-fetch.
func (l *Ledger) RequestAssign(ctx context.Context, participantID, amount int64) (int64, error) {
	if amount < 0 {
		return 0, split.ErrNegativeAmount
	}

	st, gen, done, err := l.begin()
	if err != nil {
		return 0, err
	}
	defer done()

	if err := settlement.EnsureOpen(st.Bill.Status); err != nil {
		return 0, err
	}

	in := st.splitInput()
	in.Target, in.Requested = participantID, amount

	strategy, err := l.engine.Create(split.KindManual)
	if err != nil {
		return 0, err
	}
	out, err := strategy.Calculate(in)
	if err != nil {
		return 0, err
	}
	i, _ := st.participant(participantID)
	clamped := out.Slots[i].Allocated

	updated, err := l.backend.AssignAmount(ctx, l.billID, participantID, clamped)
	if err != nil {
		return 0, err
	}

	stale := false
	err = l.commit(gen, func(cur *State) *State {
		j, ok := cur.participant(participantID)
		if !ok {
			stale = true
			return cur
		}
		delta := updated.AllocatedAmount - cur.Participants[j].AllocatedAmount
		if delta > cur.Bill.UnallocatedSum {
			// the snapshot moved on since the request left; only the backend knows the remainder
			stale = true
			return cur
		}
		cur.Participants[j] = *updated
		cur.Bill.UnallocatedSum -= delta
		cur.Bill.SplitType = split.ModeManual
		return cur
	})
	if err == nil && stale {
		err = l.Refresh(ctx)
	}
	return clamped, err
}

// RequestTogglePaid flips a participant's paid flag on behalf of the ledger's user
func (l *Ledger) RequestTogglePaid(ctx context.Context, participantID int64) error {
	st, gen, done, err := l.begin()
	if err != nil {
		return err
	}
	defer done()

	i, ok := st.participant(participantID)
	if !ok {
		return split.ErrUnknownParticipant
	}
	p := st.Participants[i]
	want := !p.IsPaid

	_, err = settlement.TogglePaid(settlement.Subject{
		OwnerID:           st.Bill.OwnerID,
		Status:            st.Bill.Status,
		ParticipantUserID: p.UserID,
		IsPaid:            p.IsPaid,
		Allocated:         p.AllocatedAmount,
	}, l.userID, want)
	if err != nil {
		return err
	}

	updated, err := l.backend.SetPaymentStatus(ctx, l.billID, participantID, want)
	if err != nil {
		return err
	}

	return l.commit(gen, func(cur *State) *State {
		j, ok := cur.participant(participantID)
		if !ok {
			return cur
		}
		cur.Participants[j] = *updated
		cur.Bill.Status = settlement.NextStatus(cur.Bill.Status, cur.Bill.OwnerID, payers(cur.Participants))
		return cur
	})
}

// AddItem adds a line item; the remainder is untouched
func (l *Ledger) AddItem(ctx context.Context, draft ItemDraft) error {
	if draft.Price < 0 || draft.Count < 1 || draft.Name == "" {
		return ErrInvalidItem
	}
	if draft.Price > amount.MaxMinor/int64(draft.Count) {
		return ErrInvalidItem
	}

	_, gen, done, err := l.begin()
	if err != nil {
		return err
	}
	defer done()

	it, err := l.backend.AddItem(ctx, l.billID, draft)
	if err != nil {
		return err
	}

	return l.commit(gen, func(cur *State) *State {
		cur.Items = append(cur.Items, *it)
		cur.recount()
		return cur
	})
}

// RemoveItem deletes a line item
func (l *Ledger) RemoveItem(ctx context.Context, itemID int64) error {
	_, gen, done, err := l.begin()
	if err != nil {
		return err
	}
	defer done()

	if err := l.backend.RemoveItem(ctx, l.billID, itemID); err != nil {
		return err
	}

	return l.commit(gen, func(cur *State) *State {
		items := cur.Items[:0]
		for _, it := range cur.Items {
			if it.ID != itemID {
				items = append(items, it)
			}
		}
		cur.Items = items
		cur.recount()
		return cur
	})
}

// AddParticipant adds a registered user or a guest
func (l *Ledger) AddParticipant(ctx context.Context, draft ParticipantDraft) error {
	if draft.UserID == nil && (draft.GuestName == nil || *draft.GuestName == "") {
		return ErrInvalidParticipant
	}

	st, gen, done, err := l.begin()
	if err != nil {
		return err
	}
	defer done()

	if err := settlement.EnsureOpen(st.Bill.Status); err != nil {
		return err
	}

	participants, err := l.backend.AddParticipant(ctx, l.billID, draft)
	if err != nil {
		return err
	}

	return l.commit(gen, func(cur *State) *State {
		cur.Participants = participants
		cur.Bill.UnallocatedSum = remainderOf(cur.Bill.TotalSum, participants)
		return cur
	})
}

// RemoveParticipant deletes a participant; the backend answers with the whole bill
func (l *Ledger) RemoveParticipant(ctx context.Context, participantID int64) error {
	st, gen, done, err := l.begin()
	if err != nil {
		return err
	}
	defer done()

	i, ok := st.participant(participantID)
	if !ok {
		return split.ErrUnknownParticipant
	}
	if err := settlement.CanRemoveParticipant(st.Bill.OwnerID, l.userID, st.Participants[i].UserID, st.Bill.Status); err != nil {
		return err
	}

	next, err := l.backend.RemoveParticipant(ctx, l.billID, participantID)
	if err != nil {
		return err
	}
	next.recount()

	return l.commit(gen, func(*State) *State {
		return next
	})
}

func remainderOf(total int64, participants []Participant) int64 {
	var sum int64
	for _, p := range participants {
		sum += p.AllocatedAmount
	}
	return max(0, total-sum)
}

func payers(participants []Participant) []settlement.Payer {
	out := make([]settlement.Payer, len(participants))
	for i, p := range participants {
		out[i] = settlement.Payer{UserID: p.UserID, IsPaid: p.IsPaid}
	}
	return out
}
