package ledger

import (
	"time"

	"github.com/fkhayef/splitthebill/internal/bill/split"
	"github.com/fkhayef/splitthebill/internal/settlement"
)

// Bill is the client's copy of a bill. Amounts are minor units.
type Bill struct {
	ID             int64
	OwnerID        int64
	Title          string
	TotalSum       int64
	UnallocatedSum int64
	PaymentDetails *string
	IsClosed       bool
	SplitType      split.Mode
	Status         settlement.BillStatus
	CreatedAt      time.Time

	ParticipantsCount int
}

// Closed reports whether the bill accepts no more changes
func (b Bill) Closed() bool {
	return b.IsClosed || b.Status == settlement.StatusClosed
}

// Item is a descriptive line
type Item struct {
	ID               int64
	BillID           int64
	Name             string
	Price            int64
	Count            int
	ItemSum          int64
	AssignedToUserID *int64
}

// Participant is one share of the bill. UserID is nil for guests.
type Participant struct {
	ID              int64
	BillID          int64
	UserID          *int64
	GuestName       *string
	Username        *string
	AvatarURL       *string
	AllocatedAmount int64
	IsPaid          bool
}

// DisplayName picks the best label for a participant
func (p Participant) DisplayName() string {
	switch {
	case p.Username != nil && *p.Username != "":
		return "@" + *p.Username
	case p.GuestName != nil:
		return *p.GuestName
	default:
		return "?"
	}
}

// State is a snapshot of one bill with everything hanging off it
type State struct {
	Bill         Bill
	Items        []Item
	Participants []Participant
	ItemsTotal   int64
}

// ItemDraft is a new line item
type ItemDraft struct {
	Name             string
	Price            int64
	Count            int
	AssignedToUserID *int64
}

// ParticipantDraft adds either a registered user or a guest
type ParticipantDraft struct {
	UserID    *int64
	GuestName *string
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (p Participant) clone() Participant {
	p.UserID = clonePtr(p.UserID)
	p.GuestName = clonePtr(p.GuestName)
	p.Username = clonePtr(p.Username)
	p.AvatarURL = clonePtr(p.AvatarURL)
	return p
}

func (it Item) clone() Item {
	it.AssignedToUserID = clonePtr(it.AssignedToUserID)
	return it
}

// Clone returns a deep copy
func (s *State) Clone() State {
	out := State{Bill: s.Bill, ItemsTotal: s.ItemsTotal}
	out.Bill.PaymentDetails = clonePtr(s.Bill.PaymentDetails)

	out.Items = make([]Item, len(s.Items))
	for i, it := range s.Items {
		out.Items[i] = it.clone()
	}
	out.Participants = make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		out.Participants[i] = p.clone()
	}
	return out
}

func (s *State) slots() []split.Slot {
	slots := make([]split.Slot, len(s.Participants))
	for i, p := range s.Participants {
		slots[i] = split.Slot{
			ParticipantID: p.ID,
			UserID:        p.UserID,
			Allocated:     p.AllocatedAmount,
			Paid:          p.IsPaid,
		}
	}
	return slots
}

func (s *State) splitInput() split.Input {
	return split.Input{
		Total:     s.Bill.TotalSum,
		Remainder: s.Bill.UnallocatedSum,
		OwnerID:   s.Bill.OwnerID,
		Slots:     s.slots(),
	}
}

func (s *State) participant(id int64) (int, bool) {
	for i, p := range s.Participants {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *State) recount() {
	var total int64
	for _, it := range s.Items {
		total += it.ItemSum
	}
	s.ItemsTotal = total
}
