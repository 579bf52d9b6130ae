package bill

import (
	"time"

	"github.com/fkhayef/splitthebill/internal/bill/split"
	"github.com/fkhayef/splitthebill/internal/settlement"
)

// Bill represents a shared bill. Amounts are minor units.
type Bill struct {
	ID             int64                 `json:"id"`
	OwnerID        int64                 `json:"owner_id"`
	Title          string                `json:"title"`
	TotalSum       int64                 `json:"total_sum"`
	UnallocatedSum int64                 `json:"unallocated_sum"` // cached: total - Σ allocated
	PaymentDetails *string               `json:"payment_details,omitempty"`
	IsClosed       bool                  `json:"is_closed"`
	SplitType      split.Mode            `json:"split_type"`
	Status         settlement.BillStatus `json:"status"`
	CreatedAt      time.Time             `json:"created_at"`

	// Populated by list queries
	ParticipantsCount int `json:"participants_count,omitempty"`
}

// Item is a descriptive line on a bill; it never moves money
type Item struct {
	ID               int64  `json:"id"`
	BillID           int64  `json:"bill_id"`
	Name             string `json:"name"`
	Price            int64  `json:"price"`
	Count            int    `json:"count"`
	ItemSum          int64  `json:"item_sum"`
	AssignedToUserID *int64 `json:"assigned_to_user_id,omitempty"`
}

// Participant is one share of a bill. UserID is nil for guests.
type Participant struct {
	ID              int64   `json:"id"`
	BillID          int64   `json:"bill_id"`
	UserID          *int64  `json:"user_id,omitempty"`
	GuestName       *string `json:"guest_name,omitempty"`
	AllocatedAmount int64   `json:"allocated_amount"`
	IsPaid          bool    `json:"is_paid"`

	// Populated via JOIN
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Detail is a bill with everything hanging off it
type Detail struct {
	Bill         *Bill
	Items        []*Item
	Participants []*Participant
}

// IsOwner reports whether p is the owner participant of b
func (b *Bill) IsOwner(p *Participant) bool {
	return p.UserID != nil && *p.UserID == b.OwnerID
}

// Subject builds the settlement view of a payment toggle on p
func (b *Bill) Subject(p *Participant) settlement.Subject {
	return settlement.Subject{
		OwnerID:           b.OwnerID,
		Status:            b.Status,
		ParticipantUserID: p.UserID,
		IsPaid:            p.IsPaid,
		Allocated:         p.AllocatedAmount,
	}
}

// SplitInput builds the engine input for b and its participants
func (b *Bill) SplitInput(participants []*Participant) split.Input {
	return split.Input{
		Total:     b.TotalSum,
		Remainder: b.UnallocatedSum,
		OwnerID:   b.OwnerID,
		Slots:     Slots(participants),
	}
}

// Slot converts a participant for the split engine
func (p *Participant) Slot() split.Slot {
	return split.Slot{
		ParticipantID: p.ID,
		UserID:        p.UserID,
		Allocated:     p.AllocatedAmount,
		Paid:          p.IsPaid,
	}
}

// Slots converts participants for the split engine, keeping order
func Slots(participants []*Participant) []split.Slot {
	slots := make([]split.Slot, len(participants))
	for i, p := range participants {
		slots[i] = p.Slot()
	}
	return slots
}

// Payers converts participants for settlement.NextStatus
func Payers(participants []*Participant) []settlement.Payer {
	payers := make([]settlement.Payer, len(participants))
	for i, p := range participants {
		payers[i] = settlement.Payer{UserID: p.UserID, IsPaid: p.IsPaid}
	}
	return payers
}

// ItemsTotal sums every line; informational only
func (d *Detail) ItemsTotal() int64 {
	var total int64
	for _, it := range d.Items {
		total += it.ItemSum
	}
	return total
}
