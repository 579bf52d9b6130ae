package settlement

// BillStatus represents the lifecycle state of a bill
type BillStatus string

const (
	StatusOpen   BillStatus = "open"
	StatusPaid   BillStatus = "paid" // every non-owner participant has paid
	StatusClosed BillStatus = "closed"
)

// PaymentStatus represents one participant's payment state
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// PaymentFor maps the stored flag to a status
func PaymentFor(isPaid bool) PaymentStatus {
	if isPaid {
		return PaymentPaid
	}
	return PaymentUnpaid
}

// Subject is the participant a payment toggle acts on, with its bill context
type Subject struct {
	OwnerID           int64
	Status            BillStatus
	ParticipantUserID *int64 // nil for guests
	IsPaid            bool
	Allocated         int64 // minor units
}

// Payer is the slice of a participant NextStatus needs
type Payer struct {
	UserID *int64
	IsPaid bool
}

// Transition describes an accepted payment change
type Transition struct {
	From PaymentStatus `json:"from"`
	To   PaymentStatus `json:"to"`
}

// Noop reports whether the transition leaves the participant unchanged
func (t Transition) Noop() bool {
	return t.From == t.To
}
