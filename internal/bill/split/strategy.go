package split

import (
	"errors"
	"fmt"

	"github.com/fkhayef/splitthebill/internal/amount"
)

// Kind identifies an allocation strategy
type Kind string

const (
	KindEqual     Kind = "EQUAL"
	KindRemainder Kind = "REMAINDER"
	KindManual    Kind = "MANUAL"
)

// Mode is the split tag stored on a bill
type Mode string

const (
	ModeManual Mode = "manual"
	ModeEqual  Mode = "equal"
)

// Slot is one participant's position in the allocation, amounts in minor units
type Slot struct {
	ParticipantID int64  `json:"participant_id"`
	UserID        *int64 `json:"user_id,omitempty"`
	Allocated     int64  `json:"allocated"`
	Paid          bool   `json:"paid"`
}

// Input is everything a strategy needs to know about a bill
type Input struct {
	Total     int64
	Remainder int64
	OwnerID   int64
	Slots     []Slot // in bill order

	Selected  []int64 // REMAINDER: participant ids to share the remainder
	Target    int64   // MANUAL: participant id to assign
	Requested int64   // MANUAL: requested allocation
}

// Output is the new allocation set produced by a strategy
type Output struct {
	Slots     []Slot `json:"slots"`
	Remainder int64  `json:"remainder"`
	Mode      Mode   `json:"mode"`
}

// Strategy is the interface that all allocation strategies implement
type Strategy interface {
	// Calculate computes the new allocation for every participant
	Calculate(in Input) (*Output, error)

	// Type returns the type identifier for this strategy
	Type() Kind

	// Validate checks if the input is valid for this strategy
	Validate(in Input) error
}

// Factory creates allocation strategies based on the requested kind
type Factory struct{}

// NewFactory creates a new factory instance
func NewFactory() *Factory {
	return &Factory{}
}

// Create returns the strategy implementation for kind
func (f *Factory) Create(kind Kind) (Strategy, error) {
	switch kind {
	case KindEqual:
		return &EqualStrategy{}, nil
	case KindRemainder:
		return &RemainderStrategy{}, nil
	case KindManual:
		return &ManualStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown split kind: %s", kind)
	}
}

var (
	ErrNoParticipants     = errors.New("at least one participant is required")
	ErrNoUnpaid           = errors.New("no unpaid participants to assign amounts to")
	ErrEmptySelection     = errors.New("at least one participant must be selected")
	ErrUnknownParticipant = errors.New("participant not found in this bill")
	ErrNothingToSplit     = errors.New("unallocated sum is already zero")
	ErrNegativeAmount     = errors.New("amounts cannot be negative")
	ErrPaidUnassign       = errors.New("paid participant cannot be unassigned")
	ErrOverAllocated      = errors.New("allocated amounts exceed bill total")
	ErrUnbalanced         = errors.New("allocations do not add up to bill total")
)

// ExceedsError is returned when an assignment asks for more than is available.
type ExceedsError struct {
	Max int64
}

func (e *ExceedsError) Error() string {
	return fmt.Sprintf("Amount exceeds unallocated sum. Max available: %s", amount.FromMinor(e.Max))
}

// Sum adds up every allocation
func Sum(slots []Slot) int64 {
	var total int64
	for _, s := range slots {
		total += s.Allocated
	}
	return total
}

// Check verifies total = Σ allocated + remainder with nothing negative.
func Check(total int64, slots []Slot, remainder int64) error {
	if total < 0 || remainder < 0 {
		return ErrNegativeAmount
	}
	for _, s := range slots {
		if s.Allocated < 0 {
			return ErrNegativeAmount
		}
	}
	if sum := Sum(slots); sum+remainder != total {
		return fmt.Errorf("%w: total %d, allocated %d, remainder %d", ErrUnbalanced, total, sum, remainder)
	}
	return nil
}

// cloneSlots copies slots so strategies never mutate the caller's input
func cloneSlots(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}

func indexOf(slots []Slot, participantID int64) int {
	for i, s := range slots {
		if s.ParticipantID == participantID {
			return i
		}
	}
	return -1
}

// recipient picks who absorbs the rounding remainder: the owner's slot when
// it is among the candidates, otherwise the first candidate.
func recipient(slots []Slot, candidates []int, ownerID int64) int {
	for _, i := range candidates {
		if slots[i].UserID != nil && *slots[i].UserID == ownerID {
			return i
		}
	}
	return candidates[0]
}
