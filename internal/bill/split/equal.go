package split

// =============================================================================
// EQUAL SPLIT STRATEGY
// Divides what is left after paid participants equally among the unpaid ones
// =============================================================================

// EqualStrategy implements the Strategy interface for whole-bill equal splits
type EqualStrategy struct{}

// Type returns the split kind identifier
func (s *EqualStrategy) Type() Kind {
	return KindEqual
}

// Validate checks if the input is valid for an equal split
func (s *EqualStrategy) Validate(in Input) error {
	if len(in.Slots) == 0 {
		return ErrNoParticipants
	}
	if in.Total < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// Calculate gives every unpaid participant floor(pool/n) minor units and the
// modulo to the owner (or the first unpaid participant). Paid participants
// keep what they have.
func (s *EqualStrategy) Calculate(in Input) (*Output, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	var paidSum int64
	eligible := make([]int, 0, len(in.Slots))
	for i, slot := range in.Slots {
		if slot.Paid {
			paidSum += slot.Allocated
			continue
		}
		eligible = append(eligible, i)
	}

	if len(eligible) == 0 {
		return nil, ErrNoUnpaid
	}

	pool := in.Total - paidSum
	if pool < 0 {
		return nil, ErrOverAllocated
	}

	n := int64(len(eligible))
	share, extra := pool/n, pool%n

	out := cloneSlots(in.Slots)
	for _, i := range eligible {
		out[i].Allocated = share
	}
	out[recipient(out, eligible, in.OwnerID)].Allocated += extra

	return &Output{Slots: out, Remainder: 0, Mode: ModeEqual}, nil
}
