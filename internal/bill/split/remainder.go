package split

// =============================================================================
// REMAINDER SPLIT STRATEGY
// Shares only the unallocated remainder among a chosen set of participants
// =============================================================================

// RemainderStrategy implements the Strategy interface for subset splits
type RemainderStrategy struct{}

// Type returns the split kind identifier
func (s *RemainderStrategy) Type() Kind {
	return KindRemainder
}

// Validate checks the selection and that there is something left to share
func (s *RemainderStrategy) Validate(in Input) error {
	if len(in.Selected) == 0 {
		return ErrEmptySelection
	}
	for _, id := range in.Selected {
		if indexOf(in.Slots, id) < 0 {
			return ErrUnknownParticipant
		}
	}
	if in.Remainder <= 0 {
		return ErrNothingToSplit
	}
	return nil
}

// Calculate adds floor(R/k) to each unpaid selected participant and the
// modulo to the owner if selected, else to the first selected in bill order.
// Everyone else is left untouched.
func (s *RemainderStrategy) Calculate(in Input) (*Output, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	selected := make(map[int64]struct{}, len(in.Selected))
	for _, id := range in.Selected {
		selected[id] = struct{}{}
	}

	targets := make([]int, 0, len(selected))
	for i, slot := range in.Slots {
		if _, ok := selected[slot.ParticipantID]; ok && !slot.Paid {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return nil, ErrNoUnpaid
	}

	k := int64(len(targets))
	share, extra := in.Remainder/k, in.Remainder%k

	out := cloneSlots(in.Slots)
	for _, i := range targets {
		out[i].Allocated += share
	}
	out[recipient(out, targets, in.OwnerID)].Allocated += extra

	return &Output{Slots: out, Remainder: 0, Mode: ModeManual}, nil
}
