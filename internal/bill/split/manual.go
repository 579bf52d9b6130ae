package split

// =============================================================================
// MANUAL ASSIGNMENT STRATEGY
// Sets one participant's allocation, capped by what is actually available
// =============================================================================

// ManualStrategy implements the Strategy interface for manual overrides
type ManualStrategy struct{}

// Type returns the split kind identifier
func (s *ManualStrategy) Type() Kind {
	return KindManual
}

// Validate checks the target and the requested amount
func (s *ManualStrategy) Validate(in Input) error {
	if in.Requested < 0 {
		return ErrNegativeAmount
	}
	i := indexOf(in.Slots, in.Target)
	if i < 0 {
		return ErrUnknownParticipant
	}
	if slot := in.Slots[i]; slot.Paid && in.Requested == 0 && slot.Allocated > 0 {
		return ErrPaidUnassign
	}
	return nil
}

// Calculate assigns min(requested, remainder + current) to the target.
// Zero is a valid unassign that returns the whole allocation to the pool.
func (s *ManualStrategy) Calculate(in Input) (*Output, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}

	i := indexOf(in.Slots, in.Target)
	current := in.Slots[i].Allocated

	assigned := in.Requested
	if limit := in.Remainder + current; assigned > limit {
		assigned = limit
	}

	out := cloneSlots(in.Slots)
	out[i].Allocated = assigned

	return &Output{
		Slots:     out,
		Remainder: in.Remainder - (assigned - current),
		Mode:      ModeManual,
	}, nil
}

// MaxAssignable returns the most the target participant can be given.
func MaxAssignable(in Input) (int64, error) {
	i := indexOf(in.Slots, in.Target)
	if i < 0 {
		return 0, ErrUnknownParticipant
	}
	return in.Remainder + in.Slots[i].Allocated, nil
}
