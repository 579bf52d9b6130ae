package settlement

import "errors"

// Common errors
var (
	ErrBillClosed       = errors.New("action not allowed on this bill state")
	ErrNotAllowed       = errors.New("only the bill owner or the participant can change payment status")
	ErrSelfUnpay        = errors.New("participants cannot revoke their own payment")
	ErrNothingToPay     = errors.New("cannot mark as paid with zero allocated amount")
	ErrNotOwner         = errors.New("only the bill owner can do this")
	ErrOwnerParticipant = errors.New("the owner participant cannot be removed")
)

// EnsureOpen guards allocation changes: only open bills accept them
func EnsureOpen(status BillStatus) error {
	if status != StatusOpen {
		return ErrBillClosed
	}
	return nil
}

// TogglePaid validates a payment change requested by actorID.
//
// Guests carry no identity, so anyone may flip their flag. The owner may
// move a linked participant either way; a linked participant may only mark
// themselves paid. Closed bills reject every change.
func TogglePaid(s Subject, actorID int64, wantPaid bool) (Transition, error) {
	t := Transition{From: PaymentFor(s.IsPaid), To: PaymentFor(wantPaid)}

	if s.Status == StatusClosed {
		return t, ErrBillClosed
	}
	if t.Noop() {
		return t, nil
	}

	if s.ParticipantUserID != nil {
		isOwner := actorID == s.OwnerID
		isSelf := actorID == *s.ParticipantUserID

		switch {
		case isOwner:
		case isSelf && !wantPaid:
			return t, ErrSelfUnpay
		case isSelf:
		default:
			return t, ErrNotAllowed
		}
	}

	if wantPaid && s.Allocated <= 0 {
		return t, ErrNothingToPay
	}

	return t, nil
}

// CanRemoveParticipant checks that the owner is removing somebody else
// from an open bill
func CanRemoveParticipant(ownerID, actorID int64, participantUserID *int64, status BillStatus) error {
	if err := EnsureOpen(status); err != nil {
		return err
	}
	if actorID != ownerID {
		return ErrNotOwner
	}
	if participantUserID != nil && *participantUserID == ownerID {
		return ErrOwnerParticipant
	}
	return nil
}

// NextStatus derives the bill status after payments change.
// Closed is terminal; otherwise the bill is paid once every non-owner
// participant has paid.
func NextStatus(current BillStatus, ownerID int64, payers []Payer) BillStatus {
	if current == StatusClosed {
		return StatusClosed
	}

	others := 0
	for _, p := range payers {
		if p.UserID != nil && *p.UserID == ownerID {
			continue
		}
		if !p.IsPaid {
			return StatusOpen
		}
		others++
	}

	if others == 0 {
		return StatusOpen
	}
	return StatusPaid
}

// Close checks the owner may close the bill
func Close(ownerID, actorID int64, status BillStatus) error {
	if status == StatusClosed {
		return ErrBillClosed
	}
	if actorID != ownerID {
		return ErrNotOwner
	}
	return nil
}
