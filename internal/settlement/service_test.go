package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func id(v int64) *int64 { return &v }

const (
	owner  int64 = 1
	member int64 = 2
	other  int64 = 3
)

func TestTogglePaid(t *testing.T) {
	linked := func(paid bool) Subject {
		return Subject{OwnerID: owner, Status: StatusOpen, ParticipantUserID: id(member), IsPaid: paid, Allocated: 500}
	}
	guest := func(paid bool) Subject {
		return Subject{OwnerID: owner, Status: StatusOpen, IsPaid: paid, Allocated: 500}
	}

	tests := []struct {
		name     string
		subject  Subject
		actor    int64
		wantPaid bool
		wantErr  error
	}{
		{"self marks paid", linked(false), member, true, nil},
		{"self cannot revoke", linked(true), member, false, ErrSelfUnpay},
		{"owner marks paid", linked(false), owner, true, nil},
		{"owner revokes", linked(true), owner, false, nil},
		{"stranger is forbidden", linked(false), other, true, ErrNotAllowed},
		{"guest self-report by anyone", guest(false), other, true, nil},
		{"guest revoke by anyone", guest(true), other, false, nil},
		{"nothing allocated", Subject{OwnerID: owner, Status: StatusOpen, ParticipantUserID: id(member)}, member, true, ErrNothingToPay},
		{"closed bill", Subject{OwnerID: owner, Status: StatusClosed, ParticipantUserID: id(member), Allocated: 10}, owner, true, ErrBillClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := TogglePaid(tt.subject, tt.actor, tt.wantPaid)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PaymentFor(tt.wantPaid), tr.To)
			assert.False(t, tr.Noop())
		})
	}
}

func TestTogglePaid_SameValueIsNoop(t *testing.T) {
	// even a stranger gets a no-op rather than a rejection
	tr, err := TogglePaid(Subject{OwnerID: owner, Status: StatusOpen, ParticipantUserID: id(member), IsPaid: true}, other, true)
	require.NoError(t, err)
	assert.True(t, tr.Noop())
}

func TestTogglePaid_AllowedOnPaidBill(t *testing.T) {
	_, err := TogglePaid(Subject{OwnerID: owner, Status: StatusPaid, ParticipantUserID: id(member), IsPaid: true, Allocated: 5}, owner, false)
	assert.NoError(t, err)
}

func TestCanRemoveParticipant(t *testing.T) {
	assert.NoError(t, CanRemoveParticipant(owner, owner, id(member), StatusOpen))
	assert.NoError(t, CanRemoveParticipant(owner, owner, nil, StatusOpen))
	assert.ErrorIs(t, CanRemoveParticipant(owner, member, id(member), StatusOpen), ErrNotOwner)
	assert.ErrorIs(t, CanRemoveParticipant(owner, owner, id(owner), StatusOpen), ErrOwnerParticipant)
	assert.ErrorIs(t, CanRemoveParticipant(owner, owner, id(member), StatusClosed), ErrBillClosed)
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name    string
		current BillStatus
		payers  []Payer
		want    BillStatus
	}{
		{"nobody but owner", StatusOpen, []Payer{{UserID: id(owner)}}, StatusOpen},
		{"others unpaid", StatusOpen, []Payer{{UserID: id(owner)}, {UserID: id(member)}}, StatusOpen},
		{"others paid, owner unpaid", StatusOpen, []Payer{{UserID: id(owner)}, {UserID: id(member), IsPaid: true}, {IsPaid: true}}, StatusPaid},
		{"one revoked", StatusPaid, []Payer{{UserID: id(member), IsPaid: true}, {IsPaid: false}}, StatusOpen},
		{"closed is terminal", StatusClosed, []Payer{{UserID: id(member)}}, StatusClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStatus(tt.current, owner, tt.payers))
		})
	}
}

func TestClose(t *testing.T) {
	assert.NoError(t, Close(owner, owner, StatusOpen))
	assert.NoError(t, Close(owner, owner, StatusPaid))
	assert.ErrorIs(t, Close(owner, member, StatusPaid), ErrNotOwner)
	assert.ErrorIs(t, Close(owner, owner, StatusClosed), ErrBillClosed)
}

func TestEnsureOpen(t *testing.T) {
	assert.NoError(t, EnsureOpen(StatusOpen))
	assert.ErrorIs(t, EnsureOpen(StatusPaid), ErrBillClosed)
	assert.ErrorIs(t, EnsureOpen(StatusClosed), ErrBillClosed)
}
