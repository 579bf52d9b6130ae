package split

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uid(v int64) *int64 { return &v }

// three participants, owner (user 10) first
func threeWay(total int64) Input {
	return Input{
		Total:     total,
		Remainder: total,
		OwnerID:   10,
		Slots: []Slot{
			{ParticipantID: 1, UserID: uid(10)},
			{ParticipantID: 2, UserID: uid(20)},
			{ParticipantID: 3},
		},
	}
}

func allocations(slots []Slot) []int64 {
	out := make([]int64, len(slots))
	for i, s := range slots {
		out[i] = s.Allocated
	}
	return out
}

func TestFactory(t *testing.T) {
	f := NewFactory()

	for _, kind := range []Kind{KindEqual, KindRemainder, KindManual} {
		s, err := f.Create(kind)
		require.NoError(t, err)
		assert.Equal(t, kind, s.Type())
	}

	_, err := f.Create(Kind("PERCENTAGE"))
	assert.Error(t, err)
}

func TestEqualStrategy(t *testing.T) {
	tests := []struct {
		name      string
		input     func() Input
		want      []int64
		wantError error
	}{
		{
			name:  "remainder goes to the owner slot",
			input: func() Input { return threeWay(1000) },
			want:  []int64{334, 333, 333},
		},
		{
			name: "owner not first still absorbs the modulo",
			input: func() Input {
				in := threeWay(1001)
				in.Slots[0], in.Slots[2] = in.Slots[2], in.Slots[0]
				return in
			},
			want: []int64{333, 333, 335},
		},
		{
			name: "paid participants are excluded and keep their share",
			input: func() Input {
				in := threeWay(1000)
				in.Slots[1].Allocated = 400
				in.Slots[1].Paid = true
				in.Remainder = 600
				return in
			},
			want: []int64{300, 400, 300},
		},
		{
			name: "paid owner passes the modulo to the first unpaid",
			input: func() Input {
				in := threeWay(1001)
				in.Slots[0].Paid = true
				return in
			},
			want: []int64{0, 501, 500},
		},
		{
			name: "everyone paid",
			input: func() Input {
				in := threeWay(900)
				for i := range in.Slots {
					in.Slots[i].Allocated = 300
					in.Slots[i].Paid = true
				}
				in.Remainder = 0
				return in
			},
			wantError: ErrNoUnpaid,
		},
		{
			name:      "no participants",
			input:     func() Input { return Input{Total: 100} },
			wantError: ErrNoParticipants,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.input()
			out, err := (&EqualStrategy{}).Calculate(in)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, allocations(out.Slots))
			assert.Equal(t, int64(0), out.Remainder)
			assert.Equal(t, ModeEqual, out.Mode)
			assert.NoError(t, Check(in.Total, out.Slots, out.Remainder))
		})
	}
}

func TestEqualStrategy_DoesNotMutateInput(t *testing.T) {
	in := threeWay(1000)
	_, err := (&EqualStrategy{}).Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0}, allocations(in.Slots))
}

func TestRemainderStrategy(t *testing.T) {
	base := func() Input {
		in := threeWay(1000)
		in.Slots[0].Allocated = 300
		in.Remainder = 700
		return in
	}

	t.Run("subset shares the remainder and others are untouched", func(t *testing.T) {
		in := base()
		in.Selected = []int64{2, 3}

		out, err := (&RemainderStrategy{}).Calculate(in)
		require.NoError(t, err)
		assert.Equal(t, []int64{300, 350, 350}, allocations(out.Slots))
		assert.Equal(t, int64(0), out.Remainder)
		assert.Equal(t, ModeManual, out.Mode)
	})

	t.Run("modulo goes to the first selected when the owner is not selected", func(t *testing.T) {
		in := base()
		in.Remainder = 701
		in.Total = 1001
		in.Selected = []int64{3, 2}

		out, err := (&RemainderStrategy{}).Calculate(in)
		require.NoError(t, err)
		assert.Equal(t, []int64{300, 351, 350}, allocations(out.Slots))
		assert.NoError(t, Check(in.Total, out.Slots, out.Remainder))
	})

	t.Run("modulo goes to the owner when selected", func(t *testing.T) {
		in := base()
		in.Selected = []int64{1, 2, 3}

		out, err := (&RemainderStrategy{}).Calculate(in)
		require.NoError(t, err)
		assert.Equal(t, []int64{534, 233, 233}, allocations(out.Slots))
	})

	t.Run("paid members of the subset are skipped", func(t *testing.T) {
		in := base()
		in.Slots[0].Paid = true
		in.Selected = []int64{1, 2}

		out, err := (&RemainderStrategy{}).Calculate(in)
		require.NoError(t, err)
		assert.Equal(t, []int64{300, 700, 0}, allocations(out.Slots))
	})

	errorCases := []struct {
		name     string
		mutate   func(*Input)
		expected error
	}{
		{"empty selection", func(in *Input) { in.Selected = nil }, ErrEmptySelection},
		{"unknown id", func(in *Input) { in.Selected = []int64{99} }, ErrUnknownParticipant},
		{"zero remainder", func(in *Input) {
			in.Selected = []int64{2}
			in.Slots[1].Allocated = 700
			in.Remainder = 0
		}, ErrNothingToSplit},
		{"only paid selected", func(in *Input) {
			in.Selected = []int64{1}
			in.Slots[0].Paid = true
		}, ErrNoUnpaid},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, err := (&RemainderStrategy{}).Calculate(in)
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestManualStrategy(t *testing.T) {
	evenly := func() Input {
		in := threeWay(1000)
		in.Slots[0].Allocated = 334
		in.Slots[1].Allocated = 333
		in.Slots[2].Allocated = 333
		in.Remainder = 0
		return in
	}

	t.Run("over-assignment is clamped to the participant's own allocation", func(t *testing.T) {
		in := evenly()
		in.Target, in.Requested = 2, 500

		out, err := (&ManualStrategy{}).Calculate(in)
		require.NoError(t, err)
		assert.Equal(t, []int64{334, 333, 333}, allocations(out.Slots))
		assert.Equal(t, int64(0), out.Remainder)

		limit, err := MaxAssignable(in)
		require.NoError(t, err)
		assert.Equal(t, int64(333), limit)
	})

	t.Run("unassign returns the amount to the pool", func(t *testing.T) {
		in := evenly()
		in.Target, in.Requested = 1, 0

		out, err := (&ManualStrategy{}).Calculate(in)
		require.NoError(t, err)
		assert.Equal(t, []int64{0, 333, 333}, allocations(out.Slots))
		assert.Equal(t, int64(334), out.Remainder)
		assert.Equal(t, ModeManual, out.Mode)
		assert.NoError(t, Check(in.Total, out.Slots, out.Remainder))
	})

	t.Run("clamp uses remainder plus current", func(t *testing.T) {
		in := threeWay(1000)
		in.Slots[0].Allocated = 200
		in.Remainder = 800
		in.Target, in.Requested = 1, 5000

		out, err := (&ManualStrategy{}).Calculate(in)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), out.Slots[0].Allocated)
		assert.Equal(t, int64(0), out.Remainder)
	})

	t.Run("negative amount", func(t *testing.T) {
		in := evenly()
		in.Target, in.Requested = 1, -1
		_, err := (&ManualStrategy{}).Calculate(in)
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})

	t.Run("paid participant cannot be unassigned", func(t *testing.T) {
		in := evenly()
		in.Slots[1].Paid = true
		in.Target, in.Requested = 2, 0
		_, err := (&ManualStrategy{}).Calculate(in)
		assert.ErrorIs(t, err, ErrPaidUnassign)
	})

	t.Run("unknown participant", func(t *testing.T) {
		in := evenly()
		in.Target = 42
		_, err := (&ManualStrategy{}).Calculate(in)
		assert.ErrorIs(t, err, ErrUnknownParticipant)
	})
}

func TestScenario_EqualThenManual(t *testing.T) {
	in := threeWay(1000)

	out, err := (&EqualStrategy{}).Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, []int64{334, 333, 333}, allocations(out.Slots))

	in.Slots, in.Remainder = out.Slots, out.Remainder
	in.Target, in.Requested = 2, 500
	out, err = (&ManualStrategy{}).Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, int64(333), out.Slots[1].Allocated)

	in.Slots, in.Remainder = out.Slots, out.Remainder
	in.Target, in.Requested = 1, 0
	out, err = (&ManualStrategy{}).Calculate(in)
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Slots[0].Allocated)
	assert.Equal(t, int64(334), out.Remainder)
	assert.NoError(t, Check(1000, out.Slots, out.Remainder))
}

func TestCheck(t *testing.T) {
	slots := []Slot{{ParticipantID: 1, Allocated: 600}, {ParticipantID: 2, Allocated: 300}}

	assert.NoError(t, Check(1000, slots, 100))
	assert.ErrorIs(t, Check(1000, slots, 0), ErrUnbalanced)
	assert.ErrorIs(t, Check(1000, slots, -100), ErrNegativeAmount)
}

func TestExceedsError(t *testing.T) {
	err := &ExceedsError{Max: 33350}
	assert.Equal(t, "Amount exceeds unallocated sum. Max available: 333.5", err.Error())
}
