package client

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_Decode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int64
	}{
		{"quoted decimal", `"12.50"`, 1250},
		{"bare number", `12.5`, 1250},
		{"integer", `7`, 700},
		{"comma separator", `"3,25"`, 325},
		{"currency suffix", `"1 250,50 сўм"`, 125050},
		{"half up", `"0.125"`, 13},
		{"null", `null`, 0},
		{"garbage", `"abc"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m money
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &m))
			assert.Equal(t, tt.want, m.minor())
		})
	}
}

func TestMoney_DecodesDetail(t *testing.T) {
	raw := `{
		"id": 3, "owner_id": 1, "title": "Dinner",
		"total_sum": "1000", "unallocated_sum": 333.34,
		"split_type": "EQUAL", "status": "OPEN", "created_at": "2026-10-16T19:00:00Z",
		"items_total": "0",
		"items": [{"id": 1, "bill_id": 3, "name": "Tea", "price": "2,5", "count": 2, "item_sum": 5}],
		"participants": [{"id": 9, "bill_id": 3, "allocated_amount": "666.66", "is_paid": false}]
	}`

	var d detailBody
	require.NoError(t, json.Unmarshal([]byte(raw), &d))

	st := d.model()
	assert.Equal(t, int64(100000), st.Bill.TotalSum)
	assert.Equal(t, int64(33334), st.Bill.UnallocatedSum)
	assert.Equal(t, int64(250), st.Items[0].Price)
	assert.Equal(t, int64(500), st.Items[0].ItemSum)
	assert.Equal(t, int64(66666), st.Participants[0].AllocatedAmount)
}

func TestMoney_RejectsMalformedJSON(t *testing.T) {
	var m money
	assert.Error(t, m.UnmarshalJSON([]byte(`{`)))
}
