package amount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain integer", "1000", "1000"},
		{"dot separator", "12.5", "12.5"},
		{"comma separator", "12,75", "12.75"},
		{"grouped with spaces and suffix", "1 250,50 сўм", "1250.5"},
		{"trailing separator", "12.", "12"},
		{"garbage", "abc", "0"},
		{"empty", "", "0"},
		{"only separator", ",", "0"},
		{"second separator cuts the number", "12.5.3", "12.5"},
		{"negative stays negative", "-7", "-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestParseAny(t *testing.T) {
	assert.True(t, ParseAny(42).Equal(decimal.NewFromInt(42)))
	assert.True(t, ParseAny(int64(7)).Equal(decimal.NewFromInt(7)))
	assert.True(t, ParseAny(1.5).Equal(decimal.RequireFromString("1.5")))
	assert.True(t, ParseAny("3,25").Equal(decimal.RequireFromString("3.25")))
	assert.True(t, ParseAny(struct{}{}).IsZero())
}

func TestFilter(t *testing.T) {
	assert.Equal(t, "12.3", Filter("12.", "12.3"))
	assert.Equal(t, "12,34", Filter("12,3", "12,34"))
	assert.Equal(t, "12.34", Filter("12.34", "12.345"), "third fractional digit is rejected")
	assert.Equal(t, "12", Filter("12", "12a"))
	assert.Equal(t, "", Filter("", ""))
	assert.False(t, Valid("1.2.3"))
}

func TestMinorConversion(t *testing.T) {
	assert.Equal(t, int64(100000), ToMinor(decimal.NewFromInt(1000)))
	assert.Equal(t, int64(1235), ToMinor(decimal.RequireFromString("12.345")), "half rounds up")
	assert.Equal(t, int64(1234), ToMinor(decimal.RequireFromString("12.344")))
	assert.Equal(t, "333.34", FromMinor(33334).String())
	assert.Equal(t, "1000", FromMinor(100000).String())
}

func TestCheckedMinor(t *testing.T) {
	got, err := CheckedMinor(decimal.RequireFromString("12.345"))
	assert.NoError(t, err)
	assert.Equal(t, int64(1235), got)

	got, err = CheckedMinor(FromMinor(MaxMinor))
	assert.NoError(t, err)
	assert.Equal(t, MaxMinor, got)

	for _, in := range []string{"10000000000000.01", "200000000000000000", "-200000000000000000", "1e40"} {
		_, err := CheckedMinor(decimal.RequireFromString(in))
		assert.ErrorIs(t, err, ErrTooLarge, "input %s", in)
	}
}

func TestFormat(t *testing.T) {
	f := NewFormatter("")

	assert.Equal(t, "1 250 сўм", f.Format(125000))
	assert.Equal(t, "1 250.5 сўм", f.Format(125050))
	assert.Equal(t, "1 000 000 сўм", f.Format(100000000))
	assert.Equal(t, "0.05 сўм", f.Format(5))
	assert.Equal(t, "-12 сўм", f.Format(-1200))

	assert.Equal(t, "10 UZS", NewFormatter("UZS").Format(1000))
}
