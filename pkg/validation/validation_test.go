package validation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string          `json:"name" validate:"required,max=5"`
	Price decimal.Decimal `json:"price" validate:"gt=0"`
	Count int             `json:"count" validate:"min=1"`
	Note  *string         `json:"note,omitempty" validate:"omitempty,min=1"`
}

func TestStruct(t *testing.T) {
	empty := ""
	valid := item{Name: "Tea", Price: decimal.RequireFromString("0.01"), Count: 1}

	tests := []struct {
		name   string
		modify func(*item)
		want   string
	}{
		{"valid", func(*item) {}, ""},
		{"missing name", func(it *item) { it.Name = "" }, "name is required"},
		{"name counts runes", func(it *item) { it.Name = "чайчай" }, "name must be at most 5 characters"},
		{"zero price", func(it *item) { it.Price = decimal.Zero }, "price must be greater than 0"},
		{"negative price", func(it *item) { it.Price = decimal.NewFromInt(-3) }, "price must be greater than 0"},
		{"zero count", func(it *item) { it.Count = 0 }, "count must be at least 1"},
		{"empty note", func(it *item) { it.Note = &empty }, "note must be at least 1 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := valid
			tt.modify(&it)

			err := Struct(&it)
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}

			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.want, fe.Error())
		})
	}
}
