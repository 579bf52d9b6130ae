// Package amount converts between user-entered money strings, decimals and
// the int64 minor units ("tiins", 1/100) the rest of the system computes with.
package amount

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultSuffix is appended to every formatted amount.
const DefaultSuffix = "сўм"

// MinorPerUnit is the number of minor units in one currency unit.
const MinorPerUnit = 100

// MaxMinor is the largest amount accepted anywhere, in minor units. It keeps
// the sum of every row on a bill well inside int64.
const MaxMinor int64 = 1_000_000_000_000_000

// ErrTooLarge is returned for amounts whose magnitude exceeds MaxMinor.
var ErrTooLarge = errors.New("amount is too large")

var (
	// inputPattern accepts at most two fractional digits with either separator.
	inputPattern = regexp.MustCompile(`^\d*[.,]?\d{0,2}$`)
	junk         = regexp.MustCompile(`[^\d.\-]`)
	leading      = regexp.MustCompile(`^-?\d*\.?\d*`)

	hundred  = decimal.NewFromInt(MinorPerUnit)
	maxMinor = decimal.NewFromInt(MaxMinor)
)

// Parse turns free-form input into a decimal. Both "." and "," work as the
// decimal separator; any other character is dropped. Input that does not
// start with a number yields zero.
func Parse(input string) decimal.Decimal {
	clean := junk.ReplaceAllString(strings.ReplaceAll(input, ",", "."), "")

	num := leading.FindString(clean)
	switch num {
	case "", "-", ".", "-.":
		return decimal.Zero
	}

	d, err := decimal.NewFromString(strings.TrimSuffix(num, "."))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseAny accepts strings and the numeric types the wire or a caller may
// hand over. Unsupported values parse as zero.
func ParseAny(v any) decimal.Decimal {
	switch t := v.(type) {
	case string:
		return Parse(t)
	case decimal.Decimal:
		return t
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case float64:
		return decimal.NewFromFloat(t)
	case fmt.Stringer:
		return Parse(t.String())
	default:
		return decimal.Zero
	}
}

// Valid reports whether s is an acceptable partially-typed amount.
func Valid(s string) bool {
	return inputPattern.MatchString(s)
}

// Filter is the keystroke filter for amount inputs: it returns next when
// it is still a valid amount and prev otherwise.
func Filter(prev, next string) string {
	if Valid(next) {
		return next
	}
	return prev
}

// ToMinor converts to minor units, rounding half away from zero. Callers
// handling untrusted input use CheckedMinor instead.
func ToMinor(d decimal.Decimal) int64 {
	return d.Mul(hundred).Round(0).IntPart()
}

// CheckedMinor converts like ToMinor but rejects magnitudes above MaxMinor
// rather than letting them wrap.
func CheckedMinor(d decimal.Decimal) (int64, error) {
	m := d.Mul(hundred).Round(0)
	if m.Abs().GreaterThan(maxMinor) {
		return 0, ErrTooLarge
	}
	return m.IntPart(), nil
}

// FromMinor converts minor units back to a decimal amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Formatter renders minor units for display.
type Formatter struct {
	printer *message.Printer
	suffix  string
}

// NewFormatter creates a formatter with the given currency suffix.
// An empty suffix falls back to DefaultSuffix.
func NewFormatter(suffix string) *Formatter {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Formatter{
		printer: message.NewPrinter(language.English),
		suffix:  suffix,
	}
}

// Format groups thousands with a space, prints up to two fractional digits
// and appends the currency suffix, e.g. 125050 -> "1 250.5 сўм".
func (f *Formatter) Format(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}

	whole := strings.ReplaceAll(f.printer.Sprintf("%d", minor/MinorPerUnit), ",", " ")
	if cents := minor % MinorPerUnit; cents != 0 {
		whole += "." + strings.TrimRight(fmt.Sprintf("%02d", cents), "0")
	}

	return sign + whole + " " + f.suffix
}
