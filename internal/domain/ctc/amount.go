package ctc

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount coerces user input to a decimal. Anything that does not parse
// (blank, "n/a", "1,000") is zero, so a data-entry mistake degrades to a zero
// line instead of a rejected save.
func ParseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}

var (
	maxMonths = decimal.NewFromInt(math.MaxInt32)
	minMonths = decimal.NewFromInt(math.MinInt32)
)

// ParseMonths coerces a period in months. Fractions are truncated; unparsable
// input and values outside the stored integer range are zero.
func ParseMonths(raw string) int {
	months := ParseAmount(raw).Truncate(0)
	if months.GreaterThan(maxMonths) || months.LessThan(minMonths) {
		return 0
	}
	return int(months.IntPart())
}

// Amount is a decimal that decodes leniently from a JSON number, a numeric
// string, null, or anything else (zero).
type Amount struct {
	decimal.Decimal
}

func NewAmount(value decimal.Decimal) Amount {
	return Amount{Decimal: value}
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	a.Decimal = ParseAmount(string(bytes.Trim(data, `"`)))
	return nil
}

// Months is the lenient counterpart of Amount for contract periods.
type Months int

func (m *Months) UnmarshalJSON(data []byte) error {
	*m = Months(ParseMonths(string(bytes.Trim(data, `"`))))
	return nil
}
