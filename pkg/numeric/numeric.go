// Package numeric holds the fixed two-decimal arithmetic shared by weighting and
// grade aggregation.
package numeric

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the precision of every stored weight, score and average.
const Places int32 = 2

// Hundred is the ceiling for root activities of a subject and term.
var Hundred = decimal.New(10000, -Places)

// Max is the largest value a NUMERIC(5,2) column holds.
var Max = decimal.New(99999, -Places)

// Zero is 0.00.
var Zero = decimal.New(0, -Places)

// Round2 rounds half-up (away from zero) to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// DivRound2 returns a/b rounded half-up to two places, or zero when b is zero.
func DivRound2(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return Zero
	}
	return a.DivRound(b, Places)
}

// Sum adds the provided values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// CheckTwoPlaces accepts values in [0, Max] with at most two fractional digits.
func CheckTwoPlaces(d decimal.Decimal, field string) error {
	if d.IsNegative() {
		return fmt.Errorf("%s must not be negative", field)
	}
	if d.GreaterThan(Max) {
		return fmt.Errorf("%s must not exceed %s", field, String(Max))
	}
	if !d.Equal(d.Truncate(Places)) {
		return fmt.Errorf("%s must have at most %d decimal places", field, Places)
	}
	return nil
}

// String renders d with exactly two decimals.
func String(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
