/*
Package generic provides the domain-agnostic primitives of the revenue engine.

PURPOSE:
  Calendar arithmetic, money handling and the error taxonomy shared by the
  forecast engine, the stores and the HTTP layer. Nothing here knows what a
  payment metric or a project is.

KEY CONCEPTS:
  - Date:         A calendar day (time.go)
  - MonthYear:    A calendar month, "YYYY-MM" (period.go)
  - ReportPeriod: The month or year a forecast is computed for (period.go)
  - Money:        decimal.Decimal rounded to the currency minor unit (this file)

DESIGN PRINCIPLES:
  1. Precision: money and percentages are decimal.Decimal, never float64
  2. Purity: every function in this package is side-effect free
  3. Totality: malformed numeric input becomes an invalid NullDecimal,
     not an error, so one bad record cannot abort a batch

SEE ALSO:
  - period.go: Window intersection and month-span rules
  - errors.go: Sentinel and structured errors
  - forecast/: The engine built on these primitives
*/
package generic

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY
// =============================================================================

// MinorUnits is the number of decimal places of the reporting currency.
const MinorUnits int32 = 2

// RoundMoney rounds to the currency minor unit, half away from zero.
// All amounts in the engine are non-negative, so this is round-half-up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

// ParseAmount parses a stored numeric field. Blank or non-numeric input yields
// an invalid NullDecimal instead of an error.
func ParseAmount(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// Valid wraps a known-good decimal.
func Valid(d decimal.Decimal) decimal.NullDecimal { return decimal.NewNullDecimal(d) }

// OrZero treats a missing value as zero. Callers that need to know the value
// was missing check Valid first.
func OrZero(n decimal.NullDecimal) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

// FormatNull renders a NullDecimal for storage; invalid values become "".
func FormatNull(n decimal.NullDecimal) string {
	if !n.Valid {
		return ""
	}
	return n.Decimal.String()
}
