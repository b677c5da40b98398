package types

import "github.com/shopspring/decimal"

// DisplayAmount renders integer cents as a fixed two-decimal major-unit
// string for human-facing surfaces. All arithmetic stays in cents; this is
// presentation only.
func DisplayAmount(cents int) string {
	return decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).StringFixed(2)
}
