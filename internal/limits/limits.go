package limits

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind names one of the two configurable caps.
type Kind string

const (
	KindCart   Kind = "cart"
	KindAnnual Kind = "annual"
)

// IsValid reports whether k is a known limit kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindCart, KindAnnual:
		return true
	default:
		return false
	}
}

// ParseKind accepts the kind names used by the admin form.
func ParseKind(value string) (Kind, bool) {
	k := Kind(strings.ToLower(strings.TrimSpace(value)))
	return k, k.IsValid()
}

// Limits holds the caps configured for one customer. A nil cap means no limit.
type Limits struct {
	Cart   *decimal.Decimal
	Annual *decimal.Decimal
}

// ParseLimit parses a stored limit value. Empty, non-numeric and negative values
// all mean no limit for that dimension.
func ParseLimit(raw string) *decimal.Decimal {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil || d.IsNegative() {
		return nil
	}
	return &d
}

// ParseAmount parses a monetary amount such as a cart subtotal or order total.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseLimitInput validates a limit entered by staff: a non-negative whole number.
func ParseLimitInput(raw string) (int64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil || d.IsNegative() || !d.IsInteger() {
		return 0, false
	}
	if !d.LessThanOrEqual(decimal.NewFromInt(maxLimitValue)) {
		return 0, false
	}
	return d.IntPart(), true
}

// Largest value a number_integer metafield accepts (2^53-1).
const maxLimitValue = int64(9007199254740991)
