package spend

import "github.com/shopspring/decimal"

// Accumulate adds an order total to the running annual spend, never going below zero.
func Accumulate(current, orderTotal decimal.Decimal) decimal.Decimal {
	sum := current.Add(orderTotal)
	if sum.IsNegative() {
		return decimal.Zero
	}
	return sum
}
