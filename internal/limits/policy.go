package limits

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// CartTarget points validation errors at the cart as a whole.
const CartTarget = "$.cart"

// ValidationError is one reason checkout must be blocked.
type ValidationError struct {
	Message string `json:"message"`
	Target  string `json:"target"`
	Rule    Kind   `json:"-"`
}

// Buyer carries the raw limit values attached to a logged-in customer.
type Buyer struct {
	CartLimit   string
	AnnualLimit string
}

// Limits parses the raw values; anything unparseable is dropped.
func (b Buyer) Limits() Limits {
	return Limits{
		Cart:   ParseLimit(b.CartLimit),
		Annual: ParseLimit(b.AnnualLimit),
	}
}

var printer = message.NewPrinter(language.AmericanEnglish)

// Evaluate decides whether a cart may proceed. A nil buyer is a guest and is never limited.
// An unparseable cart total yields no errors.
func Evaluate(cartTotal string, buyer *Buyer) []ValidationError {
	errs := []ValidationError{}
	if buyer == nil {
		return errs
	}
	total, ok := ParseAmount(cartTotal)
	if !ok {
		return errs
	}
	return Check(total, buyer.Limits())
}

// Check applies both caps independently. The annual cap is compared against the cart
// total itself, not against what remains of the allowance.
func Check(total decimal.Decimal, limits Limits) []ValidationError {
	errs := []ValidationError{}
	if limits.Cart != nil && total.GreaterThan(*limits.Cart) {
		errs = append(errs, ValidationError{
			Message: fmt.Sprintf("Cart total ($%s) exceeds the maximum cart limit ($%s) for your account.",
				FormatAmount(total), FormatAmount(*limits.Cart)),
			Target: CartTarget,
			Rule:   KindCart,
		})
	}
	if limits.Annual != nil && total.GreaterThan(*limits.Annual) {
		errs = append(errs, ValidationError{
			Message: fmt.Sprintf("Cart total ($%s) exceeds your Annual Purchase Limit ($%s).",
				FormatAmount(total), FormatAmount(*limits.Annual)),
			Target: CartTarget,
			Rule:   KindAnnual,
		})
	}
	return errs
}

// FormatAmount renders an amount with en-US grouping and at most three fraction digits.
func FormatAmount(d decimal.Decimal) string {
	return printer.Sprint(number.Decimal(d.InexactFloat64(), number.MaxFractionDigits(3)))
}
