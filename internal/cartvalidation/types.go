package cartvalidation

import "github.com/angelmondragon/cartlimits-backend/internal/limits"

// Input is the payload the checkout validation host sends for one cart.
type Input struct {
	Cart          Cart           `json:"cart"`
	BuyerIdentity *BuyerIdentity `json:"buyerIdentity,omitempty"`
}

type Cart struct {
	Cost          Cost           `json:"cost"`
	BuyerIdentity *BuyerIdentity `json:"buyerIdentity,omitempty"`
}

type Cost struct {
	SubtotalAmount Money `json:"subtotalAmount"`
}

type Money struct {
	Amount string `json:"amount"`
}

type BuyerIdentity struct {
	Customer *Customer `json:"customer,omitempty"`
}

// Customer carries the limit metafields under either naming the host query may use.
type Customer struct {
	CartLimitMetafield           *MetafieldValue `json:"cartLimitMetafield,omitempty"`
	AnnualLimitMetafield         *MetafieldValue `json:"annualLimitMetafield,omitempty"`
	CartLimitsMaxAmount          *MetafieldValue `json:"cartLimitsMaxAmount,omitempty"`
	AnnualPurchaseLimitMaxAmount *MetafieldValue `json:"annualPurchaseLimitMaxAmount,omitempty"`
}

type MetafieldValue struct {
	Value string `json:"value"`
}

// Output is always a single validationAdd operation, possibly with no errors.
type Output struct {
	Operations []Operation `json:"operations"`
}

type Operation struct {
	ValidationAdd ValidationAdd `json:"validationAdd"`
}

type ValidationAdd struct {
	Errors []limits.ValidationError `json:"errors"`
}

func (in Input) customer() *Customer {
	if in.Cart.BuyerIdentity != nil && in.Cart.BuyerIdentity.Customer != nil {
		return in.Cart.BuyerIdentity.Customer
	}
	if in.BuyerIdentity != nil {
		return in.BuyerIdentity.Customer
	}
	return nil
}

func (c *Customer) buyer() *limits.Buyer {
	if c == nil {
		return nil
	}
	return &limits.Buyer{
		CartLimit:   firstValue(c.CartLimitMetafield, c.CartLimitsMaxAmount),
		AnnualLimit: firstValue(c.AnnualLimitMetafield, c.AnnualPurchaseLimitMaxAmount),
	}
}

func firstValue(values ...*MetafieldValue) string {
	for _, v := range values {
		if v != nil && v.Value != "" {
			return v.Value
		}
	}
	return ""
}
