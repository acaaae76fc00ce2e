package metafields

import (
	"github.com/angelmondragon/cartlimits-backend/internal/limits"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

const (
	NamespaceCartLimits   = "cart_limits"
	NamespaceAnnualLimits = "annual_purchase_limit"
	KeyMaxAmount          = "max_amount"
	KeyAnnualSpent        = "annual_spent"

	TypeInteger = "number_integer"
	TypeDecimal = "number_decimal"
)

// Field describes one customer metafield this app owns.
type Field struct {
	Name        string
	Namespace   string
	Key         string
	Type        string
	Description string
}

// Ref returns the "namespace.key" form used when querying metafields.
func (f Field) Ref() string {
	return shopify.MetafieldRef(f.Namespace, f.Key)
}

func (f Field) definitionInput() shopify.MetafieldDefinitionInput {
	return shopify.MetafieldDefinitionInput{
		Name:        f.Name,
		Namespace:   f.Namespace,
		Key:         f.Key,
		Description: f.Description,
		Type:        f.Type,
		OwnerType:   shopify.OwnerTypeCustomer,
	}
}

func (f Field) input(ownerID, value string) shopify.MetafieldsSetInput {
	return shopify.MetafieldsSetInput{
		OwnerID:   ownerID,
		Namespace: f.Namespace,
		Key:       f.Key,
		Type:      f.Type,
		Value:     value,
	}
}

var (
	CartLimitField = Field{
		Name:        "Cart Max Amount",
		Namespace:   NamespaceCartLimits,
		Key:         KeyMaxAmount,
		Type:        TypeInteger,
		Description: "Maximum amount allowed in cart for this customer",
	}
	AnnualLimitField = Field{
		Name:        "Annual Purchase Limit",
		Namespace:   NamespaceAnnualLimits,
		Key:         KeyMaxAmount,
		Type:        TypeInteger,
		Description: "Maximum amount this customer may purchase per year",
	}
	AnnualSpentField = Field{
		Name:        "Annual Spent",
		Namespace:   NamespaceAnnualLimits,
		Key:         KeyAnnualSpent,
		Type:        TypeDecimal,
		Description: "Amount this customer has spent toward the annual purchase limit",
	}
)

// Fields lists every definition the app needs on the customer owner type.
func Fields() []Field {
	return []Field{CartLimitField, AnnualLimitField, AnnualSpentField}
}

// Refs lists the "namespace.key" refs of Fields.
func Refs() []string {
	fields := Fields()
	refs := make([]string, 0, len(fields))
	for _, f := range fields {
		refs = append(refs, f.Ref())
	}
	return refs
}

// FieldForKind maps a limit kind to the metafield storing it.
func FieldForKind(kind limits.Kind) (Field, bool) {
	switch kind {
	case limits.KindCart:
		return CartLimitField, true
	case limits.KindAnnual:
		return AnnualLimitField, true
	default:
		return Field{}, false
	}
}
