package metafields

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartlimits-backend/internal/limits"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

// Store is the slice of the merchant-data store the sync service needs.
type Store interface {
	Customer(ctx context.Context, id string, keys []string) (*shopify.Customer, error)
	SetMetafields(ctx context.Context, inputs []shopify.MetafieldsSetInput) (int, error)
	MetafieldDefinitions(ctx context.Context, ownerType string) ([]shopify.MetafieldDefinition, error)
	CreateMetafieldDefinition(ctx context.Context, input shopify.MetafieldDefinitionInput) error
}

// CustomerLimits is the stored limit state of one customer. Nil caps mean no limit.
type CustomerLimits struct {
	CustomerID  string
	CartLimit   *decimal.Decimal
	AnnualLimit *decimal.Decimal
	AnnualSpent decimal.Decimal
}

// Limits returns the caps in the shape the limit policy evaluates.
func (c CustomerLimits) Limits() limits.Limits {
	return limits.Limits{Cart: c.CartLimit, Annual: c.AnnualLimit}
}

// LimitUpdate is a partial write; nil fields are left untouched.
type LimitUpdate struct {
	CartLimit   *int64
	AnnualLimit *int64
}

// IsEmpty reports whether the update writes nothing.
func (u LimitUpdate) IsEmpty() bool {
	return u.CartLimit == nil && u.AnnualLimit == nil
}

// Service reads and writes the customer limit metafields.
type Service struct {
	store  Store
	logger *logger.Logger
}

// NewService wires the sync service.
func NewService(store Store, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("metafield store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{store: store, logger: logg}, nil
}

// ReadLimits fetches the three limit fields of a customer in one call.
func (s *Service) ReadLimits(ctx context.Context, customerID string) (*CustomerLimits, error) {
	customer, err := s.store.Customer(ctx, customerID, Refs())
	if err != nil {
		return nil, err
	}
	return customerLimitsFrom(*customer)
}

func customerLimitsFrom(customer shopify.Customer) (*CustomerLimits, error) {
	out := &CustomerLimits{CustomerID: customer.ID, AnnualSpent: decimal.Zero}
	if raw, ok := customer.Metafield(CartLimitField.Namespace, CartLimitField.Key); ok {
		out.CartLimit = limits.ParseLimit(raw)
	}
	if raw, ok := customer.Metafield(AnnualLimitField.Namespace, AnnualLimitField.Key); ok {
		out.AnnualLimit = limits.ParseLimit(raw)
	}
	if raw, ok := customer.Metafield(AnnualSpentField.Namespace, AnnualSpentField.Key); ok && strings.TrimSpace(raw) != "" {
		spent, parsed := limits.ParseAmount(raw)
		if !parsed {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("stored annual spent %q is not a number", raw))
		}
		out.AnnualSpent = spent
	}
	return out, nil
}

// WriteLimits writes only the limits present in update.
func (s *Service) WriteLimits(ctx context.Context, customerID string, update LimitUpdate) error {
	if strings.TrimSpace(customerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if update.IsEmpty() {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one limit is required")
	}

	inputs := make([]shopify.MetafieldsSetInput, 0, 2)
	if update.CartLimit != nil {
		inputs = append(inputs, CartLimitField.input(customerID, strconv.FormatInt(*update.CartLimit, 10)))
	}
	if update.AnnualLimit != nil {
		inputs = append(inputs, AnnualLimitField.input(customerID, strconv.FormatInt(*update.AnnualLimit, 10)))
	}

	if _, err := s.store.SetMetafields(ctx, inputs); err != nil {
		return err
	}
	s.logger.Info(s.logger.WithCustomerID(ctx, customerID), "customer limits written")
	return nil
}

// WriteLimitBatch writes the same limit value for every customer in ids with a single store call.
// It returns how many entries the store confirmed.
func (s *Service) WriteLimitBatch(ctx context.Context, ids []string, kind limits.Kind, value int64) (int, error) {
	field, ok := FieldForKind(kind)
	if !ok {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown limit kind %q", kind))
	}
	if len(ids) > shopify.MaxMetafieldsPerSet {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("batch of %d exceeds %d", len(ids), shopify.MaxMetafieldsPerSet))
	}
	raw := strconv.FormatInt(value, 10)
	inputs := make([]shopify.MetafieldsSetInput, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, field.input(id, raw))
	}
	return s.store.SetMetafields(ctx, inputs)
}

// WriteSpend stores the customer's new annual spend.
func (s *Service) WriteSpend(ctx context.Context, customerID string, spent decimal.Decimal) error {
	if strings.TrimSpace(customerID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if spent.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "annual spent cannot be negative")
	}
	input := AnnualSpentField.input(customerID, spent.String())
	_, err := s.store.SetMetafields(ctx, []shopify.MetafieldsSetInput{input})
	return err
}

// EnsureSchema creates any missing customer metafield definition. Safe to call on every read.
func (s *Service) EnsureSchema(ctx context.Context) error {
	existing, err := s.store.MetafieldDefinitions(ctx, shopify.OwnerTypeCustomer)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(existing))
	for _, def := range existing {
		present[shopify.MetafieldRef(def.Namespace, def.Key)] = struct{}{}
	}
	for _, field := range Fields() {
		if _, ok := present[field.Ref()]; ok {
			continue
		}
		if err := s.store.CreateMetafieldDefinition(ctx, field.definitionInput()); err != nil {
			return err
		}
		s.logger.Info(s.logger.WithField(ctx, "metafield", field.Ref()), "metafield definition created")
	}
	return nil
}
