package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/cartlimits-backend/internal/bulk"
	"github.com/angelmondragon/cartlimits-backend/internal/limits"
	"github.com/angelmondragon/cartlimits-backend/internal/metafields"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

const (
	notSet        = "Not set"
	notAvailable  = "N/A"
	unknownError  = "Unknown error occurred"
	defaultPage   = 50
	maxPage       = 250
	msgCartLimit  = "Cart limit must be a valid positive number"
	msgAnnual     = "Annual limit must be a valid positive number"
	msgBulkAmount = "Please enter a valid positive number"
)

// Directory lists customers together with the requested metafields.
type Directory interface {
	ListCustomers(ctx context.Context, first int, after string, keys []string) (*shopify.CustomerPage, error)
	Customer(ctx context.Context, id string, keys []string) (*shopify.Customer, error)
}

// LimitStore is the metafield side of the admin panel.
type LimitStore interface {
	EnsureSchema(ctx context.Context) error
	WriteLimits(ctx context.Context, customerID string, update metafields.LimitUpdate) error
}

// BulkApplier applies one limit to every customer.
type BulkApplier interface {
	ApplyToAll(ctx context.Context, req bulk.Request) bulk.Result
}

// Row is one customer as shown in the admin table.
type Row struct {
	ID                 string  `json:"id"`
	FirstName          string  `json:"firstName"`
	LastName           string  `json:"lastName"`
	Email              string  `json:"email"`
	DisplayName        string  `json:"displayName"`
	DisplayEmail       string  `json:"displayEmail"`
	CartLimit          *string `json:"cartLimit"`
	AnnualLimit        *string `json:"annualLimit"`
	AnnualSpent        *string `json:"annualSpent"`
	CartLimitDisplay   string  `json:"cartLimitDisplay"`
	AnnualLimitDisplay string  `json:"annualLimitDisplay"`
	AnnualSpentDisplay string  `json:"annualSpentDisplay"`
}

// Page is one page of the admin table.
type Page struct {
	Customers   []Row  `json:"customers"`
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor,omitempty"`
}

// LimitEdit is a single-customer edit as entered by staff. Empty strings mean "leave unchanged".
type LimitEdit struct {
	CustomerID  string
	CartLimit   string
	AnnualLimit string
}

// BulkEdit applies MaxAmount to the Kind limit of every customer.
type BulkEdit struct {
	Kind      string
	MaxAmount string
}

// ActionResult is the toast-facing outcome of an admin write.
type ActionResult struct {
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	Message      string `json:"message,omitempty"`
	TotalUpdated *int   `json:"totalUpdated,omitempty"`
	Customer     *Row   `json:"customer,omitempty"`
}

// Service backs the admin customer table and its edit actions.
type Service struct {
	directory Directory
	limits    LimitStore
	bulk      BulkApplier
	pageSize  int
	logger    *logger.Logger
}

// NewService wires the admin customer service. pageSize falls back to 50.
func NewService(directory Directory, store LimitStore, applier BulkApplier, pageSize int, logg *logger.Logger) (*Service, error) {
	if directory == nil {
		return nil, fmt.Errorf("customer directory required")
	}
	if store == nil {
		return nil, fmt.Errorf("limit store required")
	}
	if applier == nil {
		return nil, fmt.Errorf("bulk applier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pageSize <= 0 || pageSize > maxPage {
		pageSize = defaultPage
	}
	return &Service{directory: directory, limits: store, bulk: applier, pageSize: pageSize, logger: logg}, nil
}

// List returns one page of customers starting after cursor. Missing metafield
// definitions are created first.
func (s *Service) List(ctx context.Context, cursor string) (*Page, error) {
	if err := s.limits.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	page, err := s.directory.ListCustomers(ctx, s.pageSize, cursor, metafields.Refs())
	if err != nil {
		return nil, err
	}
	out := &Page{
		Customers:   make([]Row, 0, len(page.Customers)),
		HasNextPage: page.PageInfo.HasNextPage,
		EndCursor:   page.PageInfo.EndCursor,
	}
	for _, c := range page.Customers {
		out.Customers = append(out.Customers, rowFrom(c))
	}
	return out, nil
}

// UpdateLimits validates and writes a single-customer edit, then returns the refreshed row.
func (s *Service) UpdateLimits(ctx context.Context, edit LimitEdit) ActionResult {
	update, msg := parseEdit(edit)
	if msg != "" {
		return ActionResult{Error: msg}
	}
	ctx = s.logger.WithCustomerID(ctx, edit.CustomerID)
	if err := s.limits.WriteLimits(ctx, edit.CustomerID, update); err != nil {
		s.logger.Error(ctx, "update customer limits failed", err)
		return ActionResult{Error: errorMessage(err)}
	}

	result := ActionResult{Success: true, Message: "Customer limits updated"}
	customer, err := s.directory.Customer(ctx, edit.CustomerID, metafields.Refs())
	if err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "refresh customer after update failed")
		return result
	}
	row := rowFrom(*customer)
	result.Customer = &row
	return result
}

// BulkUpdate applies one limit value to every customer in the shop.
func (s *Service) BulkUpdate(ctx context.Context, edit BulkEdit) ActionResult {
	kind, ok := limits.ParseKind(edit.Kind)
	if !ok {
		return ActionResult{Error: "Bulk update type must be cart or annual"}
	}
	value, ok := limits.ParseLimitInput(edit.MaxAmount)
	if !ok {
		return ActionResult{Error: msgBulkAmount}
	}
	res := s.bulk.ApplyToAll(ctx, bulk.Request{Kind: kind, Value: value})
	total := res.TotalUpdated
	return ActionResult{
		Success:      res.Success,
		Error:        res.Error,
		Message:      res.Message,
		TotalUpdated: &total,
	}
}

func parseEdit(edit LimitEdit) (metafields.LimitUpdate, string) {
	var update metafields.LimitUpdate
	if strings.TrimSpace(edit.CustomerID) == "" {
		return update, "Customer ID is required"
	}
	cart := strings.TrimSpace(edit.CartLimit)
	annual := strings.TrimSpace(edit.AnnualLimit)
	if cart == "" && annual == "" {
		return update, "At least one limit must be provided"
	}
	if cart != "" {
		v, ok := limits.ParseLimitInput(cart)
		if !ok {
			return update, msgCartLimit
		}
		update.CartLimit = &v
	}
	if annual != "" {
		v, ok := limits.ParseLimitInput(annual)
		if !ok {
			return update, msgAnnual
		}
		update.AnnualLimit = &v
	}
	return update, ""
}

func rowFrom(c shopify.Customer) Row {
	row := Row{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
	}
	row.DisplayName = orDefault(strings.TrimSpace(c.FirstName+" "+c.LastName), notAvailable)
	row.DisplayEmail = orDefault(c.Email, notAvailable)
	row.CartLimit, row.CartLimitDisplay = metafieldValue(c, metafields.CartLimitField)
	row.AnnualLimit, row.AnnualLimitDisplay = metafieldValue(c, metafields.AnnualLimitField)
	row.AnnualSpent, row.AnnualSpentDisplay = metafieldValue(c, metafields.AnnualSpentField)
	return row
}

func metafieldValue(c shopify.Customer, field metafields.Field) (*string, string) {
	raw, ok := c.Metafield(field.Namespace, field.Key)
	if !ok || raw == "" {
		return nil, notSet
	}
	return &raw, raw
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func errorMessage(err error) string {
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		return typed.Message()
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return unknownError
}
