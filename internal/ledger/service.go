package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartlimits-backend/pkg/db"
	"github.com/angelmondragon/cartlimits-backend/pkg/db/models"
)

// ErrAlreadyRecorded is returned when an order was already added to a customer's spend.
var ErrAlreadyRecorded = errors.New("order already recorded")

// Service defines operations on the order spend ledger.
type Service interface {
	Record(ctx context.Context, input RecordSpendInput) (*models.OrderSpendEntry, error)
	HasOrder(ctx context.Context, orderID string) (bool, error)
	History(ctx context.Context, customerID string, limit int) ([]models.OrderSpendEntry, error)
	Remove(ctx context.Context, orderID string) error
}

type service struct {
	repo Repository
}

// RecordSpendInput captures one accumulated order.
type RecordSpendInput struct {
	OrderID       string          `json:"order_id"`
	CustomerID    string          `json:"customer_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PreviousSpent decimal.Decimal `json:"previous_spent"`
	NewSpent      decimal.Decimal `json:"new_spent"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordSpendInput) (*models.OrderSpendEntry, error) {
	if strings.TrimSpace(input.OrderID) == "" {
		return nil, fmt.Errorf("order id is required")
	}
	if strings.TrimSpace(input.CustomerID) == "" {
		return nil, fmt.Errorf("customer id is required")
	}
	if input.NewSpent.IsNegative() || input.PreviousSpent.IsNegative() {
		return nil, fmt.Errorf("spent totals cannot be negative")
	}

	entry := &models.OrderSpendEntry{
		OrderID:       input.OrderID,
		CustomerID:    input.CustomerID,
		Amount:        input.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(input.Currency)),
		PreviousSpent: input.PreviousSpent,
		NewSpent:      input.NewSpent,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, ErrAlreadyRecorded
		}
		return nil, err
	}
	return entry, nil
}

func (s *service) HasOrder(ctx context.Context, orderID string) (bool, error) {
	if strings.TrimSpace(orderID) == "" {
		return false, fmt.Errorf("order id is required")
	}
	entry, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

func (s *service) History(ctx context.Context, customerID string, limit int) ([]models.OrderSpendEntry, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("customer id is required")
	}
	return s.repo.ListByCustomerID(ctx, customerID, limit)
}

// Remove drops the entry of an order whose spend write did not go through, so a redelivery can retry it.
func (s *service) Remove(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return fmt.Errorf("order id is required")
	}
	return s.repo.DeleteByOrderID(ctx, orderID)
}
