package spend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartlimits-backend/internal/ledger"
	"github.com/angelmondragon/cartlimits-backend/internal/metafields"
	"github.com/angelmondragon/cartlimits-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/metrics"
)

// OrderEvent is one completed order as delivered by the order feed.
type OrderEvent struct {
	OrderID     string
	CustomerID  string
	TotalAmount decimal.Decimal
	Currency    string
}

// IsGuest reports whether the order was placed without a customer account.
func (e OrderEvent) IsGuest() bool {
	return strings.TrimSpace(e.CustomerID) == ""
}

// Outcome describes what RecordOrder did with an event.
type Outcome string

const (
	OutcomeApplied   Outcome = Outcome(metrics.OutcomeApplied)
	OutcomeDuplicate Outcome = Outcome(metrics.OutcomeDuplicate)
	OutcomeSkipped   Outcome = Outcome(metrics.OutcomeSkipped)
)

// Result reports the spend before and after an applied order.
type Result struct {
	Outcome       Outcome
	PreviousSpent decimal.Decimal
	NewSpent      decimal.Decimal
}

// SpendStore reads the current spend and writes the new total.
type SpendStore interface {
	ReadLimits(ctx context.Context, customerID string) (*metafields.CustomerLimits, error)
	WriteSpend(ctx context.Context, customerID string, spent decimal.Decimal) error
}

// Ledger remembers which orders were already accumulated.
type Ledger interface {
	HasOrder(ctx context.Context, orderID string) (bool, error)
	Record(ctx context.Context, input ledger.RecordSpendInput) (*models.OrderSpendEntry, error)
	Remove(ctx context.Context, orderID string) error
}

// Service applies order events to customers' annual spend.
type Service struct {
	store   SpendStore
	ledger  Ledger
	locker  Locker
	metrics *metrics.LimitMetrics
	logger  *logger.Logger
}

// NewService wires the spend accumulator.
func NewService(store SpendStore, ledg Ledger, locker Locker, m *metrics.LimitMetrics, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("spend store required")
	}
	if ledg == nil {
		return nil, fmt.Errorf("spend ledger required")
	}
	if locker == nil {
		return nil, fmt.Errorf("spend locker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{store: store, ledger: ledg, locker: locker, metrics: m, logger: logg}, nil
}

// RecordOrder adds the order total to the customer's annual spend exactly once per order id.
// Guest orders are skipped. The read-modify-write runs under the customer's lock.
func (s *Service) RecordOrder(ctx context.Context, event OrderEvent) (*Result, error) {
	ctx = s.logger.WithOrderID(ctx, event.OrderID)
	if event.IsGuest() {
		s.logger.Debug(ctx, "guest order skipped")
		s.metrics.IncSpendUpdate(string(OutcomeSkipped))
		return &Result{Outcome: OutcomeSkipped}, nil
	}
	if strings.TrimSpace(event.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	ctx = s.logger.WithCustomerID(ctx, event.CustomerID)

	result, err := s.recordOrder(ctx, event)
	if err != nil {
		s.metrics.IncSpendUpdate(metrics.OutcomeFailed)
		return nil, err
	}
	s.metrics.IncSpendUpdate(string(result.Outcome))
	return result, nil
}

func (s *Service) recordOrder(ctx context.Context, event OrderEvent) (*Result, error) {
	seen, err := s.ledger.HasOrder(ctx, event.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check spend ledger")
	}
	if seen {
		s.logger.Info(ctx, "order already accumulated")
		return &Result{Outcome: OutcomeDuplicate}, nil
	}

	release, err := s.locker.Lock(ctx, event.CustomerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire customer spend lock")
	}
	defer func() {
		if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
			s.logger.Warn(s.logger.WithField(ctx, "error", relErr.Error()), "release customer spend lock failed")
		}
	}()

	current, err := s.store.ReadLimits(ctx, event.CustomerID)
	if err != nil {
		return nil, err
	}
	next := Accumulate(current.AnnualSpent, event.TotalAmount)

	_, err = s.ledger.Record(ctx, ledger.RecordSpendInput{
		OrderID:       event.OrderID,
		CustomerID:    event.CustomerID,
		Amount:        event.TotalAmount,
		Currency:      event.Currency,
		PreviousSpent: current.AnnualSpent,
		NewSpent:      next,
	})
	if errors.Is(err, ledger.ErrAlreadyRecorded) {
		s.logger.Info(ctx, "order already accumulated")
		return &Result{Outcome: OutcomeDuplicate}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record spend ledger entry")
	}

	if err := s.store.WriteSpend(ctx, event.CustomerID, next); err != nil {
		if rmErr := s.ledger.Remove(context.WithoutCancel(ctx), event.OrderID); rmErr != nil {
			s.logger.Error(ctx, "rollback spend ledger entry failed", rmErr)
		}
		return nil, err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"previous_spent": current.AnnualSpent.String(),
		"new_spent":      next.String(),
	}), "annual spend updated")
	return &Result{Outcome: OutcomeApplied, PreviousSpent: current.AnnualSpent, NewSpent: next}, nil
}
