package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/cartlimits-backend/api/responses"
	"github.com/angelmondragon/cartlimits-backend/api/validators"
	"github.com/angelmondragon/cartlimits-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

const spendHistoryLimit = 50

type SpendHistory interface {
	History(ctx context.Context, customerID string, limit int) ([]models.OrderSpendEntry, error)
}

type spendEntryDTO struct {
	OrderID       string          `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PreviousSpent decimal.Decimal `json:"previousSpent"`
	NewSpent      decimal.Decimal `json:"newSpent"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// AdminSpendHistory lists the most recent orders accumulated into a customer's annual spend.
func AdminSpendHistory(svc SpendHistory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "spend ledger unavailable"))
			return
		}
		customerID := validators.QueryString(r.URL.Query(), "customerId", 128)
		if !shopify.IsCustomerGID(customerID) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customerId must be a customer gid"))
			return
		}

		entries, err := svc.History(r.Context(), customerID, spendHistoryLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load spend history"))
			return
		}
		out := make([]spendEntryDTO, 0, len(entries))
		for _, e := range entries {
			out = append(out, spendEntryDTO{
				OrderID:       e.OrderID,
				Amount:        e.Amount,
				Currency:      e.Currency,
				PreviousSpent: e.PreviousSpent,
				NewSpent:      e.NewSpent,
				CreatedAt:     e.CreatedAt,
			})
		}
		responses.WriteSuccess(w, map[string]any{"customerId": customerID, "entries": out})
	}
}
