package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cartlimits-backend/api/responses"
	"github.com/angelmondragon/cartlimits-backend/api/validators"
	"github.com/angelmondragon/cartlimits-backend/internal/customers"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
)

// CustomerAdmin is the admin panel surface over customers.Service.
type CustomerAdmin interface {
	List(ctx context.Context, cursor string) (*customers.Page, error)
	UpdateLimits(ctx context.Context, edit customers.LimitEdit) customers.ActionResult
	BulkUpdate(ctx context.Context, edit customers.BulkEdit) customers.ActionResult
}

// AdminCustomersList returns one page of customers with their limits and spend.
func AdminCustomersList(svc CustomerAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer service unavailable"))
			return
		}
		cursor := validators.QueryString(r.URL.Query(), "cursor", 512)
		page, err := svc.List(r.Context(), cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

type limitsActionRequest struct {
	CustomerID     string `json:"customerId" validate:"max=128"`
	CartLimit      string `json:"cartLimit" validate:"max=32"`
	AnnualLimit    string `json:"annualLimit" validate:"max=32"`
	BulkUpdate     string `json:"bulkUpdate" validate:"omitempty,oneof=true false"`
	BulkUpdateType string `json:"bulkUpdateType" validate:"max=16"`
	MaxAmount      string `json:"maxAmount" validate:"max=32"`
}

// AdminCustomerLimits runs a single-customer or bulk limit edit. Outcomes, including store
// failures, are reported in the body as {success, error, message}.
func AdminCustomerLimits(svc CustomerAdmin, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customer service unavailable"))
			return
		}

		var req limitsActionRequest
		if err := validators.DecodeBody(r, &req); err != nil {
			responses.WriteJSON(w, http.StatusBadRequest, customers.ActionResult{Error: validators.Describe(err)})
			return
		}

		var result customers.ActionResult
		if req.BulkUpdate == "true" {
			result = svc.BulkUpdate(r.Context(), customers.BulkEdit{
				Kind:      req.BulkUpdateType,
				MaxAmount: req.MaxAmount,
			})
		} else {
			result = svc.UpdateLimits(r.Context(), customers.LimitEdit{
				CustomerID:  req.CustomerID,
				CartLimit:   req.CartLimit,
				AnnualLimit: req.AnnualLimit,
			})
		}
		responses.WriteJSON(w, http.StatusOK, result)
	}
}
