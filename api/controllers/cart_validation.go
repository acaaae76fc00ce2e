package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/cartlimits-backend/api/responses"
	"github.com/angelmondragon/cartlimits-backend/internal/cartvalidation"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
)

const maxValidationBody = 1 << 20

type CartValidator interface {
	RunJSON(ctx context.Context, raw []byte) cartvalidation.Output
}

// CartValidation answers the checkout validation host. It always responds 200 with an
// operations payload; faults degrade to an empty error list.
func CartValidation(svc CartValidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxValidationBody))
		if err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "read validation body")
		}
		responses.WriteJSON(w, http.StatusOK, svc.RunJSON(r.Context(), raw))
	}
}

// CartValidationThrottled answers over-budget validation calls with an empty error list,
// so a throttled checkout proceeds rather than failing.
func CartValidationThrottled() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteJSON(w, http.StatusOK, cartvalidation.Pass())
	}
}
