package cartvalidation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/cartlimits-backend/internal/limits"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/metrics"
)

// Service evaluates carts handed over by the validation host.
type Service struct {
	metrics *metrics.LimitMetrics
	logger  *logger.Logger
}

func NewService(m *metrics.LimitMetrics, logg *logger.Logger) (*Service, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{metrics: m, logger: logg}, nil
}

// Run never fails: guests, missing limits and unparseable totals all produce an empty error list.
func (s *Service) Run(ctx context.Context, in Input) Output {
	buyer := in.customer().buyer()
	errs := limits.Evaluate(in.Cart.Cost.SubtotalAmount.Amount, buyer)

	rules := make([]string, 0, len(errs))
	for _, e := range errs {
		rules = append(rules, string(e.Rule))
	}
	s.metrics.ObserveValidation(rules)

	if len(errs) > 0 {
		s.logger.Info(s.logger.WithFields(ctx, map[string]any{
			"subtotal": in.Cart.Cost.SubtotalAmount.Amount,
			"rules":    rules,
		}), "cart blocked by customer limits")
	}
	return output(errs)
}

// RunJSON decodes raw and runs it. Undecodable input is treated like a guest cart.
func (s *Service) RunJSON(ctx context.Context, raw []byte) Output {
	var in Input
	if err := json.Unmarshal(raw, &in); err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "cart validation input not decodable")
		s.metrics.ObserveValidation(nil)
		return output(nil)
	}
	return s.Run(ctx, in)
}

// Pass is the response that lets the cart through with no validation errors.
func Pass() Output {
	return output(nil)
}

func output(errs []limits.ValidationError) Output {
	if errs == nil {
		errs = []limits.ValidationError{}
	}
	return Output{Operations: []Operation{{ValidationAdd: ValidationAdd{Errors: errs}}}}
}
