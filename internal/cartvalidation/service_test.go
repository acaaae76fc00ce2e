package cartvalidation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/metrics"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(nil, logger.Nop())
	require.NoError(t, err)
	return svc
}

func TestRunJSONCartLimitExceeded(t *testing.T) {
	raw := []byte(`{"cart":{"cost":{"subtotalAmount":{"amount":"500.0"}},
		"buyerIdentity":{"customer":{"cartLimitsMaxAmount":{"value":"400"}}}}}`)

	out := newTestService(t).RunJSON(context.Background(), raw)

	require.Len(t, out.Operations, 1)
	errs := out.Operations[0].ValidationAdd.Errors
	require.Len(t, errs, 1)
	assert.Equal(t, "Cart total ($500) exceeds the maximum cart limit ($400) for your account.", errs[0].Message)
	assert.Equal(t, "$.cart", errs[0].Target)
}

func TestRunJSONAcceptsTopLevelBuyerIdentity(t *testing.T) {
	raw := []byte(`{"cart":{"cost":{"subtotalAmount":{"amount":"1500"}}},
		"buyerIdentity":{"customer":{"cartLimitMetafield":{"value":"2000"},"annualLimitMetafield":{"value":"1000"}}}}`)

	errs := newTestService(t).RunJSON(context.Background(), raw).Operations[0].ValidationAdd.Errors
	require.Len(t, errs, 1)
	assert.Equal(t, "Cart total ($1,500) exceeds your Annual Purchase Limit ($1,000).", errs[0].Message)
}

func TestRunJSONGuestAndGarbage(t *testing.T) {
	svc := newTestService(t)
	for _, raw := range []string{
		`{"cart":{"cost":{"subtotalAmount":{"amount":"999999"}}}}`,
		`{"cart":{"cost":{"subtotalAmount":{"amount":"abc"}},"buyerIdentity":{"customer":{"cartLimitsMaxAmount":{"value":"1"}}}}}`,
		`not json`,
	} {
		out := svc.RunJSON(context.Background(), []byte(raw))
		require.Len(t, out.Operations, 1, raw)
		assert.NotNil(t, out.Operations[0].ValidationAdd.Errors, raw)
		assert.Empty(t, out.Operations[0].ValidationAdd.Errors, raw)
	}
}

func TestOutputAlwaysSerializesErrorsArray(t *testing.T) {
	out := newTestService(t).Run(context.Background(), Input{})
	body, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"operations":[{"validationAdd":{"errors":[]}}]}`, string(body))
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc, err := NewService(metrics.NewLimitMetrics(reg), logger.Nop())
	require.NoError(t, err)

	svc.RunJSON(context.Background(), []byte(`{"cart":{"cost":{"subtotalAmount":{"amount":"10"}}}}`))
	svc.RunJSON(context.Background(), []byte(`{"cart":{"cost":{"subtotalAmount":{"amount":"10"}},
		"buyerIdentity":{"customer":{"cartLimitsMaxAmount":{"value":"5"},"annualPurchaseLimitMaxAmount":{"value":"5"}}}}}`))

	count, err := testutil.GatherAndCount(reg, "cartlimits_cart_validations_total", "cartlimits_limit_violations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
