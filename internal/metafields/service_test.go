package metafields

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cartlimits-backend/internal/limits"
	pkgerrors "github.com/angelmondragon/cartlimits-backend/pkg/errors"
	"github.com/angelmondragon/cartlimits-backend/pkg/logger"
	"github.com/angelmondragon/cartlimits-backend/pkg/shopify"
)

type fakeStore struct {
	customer    *shopify.Customer
	customerErr error
	setCalls    [][]shopify.MetafieldsSetInput
	setErr      error
	defs        []shopify.MetafieldDefinition
	created     []shopify.MetafieldDefinitionInput
}

func (f *fakeStore) Customer(ctx context.Context, id string, keys []string) (*shopify.Customer, error) {
	if f.customerErr != nil {
		return nil, f.customerErr
	}
	return f.customer, nil
}

func (f *fakeStore) SetMetafields(ctx context.Context, inputs []shopify.MetafieldsSetInput) (int, error) {
	f.setCalls = append(f.setCalls, inputs)
	if f.setErr != nil {
		return 0, f.setErr
	}
	return len(inputs), nil
}

func (f *fakeStore) MetafieldDefinitions(ctx context.Context, ownerType string) ([]shopify.MetafieldDefinition, error) {
	return f.defs, nil
}

func (f *fakeStore) CreateMetafieldDefinition(ctx context.Context, input shopify.MetafieldDefinitionInput) error {
	f.created = append(f.created, input)
	f.defs = append(f.defs, shopify.MetafieldDefinition{Namespace: input.Namespace, Key: input.Key})
	return nil
}

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	svc, err := NewService(store, logger.Nop())
	require.NoError(t, err)
	return svc
}

func int64Ptr(v int64) *int64 { return &v }

func TestReadLimitsParsesStoredValues(t *testing.T) {
	store := &fakeStore{customer: &shopify.Customer{
		ID: "gid://shopify/Customer/1",
		Metafields: map[string]string{
			"cart_limits.max_amount":             "400",
			"annual_purchase_limit.max_amount":   "oops",
			"annual_purchase_limit.annual_spent": "150.50",
		},
	}}
	got, err := newTestService(t, store).ReadLimits(context.Background(), "gid://shopify/Customer/1")
	require.NoError(t, err)
	require.NotNil(t, got.CartLimit)
	assert.True(t, got.CartLimit.Equal(decimal.NewFromInt(400)))
	assert.Nil(t, got.AnnualLimit)
	assert.True(t, got.AnnualSpent.Equal(decimal.RequireFromString("150.50")))
}

func TestReadLimitsDefaultsSpentToZero(t *testing.T) {
	store := &fakeStore{customer: &shopify.Customer{ID: "gid://shopify/Customer/1"}}
	got, err := newTestService(t, store).ReadLimits(context.Background(), "gid://shopify/Customer/1")
	require.NoError(t, err)
	assert.True(t, got.AnnualSpent.IsZero())
	assert.Nil(t, got.CartLimit)
}

func TestReadLimitsRejectsCorruptSpend(t *testing.T) {
	store := &fakeStore{customer: &shopify.Customer{
		ID:         "gid://shopify/Customer/1",
		Metafields: map[string]string{"annual_purchase_limit.annual_spent": "lots"},
	}}
	_, err := newTestService(t, store).ReadLimits(context.Background(), "gid://shopify/Customer/1")
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.CodeOf(err))
	assert.False(t, pkgerrors.IsRetryable(err))
}

func TestWriteLimitsOnlyWritesPresentFields(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)

	err := svc.WriteLimits(context.Background(), "gid://shopify/Customer/1", LimitUpdate{AnnualLimit: int64Ptr(5000)})
	require.NoError(t, err)
	require.Len(t, store.setCalls, 1)
	require.Len(t, store.setCalls[0], 1)
	assert.Equal(t, shopify.MetafieldsSetInput{
		OwnerID:   "gid://shopify/Customer/1",
		Namespace: "annual_purchase_limit",
		Key:       "max_amount",
		Type:      "number_integer",
		Value:     "5000",
	}, store.setCalls[0][0])

	err = svc.WriteLimits(context.Background(), "gid://shopify/Customer/1", LimitUpdate{CartLimit: int64Ptr(0), AnnualLimit: int64Ptr(10)})
	require.NoError(t, err)
	require.Len(t, store.setCalls[1], 2)
	assert.Equal(t, "cart_limits", store.setCalls[1][0].Namespace)
	assert.Equal(t, "0", store.setCalls[1][0].Value)
}

func TestWriteLimitsRequiresAField(t *testing.T) {
	store := &fakeStore{}
	err := newTestService(t, store).WriteLimits(context.Background(), "gid://shopify/Customer/1", LimitUpdate{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
	assert.Empty(t, store.setCalls)
}

func TestWriteLimitsSurfacesStoreRejection(t *testing.T) {
	store := &fakeStore{setErr: pkgerrors.New(pkgerrors.CodeStoreRejected, "Value is invalid")}
	err := newTestService(t, store).WriteLimits(context.Background(), "gid://shopify/Customer/1", LimitUpdate{CartLimit: int64Ptr(1)})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, "Value is invalid", typed.Message())
}

func TestWriteSpendFormatsDecimal(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)
	require.NoError(t, svc.WriteSpend(context.Background(), "gid://shopify/Customer/1", decimal.NewFromInt(225)))
	require.Len(t, store.setCalls, 1)
	assert.Equal(t, "225", store.setCalls[0][0].Value)
	assert.Equal(t, "number_decimal", store.setCalls[0][0].Type)
	assert.Equal(t, "annual_spent", store.setCalls[0][0].Key)

	err := svc.WriteSpend(context.Background(), "gid://shopify/Customer/1", decimal.NewFromInt(-1))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestWriteSpendKeepsSubCentPrecision(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)
	spent := decimal.RequireFromString("12.345")
	require.NoError(t, svc.WriteSpend(context.Background(), "gid://shopify/Customer/1", spent))
	require.Len(t, store.setCalls, 1)
	assert.Equal(t, "12.345", store.setCalls[0][0].Value)

	stored, err := decimal.NewFromString(store.setCalls[0][0].Value)
	require.NoError(t, err)
	assert.True(t, stored.Equal(spent))
}

func TestWriteLimitBatch(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)
	n, err := svc.WriteLimitBatch(context.Background(), []string{"a", "b", "c"}, limits.KindAnnual, 300)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, input := range store.setCalls[0] {
		assert.Equal(t, "annual_purchase_limit", input.Namespace)
		assert.Equal(t, "300", input.Value)
	}

	_, err = svc.WriteLimitBatch(context.Background(), make([]string, 26), limits.KindCart, 1)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.WriteLimitBatch(context.Background(), []string{"a"}, limits.Kind("weekly"), 1)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestEnsureSchemaCreatesOnlyMissing(t *testing.T) {
	store := &fakeStore{defs: []shopify.MetafieldDefinition{{Namespace: "cart_limits", Key: "max_amount"}}}
	svc := newTestService(t, store)

	require.NoError(t, svc.EnsureSchema(context.Background()))
	require.Len(t, store.created, 2)
	assert.Equal(t, "annual_purchase_limit", store.created[0].Namespace)
	assert.Equal(t, "max_amount", store.created[0].Key)
	assert.Equal(t, "annual_spent", store.created[1].Key)
	assert.Equal(t, shopify.OwnerTypeCustomer, store.created[1].OwnerType)

	require.NoError(t, svc.EnsureSchema(context.Background()))
	assert.Len(t, store.created, 2)
}

func TestReadLimitsPropagatesStoreErrors(t *testing.T) {
	store := &fakeStore{customerErr: errors.New("network down")}
	_, err := newTestService(t, store).ReadLimits(context.Background(), "gid://shopify/Customer/1")
	require.Error(t, err)
}
