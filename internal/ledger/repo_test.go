package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartlimits-backend/pkg/db/models"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.OrderSpendEntry{}))
	return db
}

func TestRepositoryCreateAndFind(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	entry := &models.OrderSpendEntry{
		OrderID:       "1001",
		CustomerID:    "gid://shopify/Customer/7",
		Amount:        decimal.NewFromInt(150),
		Currency:      "USD",
		PreviousSpent: decimal.Zero,
		NewSpent:      decimal.NewFromInt(150),
	}
	require.NoError(t, repo.Create(ctx, entry))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", entry.ID.String())

	found, err := repo.FindByOrderID(ctx, "1001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "gid://shopify/Customer/7", found.CustomerID)
	assert.True(t, found.NewSpent.Equal(decimal.NewFromInt(150)))

	missing, err := repo.FindByOrderID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.DeleteByOrderID(ctx, "1001"))
	gone, err := repo.FindByOrderID(ctx, "1001")
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestServiceRejectsDuplicateOrderAgainstSQLite(t *testing.T) {
	db := setupLedgerTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	input := RecordSpendInput{
		OrderID:    "2002",
		CustomerID: "gid://shopify/Customer/7",
		Amount:     decimal.NewFromInt(75),
		Currency:   "USD",
		NewSpent:   decimal.NewFromInt(75),
	}
	_, err = svc.Record(ctx, input)
	require.NoError(t, err)

	_, err = svc.Record(ctx, input)
	assert.True(t, errors.Is(err, ErrAlreadyRecorded), "got %v", err)
}

func TestRepositoryListByCustomer(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &models.OrderSpendEntry{
			OrderID:    id,
			CustomerID: "gid://shopify/Customer/9",
			Currency:   "USD",
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.OrderSpendEntry{OrderID: "z", CustomerID: "gid://shopify/Customer/10", Currency: "USD"}))

	entries, err := repo.ListByCustomerID(ctx, "gid://shopify/Customer/9", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	err = repo.WithTx(db).Create(ctx, &models.OrderSpendEntry{OrderID: "a", CustomerID: "x", Currency: "USD"})
	require.Error(t, err)
}
