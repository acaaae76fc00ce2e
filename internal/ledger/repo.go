package ledger

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/cartlimits-backend/pkg/db/models"
)

// Repository persists the order spend ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.OrderSpendEntry) error
	FindByOrderID(ctx context.Context, orderID string) (*models.OrderSpendEntry, error)
	ListByCustomerID(ctx context.Context, customerID string, limit int) ([]models.OrderSpendEntry, error)
	DeleteByOrderID(ctx context.Context, orderID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.OrderSpendEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.OrderSpendEntry, error) {
	var entry models.OrderSpendEntry
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByCustomerID(ctx context.Context, customerID string, limit int) ([]models.OrderSpendEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.OrderSpendEntry
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) DeleteByOrderID(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderSpendEntry{}).Error
}
