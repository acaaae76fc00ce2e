package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderSpendEntry records one order that was added to a customer's annual spend.
type OrderSpendEntry struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       string          `gorm:"column:order_id;not null;uniqueIndex:order_spend_ledger_order_id_key"`
	CustomerID    string          `gorm:"column:customer_id;not null;index"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency      string          `gorm:"column:currency;not null"`
	PreviousSpent decimal.Decimal `gorm:"column:previous_spent;type:numeric(14,2);not null"`
	NewSpent      decimal.Decimal `gorm:"column:new_spent;type:numeric(14,2);not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderSpendEntry) TableName() string {
	return "order_spend_ledger"
}

func (e *OrderSpendEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
