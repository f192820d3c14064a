package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderLine snapshots one offering at the price it was reserved for.
type OrderLine struct {
	ID                   uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID              uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	OfferingID           uuid.UUID       `gorm:"column:offering_id;type:uuid;not null"`
	OfferingName         string          `gorm:"column:offering_name;not null"`
	Quantity             int             `gorm:"column:quantity;not null;check:quantity > 0"`
	UnitPriceAtOrderTime decimal.Decimal `gorm:"column:unit_price_at_order_time;type:numeric(12,2);not null"`
	LineTotal            decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (OrderLine) TableName() string { return "order_lines" }

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
