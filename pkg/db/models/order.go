package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/pkg/enums"
)

// Order is the customer's purchase aggregate. TotalAmount is fixed at creation
// from the line snapshots and never recomputed from live prices.
type Order struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID            uuid.UUID            `gorm:"column:customer_id;type:uuid;not null;index"`
	TotalAmount           decimal.Decimal      `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentMethod         *enums.PaymentMethod `gorm:"column:payment_method;type:text"`
	Status                enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	GatewayTransactionRef *string              `gorm:"column:gateway_transaction_ref"`
	PaymentResponseCode   *string              `gorm:"column:payment_response_code"`
	PaymentAttempts       int                  `gorm:"column:payment_attempts;not null;default:0"`
	PaymentConfirmedAt    *time.Time           `gorm:"column:payment_confirmed_at"`
	PaymentConfirmedBy    *uuid.UUID           `gorm:"column:payment_confirmed_by;type:uuid"`
	DeliveredAt           *time.Time           `gorm:"column:delivered_at"`
	Lines                 []OrderLine          `gorm:"foreignKey:OrderID"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// HasPaymentMethod reports whether the order settled on method.
func (o *Order) HasPaymentMethod(method enums.PaymentMethod) bool {
	return o != nil && o.PaymentMethod != nil && *o.PaymentMethod == method
}
