package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeliverySchedule is the one-per-order delivery booking.
type DeliverySchedule struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	DeliveryTime time.Time `gorm:"column:delivery_time;not null"`
	Address      string    `gorm:"column:address;not null"`
	Contact      string    `gorm:"column:contact;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (DeliverySchedule) TableName() string { return "delivery_schedules" }

func (d *DeliverySchedule) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
