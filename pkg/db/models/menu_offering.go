package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuOffering is a purchasable item on a published daily menu together with
// its remaining quantity. AvailableQuantity only moves through the inventory
// ledger's reserve and release statements.
type MenuOffering struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	MenuDate          time.Time       `gorm:"column:menu_date;type:date;not null;index"`
	Name              string          `gorm:"column:name;not null"`
	AvailableQuantity int             `gorm:"column:available_quantity;not null;default:0;check:available_quantity >= 0"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Purchasable       bool            `gorm:"column:purchasable;not null;default:false"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (MenuOffering) TableName() string { return "menu_offerings" }

func (m *MenuOffering) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
