package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/pkg/enums"
)

// User is the account record owned by the identity service. This service only
// reads it for delivery contact details and role capabilities.
type User struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Email           string          `gorm:"column:email;type:text;not null;uniqueIndex"`
	FullName        string          `gorm:"column:full_name;not null"`
	Phone           *string         `gorm:"column:phone"`
	DeliveryAddress *string         `gorm:"column:delivery_address"`
	Role            enums.ActorRole `gorm:"column:role;type:text;not null;default:'customer'"`
	IsActive        bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}
