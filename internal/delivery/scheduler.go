package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/pkg/db"
	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
)

// ErrAlreadyScheduled is returned when an order already has a delivery booking.
var ErrAlreadyScheduled = errors.New("delivery already scheduled for order")

// Scheduler books deliveries for orders.
type Scheduler interface {
	Create(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, at time.Time, address, contact string) (*models.DeliverySchedule, error)
	FindByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.DeliverySchedule, error)
}

type scheduler struct{}

// NewScheduler returns the table-backed scheduler.
func NewScheduler() Scheduler {
	return scheduler{}
}

// Create inserts the single delivery booking for orderID. The unique index on
// order_id turns a second attempt into ErrAlreadyScheduled.
func (scheduler) Create(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, at time.Time, address, contact string) (*models.DeliverySchedule, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction required for delivery scheduling")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if strings.TrimSpace(address) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery address is required")
	}
	if at.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery time is required")
	}

	schedule := &models.DeliverySchedule{
		OrderID:      orderID,
		DeliveryTime: at.UTC(),
		Address:      strings.TrimSpace(address),
		Contact:      strings.TrimSpace(contact),
	}
	if err := tx.WithContext(ctx).Create(schedule).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, ErrAlreadyScheduled, fmt.Sprintf("order %s already has a delivery", orderID))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery schedule")
	}
	return schedule, nil
}

func (scheduler) FindByOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) (*models.DeliverySchedule, error) {
	var schedule models.DeliverySchedule
	err := tx.WithContext(ctx).Where("order_id = ?", orderID).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "delivery schedule not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivery schedule")
	}
	return &schedule, nil
}
