package orders

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/internal/inventory"
	"github.com/angelmondragon/mealflow-backend/internal/users"
	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	"github.com/angelmondragon/mealflow-backend/pkg/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/outbox"
	"github.com/angelmondragon/mealflow-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines. It
// holds no business rules.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateLines(ctx context.Context, lines []models.OrderLine) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CustomerProfiles resolves where a customer's meals are delivered.
type CustomerProfiles interface {
	GetDeliveryAddress(ctx context.Context, customerID uuid.UUID) (users.DeliveryContact, error)
}

// ActorCapabilities answers role questions about the calling actor.
type ActorCapabilities interface {
	HasDeliveryAgentCapability(ctx context.Context, actorID uuid.UUID) (bool, error)
}

// DeliveryScheduler books the single delivery for an order.
type DeliveryScheduler interface {
	Create(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, at time.Time, address, contact string) (*models.DeliverySchedule, error)
}

// InventoryLedger reserves and releases offering quantity inside the caller's
// transaction.
type InventoryLedger interface {
	ReserveAll(ctx context.Context, tx *gorm.DB, lines []inventory.Line) ([]inventory.Reservation, error)
	ReleaseAll(ctx context.Context, tx *gorm.DB, lines []inventory.Line) error
}

// PaymentGateway is the protocol adapter for the online gateway.
type PaymentGateway interface {
	BuildRedirectURL(req gateway.RedirectRequest) (string, error)
	VerifyCallback(params url.Values) (*gateway.CallbackResult, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Metrics is the subset of pkg/metrics.OrderMetrics the engine records to.
type Metrics interface {
	IncCreated(lines int)
	IncTransition(status string)
	IncCallback(outcome string)
	IncReservationFailure(reason string)
}
