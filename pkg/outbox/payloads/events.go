package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mealflow-backend/pkg/enums"
)

// OrderLine is the line snapshot carried by order events.
type OrderLine struct {
	OfferingID uuid.UUID       `json:"offering_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
}

// OrderCreatedEvent announces a new order and the stock it reserved.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []OrderLine     `json:"lines"`
}

// PaymentInitiatedEvent is emitted when a method is bound to an order.
type PaymentInitiatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Status        enums.OrderStatus   `json:"status"`
	Attempt       int                 `json:"attempt"`
	Rereserved    bool                `json:"rereserved,omitempty"`
}

// OrderPaidEvent carries the gateway confirmation for an order.
type OrderPaidEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	TransactionRef string          `json:"transaction_ref"`
	ResponseCode   string          `json:"response_code"`
	Amount         decimal.Decimal `json:"amount"`
	DeliveryTime   time.Time       `json:"delivery_time"`
	PaidAt         time.Time       `json:"paid_at"`
}

// PaymentFailedEvent is emitted when the gateway reports a non-success code.
type PaymentFailedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	ResponseCode   string    `json:"response_code"`
	Message        string    `json:"message"`
}

// CashCollectedEvent records a delivery agent confirming cash on delivery.
type CashCollectedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	AgentID     uuid.UUID       `json:"agent_id"`
	Amount      decimal.Decimal `json:"amount"`
	CollectedAt time.Time       `json:"collected_at"`
}

// ReservationReleasedEvent reports stock returned to the menu.
type ReservationReleasedEvent struct {
	OrderID uuid.UUID   `json:"order_id"`
	Reason  string      `json:"reason"`
	Lines   []OrderLine `json:"lines"`
}

// OrderDeliveredEvent closes the order lifecycle.
type OrderDeliveredEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	AgentID     uuid.UUID `json:"agent_id"`
	DeliveredAt time.Time `json:"delivered_at"`
}

// OrderScoped is implemented by every order event so the relay can check the
// payload belongs to the row's aggregate.
type OrderScoped interface {
	OrderRef() uuid.UUID
}

func (e OrderCreatedEvent) OrderRef() uuid.UUID        { return e.OrderID }
func (e PaymentInitiatedEvent) OrderRef() uuid.UUID    { return e.OrderID }
func (e OrderPaidEvent) OrderRef() uuid.UUID           { return e.OrderID }
func (e PaymentFailedEvent) OrderRef() uuid.UUID       { return e.OrderID }
func (e CashCollectedEvent) OrderRef() uuid.UUID       { return e.OrderID }
func (e ReservationReleasedEvent) OrderRef() uuid.UUID { return e.OrderID }
func (e OrderDeliveredEvent) OrderRef() uuid.UUID      { return e.OrderID }
