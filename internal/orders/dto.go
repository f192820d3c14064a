package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
)

// LineInput is one requested (offering, quantity) pair.
type LineInput struct {
	OfferingID uuid.UUID
	Quantity   int
}

type CreateOrderInput struct {
	CustomerID uuid.UUID
	Lines      []LineInput
}

type InitiatePaymentInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	Method     string
}

type GatewayRedirectInput struct {
	OrderID    uuid.UUID
	CustomerID uuid.UUID
	ClientIP   string
}

// OrderLineView is the API shape of an order line.
type OrderLineView struct {
	ID           uuid.UUID       `json:"id"`
	OfferingID   uuid.UUID       `json:"offering_id"`
	OfferingName string          `json:"offering_name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// OrderView is the API shape of an order.
type OrderView struct {
	ID                    uuid.UUID            `json:"id"`
	CustomerID            uuid.UUID            `json:"customer_id"`
	Status                enums.OrderStatus    `json:"status"`
	PaymentMethod         *enums.PaymentMethod `json:"payment_method,omitempty"`
	TotalAmount           decimal.Decimal      `json:"total_amount"`
	GatewayTransactionRef *string              `json:"gateway_transaction_ref,omitempty"`
	PaymentResponseCode   *string              `json:"payment_response_code,omitempty"`
	PaymentAttempts       int                  `json:"payment_attempts"`
	PaymentConfirmedAt    *time.Time           `json:"payment_confirmed_at,omitempty"`
	PaymentConfirmedBy    *uuid.UUID           `json:"payment_confirmed_by,omitempty"`
	DeliveredAt           *time.Time           `json:"delivered_at,omitempty"`
	Lines                 []OrderLineView      `json:"lines,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// OrderList wraps one page of a customer's orders plus the next cursor.
type OrderList struct {
	Orders     []OrderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

// NewOrderView maps the persisted aggregate to its API shape.
func NewOrderView(order *models.Order) OrderView {
	if order == nil {
		return OrderView{}
	}
	view := OrderView{
		ID:                    order.ID,
		CustomerID:            order.CustomerID,
		Status:                order.Status,
		PaymentMethod:         order.PaymentMethod,
		TotalAmount:           order.TotalAmount,
		GatewayTransactionRef: order.GatewayTransactionRef,
		PaymentResponseCode:   order.PaymentResponseCode,
		PaymentAttempts:       order.PaymentAttempts,
		PaymentConfirmedAt:    order.PaymentConfirmedAt,
		PaymentConfirmedBy:    order.PaymentConfirmedBy,
		DeliveredAt:           order.DeliveredAt,
		CreatedAt:             order.CreatedAt,
		UpdatedAt:             order.UpdatedAt,
	}
	for _, line := range order.Lines {
		view.Lines = append(view.Lines, OrderLineView{
			ID:           line.ID,
			OfferingID:   line.OfferingID,
			OfferingName: line.OfferingName,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPriceAtOrderTime,
			LineTotal:    line.LineTotal,
		})
	}
	return view
}
