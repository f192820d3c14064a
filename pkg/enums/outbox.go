package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder         OutboxAggregateType = "order"
	AggregateMenuOffering  OutboxAggregateType = "menu_offering"
	AggregateDeliverySched OutboxAggregateType = "delivery_schedule"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateMenuOffering,
	AggregateDeliverySched,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event relayed through the outbox.
type OutboxEventType string

const (
	EventOrderCreated        OutboxEventType = "order_created"
	EventPaymentInitiated    OutboxEventType = "payment_initiated"
	EventOrderPaid           OutboxEventType = "order_paid"
	EventPaymentFailed       OutboxEventType = "payment_failed"
	EventCashCollected       OutboxEventType = "cash_collected"
	EventReservationReleased OutboxEventType = "reservation_released"
	EventOrderDelivered      OutboxEventType = "order_delivered"
)

var validEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventPaymentInitiated,
	EventOrderPaid,
	EventPaymentFailed,
	EventCashCollected,
	EventReservationReleased,
	EventOrderDelivered,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
