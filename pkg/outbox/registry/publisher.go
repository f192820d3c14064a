package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/mealflow-backend/pkg/config"
	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	"github.com/angelmondragon/mealflow-backend/pkg/outbox"
	"github.com/angelmondragon/mealflow-backend/pkg/outbox/payloads"
)

// EventDescriptor routes one event type to its topic and payload decoder.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (payloads.OrderScoped, error)
}

// ResolvedEvent is a validated outbox row ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    payloads.OrderScoped
}

// EventRegistry knows every order lifecycle event the relay may publish.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will never publish, however often it is
// retried: unknown type, corrupt envelope, payload for another order.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry routes every order event to the orders topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, errors.New("orders topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	register[payloads.OrderCreatedEvent](reg, enums.EventOrderCreated, cfg.OrdersTopic)
	register[payloads.PaymentInitiatedEvent](reg, enums.EventPaymentInitiated, cfg.OrdersTopic)
	register[payloads.OrderPaidEvent](reg, enums.EventOrderPaid, cfg.OrdersTopic)
	register[payloads.PaymentFailedEvent](reg, enums.EventPaymentFailed, cfg.OrdersTopic)
	register[payloads.CashCollectedEvent](reg, enums.EventCashCollected, cfg.OrdersTopic)
	register[payloads.ReservationReleasedEvent](reg, enums.EventReservationReleased, cfg.OrdersTopic)
	register[payloads.OrderDeliveredEvent](reg, enums.EventOrderDelivered, cfg.OrdersTopic)
	return reg, nil
}

// register binds T as the payload of eventType. *T must be OrderScoped.
func register[T any, PT interface {
	*T
	payloads.OrderScoped
}](r *EventRegistry, eventType enums.OutboxEventType, topic string) {
	r.entries[eventType] = EventDescriptor{
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		Topic:         topic,
		decode: func(data json.RawMessage) (payloads.OrderScoped, error) {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return nil, err
			}
			return PT(&v), nil
		},
	}
}

// Resolve validates the row and decodes its typed payload. Every failure is
// non-retryable because the row content itself is wrong.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(errors.New("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if envelope.Version < 1 || envelope.Version > outbox.CurrentVersion {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported envelope version %d", envelope.Version))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload, err := desc.decode(envelope.Data)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	if ref := payload.OrderRef(); ref != event.AggregateID {
		return nil, NewNonRetryableError(fmt.Errorf("%s payload is for order %s, row aggregate is %s", event.EventType, ref, event.AggregateID))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}
