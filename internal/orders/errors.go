package orders

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
)

var (
	ErrOrderNotFound            = errors.New("order not found")
	ErrEmptyOrder               = errors.New("order has no lines")
	ErrDuplicateOffering        = errors.New("offering listed more than once")
	ErrUnsupportedPaymentMethod = errors.New("unsupported payment method")
	ErrInvalidStateTransition   = errors.New("invalid order state transition")
	ErrWrongPaymentMethod       = errors.New("order uses a different payment method")
	ErrStaleCallback            = errors.New("callback for an order that is no longer awaiting payment")
	ErrAmountMismatch           = errors.New("callback amount does not match order total")
	ErrNotOrderOwner            = errors.New("order belongs to another customer")
	ErrNotDeliveryAgent         = errors.New("actor is not a delivery agent")
)

// errStatusChanged is returned by the repository when a compare-and-swap
// transition matched no row.
var errStatusChanged = errors.New("order status changed concurrently")

func orderNotFound() error {
	return pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrOrderNotFound, "order not found")
}

func invalidTransition(current enums.OrderStatus, action string) error {
	return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrInvalidStateTransition,
		fmt.Sprintf("cannot %s while order is %s", action, current)).
		WithDetails(map[string]any{"current_status": current.String()})
}

func notOwner() error {
	return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrNotOrderOwner, "order does not belong to customer")
}

func notDeliveryAgent() error {
	return pkgerrors.Wrap(pkgerrors.CodeForbidden, ErrNotDeliveryAgent, "delivery agent capability required")
}
