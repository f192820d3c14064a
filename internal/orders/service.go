package orders

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mealflow-backend/internal/inventory"
	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
	"github.com/angelmondragon/mealflow-backend/pkg/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/logger"
	"github.com/angelmondragon/mealflow-backend/pkg/metrics"
	"github.com/angelmondragon/mealflow-backend/pkg/outbox"
	"github.com/angelmondragon/mealflow-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/mealflow-backend/pkg/pagination"
)

const (
	defaultLeadTime = 2 * time.Hour

	releaseReasonPaymentFailed = "payment_failed"
)

// Service is the order lifecycle engine. Every mutating operation runs in a
// single unit of work.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*models.Order, error)
	BuildGatewayRedirect(ctx context.Context, input GatewayRedirectInput) (string, error)
	HandleGatewayCallback(ctx context.Context, params url.Values) (*models.Order, error)
	RejectGatewayCallback(ctx context.Context, params url.Values, cause error) error
	ConfirmCashReceipt(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	MarkDelivered(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	GetOrder(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type ServiceParams struct {
	Repository        Repository
	TransactionRunner txRunner
	Ledger            InventoryLedger
	Scheduler         DeliveryScheduler
	Profiles          CustomerProfiles
	Actors            ActorCapabilities
	Gateway           PaymentGateway
	Outbox            outboxPublisher
	Metrics           Metrics
	Logger            *logger.Logger
	DeliveryLeadTime  time.Duration
	Now               func() time.Time
}

type service struct {
	repo      Repository
	tx        txRunner
	ledger    InventoryLedger
	scheduler DeliveryScheduler
	profiles  CustomerProfiles
	actors    ActorCapabilities
	gateway   PaymentGateway
	outbox    outboxPublisher
	metrics   Metrics
	logg      *logger.Logger
	leadTime  time.Duration
	now       func() time.Time
}

// NewService builds the lifecycle engine with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.TransactionRunner == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case params.Scheduler == nil:
		return nil, fmt.Errorf("delivery scheduler required")
	case params.Profiles == nil:
		return nil, fmt.Errorf("customer profiles required")
	case params.Actors == nil:
		return nil, fmt.Errorf("actor capabilities required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox publisher required")
	}

	svc := &service{
		repo:      params.Repository,
		tx:        params.TransactionRunner,
		ledger:    params.Ledger,
		scheduler: params.Scheduler,
		profiles:  params.Profiles,
		actors:    params.Actors,
		gateway:   params.Gateway,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		leadTime:  params.DeliveryLeadTime,
		now:       params.Now,
	}
	if svc.metrics == nil {
		svc.metrics = metrics.NewOrderMetrics(nil)
	}
	if svc.logg == nil {
		svc.logg = logger.Nop()
	}
	if svc.leadTime <= 0 {
		svc.leadTime = defaultLeadTime
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	lines, err := validateLines(input.Lines)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reservations, err := s.ledger.ReserveAll(ctx, tx, lines)
		if err != nil {
			s.metrics.IncReservationFailure(reservationFailureReason(err))
			return err
		}

		now := s.now().UTC()
		total := decimal.Zero
		orderLines := make([]models.OrderLine, 0, len(reservations))
		for _, res := range reservations {
			lineTotal := res.UnitPrice.Mul(decimal.NewFromInt(int64(res.Quantity)))
			total = total.Add(lineTotal)
			orderLines = append(orderLines, models.OrderLine{
				ID:                   uuid.New(),
				OfferingID:           res.OfferingID,
				OfferingName:         res.Name,
				Quantity:             res.Quantity,
				UnitPriceAtOrderTime: res.UnitPrice,
				LineTotal:            lineTotal,
				CreatedAt:            now,
			})
		}

		created := &models.Order{
			ID:          uuid.New(),
			CustomerID:  input.CustomerID,
			TotalAmount: total,
			Status:      enums.OrderStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}
		for i := range orderLines {
			orderLines[i].OrderID = created.ID
		}
		if err := repo.CreateLines(ctx, orderLines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order lines")
		}
		created.Lines = orderLines

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Actor:         buildActor(input.CustomerID, enums.ActorRoleCustomer),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:     created.ID,
				CustomerID:  created.CustomerID,
				TotalAmount: created.TotalAmount,
				Lines:       linePayloads(orderLines),
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncCreated(len(order.Lines))
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order created")
	return order, nil
}

func (s *service) InitiatePayment(ctx context.Context, input InitiatePaymentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	method, err := enums.ParsePaymentMethod(input.Method)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrUnsupportedPaymentMethod, err.Error()).
			WithDetails(map[string]any{"payment_method": input.Method})
	}

	// Both methods end with a delivery, so the address must exist before any
	// state changes.
	contact, err := s.profiles.GetDeliveryAddress(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if current.CustomerID != input.CustomerID {
			return notOwner()
		}
		if current.Status != enums.OrderStatusPending && current.Status != enums.OrderStatusPaymentFailed {
			return invalidTransition(current.Status, "initiate payment")
		}

		now := s.now().UTC()
		rereserved := false
		if current.Status == enums.OrderStatusPaymentFailed {
			// Stock went back to the menu when the previous payment failed.
			// The snapshot prices stay; only quantity is taken again.
			if _, err := s.ledger.ReserveAll(ctx, tx, ledgerLines(current.Lines)); err != nil {
				s.metrics.IncReservationFailure(reservationFailureReason(err))
				return err
			}
			rereserved = true
		}

		updates := map[string]any{"payment_method": method}
		target := enums.OrderStatusPending
		if method == enums.PaymentMethodCOD {
			target = enums.OrderStatusPendingPayment
		} else {
			updates["payment_attempts"] = gorm.Expr("payment_attempts + ?", 1)
		}
		if err := s.transition(ctx, repo, current, target, updates, "initiate payment"); err != nil {
			return err
		}

		if method == enums.PaymentMethodCOD {
			if _, err := s.scheduler.Create(ctx, tx, current.ID, now.Add(s.leadTime), contact.Address, contact.Contact); err != nil {
				return err
			}
		}

		updated, err := s.loadOrder(ctx, repo, current.ID)
		if err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentInitiated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   updated.ID,
			Actor:         buildActor(input.CustomerID, enums.ActorRoleCustomer),
			OccurredAt:    now,
			Data: payloads.PaymentInitiatedEvent{
				OrderID:       updated.ID,
				PaymentMethod: method,
				Status:        updated.Status,
				Attempt:       updated.PaymentAttempts,
				Rereserved:    rereserved,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment initiated")
		}
		order = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(order.Status.String())
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{
		"payment_method": method.String(),
		"status":         order.Status.String(),
	})
	s.logg.Info(logCtx, "payment initiated")
	return order, nil
}

// BuildGatewayRedirect signs the gateway URL for an order already bound to the
// gateway. It reads the order but never mutates it.
func (s *service) BuildGatewayRedirect(ctx context.Context, input GatewayRedirectInput) (string, error) {
	order, err := s.GetOrder(ctx, input.OrderID, input.CustomerID)
	if err != nil {
		return "", err
	}
	if !order.HasPaymentMethod(enums.PaymentMethodGateway) {
		return "", pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrWrongPaymentMethod, "order is not set up for gateway payment")
	}
	if order.Status != enums.OrderStatusPending {
		return "", invalidTransition(order.Status, "start gateway payment")
	}

	redirect, err := s.gateway.BuildRedirectURL(gateway.RedirectRequest{
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
		Description: fmt.Sprintf("Payment for order %s", order.ID),
		ClientIP:    input.ClientIP,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build gateway redirect")
	}
	return redirect, nil
}

// HandleGatewayCallback settles a signed gateway notification. Nothing is
// read or written before the signature checks out.
func (s *service) HandleGatewayCallback(ctx context.Context, params url.Values) (*models.Order, error) {
	result, err := s.gateway.VerifyCallback(params)
	if err != nil {
		return nil, s.RejectGatewayCallback(ctx, params, err)
	}
	ctx = s.logg.WithOrderID(ctx, result.OrderID.String())

	current, err := s.loadOrder(ctx, s.repo, result.OrderID)
	if err != nil {
		return nil, err
	}
	// The status is re-read inside the transaction, so the contact is loaded
	// for every success regardless of what this read saw.
	var contact deliveryTarget
	if result.Succeeded() {
		c, err := s.profiles.GetDeliveryAddress(ctx, current.CustomerID)
		if err != nil {
			return nil, err
		}
		contact = deliveryTarget{address: c.Address, contact: c.Contact}
	}

	var (
		order   *models.Order
		outcome string
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, result.OrderID)
		if err != nil {
			return err
		}
		if current.Status != enums.OrderStatusPending {
			outcome = metrics.CallbackStale
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrStaleCallback,
				fmt.Sprintf("order is %s, not awaiting payment", current.Status)).
				WithDetails(map[string]any{"current_status": current.Status.String()})
		}
		if err := checkCallbackAmount(current, result); err != nil {
			outcome = metrics.CallbackRejected
			return err
		}

		if result.Succeeded() {
			outcome = metrics.CallbackConfirmed
			return s.settleSuccess(ctx, tx, repo, current, result, contact)
		}
		outcome = metrics.CallbackFailed
		return s.settleFailure(ctx, tx, repo, current, result)
	})
	if outcome != "" {
		s.metrics.IncCallback(outcome)
	}
	if err != nil {
		if errors.Is(err, ErrAmountMismatch) {
			s.auditRejection(ctx, result.OrderID.String(), err)
		}
		return nil, err
	}

	order, err = s.loadOrder(ctx, s.repo, result.OrderID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(order.Status.String())
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"response_code": result.ResponseCode,
		"status":        order.Status.String(),
	})
	s.logg.Info(logCtx, "gateway callback settled")
	return order, nil
}

type deliveryTarget struct {
	address string
	contact string
}

func (s *service) settleSuccess(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, result *gateway.CallbackResult, target deliveryTarget) error {
	now := s.now().UTC()
	updates := map[string]any{
		"payment_method":          enums.PaymentMethodGateway,
		"gateway_transaction_ref": result.TransactionRef,
		"payment_confirmed_at":    now,
		"payment_response_code":   result.ResponseCode,
	}
	if err := s.transition(ctx, repo, order, enums.OrderStatusConfirmed, updates, "confirm payment"); err != nil {
		return err
	}

	deliverAt := now.Add(s.leadTime)
	if _, err := s.scheduler.Create(ctx, tx, order.ID, deliverAt, target.address, target.contact); err != nil {
		return err
	}

	return wrapEmit(s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OccurredAt:    now,
		Data: payloads.OrderPaidEvent{
			OrderID:        order.ID,
			TransactionRef: result.TransactionRef,
			ResponseCode:   result.ResponseCode,
			Amount:         order.TotalAmount,
			DeliveryTime:   deliverAt,
			PaidAt:         now,
		},
	}), "emit order paid")
}

func (s *service) settleFailure(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, result *gateway.CallbackResult) error {
	now := s.now().UTC()
	updates := map[string]any{"payment_response_code": result.ResponseCode}
	if err := s.transition(ctx, repo, order, enums.OrderStatusPaymentFailed, updates, "fail payment"); err != nil {
		return err
	}
	if err := s.ledger.ReleaseAll(ctx, tx, ledgerLines(order.Lines)); err != nil {
		return err
	}

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OccurredAt:    now,
		Data: payloads.PaymentFailedEvent{
			OrderID:        order.ID,
			TransactionRef: result.TransactionRef,
			ResponseCode:   result.ResponseCode,
			Message:        result.Message,
		},
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment failed")
	}
	return wrapEmit(s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventReservationReleased,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		OccurredAt:    now,
		Data: payloads.ReservationReleasedEvent{
			OrderID: order.ID,
			Reason:  releaseReasonPaymentFailed,
			Lines:   linePayloads(order.Lines),
		},
	}), "emit reservation released")
}

// ConfirmCashReceipt records a delivery agent collecting cash for a COD order.
// Inventory is untouched; it was reserved at creation.
func (s *service) ConfirmCashReceipt(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	if err := s.requireDeliveryAgent(ctx, actorID); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if !current.HasPaymentMethod(enums.PaymentMethodCOD) {
			return pkgerrors.Wrap(pkgerrors.CodeBusinessRule, ErrWrongPaymentMethod, "order is not cash on delivery")
		}
		if current.Status != enums.OrderStatusPendingPayment {
			return invalidTransition(current.Status, "confirm cash receipt")
		}

		now := s.now().UTC()
		updates := map[string]any{
			"payment_confirmed_at": now,
			"payment_confirmed_by": actorID,
		}
		if err := s.transition(ctx, repo, current, enums.OrderStatusConfirmed, updates, "confirm cash receipt"); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCashCollected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         buildActor(actorID, enums.ActorRoleDeliveryAgent),
			OccurredAt:    now,
			Data: payloads.CashCollectedEvent{
				OrderID:     current.ID,
				AgentID:     actorID,
				Amount:      current.TotalAmount,
				CollectedAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit cash collected")
		}

		order, err = s.loadOrder(ctx, repo, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(order.Status.String())
	s.logg.Info(s.logg.WithField(s.logg.WithOrderID(ctx, order.ID.String()), "agent_id", actorID.String()), "cash receipt confirmed")
	return order, nil
}

// MarkDelivered closes a confirmed order once the agent hands it over.
func (s *service) MarkDelivered(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	if err := s.requireDeliveryAgent(ctx, actorID); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if current.Status != enums.OrderStatusConfirmed {
			return invalidTransition(current.Status, "mark delivered")
		}

		now := s.now().UTC()
		if err := s.transition(ctx, repo, current, enums.OrderStatusDelivered, map[string]any{"delivered_at": now}, "mark delivered"); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   current.ID,
			Actor:         buildActor(actorID, enums.ActorRoleDeliveryAgent),
			OccurredAt:    now,
			Data: payloads.OrderDeliveredEvent{
				OrderID:     current.ID,
				AgentID:     actorID,
				DeliveredAt: now,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order delivered")
		}

		order, err = s.loadOrder(ctx, repo, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(order.Status.String())
	s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "order delivered")
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, notOwner()
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	list, err := s.repo.ListByCustomer(ctx, customerID, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, orderNotFound()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// transition applies a compare-and-swap status change. Losing the race is
// reported against the status the caller observed.
func (s *service) transition(ctx context.Context, repo Repository, order *models.Order, to enums.OrderStatus, updates map[string]any, action string) error {
	err := repo.TransitionStatus(ctx, order.ID, order.Status, to, updates)
	if errors.Is(err, errStatusChanged) {
		return invalidTransition(order.Status, action)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return nil
}

func (s *service) requireDeliveryAgent(ctx context.Context, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return notDeliveryAgent()
	}
	ok, err := s.actors.HasDeliveryAgentCapability(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return notDeliveryAgent()
	}
	return nil
}

// auditRejection logs a refused callback with the order reference only.
// RejectGatewayCallback records a callback that failed verification and
// returns the rejection as a typed error. Nothing is persisted.
func (s *service) RejectGatewayCallback(ctx context.Context, params url.Values, cause error) error {
	if cause == nil {
		cause = errors.New("callback rejected")
	}
	s.metrics.IncCallback(metrics.CallbackRejected)
	s.auditRejection(ctx, params.Get(gateway.ParamTxnRef), cause)
	if pkgerrors.As(cause) != nil {
		return cause
	}
	return pkgerrors.Wrap(pkgerrors.CodeSecurity, cause, "callback rejected")
}

func (s *service) auditRejection(ctx context.Context, ref string, err error) {
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"txn_ref": ref,
		"reason":  err.Error(),
	})
	s.logg.Warn(logCtx, "gateway callback rejected")
}

func checkCallbackAmount(order *models.Order, result *gateway.CallbackResult) error {
	if !result.HasAmount {
		return nil
	}
	expected, err := gateway.EncodeAmount(order.TotalAmount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode order total")
	}
	if result.Amount != expected {
		return pkgerrors.Wrap(pkgerrors.CodeSecurity, ErrAmountMismatch,
			fmt.Sprintf("callback amount %d does not match expected %d", result.Amount, expected))
	}
	return nil
}

func validateLines(input []LineInput) ([]inventory.Line, error) {
	if len(input) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrEmptyOrder, "order must contain at least one line")
	}
	seen := make(map[uuid.UUID]struct{}, len(input))
	lines := make([]inventory.Line, 0, len(input))
	for i, line := range input {
		if line.OfferingID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("line %d: offering id required", i))
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, inventory.ErrInvalidQuantity,
				fmt.Sprintf("line %d: quantity must be positive", i)).
				WithDetails(map[string]any{"offering_id": line.OfferingID.String(), "quantity": line.Quantity})
		}
		if _, dup := seen[line.OfferingID]; dup {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrDuplicateOffering,
				fmt.Sprintf("offering %s listed more than once", line.OfferingID)).
				WithDetails(map[string]any{"offering_id": line.OfferingID.String()})
		}
		seen[line.OfferingID] = struct{}{}
		lines = append(lines, inventory.Line{OfferingID: line.OfferingID, Quantity: line.Quantity})
	}
	return lines, nil
}

func ledgerLines(lines []models.OrderLine) []inventory.Line {
	out := make([]inventory.Line, 0, len(lines))
	for _, line := range lines {
		out = append(out, inventory.Line{OfferingID: line.OfferingID, Quantity: line.Quantity})
	}
	return out
}

func linePayloads(lines []models.OrderLine) []payloads.OrderLine {
	out := make([]payloads.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, payloads.OrderLine{
			OfferingID: line.OfferingID,
			Name:       line.OfferingName,
			Quantity:   line.Quantity,
			UnitPrice:  line.UnitPriceAtOrderTime,
			LineTotal:  line.LineTotal,
		})
	}
	return out
}

func reservationFailureReason(err error) string {
	switch {
	case errors.Is(err, inventory.ErrInsufficientQuantity):
		return "insufficient_quantity"
	case errors.Is(err, inventory.ErrOfferingUnavailable):
		return "offering_unavailable"
	case errors.Is(err, inventory.ErrOfferingNotFound):
		return "offering_not_found"
	case errors.Is(err, inventory.ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return "other"
	}
}

func buildActor(userID uuid.UUID, role enums.ActorRole) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: userID, Role: role.String()}
}

func wrapEmit(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
