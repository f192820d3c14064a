package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/mealflow-backend/api/middleware"
	"github.com/angelmondragon/mealflow-backend/api/responses"
	"github.com/angelmondragon/mealflow-backend/api/validators"
	internalorders "github.com/angelmondragon/mealflow-backend/internal/orders"
	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
	"github.com/angelmondragon/mealflow-backend/pkg/logger"
)

type agentAction func(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)

// AgentConfirmCashReceipt records that the delivery agent collected cash for
// a COD order.
func AgentConfirmCashReceipt(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return agentHandler(nil, logg)
	}
	return agentHandler(svc.ConfirmCashReceipt, logg)
}

// AgentMarkDelivered closes a confirmed order once the meal is handed over.
func AgentMarkDelivered(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return agentHandler(nil, logg)
	}
	return agentHandler(svc.MarkDelivered, logg)
}

func agentHandler(action agentAction, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if action == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID := middleware.ActorIDFromContext(r.Context())
		if actorID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}

		order, err := action(ctx, orderID, actorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}
