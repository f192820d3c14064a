package webhooks

import (
	"context"
	"net/http"
	"net/url"

	"github.com/angelmondragon/mealflow-backend/api/responses"
	gatewaywebhook "github.com/angelmondragon/mealflow-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
	"github.com/angelmondragon/mealflow-backend/pkg/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/logger"
	"github.com/angelmondragon/mealflow-backend/pkg/metrics"
)

type callbackSettler interface {
	HandleGatewayCallback(ctx context.Context, params url.Values) (*models.Order, error)
	RejectGatewayCallback(ctx context.Context, params url.Values, cause error) error
}

type callbackVerifier interface {
	VerifyCallback(params url.Values) (*gateway.CallbackResult, error)
}

type callbackGuard interface {
	CheckAndMark(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type callbackMetrics interface {
	IncCallback(outcome string)
}

type callbackResponse struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// GatewayCallback settles a signed gateway notification. Redelivered
// notifications are acknowledged without reaching the engine again.
func GatewayCallback(svc callbackSettler, verifier callbackVerifier, guard callbackGuard, rec callbackMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil || verifier == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "gateway callback unavailable"))
			return
		}
		if err := r.ParseForm(); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse callback parameters"))
			return
		}
		params := r.Form

		result, err := verifier.VerifyCallback(params)
		if err != nil {
			responses.WriteError(ctx, logg, w, svc.RejectGatewayCallback(ctx, params, err))
			return
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, result.OrderID.String())
		}

		key := gatewaywebhook.CallbackKey(result)
		seen, err := guard.CheckAndMark(ctx, key)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check callback idempotency"))
			return
		}
		if seen {
			if rec != nil {
				rec.IncCallback(metrics.CallbackDuplicate)
			}
			if logg != nil {
				logg.Info(logg.WithField(ctx, "txn_ref", result.TransactionRef), "duplicate gateway callback acknowledged")
			}
			responses.WriteSuccess(w, callbackResponse{OrderID: result.OrderID.String(), Duplicate: true})
			return
		}

		order, err := svc.HandleGatewayCallback(ctx, params)
		if err != nil {
			if delErr := guard.Delete(ctx, key); delErr != nil && logg != nil {
				logg.Error(ctx, "release callback idempotency key", delErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, callbackResponse{OrderID: order.ID.String(), Status: order.Status.String()})
	}
}
