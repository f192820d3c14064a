package orders

import (
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/mealflow-backend/api/middleware"
	"github.com/angelmondragon/mealflow-backend/api/responses"
	"github.com/angelmondragon/mealflow-backend/api/validators"
	internalorders "github.com/angelmondragon/mealflow-backend/internal/orders"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
	"github.com/angelmondragon/mealflow-backend/pkg/logger"
)

type createOrderLine struct {
	OfferingID string `json:"offering_id" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"gt=0"`
}

type createOrderRequest struct {
	Lines []createOrderLine `json:"lines" validate:"required,min=1,dive"`
}

type initiatePaymentRequest struct {
	Method string `json:"method" validate:"required"`
}

type paymentResponse struct {
	Order       internalorders.OrderView `json:"order"`
	RedirectURL string                   `json:"redirect_url,omitempty"`
}

// Create places an order for the authenticated customer and reserves its
// stock.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{CustomerID: customerID}
		for _, line := range req.Lines {
			// validated as a uuid above
			offeringID := uuid.MustParse(line.OfferingID)
			input.Lines = append(input.Lines, internalorders.LineInput{OfferingID: offeringID, Quantity: line.Quantity})
		}

		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, internalorders.NewOrderView(order))
	}
}

// List returns the customer's orders newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListOrders(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order owned by the customer.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID, customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.NewOrderView(order))
	}
}

// InitiatePayment picks COD or GATEWAY for a pending order. Gateway
// payments answer with the signed redirect the client should follow.
func InitiatePayment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		customerID, err := requireCustomer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req initiatePaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}

		order, err := svc.InitiatePayment(ctx, internalorders.InitiatePaymentInput{
			OrderID:    orderID,
			CustomerID: customerID,
			Method:     req.Method,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := paymentResponse{Order: internalorders.NewOrderView(order)}
		if order.HasPaymentMethod(enums.PaymentMethodGateway) {
			redirect, err := svc.BuildGatewayRedirect(ctx, internalorders.GatewayRedirectInput{
				OrderID:    orderID,
				CustomerID: customerID,
				ClientIP:   clientIP(r),
			})
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			resp.RedirectURL = redirect
		}
		responses.WriteSuccess(w, resp)
	}
}

func requireCustomer(r *http.Request) (uuid.UUID, error) {
	id := middleware.ActorIDFromContext(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	return id, nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
