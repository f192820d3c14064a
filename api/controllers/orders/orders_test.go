package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mealflow-backend/api/middleware"
	internalorders "github.com/angelmondragon/mealflow-backend/internal/orders"
	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
	"github.com/angelmondragon/mealflow-backend/pkg/pagination"
)

type stubOrdersService struct {
	create   func(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error)
	initiate func(ctx context.Context, input internalorders.InitiatePaymentInput) (*models.Order, error)
	redirect func(ctx context.Context, input internalorders.GatewayRedirectInput) (string, error)
	get      func(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error)
	list     func(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error)
}

func (s *stubOrdersService) CreateOrder(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	return s.create(ctx, input)
}

func (s *stubOrdersService) InitiatePayment(ctx context.Context, input internalorders.InitiatePaymentInput) (*models.Order, error) {
	return s.initiate(ctx, input)
}

func (s *stubOrdersService) BuildGatewayRedirect(ctx context.Context, input internalorders.GatewayRedirectInput) (string, error) {
	return s.redirect(ctx, input)
}

func (s *stubOrdersService) HandleGatewayCallback(context.Context, url.Values) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersService) RejectGatewayCallback(context.Context, url.Values, error) error {
	panic("not implemented")
}

func (s *stubOrdersService) ConfirmCashReceipt(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersService) MarkDelivered(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersService) GetOrder(ctx context.Context, orderID, customerID uuid.UUID) (*models.Order, error) {
	return s.get(ctx, orderID, customerID)
}

func (s *stubOrdersService) ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
	return s.list(ctx, customerID, params)
}

func customerRequest(method, target, body string, customerID uuid.UUID, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := middleware.WithUserID(req.Context(), customerID.String())
	ctx = middleware.WithRole(ctx, enums.ActorRoleCustomer)
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, body []byte, dest any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestCreatePassesLinesAndCustomer(t *testing.T) {
	customerID := uuid.New()
	offeringID := uuid.New()
	var got internalorders.CreateOrderInput
	svc := &stubOrdersService{create: func(_ context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
		got = input
		return &models.Order{ID: uuid.New(), CustomerID: input.CustomerID, Status: enums.OrderStatusPending, TotalAmount: decimal.RequireFromString("7.50")}, nil
	}}

	body := `{"lines":[{"offering_id":"` + offeringID.String() + `","quantity":3}]}`
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, customerRequest(http.MethodPost, "/api/v1/orders", body, customerID, nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, customerID, got.CustomerID)
	require.Equal(t, []internalorders.LineInput{{OfferingID: offeringID, Quantity: 3}}, got.Lines)

	var view internalorders.OrderView
	decodeData(t, resp.Body.Bytes(), &view)
	require.Equal(t, enums.OrderStatusPending, view.Status)
	require.True(t, view.TotalAmount.Equal(decimal.RequireFromString("7.50")))
}

func TestCreateRejectsInvalidBody(t *testing.T) {
	svc := &stubOrdersService{create: func(context.Context, internalorders.CreateOrderInput) (*models.Order, error) {
		t.Fatal("service should not be called")
		return nil, nil
	}}

	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, customerRequest(http.MethodPost, "/api/v1/orders", `{"lines":[]}`, uuid.New(), nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateMapsBusinessRuleTo422(t *testing.T) {
	svc := &stubOrdersService{create: func(context.Context, internalorders.CreateOrderInput) (*models.Order, error) {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "insufficient quantity")
	}}

	body := `{"lines":[{"offering_id":"` + uuid.NewString() + `","quantity":9}]}`
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, customerRequest(http.MethodPost, "/api/v1/orders", body, uuid.New(), nil))
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestCreateRequiresUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	Create(&stubOrdersService{}, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestInitiateGatewayPaymentReturnsRedirect(t *testing.T) {
	customerID := uuid.New()
	orderID := uuid.New()
	gatewayMethod := enums.PaymentMethodGateway
	svc := &stubOrdersService{
		initiate: func(_ context.Context, input internalorders.InitiatePaymentInput) (*models.Order, error) {
			require.Equal(t, "GATEWAY", input.Method)
			require.Equal(t, orderID, input.OrderID)
			return &models.Order{ID: orderID, Status: enums.OrderStatusPending, PaymentMethod: &gatewayMethod}, nil
		},
		redirect: func(_ context.Context, input internalorders.GatewayRedirectInput) (string, error) {
			require.Equal(t, "203.0.113.9", input.ClientIP)
			return "https://gateway.test/pay?vnp_TxnRef=" + input.OrderID.String(), nil
		},
	}

	req := customerRequest(http.MethodPost, "/", `{"method":"GATEWAY"}`, customerID, map[string]string{"orderId": orderID.String()})
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	resp := httptest.NewRecorder()
	InitiatePayment(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var body paymentResponse
	decodeData(t, resp.Body.Bytes(), &body)
	require.Contains(t, body.RedirectURL, orderID.String())
}

func TestInitiateCODPaymentHasNoRedirect(t *testing.T) {
	orderID := uuid.New()
	cod := enums.PaymentMethodCOD
	svc := &stubOrdersService{
		initiate: func(context.Context, internalorders.InitiatePaymentInput) (*models.Order, error) {
			return &models.Order{ID: orderID, Status: enums.OrderStatusPendingPayment, PaymentMethod: &cod}, nil
		},
		redirect: func(context.Context, internalorders.GatewayRedirectInput) (string, error) {
			t.Fatal("redirect should not be built for COD")
			return "", nil
		},
	}

	req := customerRequest(http.MethodPost, "/", `{"method":"COD"}`, uuid.New(), map[string]string{"orderId": orderID.String()})
	resp := httptest.NewRecorder()
	InitiatePayment(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var body paymentResponse
	decodeData(t, resp.Body.Bytes(), &body)
	require.Empty(t, body.RedirectURL)
	require.Equal(t, enums.OrderStatusPendingPayment, body.Order.Status)
}

func TestDetailRejectsBadOrderID(t *testing.T) {
	req := customerRequest(http.MethodGet, "/", "", uuid.New(), map[string]string{"orderId": "not-a-uuid"})
	resp := httptest.NewRecorder()
	Detail(&stubOrdersService{}, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDetailNotFound(t *testing.T) {
	svc := &stubOrdersService{get: func(context.Context, uuid.UUID, uuid.UUID) (*models.Order, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}}
	req := customerRequest(http.MethodGet, "/", "", uuid.New(), map[string]string{"orderId": uuid.NewString()})
	resp := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestListForwardsPagination(t *testing.T) {
	customerID := uuid.New()
	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC), ID: uuid.New()})
	svc := &stubOrdersService{list: func(_ context.Context, id uuid.UUID, params pagination.Params) (*internalorders.OrderList, error) {
		require.Equal(t, customerID, id)
		require.Equal(t, 5, params.Limit)
		require.Equal(t, cursor, params.Cursor)
		return &internalorders.OrderList{NextCursor: "next"}, nil
	}}

	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, customerRequest(http.MethodGet, "/api/v1/orders?limit=5&cursor="+cursor, "", customerID, nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var list internalorders.OrderList
	decodeData(t, resp.Body.Bytes(), &list)
	require.Equal(t, "next", list.NextCursor)
}

func TestListRejectsMalformedCursor(t *testing.T) {
	svc := &stubOrdersService{list: func(context.Context, uuid.UUID, pagination.Params) (*internalorders.OrderList, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}

	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, customerRequest(http.MethodGet, "/api/v1/orders?cursor=abc", "", uuid.New(), nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
