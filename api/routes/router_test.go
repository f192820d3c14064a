package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	internalorders "github.com/angelmondragon/mealflow-backend/internal/orders"
	"github.com/angelmondragon/mealflow-backend/pkg/auth"
	"github.com/angelmondragon/mealflow-backend/pkg/config"
	"github.com/angelmondragon/mealflow-backend/pkg/db/models"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mealflow-backend/pkg/errors"
	"github.com/angelmondragon/mealflow-backend/pkg/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/logger"
	"github.com/angelmondragon/mealflow-backend/pkg/metrics"
	"github.com/angelmondragon/mealflow-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubOrders struct {
	internalorders.Service
	confirmed int
}

func (s *stubOrders) HandleGatewayCallback(context.Context, url.Values) (*models.Order, error) {
	return nil, pkgerrors.Wrap(pkgerrors.CodeSecurity, gateway.ErrInvalidSignature, "missing callback signature")
}

func (s *stubOrders) RejectGatewayCallback(_ context.Context, _ url.Values, cause error) error {
	return pkgerrors.Wrap(pkgerrors.CodeSecurity, cause, "callback rejected")
}

func (s *stubOrders) ListOrders(context.Context, uuid.UUID, pagination.Params) (*internalorders.OrderList, error) {
	return &internalorders.OrderList{Orders: []internalorders.OrderView{}}, nil
}

func (s *stubOrders) ConfirmCashReceipt(_ context.Context, orderID, _ uuid.UUID) (*models.Order, error) {
	s.confirmed++
	return &models.Order{ID: orderID, Status: enums.OrderStatusConfirmed}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSAllowedOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "mealflow", ExpirationMinutes: 15},
	}
}

func newTestRouter(t *testing.T, svc internalorders.Service) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	gw, err := gateway.NewClient(gateway.Config{
		BaseURL:      "https://gateway.test/pay",
		MerchantCode: "MEALTEST",
		HashSecret:   "ROUTERSECRET",
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return NewRouter(Dependencies{
		Config:       cfg,
		Logger:       logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard}),
		DB:           stubPinger{},
		Redis:        stubPinger{},
		Orders:       svc,
		Gateway:      gw,
		OrderMetrics: metrics.NewOrderMetrics(reg),
		HTTPMetrics:  metrics.NewHTTPMetrics(reg),
		Gatherer:     reg,
	}), cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: uuid.New(), Role: role})
	require.NoError(t, err)
	return "Bearer " + token
}

func serve(h http.Handler, method, target, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(""))
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})

	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/live", "").Code)
	require.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health/ready", "").Code)
}

func TestOrdersRequireAuthentication(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})
	require.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/v1/orders", "").Code)
}

func TestCustomerCanListOrders(t *testing.T) {
	router, cfg := newTestRouter(t, &stubOrders{})
	resp := serve(router, http.MethodGet, "/api/v1/orders", bearer(t, cfg, enums.ActorRoleCustomer))
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestAgentRoutesRequireDeliveryAgentRole(t *testing.T) {
	svc := &stubOrders{}
	router, cfg := newTestRouter(t, svc)
	target := "/api/v1/agent/orders/" + uuid.NewString() + "/cash-receipt"

	require.Equal(t, http.StatusForbidden, serve(router, http.MethodPost, target, bearer(t, cfg, enums.ActorRoleCustomer)).Code)
	require.Equal(t, http.StatusForbidden, serve(router, http.MethodGet, "/api/v1/orders", bearer(t, cfg, enums.ActorRoleDeliveryAgent)).Code)

	resp := serve(router, http.MethodPost, target, bearer(t, cfg, enums.ActorRoleDeliveryAgent))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 1, svc.confirmed)
}

func TestGatewayCallbackIsPublicAndRejectsUnsigned(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})
	resp := serve(router, http.MethodGet, "/api/v1/payments/gateway/callback?vnp_TxnRef=abc", "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "invalid callback")
}

func TestMetricsEndpointExposesHTTPCounters(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrders{})
	serve(router, http.MethodGet, "/health/live", "")

	resp := serve(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`)
}
