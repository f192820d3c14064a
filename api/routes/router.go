package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/mealflow-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/mealflow-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/mealflow-backend/api/controllers/webhooks"
	"github.com/angelmondragon/mealflow-backend/api/middleware"
	"github.com/angelmondragon/mealflow-backend/internal/orders"
	gatewaywebhook "github.com/angelmondragon/mealflow-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/config"
	"github.com/angelmondragon/mealflow-backend/pkg/enums"
	"github.com/angelmondragon/mealflow-backend/pkg/gateway"
	"github.com/angelmondragon/mealflow-backend/pkg/logger"
	"github.com/angelmondragon/mealflow-backend/pkg/metrics"
	"github.com/angelmondragon/mealflow-backend/pkg/redis"
)

// Dependencies are the collaborators the HTTP surface is wired to.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Idempotency   redis.IdempotencyStore
	Orders        orders.Service
	Gateway       *gateway.Client
	CallbackGuard *gatewaywebhook.IdempotencyGuard
	OrderMetrics  *metrics.OrderMetrics
	HTTPMetrics   *metrics.HTTPMetrics
	Gatherer      prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// the signature is the authentication
		r.Get("/payments/gateway/callback", webhookcontrollers.GatewayCallback(deps.Orders, deps.Gateway, deps.CallbackGuard, deps.OrderMetrics, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, logg),
				middleware.Idempotency(deps.Idempotency, logg),
			)

			r.Route("/orders", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleCustomer))
				r.Post("/", ordercontrollers.Create(deps.Orders, logg))
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
				r.Post("/{orderId}/payment", ordercontrollers.InitiatePayment(deps.Orders, logg))
			})

			r.Route("/agent/orders/{orderId}", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleDeliveryAgent))
				r.Post("/cash-receipt", controllers.AgentConfirmCashReceipt(deps.Orders, logg))
				r.Post("/delivered", controllers.AgentMarkDelivered(deps.Orders, logg))
			})
		})
	})

	return r
}
