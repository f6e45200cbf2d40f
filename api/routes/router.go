package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/shopfront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/shopfront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/shopfront-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/shopfront-backend/api/controllers/webhooks"
	"github.com/angelmondragon/shopfront-backend/api/middleware"
	"github.com/angelmondragon/shopfront-backend/internal/cart"
	"github.com/angelmondragon/shopfront-backend/internal/orders"
	"github.com/angelmondragon/shopfront-backend/pkg/config"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
	"github.com/angelmondragon/shopfront-backend/pkg/logger"
	"github.com/angelmondragon/shopfront-backend/pkg/redis"
)

type webhookVerifier interface {
	HasWebhookSecret() bool
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Deps carries everything the router hands to controllers.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB    controllers.Pinger
	Redis controllers.Pinger

	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer

	Carts  cart.Service
	Orders orders.Service

	Webhooks        webhookcontrollers.StripeWebhookService
	WebhookVerifier webhookVerifier
	WebhookGuard    webhookGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	stripeWebhook := webhookcontrollers.StripeWebhook(deps.Webhooks, deps.WebhookVerifier, deps.WebhookGuard, logg)
	r.Post("/api/v1/webhooks/stripe", stripeWebhook)
	r.Post("/api/v1/payments/webhook", stripeWebhook)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.Fetch(deps.Carts, logg))
			r.Post("/items", cartcontrollers.AddItem(deps.Carts, logg))
			r.Put("/items/{itemId}", cartcontrollers.UpdateItem(deps.Carts, logg))
			r.Delete("/items/{itemId}", cartcontrollers.RemoveItem(deps.Carts, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderId}/payment-intent", ordercontrollers.PaymentIntent(deps.Orders, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
				r.Get("/all", ordercontrollers.AdminList(deps.Orders, logg))
				r.Put("/{orderId}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
			})
		})
	})

	return r
}
