package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/harvestlink-backend/api/controllers"
	"github.com/angelmondragon/harvestlink-backend/api/middleware"
	"github.com/angelmondragon/harvestlink-backend/internal/notifications"
	"github.com/angelmondragon/harvestlink-backend/internal/orders"
	"github.com/angelmondragon/harvestlink-backend/internal/payments"
	"github.com/angelmondragon/harvestlink-backend/internal/requests"
	"github.com/angelmondragon/harvestlink-backend/internal/reviews"
	"github.com/angelmondragon/harvestlink-backend/pkg/config"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/metrics"
	"github.com/angelmondragon/harvestlink-backend/pkg/redis"
)

// Services are the domain services exposed over HTTP.
type Services struct {
	Orders        orders.Service
	Requests      requests.Service
	Payments      payments.Service
	Reviews       reviews.Service
	Notifications notifications.Service
}

// Infra carries the cross-cutting dependencies of the HTTP layer. Nil
// Idempotency or Limiter disables that middleware.
type Infra struct {
	Idempotency redis.IdempotencyStore
	Limiter     redis.RateLimiter
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	Readiness   map[string]controllers.Pinger
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, infra.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Readiness))
	})
	if infra.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	callbackPolicy := middleware.NewRateLimitPolicy("payment_callback", cfg.RateLimit.CallbackWindow, cfg.RateLimit.CallbackLimit)
	paymentsPolicy := middleware.NewRateLimitPolicy("payment_initiate", cfg.RateLimit.PaymentsWindow, cfg.RateLimit.PaymentsLimit)

	buyer := middleware.RequireRole(logg, enums.UserRoleBuyer)
	seller := middleware.RequireRole(logg, enums.UserRoleSeller)
	party := middleware.RequireRole(logg, enums.UserRoleBuyer, enums.UserRoleSeller)
	idempotent := middleware.Idempotency(infra.Idempotency, middleware.DefaultIdempotencyTTL, logg)
	idempotentCritical := middleware.Idempotency(infra.Idempotency, middleware.CriticalIdempotencyTTL, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(callbackPolicy, infra.Limiter, logg)).
			Post("/payments/callback", controllers.PaymentCallback(svc.Payments, cfg.Payments.CallbackSecret, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/orders", func(r chi.Router) {
				r.With(buyer, idempotent).Post("/", controllers.CreateOrder(svc.Orders, logg))
				r.With(buyer).Get("/", controllers.ListOrders(svc.Orders, logg))
				r.With(party).Get("/{orderId}", controllers.GetOrder(svc.Orders, logg))
				r.With(buyer).Delete("/{orderId}", controllers.CancelOrder(svc.Orders, logg))
				r.With(buyer).Delete("/{orderId}/delete", controllers.DeleteOrder(svc.Orders, logg))
				r.With(buyer).Put("/{orderId}/confirm-delivery", controllers.ConfirmDelivery(svc.Orders, logg))
				r.With(buyer).Get("/{orderId}/can-review", controllers.CanReview(svc.Reviews, logg))
			})

			r.Route("/requests", func(r chi.Router) {
				r.Use(seller)
				r.Get("/", controllers.ListRequests(svc.Requests, logg))
				r.With(idempotent).Put("/{requestId}/status", controllers.DecideRequest(svc.Requests, logg))
			})

			r.With(buyer, middleware.RateLimit(paymentsPolicy, infra.Limiter, logg), idempotentCritical).
				Post("/payments", controllers.InitiatePayment(svc.Payments, logg))

			r.Route("/reviews", func(r chi.Router) {
				r.Use(buyer)
				r.Post("/", controllers.SubmitReview(svc.Reviews, logg))
				r.Put("/{reviewId}", controllers.UpdateReview(svc.Reviews, logg))
				r.Delete("/{reviewId}", controllers.DeleteReview(svc.Reviews, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
			})
		})
	})

	return r
}
