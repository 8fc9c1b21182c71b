package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/harvestlink-backend/api/controllers"
	"github.com/angelmondragon/harvestlink-backend/api/routes"
	"github.com/angelmondragon/harvestlink-backend/internal/notifications"
	"github.com/angelmondragon/harvestlink-backend/internal/orders"
	"github.com/angelmondragon/harvestlink-backend/internal/payments"
	product "github.com/angelmondragon/harvestlink-backend/internal/products"
	"github.com/angelmondragon/harvestlink-backend/internal/requests"
	"github.com/angelmondragon/harvestlink-backend/internal/reviews"
	"github.com/angelmondragon/harvestlink-backend/pkg/config"
	"github.com/angelmondragon/harvestlink-backend/pkg/db"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/metrics"
	"github.com/angelmondragon/harvestlink-backend/pkg/migrate"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/redis"
)

const (
	serviceName     = "api"
	shutdownTimeout = 20 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	fulfillment := metrics.NewFulfillmentMetrics(registry)

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	deliverer, err := notifications.NewOutboxDeliverer(dbClient, emitter)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification deliverer", err)
		os.Exit(1)
	}
	dispatcher, err := notifications.NewAsyncDispatcher(notifications.DispatcherConfig{
		QueueSize: cfg.Notifications.QueueSize,
		Workers:   cfg.Notifications.Workers,
	}, deliverer, logg, fulfillment)
	if err != nil {
		logg.Error(context.Background(), "failed to start notification dispatcher", err)
		os.Exit(1)
	}

	services, err := buildServices(cfg, logg, dbClient, redisClient, emitter, dispatcher, fulfillment)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(cfg, logg, routes.Infra{
		Idempotency: redisClient,
		Limiter:     redisClient,
		Gatherer:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		Readiness: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
	}, services)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	var closeErr error
	closeErr = multierr.Append(closeErr, server.Shutdown(shutdownCtx))
	// Drain queued notifications before the database goes away.
	dispatcher.Close()
	closeErr = multierr.Append(closeErr, redisClient.Close())
	closeErr = multierr.Append(closeErr, dbClient.Close())
	if closeErr != nil {
		for _, err := range multierr.Errors(closeErr) {
			logg.Error(ctx, "shutdown error", err)
		}
		exitCode = 1
	}
	logg.Info(ctx, "api server stopped")
	os.Exit(exitCode)
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	emitter *outbox.Service,
	sink notifications.Sink,
	fulfillment *metrics.FulfillmentMetrics,
) (routes.Services, error) {
	conn := dbClient.DB()
	orderRepo := orders.NewRepository(conn)

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orderRepo,
		Products: product.NewReader(conn),
		Tx:       dbClient,
		Outbox:   emitter,
		Sink:     sink,
		Logger:   logg,
		Metrics:  fulfillment,
	})
	if err != nil {
		return routes.Services{}, err
	}

	requestSvc, err := requests.NewService(requests.ServiceParams{
		Repo:    orderRepo,
		Tx:      dbClient,
		Outbox:  emitter,
		Sink:    sink,
		Logger:  logg,
		Metrics: fulfillment,
	})
	if err != nil {
		return routes.Services{}, err
	}

	// A nil *HTTPGateway answers every call with GATEWAY_UNAVAILABLE, which
	// keeps local environments without a gateway usable.
	var gateway *payments.HTTPGateway
	if cfg.Payments.GatewayURL != "" {
		gateway, err = payments.NewHTTPGateway(cfg.Payments.GatewayURL, cfg.Payments.GatewayAPIKey, payments.WithTimeout(cfg.Payments.GatewayTimeout))
		if err != nil {
			return routes.Services{}, err
		}
	} else if cfg.App.IsProd() {
		return routes.Services{}, errors.New("payment gateway url required in prod")
	} else {
		logg.Warn(context.Background(), "payment gateway not configured")
	}
	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Repo:           orderRepo,
		Tx:             dbClient,
		Outbox:         emitter,
		Gateway:        gateway,
		Locker:         redisClient,
		Sink:           sink,
		Logger:         logg,
		Metrics:        fulfillment,
		GatewayTimeout: cfg.Payments.GatewayTimeout,
		Currency:       cfg.Payments.Currency,
	})
	if err != nil {
		return routes.Services{}, err
	}

	reviewSvc, err := reviews.NewService(reviews.ServiceParams{
		Repo:    reviews.NewRepository(conn),
		Orders:  orderRepo,
		Tx:      dbClient,
		Outbox:  emitter,
		Sink:    sink,
		Logger:  logg,
		Metrics: fulfillment,
	})
	if err != nil {
		return routes.Services{}, err
	}

	notificationSvc, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Orders:        orderSvc,
		Requests:      requestSvc,
		Payments:      paymentSvc,
		Reviews:       reviewSvc,
		Notifications: notificationSvc,
	}, nil
}
