package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-checkout/internal/config"
	"storefront-checkout/internal/controller"
	"storefront-checkout/internal/idempotency"
	"storefront-checkout/internal/logger"
	"storefront-checkout/internal/metrics"
	"storefront-checkout/internal/payment"
	"storefront-checkout/internal/rabbit"
	"storefront-checkout/internal/realtime"
	"storefront-checkout/internal/repository"
	"storefront-checkout/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{ServiceName: "storefront-checkout", Level: cfg.LogLevel, Format: cfg.LogFormat})
	ctx := context.Background()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	// Conexión a MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDBName)

	orders := repository.NewMongoOrderRepository(db)
	if err := orders.EnsureIndexes(connectCtx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	catalog := repository.NewMongoCatalogRepository(db)

	// Métricas
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Stripe
	stripeClient, err := payment.NewStripeClient(cfg.Stripe.SecretKey, cfg.Checkout.SuccessURL, cfg.Checkout.CancelURL)
	if err != nil {
		return fmt.Errorf("stripe client: %w", err)
	}
	verifier := payment.NewVerifier(cfg.Stripe.WebhookSecret, cfg.Stripe.WebhookTolerance)

	// Notificaciones: websocket local, y Rabbit si está configurado
	hub := realtime.NewHub(log, m)
	var notifier service.OrderNotifier = hub
	if cfg.RabbitURL != "" {
		conn, err := amqp091.Dial(cfg.RabbitURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			return fmt.Errorf("open rabbitmq channel: %w", err)
		}
		if err := rabbit.SetupRelay(ch, hub, log); err != nil {
			return err
		}
		notifier = rabbit.NewPublisher(ch, log, m)
	}

	// Idempotencia de webhooks
	var store idempotency.Store = idempotency.NewMemoryStore()
	if cfg.RedisURL != "" {
		rs, err := idempotency.NewRedisStore(connectCtx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rs.Close()
		store = rs
	}
	guard, err := idempotency.NewGuard(store, idempotency.DefaultTTL, "stripe-webhook")
	if err != nil {
		return err
	}

	// Servicios
	pricing := service.NewPricing(cfg.Checkout.TaxRate)
	authService := service.NewAuthService(cfg.JWT.Secret, cfg.JWT.Issuer)
	checkoutService := service.NewCheckoutService(service.CheckoutServiceParams{
		Catalog:  catalog,
		Orders:   orders,
		Sessions: stripeClient,
		Pricing:  pricing,
		TestMode: cfg.Stripe.IsTestMode(),
		Logger:   log,
		Metrics:  m,
	})
	reconciliation := service.NewReconciliationService(service.ReconciliationServiceParams{
		Repo:     orders,
		Notifier: notifier,
		Pricing:  pricing,
		Logger:   log,
		Metrics:  m,
	})

	// Router
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := controller.NewRouter(controller.RouterParams{
		Log:       log,
		Auth:      authService,
		Checkout:  controller.NewCheckoutController(checkoutService),
		Webhook:   controller.NewWebhookController(verifier, reconciliation, guard, log),
		Orders:    controller.NewOrderController(service.NewOrderService(orders)),
		WebSocket: realtime.ServeWS(hub, authService),
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, fmt.Sprintf("storefront checkout listening on port %s (test mode: %t)", cfg.Port, cfg.Stripe.IsTestMode()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	log.Info(ctx, "shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
