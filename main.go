package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	appCascade "github.com/froome/fulfillment/internal/application/cascade"
	appInventory "github.com/froome/fulfillment/internal/application/inventory"
	appOrder "github.com/froome/fulfillment/internal/application/order"
	appOrderItem "github.com/froome/fulfillment/internal/application/orderitem"
	appPayment "github.com/froome/fulfillment/internal/application/payment"
	appProduct "github.com/froome/fulfillment/internal/application/product"
	appUser "github.com/froome/fulfillment/internal/application/user"
	"github.com/froome/fulfillment/internal/config"
	"github.com/froome/fulfillment/internal/infrastructure/audit"
	"github.com/froome/fulfillment/internal/infrastructure/authtoken"
	"github.com/froome/fulfillment/internal/infrastructure/hash"
	"github.com/froome/fulfillment/internal/infrastructure/id"
	"github.com/froome/fulfillment/internal/infrastructure/memory"
	"github.com/froome/fulfillment/internal/infrastructure/observability/oteltrace"
	"github.com/froome/fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/froome/fulfillment/internal/infrastructure/observability/telemetry"
	"github.com/froome/fulfillment/internal/infrastructure/observability/zaplogger"
	"github.com/froome/fulfillment/internal/infrastructure/outbox"
	"github.com/froome/fulfillment/internal/observability"
	"github.com/froome/fulfillment/internal/pkg/locker"
	httppresentation "github.com/froome/fulfillment/internal/presentation/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := zaplogger.New(cfg.LogFile, observability.F("service", "fulfillment"))
	if s, ok := baseLogger.(interface{ Sync() error }); ok {
		defer func() { _ = s.Sync() }()
	}

	metrics := prometrics.New("fulfillment", "")
	counters := map[string]observability.Counter{
		observability.MetricUsecaseRequests: metrics.Counter(
			observability.MetricUsecaseRequests,
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MetricHTTPRequests: metrics.Counter(
			observability.MetricHTTPRequests,
			"Total number of HTTP requests served.",
			"method", "route", "status",
		),
		observability.MetricDomainEvents: metrics.Counter(
			observability.MetricDomainEvents,
			"Total number of domain events observed on the bus.",
			"event",
		),
		observability.MetricCascadeSteps: metrics.Counter(
			observability.MetricCascadeSteps,
			"Cascade deletion steps by outcome.",
			"step", "outcome",
		),
	}
	histograms := map[string]observability.Histogram{
		observability.MetricUsecaseDuration: metrics.Histogram(
			observability.MetricUsecaseDuration,
			"Duration of use case execution in seconds.",
			nil,
			"use_case",
		),
		observability.MetricHTTPRequestDuration: metrics.Histogram(
			observability.MetricHTTPRequestDuration,
			"Duration of HTTP requests in seconds.",
			nil,
			"method", "route", "status",
		),
	}
	tel := telemetry.New(oteltrace.New("fulfillment"), baseLogger, counters, histograms)

	userRepo := memory.NewUserRepository()
	productRepo := memory.NewProductRepository()
	orderRepo := memory.NewOrderRepository()
	itemRepo := memory.NewOrderItemRepository()
	paymentRepo := memory.NewPaymentRepository()

	bus := outbox.NewBus(baseLogger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	locks := locker.New()
	idGen := id.NewUUIDGenerator()
	hasher := hash.NewBcryptHasher()

	ledger := appInventory.NewLedger(productRepo, bus, baseLogger)
	userService := appUser.NewService(userRepo, hasher, idGen, tel)
	productService := appProduct.NewService(productRepo, ledger, idGen, tel)
	orderService := appOrder.NewService(orderRepo, itemRepo, userRepo, ledger, locks, idGen, bus, tel)
	itemService := appOrderItem.NewService(orderRepo, itemRepo, productRepo, ledger, locks, idGen, tel)
	paymentService := appPayment.NewService(paymentRepo, orderRepo, itemRepo, productRepo, locks, idGen, bus, tel)
	cascadeService := appCascade.NewCoordinator(orderRepo, itemRepo, paymentRepo, userRepo, ledger, locks, bus, tel)

	auditWorker := audit.New(bus, tel)
	auditWorker.Start()

	tokens := authtoken.NewStore()
	seedAdmin(cfg, userService, baseLogger)

	handler := httppresentation.NewHandler(
		userService, productService, orderService, itemService,
		paymentService, cascadeService, tokens, tokens, tel,
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error",
				observability.F("error", err.Error()),
			)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error",
			observability.F("error", err.Error()),
		)
	} else {
		baseLogger.Info("http_server_stopped")
	}
}

// seedAdmin provisions the bootstrap admin account when ADMIN_PASSWORD is
// set. Without it every caller starts unprivileged.
func seedAdmin(cfg config.Config, users *appUser.Service, log observability.Logger) {
	if cfg.AdminPassword == "" {
		return
	}
	u, err := users.Register(context.Background(), appUser.RegisterInput{
		Username: "admin",
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Admin:    true,
	})
	if err != nil {
		log.Warn("admin_seed_failed", observability.F("error", err.Error()))
		return
	}
	log.Info("admin_seeded", observability.F("user_id", u.ID))
}
