package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appanalytics "github.com/pivend/vend/internal/application/analytics"
	appdevice "github.com/pivend/vend/internal/application/device"
	appinventory "github.com/pivend/vend/internal/application/inventory"
	appvending "github.com/pivend/vend/internal/application/vending"
	"github.com/pivend/vend/internal/config"
	domdevice "github.com/pivend/vend/internal/domain/device"
	domhardware "github.com/pivend/vend/internal/domain/hardware"
	dominventory "github.com/pivend/vend/internal/domain/inventory"
	dompayment "github.com/pivend/vend/internal/domain/payment"
	domsale "github.com/pivend/vend/internal/domain/sale"
	domtelemetry "github.com/pivend/vend/internal/domain/telemetry"
	infrabus "github.com/pivend/vend/internal/infrastructure/bus"
	"github.com/pivend/vend/internal/infrastructure/hardware"
	"github.com/pivend/vend/internal/infrastructure/httptransport"
	"github.com/pivend/vend/internal/infrastructure/id"
	"github.com/pivend/vend/internal/infrastructure/memory"
	"github.com/pivend/vend/internal/infrastructure/monitor"
	"github.com/pivend/vend/internal/infrastructure/observability/oteltrace"
	"github.com/pivend/vend/internal/infrastructure/observability/prometrics"
	"github.com/pivend/vend/internal/infrastructure/observability/telemetryprovider"
	"github.com/pivend/vend/internal/infrastructure/observability/zaplogger"
	"github.com/pivend/vend/internal/infrastructure/sqlite"
	infratelemetry "github.com/pivend/vend/internal/infrastructure/telemetry"
	"github.com/pivend/vend/internal/observability"
)

type repositories struct {
	inventory dominventory.Repository
	sales     domsale.Repository
	readings  domtelemetry.Repository
	device    domdevice.Repository
	close     func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	baseLogger := zaplogger.New(
		observability.F("service", cfg.ServiceName),
		observability.F("env", cfg.Env),
	)
	defer func() {
		if s, ok := baseLogger.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()

	tel := newObservability(cfg, baseLogger)
	systemLogger := tel.Logger().With(observability.F("component", "main"))

	repos, err := newRepositories(cfg)
	if err != nil {
		systemLogger.Error("store_init_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = repos.close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventBus := infrabus.New(baseLogger)
	eventBus.Start(ctx)
	defer eventBus.Stop(context.Background())

	driver, err := newDriver(cfg, baseLogger)
	if err != nil {
		systemLogger.Error("hardware_init_failed", observability.F("error", err.Error()))
		os.Exit(1)
	}
	idGenerator := id.NewUUIDGenerator()

	inventoryService := appinventory.NewService(repos.inventory, idGenerator, eventBus, baseLogger)
	purchaseUseCase := appvending.NewPurchaseUseCase(
		inventoryService,
		repos.sales,
		dompayment.NewStaticAuthorizer(),
		driver,
		idGenerator,
		eventBus,
		tel,
	)
	analyticsService := appanalytics.NewService(repos.sales, repos.inventory, repos.readings)
	deviceService := appdevice.NewService(repos.device, driver, baseLogger)
	captureService := appdevice.NewCaptureService(repos.readings, driver, idGenerator, baseLogger)

	stockMonitor := monitor.New(eventBus, cfg.LowStockThreshold, tel)
	stockMonitor.Start()

	if cfg.TelemetryEnabled {
		poller := infratelemetry.NewPoller(captureService, cfg.TelemetryInterval, baseLogger)
		poller.Start(ctx)
		defer poller.Stop()
	}

	handler := httptransport.NewHandler(
		purchaseUseCase,
		inventoryService,
		analyticsService,
		deviceService,
		captureService,
		tel,
	)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		systemLogger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", observability.F("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

func newDriver(cfg config.Config, logger observability.Logger) (domhardware.Driver, error) {
	switch cfg.HardwareMode {
	case config.HardwareMock:
		return hardware.NewMockDriver(logger), nil
	default:
		return nil, fmt.Errorf("unknown hardware mode %q", cfg.HardwareMode)
	}
}

func newRepositories(cfg config.Config) (*repositories, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &repositories{
			inventory: store.Inventory(),
			sales:     store.Sales(),
			readings:  store.Telemetry(),
			device:    store.Device(),
			close:     store.Close,
		}, nil
	default:
		return &repositories{
			inventory: memory.NewInventoryRepository(),
			sales:     memory.NewSaleRepository(),
			readings:  memory.NewTelemetryRepository(),
			device:    memory.NewDeviceRepository(),
			close:     func() error { return nil },
		}, nil
	}
}

func newObservability(cfg config.Config, logger observability.Logger) observability.Observability {
	registry := prometrics.New(cfg.ServiceName, "")

	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: registry.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MHTTPRequests: registry.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"route", "method", "status",
		),
		observability.MDispenseFailures: registry.Counter(
			string(observability.MDispenseFailures),
			"Count of hardware dispense failures.",
			"slot_code",
		),
		observability.MStockCompensations: registry.Counter(
			string(observability.MStockCompensations),
			"Count of stock reservations rolled back after dispense failures.",
			"slot_code",
		),
		observability.MStockLevelWarnings: registry.Counter(
			string(observability.MStockLevelWarnings),
			"Count of low-stock warnings emitted.",
			"slot_code",
		),
		observability.MSalesRecorded: registry.Counter(
			string(observability.MSalesRecorded),
			"Count of sale records written, by outcome.",
			"status",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: registry.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			prometheus.DefBuckets,
			"use_case",
		),
		observability.MHTTPRequestDuration: registry.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP request handling in seconds.",
			prometheus.DefBuckets,
			"route",
		),
	}

	return telemetryprovider.New(oteltrace.New(cfg.ServiceName), logger, counters, histograms)
}
