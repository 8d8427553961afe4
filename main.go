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
	"go.uber.org/zap"

	appinv "github.com/vberihuete/BIU-master-oop/internal/application/inventory"
	apppay "github.com/vberihuete/BIU-master-oop/internal/application/payment"
	"github.com/vberihuete/BIU-master-oop/internal/config"
	dominv "github.com/vberihuete/BIU-master-oop/internal/domain/inventory"
	dompay "github.com/vberihuete/BIU-master-oop/internal/domain/payment"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/eventbus"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/observability/oteltrace"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/observability/prometrics"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/observability/telemetry"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/observability/zaplogger"
	"github.com/vberihuete/BIU-master-oop/internal/infrastructure/relay"
	"github.com/vberihuete/BIU-master-oop/internal/pkg/logging"
	httppresentation "github.com/vberihuete/BIU-master-oop/internal/presentation/http"
	workerpresentation "github.com/vberihuete/BIU-master-oop/internal/presentation/worker"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		LogFile: cfg.LogFile,
		Level:   cfg.LogLevel,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TracingOptions{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: cfg.ServiceVersion,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
	})
	if err != nil {
		systemLogger.Fatal("tracing_setup_failed", zap.Error(err))
	}

	instruments := prometrics.RegisterDefaults(prometrics.New("", "", prometheus.DefaultRegisterer))
	tel := telemetry.New(
		oteltrace.FromProvider(tp, cfg.ServiceName),
		zaplogger.Wrap(baseLogger),
		instruments.Counters,
		instruments.Histograms,
		instruments.Gauges,
	)

	// Synchronous notification bus; listeners run inside the publisher's call.
	bus := eventbus.New(tel)
	bus.SetEnabled(cfg.EventsEnabled)
	subscriber := workerpresentation.NewSubscriber(bus, tel)

	inventoryService := appinv.NewService(tel)
	warehouse, err := dominv.NewPhysicalLedger(cfg.WarehouseName, cfg.WarehouseLocation,
		cfg.WarehouseMaxWeight, cfg.WarehouseMaxVolume, bus)
	if err != nil {
		systemLogger.Fatal("warehouse_setup_failed", zap.Error(err))
	}
	for _, l := range []dominv.Ledger{
		warehouse,
		dominv.NewDigitalLedger(cfg.DigitalLedgerName, cfg.DigitalStorageServer, bus),
	} {
		if err := inventoryService.Register(l); err != nil {
			systemLogger.Fatal("ledger_register_failed", zap.String("ledger", l.Name()), zap.Error(err))
		}
	}
	systemLogger.Info("warehouse_ready", zap.String("summary", warehouse.Summary()))

	paymentService := apppay.NewService(bus, paymentConfig(cfg.PaymentSimulation), tel)

	stockAlerts := appinv.NewEvaluateStockUseCase(bus, cfg.LowStockThreshold, tel)
	appinv.NewStockAlertWorker(subscriber, stockAlerts, tel).Start()
	apppay.NewAuditWorker(subscriber, tel).Start()

	sink, err := newSink(cfg)
	if err != nil {
		systemLogger.Fatal("event_sink_setup_failed", zap.String("sink", cfg.EventSink), zap.Error(err))
	}
	eventRelay := relay.New(sink, cfg.ServiceName, tel)
	if cfg.EventSink != config.SinkNone {
		eventRelay.Attach(subscriber)
	}

	handler := httppresentation.NewHandler(inventoryService, paymentService, bus, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.String("event_sink", sink.Name()),
			zap.Bool("events_enabled", bus.Enabled()),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
	if err := eventRelay.Close(); err != nil {
		systemLogger.Error("event_sink_close_error", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		systemLogger.Error("tracing_shutdown_error", zap.Error(err))
	}
}

// paymentConfig maps PAYMENT_SIMULATION onto transaction decisions. Random
// keeps each method's default approval rates.
func paymentConfig(mode string) apppay.Config {
	switch mode {
	case config.PaymentApprove:
		return apppay.Config{Authorizer: dompay.Always(true), Settlement: dompay.Always(true)}
	case config.PaymentDecline:
		return apppay.Config{Authorizer: dompay.Always(false), Settlement: dompay.Always(false)}
	default:
		return apppay.Config{}
	}
}

func newSink(cfg config.Config) (relay.Sink, error) {
	switch cfg.EventSink {
	case config.SinkKafka:
		return relay.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic)
	case config.SinkAMQP:
		return relay.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
	default:
		return relay.Discard{}, nil
	}
}
