package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/airport-simulator/internal/api"
	"github.com/signalsfoundry/airport-simulator/internal/config"
	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/observability"
	"github.com/signalsfoundry/airport-simulator/internal/sim/runtime"
	"github.com/signalsfoundry/airport-simulator/internal/storage"
	"github.com/signalsfoundry/airport-simulator/timectrl"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	grpcAddr := flag.String("grpc-addr", "", "TCP address the control gRPC server listens on (overrides config)")
	httpAddr := flag.String("http-addr", "", "TCP address the JSON API listens on (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (overrides config)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load config", logging.String("path", *configPath), logging.Err(err))
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.Server.GRPCAddr = *grpcAddr
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddr = *metricsAddr
	}

	grpcLis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.Server.GRPCAddr), logging.Err(err))
		os.Exit(1)
	}
	httpLis, err := net.Listen("tcp", cfg.Server.HTTPAddr)
	if err != nil {
		log.Error(ctx, "failed to listen for HTTP", logging.String("addr", cfg.Server.HTTPAddr), logging.Err(err))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(stopCtx, cfg, log, grpcLis, httpLis); err != nil {
		log.Error(ctx, "airport server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the game until ctx is done or a listener fails.
func run(ctx context.Context, cfg config.Config, log logging.Logger, grpcLis, httpLis net.Listener) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	collector, err := observability.NewGameCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	store, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := []runtime.Option{
		runtime.WithStore(store),
		runtime.WithMetricsRecorder(collector),
		runtime.WithSlot(cfg.Storage.Slot),
	}
	if cfg.Server.Seed != 0 {
		opts = append(opts, runtime.WithSeed(cfg.Server.Seed))
	}
	rt, err := runtime.New(cfg.Balance, log, opts...)
	if err != nil {
		return fmt.Errorf("init runtime: %w", err)
	}
	if _, err := observability.NewSchedulerCollector(reg, rt); err != nil {
		return fmt.Errorf("init scheduler metrics: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	clock := timectrl.NewTimeController(time.Now(), cfg.Server.Frame, cfg.ClockMode())
	clock.AddListener(func(now time.Time) {
		rt.Advance(runCtx, now)
	})
	tokens := api.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			api.RequestIDUnaryServerInterceptor(log),
			api.TracingUnaryServerInterceptor(),
			collector.UnaryServerInterceptor(),
		),
	)
	api.RegisterControlServer(server, api.NewControlService(rt, clock, tokens, log))
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(server, healthSrv)
	healthSrv.SetServingStatus(api.ControlServiceName, healthpb.HealthCheckResponse_SERVING)

	httpSrv := &http.Server{
		Handler:           api.NewRouter(api.NewHandler(rt, clock, tokens, collector, log)),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return runCtx },
	}
	metricsSrv := serveMetrics(cfg.Server.MetricsAddr, collector, log)

	errCh := make(chan error, 3)
	go func() {
		if err := server.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := clock.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("game clock: %w", err)
		}
	}()

	log.Info(ctx, "airport server started",
		logging.String("grpc_addr", grpcLis.Addr().String()),
		logging.String("http_addr", httpLis.Addr().String()),
		logging.String("clock_mode", clock.Mode.String()),
		logging.String("storage", storageName(cfg.Storage)),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	log.Info(ctx, "shutting down airport server")
	cancel()
	healthSrv.Shutdown()
	server.GracefulStop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpSrv.Shutdown(shutdownCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return runErr
}

// openStore picks the save-game store. An empty driver keeps saves in
// memory for the life of the process.
func openStore(ctx context.Context, cfg config.StorageConfig, log logging.Logger) (storage.Store, error) {
	if cfg.Driver == "" {
		log.Info(ctx, "using in-memory save store")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}
	log.Info(ctx, "opened save store", logging.String("driver", cfg.Driver))
	return store, nil
}

func storageName(cfg config.StorageConfig) string {
	if cfg.Driver == "" {
		return "memory"
	}
	return cfg.Driver
}

func serveMetrics(addr string, collector *observability.GameCollector, log logging.Logger) *http.Server {
	if collector == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
