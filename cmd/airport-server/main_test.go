package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/airport-simulator/internal/api"
	"github.com/signalsfoundry/airport-simulator/internal/config"
	"github.com/signalsfoundry/airport-simulator/internal/logging"
)

func TestAirportServerStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	grpcLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}

	cfg := config.Default()
	cfg.Server.MetricsAddr = ""
	cfg.Server.Frame = 20 * time.Millisecond
	cfg.Server.Seed = 5

	log := logging.New(logging.Config{Level: "warn", Format: "text"})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, grpcLis, httpLis)
	}()

	conn, err := grpc.DialContext(ctx, grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.DialContext: %v", err)
	}
	defer conn.Close()

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: api.ControlServiceName}, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health status = %v, want SERVING", hc.GetStatus())
	}

	client := api.NewControlClient(conn)
	started, err := client.StartNewGame(ctx)
	if err != nil {
		t.Fatalf("StartNewGame: %v", err)
	}
	if !started.GetFields()["ok"].GetBoolValue() {
		t.Fatalf("StartNewGame = %v, want ok", started)
	}

	resp, err := http.Get("http://" + httpLis.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200", resp.StatusCode)
	}

	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("server returned error: %v", err)
	}
}
