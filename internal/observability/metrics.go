package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/airport-simulator/internal/sim/state"
)

// GameCollector bundles Prometheus metrics for the game session and its
// control surfaces. It implements state.MetricsRecorder.
type GameCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests   *prometheus.CounterVec
	RPCDurations  *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	Cash           prometheus.Gauge
	Satisfaction   prometheus.Gauge
	Reputation     prometheus.Gauge
	Day            prometheus.Gauge
	PendingFlights prometheus.Gauge
	BusyGates      prometheus.Gauge

	FlightsCompleted *prometheus.CounterVec
	Commands         *prometheus.CounterVec
	GameOvers        *prometheus.CounterVec
	TickDuration     prometheus.Histogram
}

var _ state.MetricsRecorder = (*GameCollector)(nil)

// NewGameCollector registers game metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewGameCollector(reg prometheus.Registerer) (*GameCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &GameCollector{gatherer: gatherer}

	var err error
	if c.RPCRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airport_rpc_requests_total",
		Help: "Total number of handled control RPCs, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "airport_rpc_requests_total"); err != nil {
		return nil, err
	}
	if c.RPCDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airport_rpc_request_duration_seconds",
		Help:    "Control RPC latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "method"}), "airport_rpc_request_duration_seconds"); err != nil {
		return nil, err
	}
	if c.HTTPRequests, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airport_http_requests_total",
		Help: "Total number of HTTP API requests, labeled by route, method, and status code.",
	}, []string{"route", "method", "code"}), "airport_http_requests_total"); err != nil {
		return nil, err
	}
	if c.HTTPDurations, err = registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "airport_http_request_duration_seconds",
		Help:    "HTTP API latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"route", "method"}), "airport_http_request_duration_seconds"); err != nil {
		return nil, err
	}

	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Cash, "airport_cash", "Current cash balance of the live session."},
		{&c.Satisfaction, "airport_satisfaction", "Current passenger satisfaction (0-100)."},
		{&c.Reputation, "airport_reputation", "Current airport reputation."},
		{&c.Day, "airport_day", "Current in-game day."},
		{&c.PendingFlights, "airport_pending_flights", "Flights waiting or at a gate."},
		{&c.BusyGates, "airport_busy_gates", "Gates currently processing a flight."},
	}
	for _, g := range gauges {
		if *g.dst, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name); err != nil {
			return nil, err
		}
	}

	if c.FlightsCompleted, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airport_flights_completed_total",
		Help: "Flights completed, labeled by gate match quality.",
	}, []string{"match"}), "airport_flights_completed_total"); err != nil {
		return nil, err
	}
	if c.Commands, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airport_commands_total",
		Help: "Player commands, labeled by command and result.",
	}, []string{"command", "result"}), "airport_commands_total"); err != nil {
		return nil, err
	}
	if c.GameOvers, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "airport_game_overs_total",
		Help: "Sessions ended, labeled by cause.",
	}, []string{"cause"}), "airport_game_overs_total"); err != nil {
		return nil, err
	}
	if c.TickDuration, err = registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "airport_tick_duration_seconds",
		Help:    "Time spent advancing the session by one frame.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
	}), "airport_tick_duration_seconds"); err != nil {
		return nil, err
	}

	return c, nil
}

// SetSessionStats mirrors the session's headline figures into the gauges.
func (c *GameCollector) SetSessionStats(s state.Stats) {
	if c == nil {
		return
	}
	c.Cash.Set(float64(s.Cash))
	c.Satisfaction.Set(s.Satisfaction)
	c.Reputation.Set(float64(s.Reputation))
	c.Day.Set(float64(s.Day))
	c.PendingFlights.Set(float64(s.PendingFlights))
	c.BusyGates.Set(float64(s.BusyGates))
}

func (c *GameCollector) IncFlightsCompleted(match string) {
	if c == nil {
		return
	}
	c.FlightsCompleted.WithLabelValues(match).Inc()
}

func (c *GameCollector) IncCommand(command, result string) {
	if c == nil {
		return
	}
	c.Commands.WithLabelValues(command, result).Inc()
}

func (c *GameCollector) IncGameOver(cause string) {
	if c == nil {
		return
	}
	c.GameOvers.WithLabelValues(cause).Inc()
}

func (c *GameCollector) ObserveTick(d time.Duration) {
	if c == nil {
		return
	}
	c.TickDuration.Observe(d.Seconds())
}

// ObserveHTTP records one HTTP API request against its route template.
func (c *GameCollector) ObserveHTTP(route, method string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(route, method).Observe(d.Seconds())
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *GameCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		c.RPCRequests.WithLabelValues(service, method, code).Inc()
		c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *GameCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
