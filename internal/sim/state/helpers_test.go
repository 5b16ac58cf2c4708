package state

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/notify"
	"github.com/signalsfoundry/airport-simulator/internal/scheduler"
	"github.com/signalsfoundry/airport-simulator/model"
)

var t0 = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

// newSessionForTest builds a Setup session with deterministic draws.
func newSessionForTest(t *testing.T, opts ...Option) (*Session, *scheduler.Queue) {
	t.Helper()
	q := scheduler.NewQueue()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	return New(model.DefaultBalance(), q, 1, logging.Noop(), opts...), q
}

// runningSession is a Running session at t0 with no timers armed and no
// flights, so tests control every arrival.
func runningSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, _ := newSessionForTest(t, opts...)
	s.runState = Running
	s.lastUpdate = t0
	return s
}

func injectFlight(s *Session, id string, ft model.FlightType, passengers int, at time.Time) *model.Flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := s.balance.FlightTypes[ft]
	f := &model.Flight{
		ID:             id,
		FlightNumber:   "TS" + id,
		Type:           ft,
		IsVIP:          ft == model.FlightVIP,
		Passengers:     passengers,
		BaseRevenue:    cfg.BaseRevenue,
		ProcessingTime: cfg.ProcessingTime,
		Airline:        "TestAir",
		CreatedAt:      at,
	}
	s.pending = append(s.pending, f)
	return f
}

// advanceBy steps the session forward in equal frames and returns the
// final instant.
func advanceBy(s *Session, from time.Time, total, frame time.Duration) time.Time {
	now := from
	for elapsed := time.Duration(0); elapsed < total; elapsed += frame {
		now = now.Add(frame)
		s.Advance(context.Background(), now)
	}
	return now
}

func countKind(ns []notify.Notification, kind notify.Kind) int {
	n := 0
	for _, v := range ns {
		if v.Kind == kind {
			n++
		}
	}
	return n
}

func within(got, want, eps float64) bool {
	d := got - want
	return d <= eps && d >= -eps
}

type stubMetricsRecorder struct {
	stats     []Stats
	completed map[string]int
	commands  map[string]int
	gameOvers map[string]int
	ticks     int
}

func newStubMetricsRecorder() *stubMetricsRecorder {
	return &stubMetricsRecorder{
		completed: map[string]int{},
		commands:  map[string]int{},
		gameOvers: map[string]int{},
	}
}

func (r *stubMetricsRecorder) SetSessionStats(stats Stats)      { r.stats = append(r.stats, stats) }
func (r *stubMetricsRecorder) IncFlightsCompleted(match string) { r.completed[match]++ }
func (r *stubMetricsRecorder) IncCommand(command, result string) {
	r.commands[command+"/"+result]++
}
func (r *stubMetricsRecorder) IncGameOver(cause string)    { r.gameOvers[cause]++ }
func (r *stubMetricsRecorder) ObserveTick(d time.Duration) { r.ticks++ }

func (r *stubMetricsRecorder) last() Stats {
	if len(r.stats) == 0 {
		return Stats{}
	}
	return r.stats[len(r.stats)-1]
}
