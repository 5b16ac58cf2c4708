package state

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/notify"
	"github.com/signalsfoundry/airport-simulator/internal/scheduler"
	"github.com/signalsfoundry/airport-simulator/model"
)

func TestNewSessionStartingValues(t *testing.T) {
	s, _ := newSessionForTest(t)
	if s.RunState() != Setup {
		t.Fatalf("RunState = %s, want setup", s.RunState())
	}
	st := s.Stats()
	if st.Cash != 80000 || st.Satisfaction != 100 || st.Reputation != 50 || st.Day != 1 || st.FlightsCompleted != 0 {
		t.Fatalf("unexpected starting stats %+v", st)
	}
	snap := s.Snapshot(t0)
	if len(snap.Gates) != 3 {
		t.Fatalf("gates = %d, want 3", len(snap.Gates))
	}
	for i, want := range []string{"Gate A1", "Gate A2", "Gate A3"} {
		g := snap.Gates[i]
		if g.Name != want || g.Capacity != 150 || g.Type != model.GateSmall || !g.Available {
			t.Fatalf("gate %d = %+v, want %s small/150 available", i, g, want)
		}
	}
	if snap.Weather.Weather != model.WeatherClear {
		t.Fatalf("weather = %s, want clear", snap.Weather.Weather)
	}
	if snap.Multipliers != model.NeutralMultipliers() {
		t.Fatalf("multipliers = %+v, want neutral", snap.Multipliers)
	}
	if s.ID() == "" || s.Generation() != 1 {
		t.Fatalf("id=%q generation=%d", s.ID(), s.Generation())
	}
}

func TestStartArmsTimersAndSpawnsFirstFlight(t *testing.T) {
	s, _ := newSessionForTest(t)
	ctx := context.Background()

	if err := s.Start(ctx, t0); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	if s.RunState() != Running {
		t.Fatalf("RunState = %s, want running", s.RunState())
	}
	if got := len(s.Snapshot(t0).Queue); got != 1 {
		t.Fatalf("pending after start = %d, want 1", got)
	}

	kinds := map[scheduler.Kind]time.Time{}
	for _, ev := range s.PendingTimers() {
		if ev.Kind != scheduler.KindAlertExpiry {
			kinds[ev.Kind] = ev.At
		}
	}
	if at, ok := kinds[scheduler.KindOpeningArrival]; !ok || !at.Equal(t0.Add(3*time.Second)) {
		t.Fatalf("opening arrival at %v (armed=%v), want t0+3s", at, ok)
	}
	if at, ok := kinds[scheduler.KindDay]; !ok || !at.Equal(t0.Add(180*time.Second)) {
		t.Fatalf("day timer at %v (armed=%v), want t0+180s", at, ok)
	}
	if at, ok := kinds[scheduler.KindWeather]; !ok || !at.Equal(t0.Add(60*time.Second)) {
		t.Fatalf("weather timer at %v (armed=%v), want t0+60s", at, ok)
	}
	at, ok := kinds[scheduler.KindArrival]
	if !ok || at.Before(t0.Add(8*time.Second)) || at.After(t0.Add(19*time.Second)) {
		t.Fatalf("arrival timer at %v (armed=%v), want within [8s,19s]", at, ok)
	}

	if err := s.Start(ctx, t0); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start err = %v, want ErrAlreadyStarted", err)
	}
}

func TestOpeningArrivalIsOneShot(t *testing.T) {
	s, _ := newSessionForTest(t)
	if err := s.Start(context.Background(), t0); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	now := advanceBy(s, t0, 3*time.Second, 500*time.Millisecond)
	if got := len(s.Snapshot(now).Queue); got != 2 {
		t.Fatalf("pending after opening arrival = %d, want 2", got)
	}
	for _, ev := range s.PendingTimers() {
		if ev.Kind == scheduler.KindOpeningArrival {
			t.Fatalf("opening arrival re-armed at %v", ev.At)
		}
	}
}

func TestArrivalTimerRearms(t *testing.T) {
	s, _ := newSessionForTest(t)
	if err := s.Start(context.Background(), t0); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	now := advanceBy(s, t0, 60*time.Second, time.Second)

	pending := len(s.Snapshot(now).Queue)
	// 60s holds at least three 19s intervals plus the two opening flights.
	if pending < 5 {
		t.Fatalf("pending after 60s = %d, want at least 5", pending)
	}
	armed := 0
	for _, ev := range s.PendingTimers() {
		if ev.Kind == scheduler.KindArrival {
			armed++
			if !ev.At.After(now) {
				t.Fatalf("arrival armed in the past: %v", ev.At)
			}
		}
	}
	if armed != 1 {
		t.Fatalf("armed arrival timers = %d, want 1", armed)
	}
}

func TestStaleGenerationEventsDiscarded(t *testing.T) {
	q := scheduler.NewQueue()
	s := New(model.DefaultBalance(), q, 2, logging.Noop(), WithRand(rand.New(rand.NewSource(1))))
	s.runState = Running
	s.lastUpdate = t0

	q.Schedule(t0.Add(time.Second), scheduler.KindDay, 1, "")
	s.Advance(context.Background(), t0.Add(2*time.Second))

	if got := s.Stats().Day; got != 1 {
		t.Fatalf("day = %d after stale event, want 1", got)
	}
	if got := q.Stats().Snapshot().NumStale; got != 1 {
		t.Fatalf("stale count = %d, want 1", got)
	}
}

func TestTakeNotificationsDrains(t *testing.T) {
	s := runningSession(t)
	f := injectFlight(s, "f1", model.FlightDomestic, 120, t0)
	if _, err := s.Assign(context.Background(), t0, f.ID, "G1"); err != nil {
		t.Fatalf("Assign error: %v", err)
	}
	ns := s.TakeNotifications()
	if countKind(ns, notify.FlightAssigned) != 1 {
		t.Fatalf("notifications = %+v, want one flightAssigned", ns)
	}
	if ns[0].Generation != 1 || ns[0].Subject != "f1" {
		t.Fatalf("unexpected notification %+v", ns[0])
	}
	if again := s.TakeNotifications(); len(again) != 0 {
		t.Fatalf("second TakeNotifications = %+v, want empty", again)
	}
}

func TestMetricsRecorderReceivesUpdates(t *testing.T) {
	rec := newStubMetricsRecorder()
	s := runningSession(t, WithMetricsRecorder(rec))
	ctx := context.Background()

	if got := rec.last(); got.Cash != 80000 {
		t.Fatalf("initial recorded stats %+v", got)
	}
	f := injectFlight(s, "f1", model.FlightDomestic, 120, t0)
	if _, err := s.Assign(ctx, t0, f.ID, "G1"); err != nil {
		t.Fatalf("Assign error: %v", err)
	}
	if _, err := s.Assign(ctx, t0, "missing", "G2"); err == nil {
		t.Fatalf("expected rejection for missing flight")
	}
	advanceBy(s, t0, 15*time.Second, time.Second)

	if rec.completed["perfect"] != 1 {
		t.Fatalf("completed = %v, want perfect:1", rec.completed)
	}
	if rec.commands["assign/ok"] != 1 || rec.commands["assign/rejected"] != 1 {
		t.Fatalf("commands = %v", rec.commands)
	}
	if rec.ticks != 15 {
		t.Fatalf("ticks observed = %d, want 15", rec.ticks)
	}
	if got := rec.last(); got.Cash != 89600 || got.FlightsCompleted != 1 || got.BusyGates != 0 {
		t.Fatalf("last recorded stats %+v", got)
	}
}
