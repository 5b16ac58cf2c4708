package core

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/signalsfoundry/airport-simulator/model"
)

func TestClassifyMatch(t *testing.T) {
	cases := []struct {
		passengers, capacity int
		want                 Match
	}{
		{passengers: 151, capacity: 150, want: MatchPoor},
		{passengers: 150, capacity: 150, want: MatchPerfect},
		{passengers: 105, capacity: 150, want: MatchPerfect},
		{passengers: 104, capacity: 150, want: MatchGood},
		{passengers: 70, capacity: 100, want: MatchPerfect},
		{passengers: 69, capacity: 100, want: MatchGood},
		{passengers: 80, capacity: 100, want: MatchPerfect},
		{passengers: 0, capacity: 150, want: MatchGood},
	}
	for _, tc := range cases {
		if got := ClassifyMatch(tc.passengers, tc.capacity); got != tc.want {
			t.Fatalf("ClassifyMatch(%d, %d) = %s, want %s", tc.passengers, tc.capacity, got, tc.want)
		}
	}
}

func TestProcessingDuration(t *testing.T) {
	if got := ProcessingDuration(15*time.Second, 1, 1); got != 15*time.Second {
		t.Fatalf("ProcessingDuration clear = %v, want 15s", got)
	}
	if got := ProcessingDuration(25*time.Second, 0.8, 1.5); got != 30*time.Second {
		t.Fatalf("ProcessingDuration storm with runway = %v, want 30s", got)
	}
}

func TestAssignFlightStartsProcessing(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGate(1, model.GateSmall, 150)
	f := &model.Flight{ID: "f1", Passengers: 120}

	m, err := AssignFlight(g, f, now, 15*time.Second)
	if err != nil {
		t.Fatalf("AssignFlight error: %v", err)
	}
	if m != MatchPerfect {
		t.Fatalf("match = %s, want perfect", m)
	}
	if !g.IsProcessing || g.AssignedFlight != f {
		t.Fatalf("gate not processing after assign: %+v", g)
	}
	if f.AssignedGate != "G1" {
		t.Fatalf("flight.AssignedGate = %q, want G1", f.AssignedGate)
	}
	if got := g.Progress(now.Add(5 * time.Second)); got < 0.33 || got > 0.34 {
		t.Fatalf("Progress after 5s = %v, want ~1/3", got)
	}
	if got := g.Progress(now.Add(time.Minute)); got != 1 {
		t.Fatalf("Progress past end = %v, want 1", got)
	}
}

func TestAssignFlightBusyGateUnchanged(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGate(1, model.GateSmall, 150)
	first := &model.Flight{ID: "f1", Passengers: 60}
	if _, err := AssignFlight(g, first, now, 10*time.Second); err != nil {
		t.Fatalf("first AssignFlight error: %v", err)
	}

	before := *g
	second := &model.Flight{ID: "f2", Passengers: 60}
	_, err := AssignFlight(g, second, now.Add(time.Second), 10*time.Second)
	if !errors.Is(err, ErrGateBusy) {
		t.Fatalf("AssignFlight on busy gate err = %v, want ErrGateBusy", err)
	}
	if !reflect.DeepEqual(before, *g) {
		t.Fatalf("gate mutated by failed assign: before %+v after %+v", before, *g)
	}
	if second.Assigned() {
		t.Fatalf("second flight marked assigned")
	}
}

func TestAssignFlightAlreadyAssigned(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &model.Flight{ID: "f1", Passengers: 60, AssignedGate: "G2"}
	g := NewGate(1, model.GateSmall, 150)
	if _, err := AssignFlight(g, f, now, time.Second); !errors.Is(err, ErrFlightAssigned) {
		t.Fatalf("err = %v, want ErrFlightAssigned", err)
	}
	if !g.Available() {
		t.Fatalf("gate should stay available")
	}
}

func TestReleaseGateOnce(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewGate(1, model.GateSmall, 150)
	f := &model.Flight{ID: "f1", Passengers: 60}
	if _, err := AssignFlight(g, f, now, time.Second); err != nil {
		t.Fatalf("AssignFlight error: %v", err)
	}

	got, ok := ReleaseGate(g)
	if !ok || got != f {
		t.Fatalf("ReleaseGate = (%v, %v), want (f1, true)", got, ok)
	}
	if !g.Available() || g.IsProcessing {
		t.Fatalf("gate not cleared: %+v", g)
	}
	if _, ok := ReleaseGate(g); ok {
		t.Fatalf("second ReleaseGate should be a no-op")
	}
}

func TestGateNaming(t *testing.T) {
	cases := map[int]string{
		1: "Gate A1",
		3: "Gate A3",
		4: "Gate B1",
		6: "Gate B3",
		8: "Gate C2",
	}
	for n, want := range cases {
		if got := GateName(n); got != want {
			t.Fatalf("GateName(%d) = %q, want %q", n, got, want)
		}
	}
	if got := GateID(7); got != "G7" {
		t.Fatalf("GateID(7) = %q, want G7", got)
	}
}
