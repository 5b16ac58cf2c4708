package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/signalsfoundry/airport-simulator/core"
	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/sim/state"
	"github.com/signalsfoundry/airport-simulator/model"
)

func TestBestGatePrefersTightestGoodFit(t *testing.T) {
	free := []state.GateView{
		{ID: "G1", Capacity: 400},
		{ID: "G2", Capacity: 150},
		{ID: "G3", Capacity: 250},
	}

	i, m := bestGate(state.FlightView{Passengers: 140}, free)
	if free[i].ID != "G2" {
		t.Fatalf("bestGate picked %s, want G2", free[i].ID)
	}
	if m != core.ClassifyMatch(140, 150) {
		t.Fatalf("match = %s, want %s", m, core.ClassifyMatch(140, 150))
	}

	i, m = bestGate(state.FlightView{Passengers: 500}, free)
	if m != core.MatchPoor || free[i].ID != "G2" {
		t.Fatalf("overloaded flight got %s at %s, want poor at smallest gate G2", m, free[i].ID)
	}
}

func TestPriorityOrdersEmergencyThenVIPThenWaiting(t *testing.T) {
	queue := []state.FlightView{
		{ID: "a", WaitingTime: 30},
		{ID: "b", IsVIP: true, WaitingTime: 1},
		{ID: "c", WaitingTime: 50},
		{ID: "d", IsEmergency: true},
	}

	got := priority(queue)
	want := []string{"d", "b", "c", "a"}
	for i, f := range got {
		if f.ID != want[i] {
			t.Fatalf("priority[%d] = %s, want %s", i, f.ID, want[i])
		}
	}
	if queue[0].ID != "a" {
		t.Fatalf("priority reordered its input")
	}
}

func TestSimulateRunsDaysWithAutopilot(t *testing.T) {
	var out bytes.Buffer
	opts := simOptions{
		Balance:     model.DefaultBalance(),
		Duration:    10 * time.Minute,
		Tick:        250 * time.Millisecond,
		Accelerated: true,
		Seed:        42,
		Reserve:     40000,
	}

	snap, err := simulate(context.Background(), opts, logging.Noop(), &out)
	if err != nil {
		t.Fatalf("simulate error: %v", err)
	}
	if snap.Stats.FlightsCompleted == 0 {
		t.Fatalf("autopilot completed no flights\n%s", out.String())
	}
	if snap.Stats.Day < 3 {
		t.Fatalf("day = %d after 10 minutes, want >= 3", snap.Stats.Day)
	}
	if !strings.Contains(out.String(), "Day 2:") {
		t.Fatalf("output missing day 2 summary:\n%s", out.String())
	}
}
