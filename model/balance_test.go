package model

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultBalanceValid(t *testing.T) {
	if err := DefaultBalance().Validate(); err != nil {
		t.Fatalf("DefaultBalance().Validate() = %v", err)
	}
}

func TestBalanceValidateRejects(t *testing.T) {
	cases := map[string]func(*Balance){
		"max below min":        func(b *Balance) { b.MaxArrivalInterval = b.MinArrivalInterval - time.Second },
		"zero day":             func(b *Balance) { b.DayLength = 0 },
		"satisfaction range":   func(b *Balance) { b.StartingSatisfaction = 120 },
		"inverted cash band":   func(b *Balance) { b.WarningCashRelease = b.WarningCash - 1 },
		"no weather":           func(b *Balance) { b.Weather = nil },
		"missing flight type":  func(b *Balance) { delete(b.FlightTypes, FlightCargo) },
		"duplicate upgrade id": func(b *Balance) { b.Upgrades = append(b.Upgrades, b.Upgrades[0]) },
		"missing gate size":    func(b *Balance) { delete(b.GateCapacities, GateMedium) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			b := DefaultBalance()
			mutate(&b)
			if err := b.Validate(); !errors.Is(err, ErrInvalidBalance) {
				t.Fatalf("Validate() = %v, want ErrInvalidBalance", err)
			}
		})
	}
}

func TestMultipliersApply(t *testing.T) {
	m := NeutralMultipliers()
	if !m.Apply(EffectRevenue, 1.25) || m.Revenue != 1.25 {
		t.Fatalf("revenue multiplier = %v, want 1.25", m.Revenue)
	}
	if !m.Apply(EffectProcessingSpeed, 0.8) || m.ProcessingSpeed != 0.8 {
		t.Fatalf("speed multiplier = %v, want 0.8", m.ProcessingSpeed)
	}
	if m.Apply(EffectAddGates, 2) {
		t.Fatalf("Apply(addGates) should report false")
	}
	if m.Satisfaction != 1 || m.OperatingCost != 1 {
		t.Fatalf("untouched multipliers changed: %+v", m)
	}
}

func TestGateLifecycle(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	g := &Gate{ID: "G1", Capacity: 150}
	if !g.Available() || g.Progress(start) != 0 {
		t.Fatalf("fresh gate should be idle: %+v", g)
	}
	g.AssignedFlight = &Flight{ID: "f1"}
	g.IsProcessing = true
	g.ProcessingStart = start
	g.ProcessingDuration = 10 * time.Second

	if g.Done(start.Add(9 * time.Second)) {
		t.Fatalf("Done before duration elapsed")
	}
	if !g.Done(start.Add(10 * time.Second)) {
		t.Fatalf("Done should be true once duration elapsed")
	}
	if got := g.Progress(start.Add(5 * time.Second)); got != 0.5 {
		t.Fatalf("Progress = %v, want 0.5", got)
	}
	g.Clear()
	if !g.Available() || g.IsProcessing || g.AssignedFlight != nil {
		t.Fatalf("Clear left state behind: %+v", g)
	}
}
