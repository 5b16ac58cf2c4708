package core

import (
	"errors"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/signalsfoundry/airport-simulator/model"
)

var (
	// ErrGateBusy indicates the gate already holds a flight.
	ErrGateBusy = errors.New("gate is busy")
	// ErrFlightAssigned indicates the flight is already at a gate.
	ErrFlightAssigned = errors.New("flight already assigned")
)

// Match is the quality of a flight-to-gate pairing.
type Match string

const (
	MatchPerfect Match = "perfect"
	MatchGood    Match = "good"
	MatchPoor    Match = "poor"
)

var (
	perfectFactor = decimal.RequireFromString("1.2")
	goodFactor    = decimal.NewFromInt(1)
	poorFactor    = decimal.RequireFromString("0.7")
)

// ClassifyMatch grades passengers p against gate capacity c: poor when the
// flight overflows, perfect at 70% to 100% load, good below that.
func ClassifyMatch(passengers, capacity int) Match {
	if passengers > capacity {
		return MatchPoor
	}
	if passengers*10 >= capacity*7 {
		return MatchPerfect
	}
	return MatchGood
}

// RevenueFactor is the multiplier applied to base revenue for m.
func (m Match) RevenueFactor() decimal.Decimal {
	switch m {
	case MatchPerfect:
		return perfectFactor
	case MatchPoor:
		return poorFactor
	default:
		return goodFactor
	}
}

// ProcessingDuration scales a flight's base processing time by the speed
// multiplier and the weather delay factor in force at assignment.
func ProcessingDuration(base time.Duration, speed, delay float64) time.Duration {
	return time.Duration(math.Round(float64(base) * speed * delay))
}

// AssignFlight starts processing f at g. Both are left untouched on error.
func AssignFlight(g *model.Gate, f *model.Flight, now time.Time, duration time.Duration) (Match, error) {
	if !g.Available() {
		return "", ErrGateBusy
	}
	if f.Assigned() {
		return "", ErrFlightAssigned
	}
	g.AssignedFlight = f
	g.IsProcessing = true
	g.ProcessingStart = now
	g.ProcessingDuration = duration
	f.AssignedGate = g.ID
	return ClassifyMatch(f.Passengers, g.Capacity), nil
}

// ReleaseGate detaches the finished flight from g. It returns false when the
// gate holds nothing, so a second call is a no-op.
func ReleaseGate(g *model.Gate) (*model.Flight, bool) {
	f := g.AssignedFlight
	if f == nil {
		return nil, false
	}
	g.Clear()
	return f, true
}
