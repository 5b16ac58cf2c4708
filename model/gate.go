package model

import "time"

// GateType is the size class of a gate.
type GateType string

const (
	GateSmall  GateType = "SMALL"
	GateMedium GateType = "MEDIUM"
	GateLarge  GateType = "LARGE"
)

// Gate is a processing slot that holds at most one flight.
//
// IsProcessing is true exactly when AssignedFlight is non-nil; only the
// allocation and completion paths in core change either field.
type Gate struct {
	ID       string
	Name     string
	Type     GateType
	Capacity int

	AssignedFlight     *Flight
	IsProcessing       bool
	ProcessingStart    time.Time
	ProcessingDuration time.Duration
}

// Available reports whether the gate can accept a flight.
func (g *Gate) Available() bool {
	return g.AssignedFlight == nil && !g.IsProcessing
}

// Progress returns the processed fraction in [0,1] at the given instant.
func (g *Gate) Progress(now time.Time) float64 {
	if !g.IsProcessing || g.ProcessingDuration <= 0 {
		return 0
	}
	elapsed := now.Sub(g.ProcessingStart)
	if elapsed <= 0 {
		return 0
	}
	p := float64(elapsed) / float64(g.ProcessingDuration)
	if p > 1 {
		return 1
	}
	return p
}

// Done reports whether the processing window has elapsed.
func (g *Gate) Done(now time.Time) bool {
	return g.IsProcessing && now.Sub(g.ProcessingStart) >= g.ProcessingDuration
}

// Clear releases the gate's flight and resets processing state.
func (g *Gate) Clear() {
	g.AssignedFlight = nil
	g.IsProcessing = false
	g.ProcessingStart = time.Time{}
	g.ProcessingDuration = 0
}
