package model

import "time"

// FlightType identifies one of the arrival categories.
type FlightType string

const (
	FlightDomestic      FlightType = "DOMESTIC"
	FlightInternational FlightType = "INTERNATIONAL"
	FlightCargo         FlightType = "CARGO"
	FlightVIP           FlightType = "VIP"
)

// Flight is a unit of work that arrives, waits, is processed at a gate and
// then completes.
//
// A flight is in exactly one of three places: pending without a gate,
// assigned to a gate, or completed and gone from the session.
type Flight struct {
	ID             string
	FlightNumber   string
	Type           FlightType
	IsEmergency    bool
	IsVIP          bool
	Passengers     int
	BaseRevenue    int
	ProcessingTime time.Duration
	Airline        string
	CreatedAt      time.Time

	// AssignedGate is the id of the gate processing this flight. The gate
	// owns the flight; this is only a back-reference.
	AssignedGate string

	// WaitingTime accumulates seconds spent pending without a gate.
	WaitingTime float64
}

// Assigned reports whether a gate has taken the flight.
func (f *Flight) Assigned() bool {
	return f != nil && f.AssignedGate != ""
}

// Clone returns a detached copy safe to hand to read-only collaborators.
func (f *Flight) Clone() *Flight {
	if f == nil {
		return nil
	}
	cp := *f
	return &cp
}
