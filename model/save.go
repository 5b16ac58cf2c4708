package model

import "time"

// SavedGate is the persisted shape of a gate.
type SavedGate struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Capacity int      `json:"capacity"`
	Type     GateType `json:"type"`
}

// SaveData is the snapshot handed to the storage collaborator. In-flight
// work, pending flights and alerts are not persisted.
type SaveData struct {
	Cash              int         `json:"cash"`
	Satisfaction      float64     `json:"satisfaction"`
	Reputation        int         `json:"reputation"`
	Day               int         `json:"day"`
	FlightsCompleted  int         `json:"flightsCompleted"`
	PurchasedUpgrades []string    `json:"purchasedUpgrades"`
	Gates             []SavedGate `json:"gates"`
	SavedAt           time.Time   `json:"timestamp"`
}
