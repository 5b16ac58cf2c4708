package core

import (
	"fmt"

	"github.com/signalsfoundry/airport-simulator/model"
)

const gatesPerTerminal = 3

// GateID is the id of the n-th gate, counting from 1.
func GateID(n int) string {
	return fmt.Sprintf("G%d", n)
}

// GateName labels the n-th gate: three gates per terminal letter, so gates
// 1-3 are A1-A3, 4-6 are B1-B3 and so on.
func GateName(n int) string {
	idx := n - 1
	letter := rune('A' + (idx/gatesPerTerminal)%26)
	return fmt.Sprintf("Gate %c%d", letter, idx%gatesPerTerminal+1)
}

// NewGate builds the n-th gate of type t.
func NewGate(n int, t model.GateType, capacity int) *model.Gate {
	return &model.Gate{
		ID:       GateID(n),
		Name:     GateName(n),
		Type:     t,
		Capacity: capacity,
	}
}
