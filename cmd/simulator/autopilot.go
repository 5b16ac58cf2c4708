package main

import (
	"context"
	"sort"
	"time"

	"github.com/signalsfoundry/airport-simulator/core"
	"github.com/signalsfoundry/airport-simulator/internal/sim/runtime"
	"github.com/signalsfoundry/airport-simulator/internal/sim/state"
)

// autopilot plays the game greedily: every step it routes waiting flights
// to the best free gate and buys upgrades it can afford above a cash
// reserve.
type autopilot struct {
	rt *runtime.Runtime
	// reserve is the cash kept back when buying upgrades.
	reserve int
	// poorAfter is how long a flight waits before an overloaded gate is
	// acceptable.
	poorAfter time.Duration
}

var matchRank = map[core.Match]int{
	core.MatchPerfect: 0,
	core.MatchGood:    1,
	core.MatchPoor:    2,
}

// bestGate picks the free gate with the best match for f. Among equal
// matches the smallest gate wins so large gates stay open.
func bestGate(f state.FlightView, free []state.GateView) (int, core.Match) {
	best := -1
	var bestMatch core.Match
	for i, g := range free {
		m := core.ClassifyMatch(f.Passengers, g.Capacity)
		if best < 0 || matchRank[m] < matchRank[bestMatch] ||
			(m == bestMatch && g.Capacity < free[best].Capacity) {
			best, bestMatch = i, m
		}
	}
	return best, bestMatch
}

// priority orders the queue: emergencies, then VIPs, then longest waiting.
func priority(queue []state.FlightView) []state.FlightView {
	out := append([]state.FlightView(nil), queue...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsEmergency != b.IsEmergency {
			return a.IsEmergency
		}
		if a.IsVIP != b.IsVIP {
			return a.IsVIP
		}
		return a.WaitingTime > b.WaitingTime
	})
	return out
}

// step plays one round at now and reports how many flights were assigned
// and upgrades bought.
func (a *autopilot) step(ctx context.Context, now time.Time) (assigned, bought int) {
	snap := a.rt.Snapshot(now)
	if snap.RunState != state.Running {
		return 0, 0
	}

	free := make([]state.GateView, 0, len(snap.Gates))
	for _, g := range snap.Gates {
		if g.Available {
			free = append(free, g)
		}
	}
	for _, f := range priority(snap.Queue) {
		if len(free) == 0 {
			break
		}
		i, m := bestGate(f, free)
		if m == core.MatchPoor && f.WaitingTime < a.poorAfter.Seconds() && !f.IsEmergency {
			continue
		}
		if _, err := a.rt.Assign(ctx, now, f.ID, free[i].ID); err != nil {
			continue
		}
		assigned++
		free = append(free[:i], free[i+1:]...)
	}

	cash := snap.Stats.Cash
	for _, u := range snap.Upgrades {
		if u.Purchased || cash-u.Cost < a.reserve {
			continue
		}
		if err := a.rt.PurchaseUpgrade(ctx, now, u.ID); err != nil {
			continue
		}
		cash -= u.Cost
		bought++
	}
	return assigned, bought
}
