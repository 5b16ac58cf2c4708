package core

import (
	"github.com/shopspring/decimal"

	"github.com/signalsfoundry/airport-simulator/model"
)

var (
	half       = decimal.RequireFromString("0.5")
	hundred    = decimal.NewFromInt(100)
	vipFactor  = decimal.RequireFromString("1.5")
	cashWeight = decimal.RequireFromString("0.1")
)

// roundHalfUp rounds toward +Inf on ties, matching the game's scoring
// convention for negative values too (-2.5 rounds to -2).
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Add(half).Floor()
}

// ClampSatisfaction bounds v to [0,100].
func ClampSatisfaction(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// Economy evaluates money and reputation formulas for one balance sheet.
type Economy struct {
	balance model.Balance
}

// NewEconomy binds the formulas to b.
func NewEconomy(b model.Balance) Economy {
	return Economy{balance: b}
}

// Revenue earned when f completes with match m. The base figure is scaled
// by match, VIP status and satisfaction, rounded, then scaled by the
// revenue multiplier and rounded again.
func (e Economy) Revenue(f *model.Flight, m Match, satisfaction float64, mult model.Multipliers) int {
	v := decimal.NewFromInt(int64(f.BaseRevenue)).
		Mul(m.RevenueFactor()).
		Mul(decimal.NewFromFloat(satisfaction)).
		Div(hundred)
	if f.IsVIP {
		v = v.Mul(vipFactor)
	}
	v = roundHalfUp(roundHalfUp(v).Mul(decimal.NewFromFloat(mult.Revenue)))
	return int(v.IntPart())
}

// ReputationGain for completing f with match m.
func (e Economy) ReputationGain(f *model.Flight, m Match) int {
	gain := e.balance.CompletionReputation
	if f.IsVIP {
		gain += e.balance.FlightTypes[model.FlightVIP].ReputationBonus
	}
	if m == MatchPerfect {
		gain += e.balance.PerfectMatchReputation
	}
	return gain
}

// CompletionSatisfaction is the satisfaction gained per completed flight.
func (e Economy) CompletionSatisfaction(mult model.Multipliers) float64 {
	return e.balance.CompletionSatisfaction * mult.Satisfaction
}

// DailyCost is the operating cost charged at each day rollover.
func (e Economy) DailyCost(mult model.Multipliers) int {
	v := decimal.NewFromInt(int64(e.balance.DailyBaseCost)).Mul(decimal.NewFromFloat(mult.OperatingCost))
	return int(roundHalfUp(v).IntPart())
}

// Score is the final figure reported at game over.
func Score(cash, reputation, flightsCompleted, day int) int {
	v := decimal.NewFromInt(int64(cash)).Mul(cashWeight).
		Add(decimal.NewFromInt(int64(reputation) * 100)).
		Add(decimal.NewFromInt(int64(flightsCompleted) * 50)).
		Add(decimal.NewFromInt(int64(day) * 500))
	return int(roundHalfUp(v).IntPart())
}

// Rating converts completed flights into a one-to-five star grade.
func Rating(flightsCompleted int) int {
	switch {
	case flightsCompleted > 50:
		return 5
	case flightsCompleted > 30:
		return 4
	case flightsCompleted > 15:
		return 3
	case flightsCompleted > 5:
		return 2
	default:
		return 1
	}
}
