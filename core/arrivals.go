package core

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/airport-simulator/model"
)

// Cumulative draw bands for the flight type of a new arrival.
const (
	emergencyBand     = 0.05
	vipBand           = 0.15
	domesticBand      = 0.70
	internationalBand = 0.90
)

// Generator produces the random parts of the game: arrival intervals, new
// flights and weather changes. It is not safe for concurrent use.
type Generator struct {
	balance model.Balance
	rng     *rand.Rand
}

// NewGenerator uses rng for every draw. A nil rng is seeded from the wall
// clock.
func NewGenerator(b model.Balance, rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{balance: b, rng: rng}
}

func (g *Generator) intBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rng.Intn(hi-lo+1)
}

// NextInterval draws the delay until the next arrival. The upper bound
// shrinks by one step per day and never drops below the minimum.
func (g *Generator) NextInterval(day int) time.Duration {
	lo := g.balance.MinArrivalInterval.Milliseconds()
	hi := g.balance.MaxArrivalInterval.Milliseconds() - int64(day)*g.balance.ArrivalStepPerDay.Milliseconds()
	if hi < lo {
		hi = lo
	}
	return time.Duration(g.intBetween(int(lo), int(hi))) * time.Millisecond
}

// pickType maps one uniform draw onto the type bands. The lowest band is an
// emergency international arrival.
func pickType(r float64) (model.FlightType, bool) {
	switch {
	case r < emergencyBand:
		return model.FlightInternational, true
	case r < vipBand:
		return model.FlightVIP, false
	case r < domesticBand:
		return model.FlightDomestic, false
	case r < internationalBand:
		return model.FlightInternational, false
	default:
		return model.FlightCargo, false
	}
}

// NewFlight builds an arrival created at now.
func (g *Generator) NewFlight(now time.Time) *model.Flight {
	ft, emergency := pickType(g.rng.Float64())
	cfg := g.balance.FlightTypes[ft]
	prefix := g.balance.CarrierPrefixes[g.rng.Intn(len(g.balance.CarrierPrefixes))]
	return &model.Flight{
		ID:             uuid.NewString(),
		FlightNumber:   fmt.Sprintf("%s%d", prefix, g.intBetween(100, 999)),
		Type:           ft,
		IsEmergency:    emergency,
		IsVIP:          ft == model.FlightVIP,
		Passengers:     g.intBetween(cfg.MinPassengers, cfg.MaxPassengers),
		BaseRevenue:    cfg.BaseRevenue,
		ProcessingTime: cfg.ProcessingTime,
		Airline:        g.balance.Airlines[g.rng.Intn(len(g.balance.Airlines))],
		CreatedAt:      now,
	}
}

// NextWeather draws uniformly from the weather table.
func (g *Generator) NextWeather() model.WeatherCondition {
	return g.balance.Weather[g.rng.Intn(len(g.balance.Weather))]
}
