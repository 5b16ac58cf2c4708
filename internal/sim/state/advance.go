package state

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/airport-simulator/core"
	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/notify"
	"github.com/signalsfoundry/airport-simulator/internal/scheduler"
	"github.com/signalsfoundry/airport-simulator/model"
)

// Advance brings the session up to now: it fires every due timer in time
// order, then, if running, runs one tick over the time since the previous
// call. Calls with a now earlier than the previous one only fire timers.
func (s *Session) Advance(ctx context.Context, now time.Time) {
	started := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		ev, ok := s.queue.PopDue(now)
		if !ok {
			break
		}
		if ev.Generation != s.generation {
			s.queue.Stats().IncStale()
			continue
		}
		s.dispatchLocked(ctx, ev)
	}

	var delta time.Duration
	if !s.lastUpdate.IsZero() && now.After(s.lastUpdate) {
		delta = now.Sub(s.lastUpdate)
		s.lastUpdate = now
	}
	if s.runState == Running && delta > 0 {
		s.tickLocked(ctx, now, delta)
	}
	s.updateMetricsLocked()
	if s.metrics != nil {
		s.metrics.ObserveTick(time.Since(started))
	}
}

// dispatchLocked applies one timer. Every handler but alert expiry is a
// no-op unless the session is running; recurring timers always re-arm.
func (s *Session) dispatchLocked(ctx context.Context, ev scheduler.Event) {
	if ev.Kind == scheduler.KindAlertExpiry {
		s.expireAlertLocked(ev.Ref)
		return
	}
	running := s.runState == Running

	switch ev.Kind {
	case scheduler.KindArrival:
		if running {
			s.spawnFlightLocked(ev.At)
		}
		s.queue.Schedule(ev.At.Add(s.gen.NextInterval(s.day)), scheduler.KindArrival, s.generation, "")
	case scheduler.KindOpeningArrival:
		if running {
			s.spawnFlightLocked(ev.At)
		}
	case scheduler.KindDay:
		if running {
			s.rollDayLocked(ctx, ev.At)
		}
		s.queue.Schedule(ev.At.Add(s.balance.DayLength), scheduler.KindDay, s.generation, "")
	case scheduler.KindWeather:
		if running {
			s.changeWeatherLocked(ev.At)
		}
		s.queue.Schedule(ev.At.Add(s.balance.WeatherPeriod), scheduler.KindWeather, s.generation, "")
	}
}

func (s *Session) spawnFlightLocked(now time.Time) *model.Flight {
	f := s.gen.NewFlight(now)
	s.pending = append(s.pending, f)
	if f.IsEmergency {
		s.addAlertLocked(now, fmt.Sprintf("EMERGENCY: %s", f.FlightNumber), "Priority landing required!", model.SeverityDanger)
		s.emitLocked(now, notify.EmergencyArrival, f.ID, f.FlightNumber, 0)
	}
	return f
}

func (s *Session) rollDayLocked(ctx context.Context, now time.Time) {
	s.day++
	cost := s.econ.DailyCost(s.mult)
	s.cash -= cost
	s.addAlertLocked(now,
		fmt.Sprintf("Day %d - Operational Costs", s.day),
		fmt.Sprintf("Expenses: -%s (staff, maintenance, utilities)", formatCurrency(cost)),
		model.SeverityWarning)
	s.emitLocked(now, notify.WarningRaised, "day", fmt.Sprintf("day %d operating costs", s.day), cost)
	logging.FromContext(ctx, s.log).Info(ctx, "day started",
		logging.Int("day", s.day),
		logging.Int("cost", cost),
		logging.Int("cash", s.cash),
		logging.Float("satisfaction", s.satisfaction),
	)
}

func (s *Session) changeWeatherLocked(now time.Time) {
	s.weather = s.gen.NextWeather()
	if s.weather.Weather != model.WeatherClear {
		s.addAlertLocked(now, "Weather Change", fmt.Sprintf("%s - Delays expected", s.weather.Name), model.SeverityWarning)
	}
}

// tickLocked runs the per-frame rules in order: waiting accrual and
// decay, completions, queue pressure, then the game-over check.
func (s *Session) tickLocked(ctx context.Context, now time.Time, delta time.Duration) {
	dt := delta.Seconds()

	threshold := s.balance.WaitThreshold.Seconds()
	for _, f := range s.pending {
		if f.Assigned() {
			continue
		}
		waited := dt
		if age := now.Sub(f.CreatedAt).Seconds(); age < waited {
			waited = age
		}
		if waited > 0 {
			f.WaitingTime += waited
		}
		if f.WaitingTime > threshold {
			s.adjustSatisfactionLocked(-s.balance.WaitingDecayRate * dt)
		}
	}

	for _, g := range s.gates {
		if g.Done(now) {
			s.completeLocked(now, g)
		}
	}

	if s.unassignedCountLocked() > s.balance.CongestionThreshold {
		s.adjustSatisfactionLocked(-s.balance.CongestionDecayRate * dt)
	}

	s.evaluateLocked(ctx, now)
}

// completeLocked settles the flight at g. A gate without a flight is left
// alone, so completing twice changes nothing.
func (s *Session) completeLocked(now time.Time, g *model.Gate) {
	capacity := g.Capacity
	gateName := g.Name
	f, ok := core.ReleaseGate(g)
	if !ok {
		return
	}
	m := core.ClassifyMatch(f.Passengers, capacity)
	revenue := s.econ.Revenue(f, m, s.satisfaction, s.mult)

	s.cash += revenue
	s.reputation += s.econ.ReputationGain(f, m)
	s.adjustSatisfactionLocked(s.econ.CompletionSatisfaction(s.mult))
	s.flightsCompleted++
	s.removeFlightLocked(f.ID)

	bonus := ""
	switch m {
	case core.MatchPerfect:
		bonus = " (+20% Perfect Match!)"
	case core.MatchPoor:
		bonus = " (-30% Poor Match)"
	}
	s.addAlertLocked(now,
		fmt.Sprintf("Flight %s Completed!", f.FlightNumber),
		fmt.Sprintf("Revenue: +%s%s", formatCurrency(revenue), bonus),
		model.SeveritySuccess)
	s.emitLocked(now, notify.FlightComplete, f.ID, fmt.Sprintf("%s at %s", f.FlightNumber, gateName), revenue)
	if s.metrics != nil {
		s.metrics.IncFlightsCompleted(string(m))
	}
}
