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

// Start moves a Setup session to Running, spawns the first arrival and arms
// the arrival, opening-arrival, day and weather timers.
func (s *Session) Start(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runState != Setup {
		return fmt.Errorf("start session %s: %w", s.id, ErrAlreadyStarted)
	}
	s.runState = Running
	s.lastUpdate = now

	s.spawnFlightLocked(now)
	s.queue.Schedule(now.Add(s.gen.NextInterval(s.day)), scheduler.KindArrival, s.generation, "")
	s.queue.Schedule(now.Add(s.balance.OpeningArrivalDelay), scheduler.KindOpeningArrival, s.generation, "")
	s.queue.Schedule(now.Add(s.balance.DayLength), scheduler.KindDay, s.generation, "")
	s.queue.Schedule(now.Add(s.balance.WeatherPeriod), scheduler.KindWeather, s.generation, "")

	s.updateMetricsLocked()
	logging.FromContext(ctx, s.log).Info(ctx, "session started",
		logging.Int("cash", s.cash),
		logging.Int("gates", len(s.gates)),
	)
	return nil
}

// Assign puts a waiting flight on a free gate. Overloaded gates are
// accepted with the poor-match penalty. A flight assigned while paused
// starts processing at the pause instant. On error nothing changes.
func (s *Session) Assign(ctx context.Context, now time.Time, flightID, gateID string) (core.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.assignLocked(now, flightID, gateID)
	s.recordCommandLocked("assign", err)
	if err != nil {
		s.rejectLocked(ctx, now, "assign", flightID, err)
		return "", err
	}
	s.updateMetricsLocked()
	return m, nil
}

func (s *Session) assignLocked(now time.Time, flightID, gateID string) (core.Match, error) {
	if err := s.requireActiveLocked(); err != nil {
		return "", fmt.Errorf("assign %s to %s: %w", flightID, gateID, err)
	}
	_, f := s.findFlightLocked(flightID)
	if f == nil {
		return "", fmt.Errorf("assign %s: %w", flightID, ErrFlightNotFound)
	}
	if f.Assigned() {
		return "", fmt.Errorf("assign %s: %w", flightID, ErrFlightAssigned)
	}
	g := s.findGateLocked(gateID)
	if g == nil {
		return "", fmt.Errorf("assign %s to %s: %w", flightID, gateID, ErrGateNotFound)
	}
	if !g.Available() {
		return "", fmt.Errorf("assign %s to %s: %w", flightID, gateID, ErrGateOccupied)
	}

	duration := core.ProcessingDuration(f.ProcessingTime, s.mult.ProcessingSpeed, s.weather.DelayFactor)
	start := now
	if s.runState == Paused {
		start = s.pausedAt
	}
	m, err := core.AssignFlight(g, f, start, duration)
	if err != nil {
		return "", fmt.Errorf("assign %s to %s: %w", flightID, gateID, err)
	}

	switch m {
	case core.MatchPoor:
		s.adjustSatisfactionLocked(-s.balance.PoorMatchPenalty)
		s.addAlertLocked(now, "Poor Gate Match", fmt.Sprintf("%s exceeds gate capacity!", f.FlightNumber), model.SeverityWarning)
	case core.MatchPerfect:
		s.addAlertLocked(now, "Perfect Match!", fmt.Sprintf("%s is optimally assigned", f.FlightNumber), model.SeveritySuccess)
	}
	s.emitLocked(now, notify.FlightAssigned, f.ID, fmt.Sprintf("%s to %s (%s)", f.FlightNumber, g.Name, m), 0)
	return m, nil
}

// PurchaseUpgrade buys a catalog upgrade while the session is running or
// paused. On error nothing changes.
func (s *Session) PurchaseUpgrade(ctx context.Context, now time.Time, upgradeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.purchaseLocked(now, upgradeID)
	s.recordCommandLocked("purchase_upgrade", err)
	if err != nil {
		s.rejectLocked(ctx, now, "purchase_upgrade", upgradeID, err)
		return err
	}
	s.updateMetricsLocked()
	logging.FromContext(ctx, s.log).Info(ctx, "upgrade purchased",
		logging.String("upgrade_id", upgradeID),
		logging.Int("cash", s.cash),
	)
	return nil
}

func (s *Session) purchaseLocked(now time.Time, upgradeID string) error {
	if err := s.requireActiveLocked(); err != nil {
		return fmt.Errorf("purchase %s: %w", upgradeID, err)
	}
	idx := -1
	for i := range s.upgrades {
		if s.upgrades[i].ID == upgradeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("purchase %s: %w", upgradeID, ErrUpgradeNotFound)
	}
	u := &s.upgrades[idx]
	if u.Purchased {
		return fmt.Errorf("purchase %s: %w", upgradeID, ErrUpgradePurchased)
	}
	if s.cash < u.Cost {
		return fmt.Errorf("purchase %s: need %d, have %d: %w", upgradeID, u.Cost, s.cash, ErrInsufficientFunds)
	}

	s.cash -= u.Cost
	u.Purchased = true
	s.applyUpgradeLocked(*u)

	s.addAlertLocked(now, "Upgrade Purchased!", fmt.Sprintf("%s - Cost: -%s", u.Name, formatCurrency(u.Cost)), model.SeveritySuccess)
	s.emitLocked(now, notify.UpgradePurchased, u.ID, u.Name, u.Cost)
	return nil
}

// applyUpgradeLocked folds an upgrade's effect into the session without
// charging for it.
func (s *Session) applyUpgradeLocked(u model.Upgrade) {
	if u.Effect != model.EffectAddGates {
		s.mult.Apply(u.Effect, u.Value)
		return
	}
	gt := s.balance.UpgradeGateType
	for i := 0; i < int(u.Value); i++ {
		s.gates = append(s.gates, core.NewGate(len(s.gates)+1, gt, s.balance.GateCapacities[gt]))
	}
}

// TogglePause flips between Running and Paused and reports whether the
// session is now paused. Processing gates are frozen while paused: on
// resume their start times move forward by the paused span.
func (s *Session) TogglePause(ctx context.Context, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch s.runState {
	case Running:
		s.runState = Paused
		s.pausedAt = now
	case Paused:
		if span := now.Sub(s.pausedAt); span > 0 {
			for _, g := range s.gates {
				if g.IsProcessing {
					g.ProcessingStart = g.ProcessingStart.Add(span)
				}
			}
		}
		s.runState = Running
		s.pausedAt = time.Time{}
		s.lastUpdate = now
	case Ended:
		err = fmt.Errorf("toggle pause: %w", ErrSessionEnded)
	default:
		err = fmt.Errorf("toggle pause: %w", ErrNotRunning)
	}
	s.recordCommandLocked("toggle_pause", err)
	if err != nil {
		s.rejectLocked(ctx, now, "toggle_pause", "", err)
		return false, err
	}
	logging.FromContext(ctx, s.log).Info(ctx, "pause toggled", logging.String("run_state", string(s.runState)))
	return s.runState == Paused, nil
}

func (s *Session) requireActiveLocked() error {
	switch s.runState {
	case Running, Paused:
		return nil
	case Ended:
		return ErrSessionEnded
	default:
		return ErrNotRunning
	}
}

func (s *Session) rejectLocked(ctx context.Context, now time.Time, command, subject string, err error) {
	s.emitLocked(now, notify.CommandRejected, subject, err.Error(), 0)
	logging.FromContext(ctx, s.log).Debug(ctx, "command rejected",
		logging.String("command", command),
		logging.String("subject", subject),
		logging.Err(err),
	)
}
