package state

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/airport-simulator/core"
	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/scheduler"
	"github.com/signalsfoundry/airport-simulator/model"
)

// FlightView is a read-only copy of a flight.
type FlightView struct {
	ID             string           `json:"id"`
	FlightNumber   string           `json:"flightNumber"`
	Type           model.FlightType `json:"type"`
	Airline        string           `json:"airline"`
	Passengers     int              `json:"passengers"`
	IsVIP          bool             `json:"isVIP"`
	IsEmergency    bool             `json:"isEmergency"`
	BaseRevenue    int              `json:"baseRevenue"`
	ProcessingTime float64          `json:"processingTime"`
	WaitingTime    float64          `json:"waitingTime"`
	AssignedGate   string           `json:"assignedGate,omitempty"`
}

// GateView is a read-only copy of a gate with its progress at snapshot time.
type GateView struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      model.GateType `json:"type"`
	Capacity  int            `json:"capacity"`
	Available bool           `json:"available"`
	Flight    *FlightView    `json:"flight,omitempty"`
	Match     core.Match     `json:"match,omitempty"`
	Progress  float64        `json:"progress"`
}

// UpgradeView is a catalog entry with its purchase state.
type UpgradeView struct {
	model.Upgrade
	Affordable bool `json:"affordable"`
}

// Snapshot is a consistent read-only view of a session for rendering,
// UI and audio collaborators.
type Snapshot struct {
	SessionID   string                 `json:"sessionId"`
	Generation  uint64                 `json:"generation"`
	RunState    RunState               `json:"runState"`
	At          time.Time              `json:"at"`
	Stats       Stats                  `json:"stats"`
	Weather     model.WeatherCondition `json:"weather"`
	Multipliers model.Multipliers      `json:"multipliers"`
	Gates       []GateView             `json:"gates"`
	Queue       []FlightView           `json:"queue"`
	Alerts      []model.Alert          `json:"alerts"`
	Upgrades    []UpgradeView          `json:"upgrades"`
	Outcome     *Outcome               `json:"outcome,omitempty"`
}

func viewFlight(f *model.Flight) FlightView {
	return FlightView{
		ID:             f.ID,
		FlightNumber:   f.FlightNumber,
		Type:           f.Type,
		Airline:        f.Airline,
		Passengers:     f.Passengers,
		IsVIP:          f.IsVIP,
		IsEmergency:    f.IsEmergency,
		BaseRevenue:    f.BaseRevenue,
		ProcessingTime: f.ProcessingTime.Seconds(),
		WaitingTime:    f.WaitingTime,
		AssignedGate:   f.AssignedGate,
	}
}

// Snapshot captures the session at now. While paused, gate progress is
// measured at the pause instant.
func (s *Session) Snapshot(now time.Time) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	at := now
	if s.runState == Paused && !s.pausedAt.IsZero() {
		at = s.pausedAt
	}

	snap := &Snapshot{
		SessionID:   s.id,
		Generation:  s.generation,
		RunState:    s.runState,
		At:          now,
		Stats:       s.statsLocked(),
		Weather:     s.weather,
		Multipliers: s.mult,
		Gates:       make([]GateView, 0, len(s.gates)),
		Queue:       make([]FlightView, 0, len(s.pending)),
		Alerts:      append([]model.Alert(nil), s.alerts...),
		Upgrades:    make([]UpgradeView, 0, len(s.upgrades)),
	}
	for _, g := range s.gates {
		v := GateView{
			ID:        g.ID,
			Name:      g.Name,
			Type:      g.Type,
			Capacity:  g.Capacity,
			Available: g.Available(),
			Progress:  g.Progress(at),
		}
		if g.AssignedFlight != nil {
			fv := viewFlight(g.AssignedFlight)
			v.Flight = &fv
			v.Match = core.ClassifyMatch(g.AssignedFlight.Passengers, g.Capacity)
		}
		snap.Gates = append(snap.Gates, v)
	}
	for _, f := range s.pending {
		if !f.Assigned() {
			snap.Queue = append(snap.Queue, viewFlight(f))
		}
	}
	for _, u := range s.upgrades {
		snap.Upgrades = append(snap.Upgrades, UpgradeView{Upgrade: u, Affordable: !u.Purchased && s.cash >= u.Cost})
	}
	if s.outcome != nil {
		cp := *s.outcome
		snap.Outcome = &cp
	}
	return snap
}

// SaveData returns the persistence snapshot.
func (s *Session) SaveData(now time.Time) model.SaveData {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := model.SaveData{
		Cash:              s.cash,
		Satisfaction:      s.satisfaction,
		Reputation:        s.reputation,
		Day:               s.day,
		FlightsCompleted:  s.flightsCompleted,
		PurchasedUpgrades: []string{},
		Gates:             make([]model.SavedGate, 0, len(s.gates)),
		SavedAt:           now,
	}
	for _, u := range s.upgrades {
		if u.Purchased {
			out.PurchasedUpgrades = append(out.PurchasedUpgrades, u.ID)
		}
	}
	for _, g := range s.gates {
		out.Gates = append(out.Gates, model.SavedGate{ID: g.ID, Name: g.Name, Capacity: g.Capacity, Type: g.Type})
	}
	return out
}

// Restore loads figures, gates and purchased upgrades from a save into a
// Setup session. Upgrade multipliers are re-applied without charging; gates
// come from the save as-is. Unknown upgrade ids are skipped.
func (s *Session) Restore(ctx context.Context, save model.SaveData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.runState != Setup {
		return fmt.Errorf("restore session %s: %w", s.id, ErrAlreadyStarted)
	}
	if len(save.Gates) == 0 {
		return fmt.Errorf("restore session %s: save has no gates", s.id)
	}

	s.cash = save.Cash
	s.satisfaction = core.ClampSatisfaction(save.Satisfaction)
	s.reputation = save.Reputation
	s.day = save.Day
	if s.day < 1 {
		s.day = 1
	}
	s.flightsCompleted = save.FlightsCompleted

	s.gates = s.gates[:0]
	for _, g := range save.Gates {
		s.gates = append(s.gates, &model.Gate{ID: g.ID, Name: g.Name, Type: g.Type, Capacity: g.Capacity})
	}

	s.mult = model.NeutralMultipliers()
	skipped := 0
	for _, id := range save.PurchasedUpgrades {
		found := false
		for i := range s.upgrades {
			if s.upgrades[i].ID != id || s.upgrades[i].Purchased {
				continue
			}
			s.upgrades[i].Purchased = true
			if s.upgrades[i].Effect != model.EffectAddGates {
				s.mult.Apply(s.upgrades[i].Effect, s.upgrades[i].Value)
			}
			found = true
			break
		}
		if !found {
			skipped++
		}
	}

	s.updateMetricsLocked()
	logging.FromContext(ctx, s.log).Info(ctx, "session restored",
		logging.Int("day", s.day),
		logging.Int("cash", s.cash),
		logging.Int("gates", len(s.gates)),
		logging.Int("upgrades_skipped", skipped),
	)
	return nil
}

// PendingTimers lists this session's armed timers, earliest first.
func (s *Session) PendingTimers() []scheduler.Event {
	all := s.queue.Pending()
	out := make([]scheduler.Event, 0, len(all))
	for _, ev := range all {
		if ev.Generation == s.generation {
			out = append(out, ev)
		}
	}
	return out
}
