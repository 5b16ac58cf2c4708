package state

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/signalsfoundry/airport-simulator/core"
	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/notify"
	"github.com/signalsfoundry/airport-simulator/internal/scheduler"
	"github.com/signalsfoundry/airport-simulator/model"
)

// Sentinel errors returned by Session commands. Callers treat all of them as
// advisory: a rejected command never changes session state.
var (
	// ErrFlightNotFound indicates the flight is not pending in this session.
	ErrFlightNotFound = errors.New("flight not found")
	// ErrFlightAssigned indicates the flight is already at a gate.
	ErrFlightAssigned = core.ErrFlightAssigned
	// ErrGateNotFound indicates the gate does not exist.
	ErrGateNotFound = errors.New("gate not found")
	// ErrGateOccupied indicates the gate is processing another flight.
	ErrGateOccupied = core.ErrGateBusy
	// ErrUpgradeNotFound indicates an unknown upgrade id.
	ErrUpgradeNotFound = errors.New("upgrade not found")
	// ErrUpgradePurchased indicates the upgrade was already bought.
	ErrUpgradePurchased = errors.New("upgrade already purchased")
	// ErrInsufficientFunds indicates cash is below the upgrade cost.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrNotRunning indicates the command needs a running session.
	ErrNotRunning = errors.New("session is not running")
	// ErrSessionEnded indicates the session reached game over.
	ErrSessionEnded = errors.New("session has ended")
	// ErrAlreadyStarted indicates Start was called outside Setup.
	ErrAlreadyStarted = errors.New("session already started")
)

// RunState is the lifecycle position of a session.
type RunState string

const (
	Setup   RunState = "setup"
	Running RunState = "running"
	Paused  RunState = "paused"
	Ended   RunState = "ended"
)

// Stats are the headline numbers of a session.
type Stats struct {
	Cash             int     `json:"cash"`
	Satisfaction     float64 `json:"satisfaction"`
	Reputation       int     `json:"reputation"`
	Day              int     `json:"day"`
	FlightsCompleted int     `json:"flightsCompleted"`
	PendingFlights   int     `json:"pendingFlights"`
	BusyGates        int     `json:"busyGates"`
}

// MetricsRecorder receives session measurements. Implementations must be
// cheap; they are called with the session lock held.
type MetricsRecorder interface {
	SetSessionStats(stats Stats)
	IncFlightsCompleted(match string)
	IncCommand(command, result string)
	IncGameOver(cause string)
	ObserveTick(d time.Duration)
}

// Session is the aggregate root of one game: economy figures, gates,
// flights, alerts, upgrades and the run state. Its timers live in a shared
// scheduler.Queue tagged with the session generation.
type Session struct {
	mu sync.Mutex

	id         string
	generation uint64

	balance model.Balance
	econ    core.Economy
	gen     *core.Generator
	queue   *scheduler.Queue

	log     logging.Logger
	metrics MetricsRecorder

	runState         RunState
	cash             int
	satisfaction     float64
	reputation       int
	day              int
	flightsCompleted int

	gates    []*model.Gate
	pending  []*model.Flight
	alerts   []model.Alert
	upgrades []model.Upgrade
	mult     model.Multipliers
	weather  model.WeatherCondition

	cashWarning       bool
	reputationWarning bool

	lastUpdate time.Time
	pausedAt   time.Time
	outcome    *Outcome

	outbox []notify.Notification
}

// Option customises Session construction.
type Option func(*Session)

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithRand makes every random draw come from rng.
func WithRand(rng *rand.Rand) Option {
	return func(s *Session) {
		s.gen = core.NewGenerator(s.balance, rng)
	}
}

// WithID overrides the generated session id.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// New builds a session in Setup with the starting figures and gates from
// balance. Timers are armed in queue under generation once Start is called.
func New(balance model.Balance, queue *scheduler.Queue, generation uint64, log logging.Logger, opts ...Option) *Session {
	if log == nil {
		log = logging.Noop()
	}
	if queue == nil {
		queue = scheduler.NewQueue()
	}
	s := &Session{
		id:           uuid.NewString(),
		generation:   generation,
		balance:      balance,
		econ:         core.NewEconomy(balance),
		queue:        queue,
		runState:     Setup,
		cash:         balance.StartingCash,
		satisfaction: balance.StartingSatisfaction,
		reputation:   balance.StartingReputation,
		day:          1,
		mult:         model.NeutralMultipliers(),
	}
	s.weather, _ = balance.WeatherByValue(model.WeatherClear)
	if s.weather.Weather == "" && len(balance.Weather) > 0 {
		s.weather = balance.Weather[0]
	}
	s.upgrades = make([]model.Upgrade, len(balance.Upgrades))
	copy(s.upgrades, balance.Upgrades)
	for i := 1; i <= balance.StartingGates; i++ {
		s.gates = append(s.gates, core.NewGate(i, balance.StartingGateType, balance.GateCapacities[balance.StartingGateType]))
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.gen == nil {
		s.gen = core.NewGenerator(balance, nil)
	}
	s.log = log.With(logging.String("session_id", s.id), logging.Uint64("generation", generation))
	s.updateMetricsLocked()
	return s
}

// ID is the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Generation is the cancellation token of this session's timers.
func (s *Session) Generation() uint64 {
	return s.generation
}

// RunState reports the lifecycle position.
func (s *Session) RunState() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runState
}

// Stats returns the current headline figures.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

// Outcome is non-nil once the session has ended.
func (s *Session) Outcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return nil
	}
	cp := *s.outcome
	return &cp
}

// TakeNotifications returns and clears the notifications queued since the
// last call. Callers publish them after releasing any locks of their own.
func (s *Session) TakeNotifications() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.outbox
	s.outbox = nil
	return out
}

func (s *Session) statsLocked() Stats {
	busy := 0
	for _, g := range s.gates {
		if g.IsProcessing {
			busy++
		}
	}
	return Stats{
		Cash:             s.cash,
		Satisfaction:     s.satisfaction,
		Reputation:       s.reputation,
		Day:              s.day,
		FlightsCompleted: s.flightsCompleted,
		PendingFlights:   len(s.pending),
		BusyGates:        busy,
	}
}

// updateMetricsLocked pushes current figures into the metrics recorder.
// Caller must hold s.mu.
func (s *Session) updateMetricsLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetSessionStats(s.statsLocked())
}

func (s *Session) recordCommandLocked(command string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	s.metrics.IncCommand(command, result)
}

func (s *Session) emitLocked(now time.Time, kind notify.Kind, subject, message string, value int) {
	s.outbox = append(s.outbox, notify.Notification{
		Kind:       kind,
		At:         now,
		Generation: s.generation,
		Subject:    subject,
		Message:    message,
		Value:      value,
	})
}

func (s *Session) findGateLocked(id string) *model.Gate {
	for _, g := range s.gates {
		if g.ID == id {
			return g
		}
	}
	return nil
}

func (s *Session) findFlightLocked(id string) (int, *model.Flight) {
	for i, f := range s.pending {
		if f.ID == id {
			return i, f
		}
	}
	return -1, nil
}

func (s *Session) removeFlightLocked(id string) {
	if i, _ := s.findFlightLocked(id); i >= 0 {
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
	}
}

func (s *Session) unassignedCountLocked() int {
	n := 0
	for _, f := range s.pending {
		if !f.Assigned() {
			n++
		}
	}
	return n
}

func (s *Session) adjustSatisfactionLocked(delta float64) {
	s.satisfaction = core.ClampSatisfaction(s.satisfaction + delta)
}
