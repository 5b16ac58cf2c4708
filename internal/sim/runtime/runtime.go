// Package runtime hosts the live game session: it owns the timer queue,
// swaps sessions on new game and reset, persists saves and scores, and
// fans notifications out to subscribers.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/signalsfoundry/airport-simulator/core"
	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/notify"
	"github.com/signalsfoundry/airport-simulator/internal/scheduler"
	"github.com/signalsfoundry/airport-simulator/internal/sim/state"
	"github.com/signalsfoundry/airport-simulator/internal/storage"
	"github.com/signalsfoundry/airport-simulator/model"
)

// ErrStaleSession is returned when a caller targets a generation that has
// been replaced by a newer game.
var ErrStaleSession = errors.New("stale session")

// Runtime serializes every mutation of the current session. Handlers and
// the clock driver all go through it.
type Runtime struct {
	mu sync.Mutex

	balance model.Balance
	queue   *scheduler.Queue
	store   storage.Store
	bus     *notify.Bus
	log     logging.Logger
	metrics state.MetricsRecorder
	slot    string
	seed    int64
	seeded  bool

	generation uint64
	session    *state.Session
	submitted  bool
}

// Option customises Runtime construction.
type Option func(*Runtime)

// WithStore sets the persistence collaborator. The default keeps saves in
// memory.
func WithStore(s storage.Store) Option {
	return func(r *Runtime) {
		if s != nil {
			r.store = s
		}
	}
}

// WithBus sets the notification bus.
func WithBus(b *notify.Bus) Option {
	return func(r *Runtime) {
		if b != nil {
			r.bus = b
		}
	}
}

// WithMetricsRecorder attaches a recorder to every session the runtime
// creates.
func WithMetricsRecorder(m state.MetricsRecorder) Option {
	return func(r *Runtime) {
		r.metrics = m
	}
}

// WithSlot selects the save slot.
func WithSlot(slot string) Option {
	return func(r *Runtime) {
		if slot != "" {
			r.slot = slot
		}
	}
}

// WithSeed makes every session's random draws deterministic. Each
// generation derives its own source from seed.
func WithSeed(seed int64) Option {
	return func(r *Runtime) {
		r.seed = seed
		r.seeded = true
	}
}

// New builds a runtime holding one session in Setup.
func New(balance model.Balance, log logging.Logger, opts ...Option) (*Runtime, error) {
	if err := balance.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Noop()
	}
	r := &Runtime{
		balance: balance,
		queue:   scheduler.NewQueue(),
		store:   storage.NewMemoryStore(),
		bus:     notify.NewBus(),
		log:     log,
		slot:    storage.DefaultSlot,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.replaceLocked()
	return r, nil
}

// Bus is the notification bus sessions publish to.
func (r *Runtime) Bus() *notify.Bus {
	return r.bus
}

// QueueStats exposes the timer queue counters.
func (r *Runtime) QueueStats() *scheduler.Stats {
	return r.queue.Stats()
}

// Generation is the live session's generation.
func (r *Runtime) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// CheckGeneration returns ErrStaleSession unless gen is the live one.
func (r *Runtime) CheckGeneration(gen uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.checkGenerationLocked(gen)
}

func (r *Runtime) checkGenerationLocked(gen uint64) error {
	if gen != r.generation {
		return fmt.Errorf("generation %d, live %d: %w", gen, r.generation, ErrStaleSession)
	}
	return nil
}

// sessionForLocked returns the live session when gen matches it. Gen 0 matches
// any session. Callers hold r.mu.
func (r *Runtime) sessionForLocked(gen uint64) (*state.Session, error) {
	if gen != 0 {
		if err := r.checkGenerationLocked(gen); err != nil {
			return nil, err
		}
	}
	return r.session, nil
}

// replaceLocked retires the current session's timers and installs a fresh
// Setup session under the next generation.
func (r *Runtime) replaceLocked() *state.Session {
	if r.session != nil {
		r.queue.CancelGeneration(r.generation)
	}
	r.generation++
	opts := []state.Option{state.WithMetricsRecorder(r.metrics)}
	if r.seeded {
		opts = append(opts, state.WithRand(rand.New(rand.NewSource(r.seed+int64(r.generation)))))
	}
	r.session = state.New(r.balance, r.queue, r.generation, r.log, opts...)
	r.submitted = false
	return r.session
}

// StartNewGame replaces the session and starts it at now. It returns the
// new generation.
func (r *Runtime) StartNewGame(ctx context.Context, now time.Time) (uint64, error) {
	r.mu.Lock()
	s := r.replaceLocked()
	err := s.Start(ctx, now)
	gen := r.generation
	r.mu.Unlock()

	r.flush(s)
	if err != nil {
		return 0, err
	}
	return gen, nil
}

// Reset discards the session and leaves a fresh one in Setup.
func (r *Runtime) Reset(ctx context.Context, now time.Time) uint64 {
	r.mu.Lock()
	old := r.session
	r.replaceLocked()
	gen := r.generation
	r.mu.Unlock()

	r.flush(old)
	logging.FromContext(ctx, r.log).Info(ctx, "session reset", logging.Uint64("generation", gen))
	return gen
}

// Advance drives the session to now and settles the score if the game
// ended.
func (r *Runtime) Advance(ctx context.Context, now time.Time) {
	r.mu.Lock()
	s := r.session
	s.Advance(ctx, now)
	var outcome *state.Outcome
	if !r.submitted {
		if outcome = s.Outcome(); outcome != nil {
			r.submitted = true
		}
	}
	r.mu.Unlock()

	r.flush(s)
	if outcome != nil {
		r.submitScore(ctx, *outcome)
	}
}

// submitScore hands the final score to the store. Failures only degrade to
// an unsaved score.
func (r *Runtime) submitScore(ctx context.Context, out state.Outcome) {
	log := logging.FromContext(ctx, r.log)
	isHigh, err := r.store.SubmitScore(ctx, out.Score)
	if err != nil {
		log.Warn(ctx, "score not persisted", logging.Int("score", out.Score), logging.Err(err))
		return
	}
	log.Info(ctx, "score submitted",
		logging.Int("score", out.Score),
		logging.Int("rating", out.Rating),
		logging.Bool("high_score", isHigh),
	)
}

// Assign routes a flight to a gate in the live session.
func (r *Runtime) Assign(ctx context.Context, now time.Time, flightID, gateID string) (core.Match, error) {
	return r.AssignAt(ctx, 0, now, flightID, gateID)
}

// AssignAt is Assign guarded by a session generation. The check and the
// command run under one lock, so a concurrent reset cannot slip between them.
func (r *Runtime) AssignAt(ctx context.Context, gen uint64, now time.Time, flightID, gateID string) (core.Match, error) {
	r.mu.Lock()
	s, err := r.sessionForLocked(gen)
	if err != nil {
		r.mu.Unlock()
		return "", fmt.Errorf("assign %s: %w", flightID, err)
	}
	m, err := s.Assign(ctx, now, flightID, gateID)
	r.mu.Unlock()
	r.flush(s)
	return m, err
}

// PurchaseUpgrade buys an upgrade in the live session.
func (r *Runtime) PurchaseUpgrade(ctx context.Context, now time.Time, upgradeID string) error {
	return r.PurchaseUpgradeAt(ctx, 0, now, upgradeID)
}

// PurchaseUpgradeAt is PurchaseUpgrade guarded by a session generation.
func (r *Runtime) PurchaseUpgradeAt(ctx context.Context, gen uint64, now time.Time, upgradeID string) error {
	r.mu.Lock()
	s, err := r.sessionForLocked(gen)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("purchase %s: %w", upgradeID, err)
	}
	err = s.PurchaseUpgrade(ctx, now, upgradeID)
	r.mu.Unlock()
	r.flush(s)
	return err
}

// TogglePause pauses or resumes the live session.
func (r *Runtime) TogglePause(ctx context.Context, now time.Time) (bool, error) {
	return r.TogglePauseAt(ctx, 0, now)
}

// TogglePauseAt is TogglePause guarded by a session generation.
func (r *Runtime) TogglePauseAt(ctx context.Context, gen uint64, now time.Time) (bool, error) {
	r.mu.Lock()
	s, err := r.sessionForLocked(gen)
	if err != nil {
		r.mu.Unlock()
		return false, fmt.Errorf("toggle pause: %w", err)
	}
	paused, err := s.TogglePause(ctx, now)
	r.mu.Unlock()
	r.flush(s)
	return paused, err
}

// Snapshot captures the live session.
func (r *Runtime) Snapshot(now time.Time) *state.Snapshot {
	r.mu.Lock()
	s := r.session
	r.mu.Unlock()
	return s.Snapshot(now)
}

// SaveGame persists the live session into the configured slot.
func (r *Runtime) SaveGame(ctx context.Context, now time.Time) (model.SaveData, error) {
	r.mu.Lock()
	data := r.session.SaveData(now)
	r.mu.Unlock()

	if err := r.store.SaveGame(ctx, r.slot, data); err != nil {
		logging.FromContext(ctx, r.log).Warn(ctx, "game not saved", logging.String("slot", r.slot), logging.Err(err))
		return model.SaveData{}, err
	}
	logging.FromContext(ctx, r.log).Info(ctx, "game saved",
		logging.String("slot", r.slot),
		logging.Int("day", data.Day),
		logging.Int("cash", data.Cash),
	)
	return data, nil
}

// ResumeSavedGame replaces the session with the saved one and starts it.
// It returns storage.ErrNoSave when the slot is empty.
func (r *Runtime) ResumeSavedGame(ctx context.Context, now time.Time) (uint64, error) {
	data, err := r.store.LoadGame(ctx, r.slot)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	s := r.replaceLocked()
	gen := r.generation
	if err = s.Restore(ctx, data); err == nil {
		err = s.Start(ctx, now)
	}
	r.mu.Unlock()

	r.flush(s)
	if err != nil {
		return 0, err
	}
	return gen, nil
}

// DeleteSave clears the configured slot.
func (r *Runtime) DeleteSave(ctx context.Context) error {
	return r.store.DeleteSave(ctx, r.slot)
}

// HighScore reads the best recorded score.
func (r *Runtime) HighScore(ctx context.Context) (int, error) {
	return r.store.HighScore(ctx)
}

// NextTimer reports when the earliest armed timer fires.
func (r *Runtime) NextTimer() (time.Time, bool) {
	return r.queue.Next()
}

func (r *Runtime) flush(s *state.Session) {
	r.bus.Publish(s.TakeNotifications()...)
}
