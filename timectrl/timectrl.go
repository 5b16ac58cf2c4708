package timectrl

import (
	"context"
	"slices"
	"sync"
	"time"
)

// DefaultFrame is the frame cadence of the game loop.
const DefaultFrame = 16 * time.Millisecond

// SimClock is the clock abstraction the game API depends on, so tests can
// substitute a controller they step by hand.
type SimClock interface {
	// Now returns the current game time.
	Now() time.Time
}

// Mode describes how the TimeController advances game time.
type Mode int

const (
	// RealTime advances one frame per wall-clock frame.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

func (m Mode) String() string {
	if m == Accelerated {
		return "accelerated"
	}
	return "realtime"
}

// ParseMode maps "accelerated" to Accelerated and anything else to RealTime.
func ParseMode(s string) Mode {
	if s == "accelerated" {
		return Accelerated
	}
	return RealTime
}

// TimeController drives game time and notifies registered listeners after
// every step. It implements SimClock.
type TimeController struct {
	mu   sync.RWMutex
	Tick time.Duration
	Mode Mode

	currentTime time.Time
	listeners   []func(time.Time)
}

// NewTimeController constructs a controller. A non-positive tick falls back
// to DefaultFrame.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	if tick <= 0 {
		tick = DefaultFrame
	}
	return &TimeController{
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
	}
}

// Now returns the current game time. Implements SimClock.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// AddListener registers a callback invoked after every step.
func (tc *TimeController) AddListener(fn func(time.Time)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Step advances the clock by d and notifies listeners with the new time.
// Listeners run outside the lock and may call Now.
func (tc *TimeController) Step(d time.Duration) time.Time {
	tc.mu.Lock()
	tc.currentTime = tc.currentTime.Add(d)
	now := tc.currentTime
	listeners := slices.Clone(tc.listeners)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(now)
	}
	return now
}

// Run steps the clock by Tick until ctx is done. In RealTime mode each step
// waits for a wall-clock tick; in Accelerated mode steps run back to back.
func (tc *TimeController) Run(ctx context.Context) error {
	if tc.Mode == Accelerated {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			tc.Step(tc.Tick)
		}
	}

	ticker := time.NewTicker(tc.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tc.Step(tc.Tick)
		}
	}
}
