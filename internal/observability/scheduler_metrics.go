package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/airport-simulator/internal/scheduler"
)

// TimerSource is the part of the runtime the scheduler collector reads.
type TimerSource interface {
	QueueStats() *scheduler.Stats
}

// SchedulerCollector exposes the timer queue counters. Values are read
// from the queue at scrape time.
type SchedulerCollector struct {
	Scheduled prometheus.CounterFunc
	Fired     prometheus.CounterFunc
	Cancelled prometheus.CounterFunc
	Stale     prometheus.CounterFunc
}

// NewSchedulerCollector registers timer queue metrics against the provided
// registerer.
func NewSchedulerCollector(reg prometheus.Registerer, src TimerSource) (*SchedulerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if src == nil {
		return nil, fmt.Errorf("scheduler collector: nil timer source")
	}
	read := func(pick func(scheduler.StatsSnapshot) uint64) func() float64 {
		return func() float64 {
			return float64(pick(src.QueueStats().Snapshot()))
		}
	}

	c := &SchedulerCollector{}
	counters := []struct {
		dst  *prometheus.CounterFunc
		name string
		help string
		pick func(scheduler.StatsSnapshot) uint64
	}{
		{&c.Scheduled, "airport_timers_scheduled_total", "Timers armed on the game queue.",
			func(s scheduler.StatsSnapshot) uint64 { return s.NumScheduled }},
		{&c.Fired, "airport_timers_fired_total", "Timers that came due and were dispatched.",
			func(s scheduler.StatsSnapshot) uint64 { return s.NumFired }},
		{&c.Cancelled, "airport_timers_cancelled_total", "Timers dropped by game over, reset or restart.",
			func(s scheduler.StatsSnapshot) uint64 { return s.NumCancelled }},
		{&c.Stale, "airport_timers_stale_total", "Due timers discarded because their generation was replaced.",
			func(s scheduler.StatsSnapshot) uint64 { return s.NumStale }},
	}
	for _, cf := range counters {
		fn := prometheus.NewCounterFunc(prometheus.CounterOpts{Name: cf.name, Help: cf.help}, read(cf.pick))
		registered, err := registerCounterFunc(reg, fn, cf.name)
		if err != nil {
			return nil, err
		}
		*cf.dst = registered
	}
	return c, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounterFunc(reg prometheus.Registerer, fn prometheus.CounterFunc, name string) (prometheus.CounterFunc, error) {
	if err := reg.Register(fn); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.CounterFunc); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return fn, nil
}
