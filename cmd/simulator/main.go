package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/signalsfoundry/airport-simulator/internal/config"
	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/notify"
	"github.com/signalsfoundry/airport-simulator/internal/sim/runtime"
	"github.com/signalsfoundry/airport-simulator/internal/sim/state"
	"github.com/signalsfoundry/airport-simulator/model"
	"github.com/signalsfoundry/airport-simulator/timectrl"
)

// simOptions controls a headless run.
type simOptions struct {
	Balance     model.Balance
	Duration    time.Duration
	Tick        time.Duration
	Accelerated bool
	Seed        int64
	Reserve     int
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file with balance overrides")
	duration := flag.Duration("duration", 30*time.Minute, "game time to simulate")
	tick := flag.Duration("tick", 250*time.Millisecond, "tick interval")
	accelerated := flag.Bool("accelerated", true, "run in accelerated mode (vs real-time)")
	seed := flag.Int64("seed", 1, "random seed")
	reserve := flag.Int("reserve", 40000, "cash the autopilot keeps when buying upgrades")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	opts := simOptions{
		Balance:     cfg.Balance,
		Duration:    *duration,
		Tick:        *tick,
		Accelerated: *accelerated,
		Seed:        *seed,
		Reserve:     *reserve,
	}
	if _, err := simulate(context.Background(), opts, logging.NewFromEnv(), os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "simulation failed: %v\n", err)
		os.Exit(1)
	}
}

// simulate plays one game with the autopilot until game over or until
// Duration of game time has passed, writing daily summaries to out.
func simulate(ctx context.Context, opts simOptions, log logging.Logger, out io.Writer) (*state.Snapshot, error) {
	rt, err := runtime.New(opts.Balance, log, runtime.WithSeed(opts.Seed))
	if err != nil {
		return nil, err
	}

	start := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)
	if _, err := rt.StartNewGame(ctx, start); err != nil {
		return nil, err
	}

	mode := timectrl.RealTime
	if opts.Accelerated {
		mode = timectrl.Accelerated
	}
	tc := timectrl.NewTimeController(start, opts.Tick, mode)
	pilot := &autopilot{rt: rt, reserve: opts.Reserve, poorAfter: opts.Balance.WaitThreshold * 3}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := rt.Bus().Subscribe(func(n notify.Notification) {
		switch n.Kind {
		case notify.UpgradePurchased:
			fmt.Fprintf(out, "[%s] bought %s for $%d\n", n.At.Format("15:04:05"), n.Message, n.Value)
		case notify.GameOver:
			fmt.Fprintf(out, "[%s] GAME OVER: %s\n", n.At.Format("15:04:05"), n.Message)
		}
	})
	defer unsubscribe()

	fmt.Fprintf(out, "Starting simulation: duration=%s, tick=%s, mode=%v, seed=%d\n", opts.Duration, opts.Tick, mode, opts.Seed)

	day := 1
	var last *state.Snapshot
	tc.AddListener(func(now time.Time) {
		rt.Advance(runCtx, now)
		pilot.step(runCtx, now)

		snap := rt.Snapshot(now)
		last = snap
		if snap.Stats.Day != day {
			day = snap.Stats.Day
			writeSummary(out, snap)
		}
		if snap.RunState == state.Ended || now.Sub(start) >= opts.Duration {
			cancel()
		}
	})

	if err := tc.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	if last == nil {
		last = rt.Snapshot(tc.Now())
	}

	if last.Outcome != nil {
		fmt.Fprintf(out, "Final score: %d (rating %d/5)\n", last.Outcome.Score, last.Outcome.Rating)
	} else {
		fmt.Fprintf(out, "Simulation finished on day %d with cash $%d and %d flights completed\n",
			last.Stats.Day, last.Stats.Cash, last.Stats.FlightsCompleted)
	}
	return last, nil
}

func writeSummary(out io.Writer, snap *state.Snapshot) {
	fmt.Fprintf(out, "Day %d: cash=$%d satisfaction=%.1f%% reputation=%d flights=%d gates=%d weather=%s\n",
		snap.Stats.Day,
		snap.Stats.Cash,
		snap.Stats.Satisfaction,
		snap.Stats.Reputation,
		snap.Stats.FlightsCompleted,
		len(snap.Gates),
		snap.Weather.Name,
	)
}
