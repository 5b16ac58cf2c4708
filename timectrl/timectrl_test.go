package timectrl

import (
	"context"
	"testing"
	"time"
)

var start = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func TestNewTimeControllerDefaultsTick(t *testing.T) {
	tc := NewTimeController(start, 0, RealTime)
	if tc.Tick != DefaultFrame {
		t.Fatalf("Tick = %v, want %v", tc.Tick, DefaultFrame)
	}
	if got := tc.Now(); !got.Equal(start) {
		t.Fatalf("Now() = %v, want %v", got, start)
	}
}

func TestStepNotifiesListeners(t *testing.T) {
	tc := NewTimeController(start, DefaultFrame, RealTime)
	var seen []time.Time
	tc.AddListener(func(now time.Time) { seen = append(seen, now) })

	tc.Step(DefaultFrame)
	tc.Step(DefaultFrame)

	if len(seen) != 2 {
		t.Fatalf("listener calls = %d, want 2", len(seen))
	}
	if want := start.Add(2 * DefaultFrame); !seen[1].Equal(want) {
		t.Fatalf("second call at %v, want %v", seen[1], want)
	}
}

func TestListenerMayReadClock(t *testing.T) {
	tc := NewTimeController(start, time.Second, RealTime)
	var read time.Time
	tc.AddListener(func(time.Time) { read = tc.Now() })

	now := tc.Step(time.Second)
	if !read.Equal(now) {
		t.Fatalf("listener read %v, want %v", read, now)
	}
}

func TestListenerAddedDuringStepWaitsForNextStep(t *testing.T) {
	tc := NewTimeController(start, time.Second, RealTime)
	late := 0
	added := false
	tc.AddListener(func(time.Time) {
		if !added {
			added = true
			tc.AddListener(func(time.Time) { late++ })
		}
	})

	tc.Step(time.Second)
	if late != 0 {
		t.Fatalf("late listener ran %d times during the step that added it, want 0", late)
	}
	tc.Step(time.Second)
	if late != 1 {
		t.Fatalf("late listener ran %d times, want 1", late)
	}
}

func TestRunAcceleratedStopsOnCancel(t *testing.T) {
	tc := NewTimeController(start, DefaultFrame, Accelerated)
	ctx, cancel := context.WithCancel(context.Background())

	steps := 0
	tc.AddListener(func(time.Time) {
		steps++
		if steps == 100 {
			cancel()
		}
	})
	if err := tc.Run(ctx); err != context.Canceled {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if want := start.Add(100 * DefaultFrame); !tc.Now().Equal(want) {
		t.Fatalf("Now() = %v, want %v", tc.Now(), want)
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode("accelerated") != Accelerated || ParseMode("realtime") != RealTime || ParseMode("") != RealTime {
		t.Fatalf("ParseMode mapping wrong")
	}
	if Accelerated.String() != "accelerated" {
		t.Fatalf("String() = %q", Accelerated.String())
	}
}
