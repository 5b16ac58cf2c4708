package scheduler

import (
	"testing"
	"time"
)

func drain(q *Queue, now time.Time) []Event {
	var out []Event
	for {
		ev, ok := q.PopDue(now)
		if !ok {
			return out
		}
		out = append(out, ev)
	}
}

func TestQueue_SingleEvent(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue()

	id := q.Schedule(start.Add(10*time.Second), KindDay, 1, "")
	if id == "" {
		t.Fatalf("Schedule returned empty ID")
	}
	if got := drain(q, start); len(got) != 0 {
		t.Fatalf("expected no due events at start, got %d", len(got))
	}

	got := drain(q, start.Add(10*time.Second))
	if len(got) != 1 || got[0].ID != id || got[0].Kind != KindDay || got[0].Generation != 1 {
		t.Fatalf("expected event %s to fire once, got %+v", id, got)
	}
	if got := drain(q, start.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("event fired twice: %+v", got)
	}
}

func TestQueue_OrderedByTimeThenInsertion(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue()

	q.Schedule(start.Add(30*time.Second), KindWeather, 1, "e3")
	q.Schedule(start.Add(10*time.Second), KindArrival, 1, "e1")
	q.Schedule(start.Add(20*time.Second), KindDay, 1, "e2a")
	q.Schedule(start.Add(20*time.Second), KindAlertExpiry, 1, "e2b")

	got := drain(q, start.Add(20*time.Second))
	if len(got) != 3 {
		t.Fatalf("expected 3 events executed, got %d", len(got))
	}
	for i, want := range []string{"e1", "e2a", "e2b"} {
		if got[i].Ref != want {
			t.Fatalf("expected order [e1 e2a e2b], got %v at %d", got[i].Ref, i)
		}
	}
	if next, ok := q.Next(); !ok || !next.Equal(start.Add(30*time.Second)) {
		t.Fatalf("Next = (%v, %v), want e3 time", next, ok)
	}
}

func TestQueue_Cancel(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue()

	keep := q.Schedule(start.Add(time.Second), KindArrival, 1, "")
	drop := q.Schedule(start.Add(time.Second), KindDay, 1, "")
	q.Cancel(drop)
	q.Cancel("ev-unknown")

	got := drain(q, start.Add(time.Second))
	if len(got) != 1 || got[0].ID != keep {
		t.Fatalf("expected only %s, got %+v", keep, got)
	}
	snap := q.Stats().Snapshot()
	if snap.NumScheduled != 2 || snap.NumFired != 1 || snap.NumCancelled != 1 {
		t.Fatalf("unexpected stats %+v", snap)
	}
}

func TestQueue_CancelGeneration(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue()

	q.Schedule(start.Add(time.Second), KindArrival, 1, "")
	q.Schedule(start.Add(2*time.Second), KindDay, 1, "")
	live := q.Schedule(start.Add(3*time.Second), KindDay, 2, "")

	if n := q.CancelGeneration(1); n != 2 {
		t.Fatalf("CancelGeneration dropped %d, want 2", n)
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1", q.Len())
	}
	pending := q.Pending()
	if len(pending) != 1 || pending[0].ID != live {
		t.Fatalf("Pending = %+v, want only %s", pending, live)
	}
	got := drain(q, start.Add(time.Minute))
	if len(got) != 1 || got[0].Generation != 2 {
		t.Fatalf("expected only generation 2 event, got %+v", got)
	}
}

func TestQueue_Clear(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	q := NewQueue()
	q.Schedule(start, KindArrival, 1, "")
	q.Schedule(start, KindWeather, 1, "")
	q.Clear()

	if q.Len() != 0 {
		t.Fatalf("Len after Clear = %d, want 0", q.Len())
	}
	if _, ok := q.Next(); ok {
		t.Fatalf("Next after Clear should report nothing")
	}
	if got := drain(q, start.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("events survived Clear: %+v", got)
	}
}

func TestStatsString(t *testing.T) {
	s := NewStats()
	s.IncStale()
	if got, want := s.String(), "scheduler: scheduled=0 fired=0 cancelled=0 stale=1"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
