package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Kind identifies which game timer an event belongs to.
type Kind int

const (
	// KindArrival generates a flight and re-arms with a fresh interval.
	KindArrival Kind = iota
	// KindOpeningArrival is the one-shot second flight after start.
	KindOpeningArrival
	// KindDay advances the day and charges operating costs.
	KindDay
	// KindWeather redraws the weather.
	KindWeather
	// KindAlertExpiry removes the alert named by Event.Ref.
	KindAlertExpiry
)

func (k Kind) String() string {
	switch k {
	case KindArrival:
		return "arrival"
	case KindOpeningArrival:
		return "opening_arrival"
	case KindDay:
		return "day"
	case KindWeather:
		return "weather"
	case KindAlertExpiry:
		return "alert_expiry"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one scheduled firing. Generation ties it to the session that
// armed it; drivers discard events whose generation is no longer live.
type Event struct {
	ID         string
	At         time.Time
	Kind       Kind
	Generation uint64
	Ref        string
}

type entry struct {
	ev        Event
	cancelled bool
}

// Queue is a time-ordered set of pending events. It never runs anything
// itself: a driver pops due events and dispatches them. Events due at the
// same instant pop in the order they were scheduled.
type Queue struct {
	mu      sync.Mutex
	counter uint64
	events  []*entry // ordered by At, earliest first
	index   map[string]*entry
	stats   *Stats
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{
		index: make(map[string]*entry),
		stats: NewStats(),
	}
}

// Stats exposes the queue's counters.
func (q *Queue) Stats() *Stats {
	return q.stats
}

// Schedule arms an event and returns its id.
func (q *Queue) Schedule(at time.Time, kind Kind, generation uint64, ref string) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.counter++
	e := &entry{ev: Event{
		ID:         fmt.Sprintf("ev-%d", q.counter),
		At:         at,
		Kind:       kind,
		Generation: generation,
		Ref:        ref,
	}}
	q.insertLocked(e)
	q.index[e.ev.ID] = e
	q.stats.incScheduled()
	return e.ev.ID
}

// insertLocked places e after every event due at or before e.ev.At.
func (q *Queue) insertLocked(e *entry) {
	idx := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].ev.At.After(e.ev.At)
	})
	q.events = append(q.events, nil)
	copy(q.events[idx+1:], q.events[idx:])
	q.events[idx] = e
}

// Cancel drops a pending event. Unknown or already-popped ids are ignored.
func (q *Queue) Cancel(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.index[id]
	if !ok {
		return
	}
	e.cancelled = true
	delete(q.index, id)
	q.stats.incCancelled(1)
}

// CancelGeneration drops every pending event armed by generation and
// reports how many were dropped.
func (q *Queue) CancelGeneration(generation uint64) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for id, e := range q.index {
		if e.ev.Generation != generation {
			continue
		}
		e.cancelled = true
		delete(q.index, id)
		n++
	}
	q.stats.incCancelled(n)
	return n
}

// PopDue removes and returns the earliest live event due at or before now.
func (q *Queue) PopDue(now time.Time) (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.events) > 0 {
		e := q.events[0]
		if e.cancelled {
			q.events = q.events[1:]
			continue
		}
		if e.ev.At.After(now) {
			break
		}
		q.events = q.events[1:]
		delete(q.index, e.ev.ID)
		q.stats.incFired()
		return e.ev, true
	}
	return Event{}, false
}

// Next reports when the earliest live event is due.
func (q *Queue) Next() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.events {
		if !e.cancelled {
			return e.ev.At, true
		}
	}
	return time.Time{}, false
}

// Len is the number of live events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.index)
}

// Pending lists live events in firing order.
func (q *Queue) Pending() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Event, 0, len(q.index))
	for _, e := range q.events {
		if !e.cancelled {
			out = append(out, e.ev)
		}
	}
	return out
}

// Clear drops everything.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.stats.incCancelled(len(q.index))
	q.events = nil
	q.index = make(map[string]*entry)
}
