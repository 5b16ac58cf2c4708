package notify

import (
	"sync"
	"time"
)

// Kind names a notification that presentation collaborators (sound, toasts,
// UI refresh) react to.
type Kind string

const (
	FlightAssigned   Kind = "flightAssigned"
	FlightComplete   Kind = "flightComplete"
	EmergencyArrival Kind = "emergencyArrival"
	UpgradePurchased Kind = "upgradePurchased"
	WarningRaised    Kind = "warningRaised"
	CommandRejected  Kind = "commandRejected"
	GameOver         Kind = "gameOver"
)

// Notification is a fire-and-forget event emitted by the engine.
type Notification struct {
	Kind       Kind      `json:"kind"`
	At         time.Time `json:"at"`
	Generation uint64    `json:"generation"`
	// Subject is the flight, gate or upgrade id the notification concerns.
	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"`
	// Value carries a number tied to the kind: revenue for flightComplete,
	// final score for gameOver.
	Value int `json:"value,omitempty"`
	// Rating is the 1-5 star rating, set on gameOver only.
	Rating int `json:"rating,omitempty"`
}

// Bus fans notifications out to subscribers. Callbacks run on the
// publishing goroutine, outside the bus lock, and must not block.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Notification)
	order  []int
}

// NewBus returns a bus with no subscribers.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Notification))}
}

// Subscribe registers fn and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (b *Bus) Subscribe(fn func(Notification)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; !ok {
			return
		}
		delete(b.subs, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers each notification to every subscriber in subscription
// order.
func (b *Bus) Publish(ns ...Notification) {
	if b == nil || len(ns) == 0 {
		return
	}
	b.mu.RLock()
	fns := make([]func(Notification), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, n := range ns {
		for _, fn := range fns {
			fn(n)
		}
	}
}

// Channel subscribes a buffered channel to the bus. Notifications that
// arrive while the buffer is full are dropped.
func (b *Bus) Channel(size int) (<-chan Notification, func()) {
	ch := make(chan Notification, size)
	var once sync.Once
	var mu sync.Mutex
	closed := false
	unsub := b.Subscribe(func(n Notification) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- n:
		default:
		}
	})
	return ch, func() {
		once.Do(func() {
			unsub()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
}
