// Package notify provides an ephemeral, auto-expiring feed of operator-facing
// events. Events are informational only and safe to lose on restart.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an event stays visible before it is swept.
const DefaultTTL = 5 * time.Second

// Event is one operator-facing notification.
type Event struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscriber receives events as they are published.
type Subscriber func(Event)

// Sink holds an ordered list of events, each auto-removed after a fixed TTL.
// Expiry is evaluated on the same timeline events are stamped in: callers
// that publish with an injected clock must hand the sink that clock too.
type Sink struct {
	ttl time.Duration
	now func() time.Time

	mu          sync.RWMutex
	events      []Event
	subscribers map[int]Subscriber
	nextSubID   int

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures the Sink.
type Option func(*Sink)

// WithNow injects the time source used for expiry. Used with a fake clock in
// tests and by callers whose event timestamps come from an injected clock.
func WithNow(now func() time.Time) Option {
	return func(s *Sink) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSink creates a sink whose events expire after ttl. Non-positive ttl
// falls back to DefaultTTL. The expiry janitor runs until Stop is called.
func NewSink(ttl time.Duration, opts ...Option) *Sink {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Sink{
		ttl:         ttl,
		now:         time.Now,
		subscribers: make(map[int]Subscriber),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweep()
	return s
}

// Publish appends an event and fans it out to subscribers.
func (s *Sink) Publish(text string, at time.Time) Event {
	event := Event{
		ID:        uuid.New().String(),
		Text:      text,
		CreatedAt: at,
	}

	s.mu.Lock()
	s.events = append(s.events, event)
	subscribers := make([]Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subscribers = append(subscribers, sub)
	}
	s.mu.Unlock()

	for _, sub := range subscribers {
		sub(event)
	}
	return event
}

// Subscribe registers a callback invoked on every published event and
// returns a function that removes it. Callbacks must not block.
func (s *Sink) Subscribe(sub Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = sub
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Events returns the events still inside the display window, oldest first.
func (s *Sink) Events() []Event {
	cutoff := s.now().Add(-s.ttl)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0, len(s.events))
	for _, event := range s.events {
		if event.CreatedAt.After(cutoff) {
			out = append(out, event)
		}
	}
	return out
}

// Stop shuts down the expiry janitor.
func (s *Sink) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// sweep drops expired events periodically.
func (s *Sink) sweep() {
	interval := s.ttl
	if interval > time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.expire(s.now())
		}
	}
}

// expire removes events older than the TTL relative to now.
func (s *Sink) expire(now time.Time) {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	for _, event := range s.events {
		if event.CreatedAt.After(cutoff) {
			kept = append(kept, event)
		}
	}
	s.events = kept
}
