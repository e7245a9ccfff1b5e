// Package escalation holds pending human-intervention requests raised when a
// lead hits a milestone day with no authored follow-up step.
package escalation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors returned by Queue.Push.
var (
	ErrFull = errors.New("escalation queue full")
	// ErrPending is returned when the lead already has a queued escalation.
	ErrPending = errors.New("escalation already pending for lead")
)

// DefaultCapacity bounds the queue when no capacity is configured.
const DefaultCapacity = 8

// Request is a pending human-intervention request for one lead.
type Request struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	LeadName  string    `json:"lead_name"`
	DayCount  int       `json:"day_count"`
	CreatedAt time.Time `json:"created_at"`
}

// NewRequest creates a Request with a fresh ID.
func NewRequest(leadID, leadName string, dayCount int, createdAt time.Time) *Request {
	return &Request{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		LeadName:  leadName,
		DayCount:  dayCount,
		CreatedAt: createdAt,
	}
}

// Queue is a bounded FIFO of escalation requests. A candidate arriving while
// the queue is full is dropped, and a lead is never queued twice. Configure
// capacity 1 to keep only the first pending escalation.
type Queue struct {
	mu       sync.Mutex
	capacity int
	items    []*Request
}

// NewQueue creates a queue with the given capacity. Non-positive capacities
// fall back to DefaultCapacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{capacity: capacity}
}

// Push appends a request. Returns ErrFull when the queue is at capacity and
// ErrPending when the lead already has a queued request.
func (q *Queue) Push(req *Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.LeadID == req.LeadID {
			return ErrPending
		}
	}
	if len(q.items) >= q.capacity {
		return ErrFull
	}

	q.items = append(q.items, req)
	return nil
}

// Peek returns the oldest pending request without removing it.
func (q *Queue) Peek() (*Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	return q.items[0], true
}

// Remove clears the pending request for a lead, returning it if present.
func (q *Queue) Remove(leadID string) (*Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.LeadID == leadID {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item, true
		}
	}
	return nil, false
}

// Get returns the pending request for a lead without removing it.
func (q *Queue) Get(leadID string) (*Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.LeadID == leadID {
			return item, true
		}
	}
	return nil, false
}

// Snapshot returns the pending requests in FIFO order.
func (q *Queue) Snapshot() []*Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Request, len(q.items))
	copy(out, q.items)
	return out
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
