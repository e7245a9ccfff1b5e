package escalation

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPushPeekRemove(t *testing.T) {
	q := NewQueue(4)
	now := time.Now().UTC()

	req := NewRequest("lead-1", "Ada", 21, now)
	if err := q.Push(req); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	got, ok := q.Peek()
	if !ok || got.LeadID != "lead-1" {
		t.Fatalf("Peek = %+v, %v", got, ok)
	}
	if got.DayCount != 21 {
		t.Errorf("DayCount = %d, want 21", got.DayCount)
	}
	if got.ID == "" {
		t.Error("request has empty ID")
	}

	removed, ok := q.Remove("lead-1")
	if !ok || removed.ID != req.ID {
		t.Fatalf("Remove = %+v, %v", removed, ok)
	}
	if q.Len() != 0 {
		t.Errorf("Len = %d after remove, want 0", q.Len())
	}
}

func TestPushFIFOOrder(t *testing.T) {
	q := NewQueue(4)
	now := time.Now().UTC()

	for i, id := range []string{"a", "b", "c"} {
		if err := q.Push(NewRequest(id, id, 10+i, now)); err != nil {
			t.Fatalf("Push(%s) failed: %v", id, err)
		}
	}

	snapshot := q.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("Snapshot len = %d, want 3", len(snapshot))
	}
	for i, id := range []string{"a", "b", "c"} {
		if snapshot[i].LeadID != id {
			t.Errorf("snapshot[%d] = %s, want %s", i, snapshot[i].LeadID, id)
		}
	}
}

func TestPushDropsWhenFull(t *testing.T) {
	q := NewQueue(2)
	now := time.Now().UTC()

	for i := 0; i < 2; i++ {
		if err := q.Push(NewRequest(fmt.Sprintf("lead-%d", i), "x", 5, now)); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	err := q.Push(NewRequest("lead-overflow", "x", 5, now))
	if !errors.Is(err, ErrFull) {
		t.Fatalf("Push on full queue error = %v, want ErrFull", err)
	}
	if q.Len() != 2 {
		t.Errorf("Len = %d, want 2 (dropped candidate must not be merged)", q.Len())
	}
}

func TestPushDedupesByLead(t *testing.T) {
	q := NewQueue(4)
	now := time.Now().UTC()

	first := NewRequest("lead-1", "Ada", 21, now)
	if err := q.Push(first); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	err := q.Push(NewRequest("lead-1", "Ada", 30, now))
	if !errors.Is(err, ErrPending) {
		t.Fatalf("second Push error = %v, want ErrPending", err)
	}

	got, ok := q.Peek()
	if !ok || got.ID != first.ID || got.DayCount != 21 {
		t.Errorf("Peek = %+v, want original request preserved", got)
	}
}

func TestSingleSlotCapacity(t *testing.T) {
	// Capacity 1 reproduces the keep-first, drop-rest behavior.
	q := NewQueue(1)
	now := time.Now().UTC()

	if err := q.Push(NewRequest("lead-1", "Ada", 21, now)); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if err := q.Push(NewRequest("lead-2", "Bob", 30, now)); !errors.Is(err, ErrFull) {
		t.Fatalf("second Push error = %v, want ErrFull", err)
	}
	if q.Len() != 1 {
		t.Errorf("Len = %d, want 1", q.Len())
	}
}

func TestGet(t *testing.T) {
	q := NewQueue(4)
	if err := q.Push(NewRequest("lead-1", "Ada", 21, time.Now().UTC())); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if _, ok := q.Get("lead-1"); !ok {
		t.Error("Get(lead-1) = false, want true")
	}
	if _, ok := q.Get("lead-2"); ok {
		t.Error("Get(lead-2) = true, want false")
	}
	if q.Len() != 1 {
		t.Errorf("Get must not remove; Len = %d", q.Len())
	}
}
