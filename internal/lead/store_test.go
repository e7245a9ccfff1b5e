package lead

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	dbPath := filepath.Join(tmpDir, "drip.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file not created")
	}
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	changed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	l := &Lead{
		ID:              "lead-1",
		Name:            "Ada",
		Status:          StatusQuoted,
		StatusChangedAt: changed,
	}
	if err := store.Create(ctx, l); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "lead-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Ada" {
		t.Errorf("Name = %q, want Ada", got.Name)
	}
	if got.Status != StatusQuoted {
		t.Errorf("Status = %q, want %q", got.Status, StatusQuoted)
	}
	if !got.StatusChangedAt.Equal(changed) {
		t.Errorf("StatusChangedAt = %v, want %v", got.StatusChangedAt, changed)
	}
	if got.LastAutoMessageAt != nil {
		t.Errorf("LastAutoMessageAt = %v, want nil", got.LastAutoMessageAt)
	}
}

func TestGetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGetAllSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		l := &Lead{
			ID:              id,
			Name:            "Lead " + id,
			Status:          StatusNew,
			StatusChangedAt: time.Now().UTC(),
		}
		if err := store.Create(ctx, l); err != nil {
			t.Fatalf("Create(%s) failed: %v", id, err)
		}
	}

	leads, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(leads) != 3 {
		t.Fatalf("GetAll returned %d leads, want 3", len(leads))
	}
}

func TestSetStatusResetsBaseline(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Create(ctx, &Lead{ID: "lead-1", Name: "Ada", Status: StatusNew, StatusChangedAt: old}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	changed := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	if err := store.SetStatus(ctx, "lead-1", StatusContacted, changed); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}

	got, err := store.Get(ctx, "lead-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != StatusContacted {
		t.Errorf("Status = %q, want %q", got.Status, StatusContacted)
	}
	if !got.StatusChangedAt.Equal(changed) {
		t.Errorf("StatusChangedAt = %v, want %v", got.StatusChangedAt, changed)
	}
}

func TestSetStatusNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.SetStatus(context.Background(), "missing", StatusWon, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStatus(missing) error = %v, want ErrNotFound", err)
	}
}

func TestCommitSendStampsAndRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, &Lead{ID: "lead-1", Name: "Ada", Status: StatusQuoted, StatusChangedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sentAt := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	if err := store.CommitSend(ctx, "lead-1", "Hi Ada, checking in", MessageKindAuto, sentAt); err != nil {
		t.Fatalf("CommitSend failed: %v", err)
	}

	got, err := store.Get(ctx, "lead-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.LastAutoMessageAt == nil || !got.LastAutoMessageAt.Equal(sentAt) {
		t.Errorf("LastAutoMessageAt = %v, want %v", got.LastAutoMessageAt, sentAt)
	}

	messages, err := store.Messages(ctx, "lead-1")
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages) != 1 {
		t.Fatalf("Messages returned %d, want 1", len(messages))
	}
	if messages[0].Text != "Hi Ada, checking in" {
		t.Errorf("Text = %q", messages[0].Text)
	}
	if messages[0].Kind != MessageKindAuto {
		t.Errorf("Kind = %q, want auto", messages[0].Kind)
	}
}

func TestCommitSendUnknownLeadLeavesNoMessage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.CommitSend(ctx, "missing", "text", MessageKindAuto, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("CommitSend(missing) error = %v, want ErrNotFound", err)
	}

	messages, err := store.Messages(ctx, "missing")
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("Messages returned %d, want 0 (transaction must roll back)", len(messages))
	}
}
