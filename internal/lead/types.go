// Package lead defines the tracked lead model and its SQLite-backed store.
package lead

import (
	"fmt"
	"time"
)

// Status represents a lead's position in the sales pipeline.
// The engine treats statuses opaquely; sequences are keyed on them.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQuoted    Status = "quoted"
	StatusInvoiced  Status = "invoiced"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
)

// ParseStatus converts a user-supplied string to a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusNew, StatusContacted, StatusQuoted, StatusInvoiced, StatusWon, StatusLost:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q (expected new, contacted, quoted, invoiced, won, or lost)", s)
}

// Lead is a tracked lead whose status drives follow-up automation timing.
type Lead struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`

	// StatusChangedAt is the baseline for elapsed-day math. It is set at
	// creation and reset on every status transition.
	StatusChangedAt time.Time `json:"status_changed_at"`

	// LastAutoMessageAt records the most recent automated or operator
	// follow-up. Nil when no follow-up has been sent yet.
	LastAutoMessageAt *time.Time `json:"last_auto_message_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// MessageKind distinguishes automated drip sends from operator sends.
type MessageKind string

const (
	MessageKindAuto   MessageKind = "auto"
	MessageKindManual MessageKind = "manual"
)

// Message is one outbound follow-up recorded against a lead.
type Message struct {
	ID     int64       `json:"id"`
	LeadID string      `json:"lead_id"`
	Text   string      `json:"text"`
	Kind   MessageKind `json:"kind"`
	SentAt time.Time   `json:"sent_at"`
}
