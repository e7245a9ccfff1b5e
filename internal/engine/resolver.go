package engine

import (
	"log/slog"
	"time"

	"github.com/leadkit/drip/internal/lead"
	"github.com/leadkit/drip/internal/logging"
	"github.com/leadkit/drip/internal/sequence"
)

// Action is the outcome of resolving one lead at one instant.
type Action int

const (
	// ActionNoop means nothing is due for the lead today.
	ActionNoop Action = iota
	// ActionFire means a configured step is due and should be dispatched.
	ActionFire
	// ActionEscalate means the lead hit a milestone day with no configured
	// step and needs a human.
	ActionEscalate
)

// Decision carries the resolved action. Step is set for ActionFire; DayCount
// for ActionEscalate.
type Decision struct {
	Action   Action
	Step     sequence.Step
	DayCount int
}

// Resolver decides, per lead and instant, whether an automated follow-up
// fires, the lead escalates, or nothing happens. It is a pure read of lead
// state against the catalog; placeholder substitution and all side effects
// belong to the caller.
type Resolver struct {
	catalog    *sequence.Catalog
	milestones sequence.Milestones
	log        *slog.Logger
}

// NewResolver creates a resolver over the given catalog and milestone set.
func NewResolver(catalog *sequence.Catalog, milestones sequence.Milestones) *Resolver {
	return &Resolver{
		catalog:    catalog,
		milestones: milestones,
		log:        logging.WithComponent("resolver"),
	}
}

// Resolve evaluates one lead against the catalog at the given instant.
//
// The same-calendar-day guard is the idempotency guard: it holds for the
// rest of the UTC day once any automated or manual follow-up is stamped.
func (r *Resolver) Resolve(l *lead.Lead, now time.Time) Decision {
	if l.StatusChangedAt.IsZero() {
		return Decision{Action: ActionNoop}
	}

	seq, ok := r.catalog.Lookup(l.Status)
	if !ok {
		// Missing or disabled sequence is a configuration gap, not an error.
		r.log.Debug("no enabled sequence for status",
			slog.String("lead_id", l.ID),
			slog.String("status", string(l.Status)),
		)
		return Decision{Action: ActionNoop}
	}

	elapsed := calendarDaysBetween(l.StatusChangedAt, now)
	if elapsed < 0 {
		r.log.Warn("clock skew: status change is in the future",
			slog.String("lead_id", l.ID),
			slog.Time("status_changed_at", l.StatusChangedAt),
			slog.Time("now", now),
		)
		return Decision{Action: ActionNoop}
	}

	if l.LastAutoMessageAt != nil && sameCalendarDay(*l.LastAutoMessageAt, now) {
		return Decision{Action: ActionNoop}
	}

	if step, ok := seq.StepAt(elapsed); ok {
		return Decision{Action: ActionFire, Step: step}
	}

	if r.milestones.Contains(elapsed) {
		return Decision{Action: ActionEscalate, DayCount: elapsed}
	}

	return Decision{Action: ActionNoop}
}
