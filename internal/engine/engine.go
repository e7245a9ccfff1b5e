// Package engine implements the drip-automation core: the per-tick trigger
// resolver, the scheduler that drives it, and the manual resolution handler
// operators use to clear escalations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leadkit/drip/internal/escalation"
	"github.com/leadkit/drip/internal/lead"
	"github.com/leadkit/drip/internal/logging"
	"github.com/leadkit/drip/internal/messaging"
	"github.com/leadkit/drip/internal/notify"
	"github.com/leadkit/drip/internal/sequence"
)

// Errors surfaced to operators by the manual resolution handler.
var (
	ErrEmptyMessage = errors.New("resolution message is empty")
	ErrNoEscalation = errors.New("no pending escalation for lead")
)

// DefaultDispatchTimeout bounds one outbound send so a slow gateway cannot
// stall the scan.
const DefaultDispatchTimeout = 10 * time.Second

// LeadStore is the persistence surface the engine mutates. The SQLite store
// in internal/lead satisfies it.
type LeadStore interface {
	GetAll(ctx context.Context) ([]*lead.Lead, error)
	Get(ctx context.Context, id string) (*lead.Lead, error)
	CommitSend(ctx context.Context, id, text string, kind lead.MessageKind, sentAt time.Time) error
}

// FireFunc is notified after an automated follow-up is committed.
type FireFunc func(leadID string, step sequence.Step)

// EscalateFunc is notified after an escalation is queued.
type EscalateFunc func(leadID string, dayCount int)

// Engine owns all drip-automation state mutation. The tick scan and manual
// resolutions are serialized on one mutex so a resolution racing a tick can
// never both pass the same-day guard before either commits.
type Engine struct {
	store      LeadStore
	gateway    messaging.Gateway
	resolver   *Resolver
	queue      *escalation.Queue
	sink       *notify.Sink
	clock      Clock
	dispatchTO time.Duration

	onFire     FireFunc
	onEscalate EscalateFunc

	mu  sync.Mutex
	log *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithClock injects a clock. Used in tests.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDispatchTimeout bounds each outbound send.
func WithDispatchTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.dispatchTO = d
		}
	}
}

// WithOnFire registers the fire callback.
func WithOnFire(fn FireFunc) Option {
	return func(e *Engine) { e.onFire = fn }
}

// WithOnEscalate registers the escalation callback.
func WithOnEscalate(fn EscalateFunc) Option {
	return func(e *Engine) { e.onEscalate = fn }
}

// New creates an Engine.
func New(store LeadStore, gateway messaging.Gateway, resolver *Resolver, queue *escalation.Queue, sink *notify.Sink, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		gateway:    gateway,
		resolver:   resolver,
		queue:      queue,
		sink:       sink,
		clock:      SystemClock(),
		dispatchTO: DefaultDispatchTimeout,
		log:        logging.WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Queue exposes the escalation queue for read access.
func (e *Engine) Queue() *escalation.Queue { return e.queue }

// Sink exposes the notification sink.
func (e *Engine) Sink() *notify.Sink { return e.sink }

// Tick runs one full scan: snapshot the lead set, resolve each lead, apply
// side effects. A failure on one lead is logged and does not abort the scan.
func (e *Engine) Tick(ctx context.Context) {
	now := e.clock.Now().UTC()

	leads, err := e.store.GetAll(ctx)
	if err != nil {
		e.log.Error("failed to snapshot leads", slog.Any("error", err))
		return
	}

	for _, l := range leads {
		if ctx.Err() != nil {
			return
		}
		if err := e.processLead(ctx, l.ID, now); err != nil {
			e.log.Error("lead processing failed",
				slog.String("lead_id", l.ID),
				slog.Any("error", err),
			)
		}
	}
}

// processLead resolves and applies side effects for one lead. It re-reads
// the lead under the engine mutex so a manual resolution committed after the
// tick snapshot is still seen by the same-day guard.
func (e *Engine) processLead(ctx context.Context, leadID string, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, err := e.store.Get(ctx, leadID)
	if err != nil {
		if errors.Is(err, lead.ErrNotFound) {
			// Deleted between snapshot and processing.
			return nil
		}
		return err
	}

	decision := e.resolver.Resolve(l, now)
	switch decision.Action {
	case ActionFire:
		return e.fire(ctx, l, decision.Step, now)
	case ActionEscalate:
		e.escalate(l, decision.DayCount, now)
		return nil
	default:
		return nil
	}
}

// fire dispatches one automated follow-up. The stamp and the outbound record
// are committed together, and only after the gateway reports success; a
// dispatch failure leaves the lead eligible for retry on a later tick.
func (e *Engine) fire(ctx context.Context, l *lead.Lead, step sequence.Step, now time.Time) error {
	text := step.Render(l.Name)

	dispatchCtx, cancel := context.WithTimeout(ctx, e.dispatchTO)
	err := e.gateway.Send(dispatchCtx, l.ID, text)
	cancel()
	if err != nil {
		// Silent to the operator, logged for audit. No stamp on failure.
		return fmt.Errorf("dispatch failed at day %d: %w", step.DayOffset, err)
	}

	if err := e.store.CommitSend(ctx, l.ID, text, lead.MessageKindAuto, now); err != nil {
		return fmt.Errorf("failed to commit send: %w", err)
	}

	e.log.Info("automated follow-up sent",
		slog.String("lead_id", l.ID),
		slog.Int("day_offset", step.DayOffset),
	)
	e.sink.Publish(fmt.Sprintf("Follow-up sent to %s (day %d)", l.Name, step.DayOffset), now)

	if e.onFire != nil {
		e.onFire(l.ID, step)
	}
	return nil
}

// escalate queues a human-intervention request. A full queue or an already
// pending lead drops the candidate; neither is an error.
func (e *Engine) escalate(l *lead.Lead, dayCount int, now time.Time) {
	req := escalation.NewRequest(l.ID, l.Name, dayCount, now)
	if err := e.queue.Push(req); err != nil {
		e.log.Warn("escalation dropped",
			slog.String("lead_id", l.ID),
			slog.Int("day_count", dayCount),
			slog.Any("reason", err),
		)
		return
	}

	e.log.Info("escalation queued",
		slog.String("lead_id", l.ID),
		slog.Int("day_count", dayCount),
	)
	e.sink.Publish(fmt.Sprintf("%s needs a manual follow-up (day %d)", l.Name, dayCount), now)

	if e.onEscalate != nil {
		e.onEscalate(l.ID, dayCount)
	}
}

// ResolveEscalation dispatches an operator-authored message for a lead,
// stamps the lead (re-arming the same-day guard), and clears its queued
// escalation -- in that order, as one serialized transaction against the
// engine. A dispatch failure is returned synchronously and leaves both the
// stamp and the queue untouched so the operator can retry.
func (e *Engine) ResolveEscalation(ctx context.Context, leadID, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	l, err := e.store.Get(ctx, leadID)
	if err != nil {
		return err
	}

	now := e.clock.Now().UTC()

	dispatchCtx, cancel := context.WithTimeout(ctx, e.dispatchTO)
	err = e.gateway.Send(dispatchCtx, leadID, message)
	cancel()
	if err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}

	if err := e.store.CommitSend(ctx, leadID, message, lead.MessageKindManual, now); err != nil {
		return fmt.Errorf("failed to commit send: %w", err)
	}

	e.queue.Remove(leadID)

	e.log.Info("escalation resolved",
		slog.String("lead_id", leadID),
	)
	e.sink.Publish(fmt.Sprintf("Manual follow-up sent to %s", l.Name), now)
	return nil
}

// SkipEscalation clears a lead's queued escalation without dispatching or
// stamping. The lead stays eligible to escalate again later the same day.
func (e *Engine) SkipEscalation(leadID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	req, ok := e.queue.Remove(leadID)
	if !ok {
		return ErrNoEscalation
	}

	e.log.Info("escalation skipped",
		slog.String("lead_id", leadID),
		slog.Int("day_count", req.DayCount),
	)
	return nil
}
