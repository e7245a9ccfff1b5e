package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leadkit/drip/internal/logging"
)

// DefaultInterval is the scheduling period between scans.
const DefaultInterval = 60 * time.Second

// Scheduler drives the engine on a fixed period for the process lifetime.
// A tick that is still running when the next one is due causes the next one
// to be skipped, so ticks never overlap.
type Scheduler struct {
	engine   *Engine
	interval time.Duration
	cron     *cron.Cron
	entryID  cron.EntryID
	mu       sync.Mutex
	running  bool
	log      *slog.Logger
}

// NewScheduler creates a scheduler ticking at the given interval.
// Non-positive intervals fall back to DefaultInterval.
func NewScheduler(engine *Engine, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := logging.WithComponent("scheduler")
	return &Scheduler{
		engine:   engine,
		interval: interval,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(&cronLogger{log: log})),
		),
		log: log,
	}
}

// Start begins ticking. The first scan runs one interval after Start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	entryID, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.engine.Tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule tick: %w", err)
	}

	s.entryID = entryID
	s.cron.Start()
	s.running = true

	s.log.Info("scheduler started",
		slog.Duration("interval", s.interval),
		slog.Time("next_run", s.cron.Entry(s.entryID).Next),
	)
	return nil
}

// Stop halts the scheduler and waits for any in-flight tick to finish, so no
// lead is left half-updated.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.log.Info("scheduler stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled scan time, or zero when stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// cronLogger adapts slog to the cron.Logger interface so skipped overlapping
// ticks are reported through the standard log stream.
type cronLogger struct {
	log *slog.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{slog.Any("error", err)}, keysAndValues...)
	l.log.Error(msg, args...)
}
