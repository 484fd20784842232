// Package watchdog drives deadline supervision: a serial loop that fires
// warnings as deadlines approach, final actions when they pass, and capped
// re-fires afterwards.
//
// The loop is deliberately single-threaded: one tick at a time, one switch
// at a time, one action at a time. Slow actions stretch the tick instead of
// piling up goroutines, and the next tick starts a full interval after the
// previous one finished.
package watchdog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/detrin/sentinel/pkg/models"
	"github.com/detrin/sentinel/pkg/observability"
	"github.com/detrin/sentinel/pkg/store"
)

// tickInterval is the pause between the end of one tick and the start of
// the next. Deadlines have 10-second granularity by design.
const tickInterval = 10 * time.Second

// Scheduler owns the supervision loop.
type Scheduler struct {
	store    *store.Store
	runner   *Runner
	clock    clock.Clock
	interval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu       sync.RWMutex
	running  bool
	lastTick time.Time
}

// NewScheduler creates a scheduler. The clock is injectable so tests can
// step time; production passes clock.WallClock.
func NewScheduler(st *store.Store, runner *Runner, clk clock.Clock) *Scheduler {
	return &Scheduler{
		store:    st,
		runner:   runner,
		clock:    clk,
		interval: tickInterval,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the supervision loop in a goroutine. Crash recovery runs
// before the first tick so stale running records never survive into a new
// supervision cycle.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop signals the loop to exit and waits for the in-flight tick to drain.
// Safe to call multiple times.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Running reports whether the loop has been started and not yet stopped.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// LastTick returns when the most recent tick completed; zero before the
// first tick.
func (s *Scheduler) LastTick() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTick
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	log := slog.With("component", "watchdog")
	log.Info("Watchdog starting")

	s.reapOrphans(ctx)

	for {
		s.tick(ctx)

		select {
		case <-s.stopCh:
			log.Info("Watchdog shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, watchdog shutting down")
			return
		case <-s.clock.After(s.interval):
		}
	}
}

// reapOrphans closes out execution records left running by a previous
// process. It must complete before the first tick.
func (s *Scheduler) reapOrphans(ctx context.Context) {
	count, err := s.store.ReapOrphanedExecutions(ctx)
	if err != nil {
		slog.Error("Failed to reap orphaned executions", "error", err)
		return
	}
	if count > 0 {
		slog.Warn("Reaped orphaned executions from previous run", "count", count)
		observability.OrphanedExecutionsReaped.Add(float64(count))
		return
	}
	slog.Info("No orphaned executions found")
}

// tick is one full evaluation pass. The active sweep runs before the
// triggered sweep so a switch that expires this tick is not also re-fired
// this tick.
func (s *Scheduler) tick(ctx context.Context) {
	started := s.clock.Now()
	now := started.Unix()

	s.sweepActive(ctx, now)
	s.sweepTriggered(ctx, now)
	s.updateStatusGauges(ctx)

	observability.SchedulerTicks.Inc()
	observability.SchedulerTickDuration.Observe(s.clock.Now().Sub(started).Seconds())

	s.mu.Lock()
	s.lastTick = s.clock.Now()
	s.mu.Unlock()
}

func (s *Scheduler) sweepActive(ctx context.Context, now int64) {
	switches, err := s.store.ListActiveSwitches(ctx)
	if err != nil {
		slog.Error("Failed to fetch active switches", "error", err)
		return
	}

	for _, sw := range switches {
		age := now - sw.LastCheckin
		if age >= sw.TimeoutSeconds {
			s.fireExpiry(ctx, sw, now, age)
			continue
		}
		s.fireDueWarnings(ctx, sw, now, age)
	}
}

// fireExpiry runs a switch's final actions and transitions it to triggered.
// Expiry supersedes warnings: a missed warning is recoverable, a missed
// final is not.
func (s *Scheduler) fireExpiry(ctx context.Context, sw *models.Switch, now, age int64) {
	slog.Info("Switch expired",
		"switch_id", sw.ID,
		"name", sw.Name,
		"seconds_past_deadline", age-sw.TimeoutSeconds)

	finalActions, err := s.store.ListActions(ctx, sw.ID, false)
	if err != nil {
		slog.Error("Failed to get final actions", "switch_id", sw.ID, "error", err)
		return
	}

	s.runner.RunAll(ctx, sw.ID, finalActions, models.ExecutionTypeFinal)
	observability.FiringsTotal.WithLabelValues(observability.FiringKindFinal).Inc()

	if err := s.store.MarkTriggered(ctx, sw.ID, now); err != nil {
		slog.Error("Failed to mark switch triggered", "switch_id", sw.ID, "error", err)
	}
}

// fireDueWarnings evaluates stages in ascending order and fires each pending
// one at most once per deadline cycle.
func (s *Scheduler) fireDueWarnings(ctx context.Context, sw *models.Switch, now, age int64) {
	stages, err := s.store.ListWarningStages(ctx, sw.ID)
	if err != nil {
		slog.Error("Failed to get warning stages", "switch_id", sw.ID, "error", err)
		return
	}

	for _, stage := range stages {
		threshold := sw.TimeoutSeconds - stage.SecondsBeforeDeadline
		if age < threshold {
			continue
		}

		sent, err := s.store.WasWarningSent(ctx, sw.ID, stage.SecondsBeforeDeadline)
		if err != nil {
			slog.Error("Failed to check warning status", "switch_id", sw.ID, "error", err)
			continue
		}
		if sent {
			continue
		}

		slog.Info("Sending warning",
			"switch_id", sw.ID,
			"name", sw.Name,
			"seconds_before_deadline", stage.SecondsBeforeDeadline)

		warningActions, err := s.store.ListActions(ctx, sw.ID, true)
		if err != nil {
			slog.Error("Failed to get warning actions", "switch_id", sw.ID, "error", err)
			continue
		}

		s.runner.RunAll(ctx, sw.ID, warningActions, models.ExecutionTypeWarning)
		observability.FiringsTotal.WithLabelValues(observability.FiringKindWarning).Inc()

		// Recorded strictly after the run. The run always returns under
		// continue-on-error, and a crash between run and record re-warns on
		// restart rather than silently dropping the stage.
		if err := s.store.RecordWarningSent(ctx, sw.ID, stage.SecondsBeforeDeadline, now); err != nil {
			slog.Error("Failed to record warning execution", "switch_id", sw.ID, "error", err)
		}
	}
}

func (s *Scheduler) sweepTriggered(ctx context.Context, now int64) {
	switches, err := s.store.ListTriggeredSwitches(ctx)
	if err != nil {
		slog.Error("Failed to fetch triggered switches", "error", err)
		return
	}

	for _, sw := range switches {
		shouldFire := sw.TriggerCountMax == 0 || sw.TriggerCountExecuted < sw.TriggerCountMax
		if !shouldFire || sw.LastTrigger == nil {
			continue
		}
		if now-*sw.LastTrigger < sw.TriggerIntervalSeconds {
			continue
		}

		slog.Info("Re-triggering switch",
			"switch_id", sw.ID,
			"name", sw.Name,
			"executed", sw.TriggerCountExecuted+1,
			"max", sw.TriggerCountMax)

		finalActions, err := s.store.ListActions(ctx, sw.ID, false)
		if err != nil {
			slog.Error("Failed to get final actions", "switch_id", sw.ID, "error", err)
			continue
		}

		s.runner.RunAll(ctx, sw.ID, finalActions, models.ExecutionTypeFinal)
		observability.FiringsTotal.WithLabelValues(observability.FiringKindRefire).Inc()

		if err := s.store.RecordRetrigger(ctx, sw.ID, now); err != nil {
			slog.Error("Failed to record retrigger", "switch_id", sw.ID, "error", err)
		}
	}
}

func (s *Scheduler) updateStatusGauges(ctx context.Context) {
	counts, err := s.store.CountSwitchesByStatus(ctx)
	if err != nil {
		slog.Error("Failed to count switches by status", "error", err)
		return
	}
	for _, status := range []models.SwitchStatus{
		models.SwitchStatusActive,
		models.SwitchStatusTriggered,
		models.SwitchStatusPaused,
	} {
		observability.SwitchesByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
