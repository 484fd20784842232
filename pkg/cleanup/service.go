// Package cleanup provides background retention for execution records.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/detrin/sentinel/pkg/config"
	"github.com/detrin/sentinel/pkg/store"
)

// purgeInterval is how often the retention tasks run.
const purgeInterval = 6 * time.Hour

// Service periodically enforces retention policies:
//   - Purges finished action executions past the retention window
//   - Removes warning records superseded by a later check-in
//
// Both tasks are idempotent. A warning record only suppresses re-warning
// within the deadline cycle it was written in, so purging rows older than
// the switch's last check-in cannot affect a cycle still in progress.
type Service struct {
	config *config.RetentionConfig
	store  *store.Store

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *config.RetentionConfig, st *store.Store) *Service {
	return &Service{
		config: cfg,
		store:  st,
	}
}

// Start launches the background retention loop. A zero retention window
// disables the service entirely; every record is kept.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	if s.config.ExecutionDays == 0 {
		slog.Info("Cleanup service disabled, execution records are kept indefinitely")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"execution_retention_days", s.config.ExecutionDays,
		"interval", purgeInterval)
}

// Stop signals the retention loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeFinishedExecutions(ctx)
	s.purgeStaleWarnings(ctx)
}

// purgeFinishedExecutions deletes terminal execution records whose run
// started before the retention cutoff. Running records are left for startup
// recovery regardless of age.
func (s *Service) purgeFinishedExecutions(_ context.Context) {
	cutoff := time.Now().Add(-time.Duration(s.config.ExecutionDays) * 24 * time.Hour).Unix()
	count, err := s.store.PurgeCompletedExecutions(context.Background(), cutoff)
	if err != nil {
		slog.Error("Retention: execution purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged finished executions", "count", count)
	}
}

func (s *Service) purgeStaleWarnings(_ context.Context) {
	count, err := s.store.PurgeStaleWarningExecutions(context.Background())
	if err != nil {
		slog.Error("Retention: warning purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged superseded warning records", "count", count)
	}
}
