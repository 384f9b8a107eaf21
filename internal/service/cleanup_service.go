// Package service contains the business logic layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
)

// CleanupService enforces the data retention policy. It runs one pass
// immediately on Start and then one per interval, and also serves
// synchronous user-initiated erasure requests.
type CleanupService struct {
	repos             *repository.Repositories
	recordRetention   time.Duration
	usageLogRetention time.Duration
	interval          time.Duration
	logger            *slog.Logger

	// nowFn is swappable in tests to pin the clock
	nowFn func() time.Time

	// passMu gives single-flight semantics: a tick that fires while a
	// pass is still running is skipped, not queued.
	passMu sync.Mutex

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewCleanupService creates a new cleanup service.
func NewCleanupService(repos *repository.Repositories, recordRetention, usageLogRetention, interval time.Duration, logger *slog.Logger) *CleanupService {
	return &CleanupService{
		repos:             repos,
		recordRetention:   recordRetention,
		usageLogRetention: usageLogRetention,
		interval:          interval,
		logger:            logger.With("component", "cleanup"),
		nowFn:             time.Now,
	}
}

// CleanupResult holds the per-category deletion counts of one pass.
type CleanupResult struct {
	OptimizationsDeleted int64 `json:"optimizations_deleted"`
	PersonasDeleted      int64 `json:"personas_deleted"`
	UsageLogsDeleted     int64 `json:"usage_logs_deleted"`
}

// Start launches the background cleanup loop. Calling Start on a running
// service is a no-op.
func (s *CleanupService) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		s.done = make(chan struct{})

		s.logger.Info("starting scheduled cleanup",
			"record_retention", s.recordRetention.String(),
			"usage_log_retention", s.usageLogRetention.String(),
			"interval", s.interval.String(),
		)

		go s.run(ctx)
	})
}

// Stop cancels future scheduled passes and waits for an in-flight pass to
// finish. Safe to call without a prior Start.
func (s *CleanupService) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *CleanupService) run(ctx context.Context) {
	defer close(s.done)

	s.runScheduled(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduled cleanup stopped")
			return
		case <-ticker.C:
			s.runScheduled(ctx)
		}
	}
}

// runScheduled runs one pass, skipping if another is in flight. Errors are
// logged and swallowed; a failed nightly pass must not crash the process
// and is retried on the next tick.
func (s *CleanupService) runScheduled(ctx context.Context) {
	if !s.passMu.TryLock() {
		s.logger.Warn("cleanup pass still running, skipping tick")
		return
	}
	defer s.passMu.Unlock()

	if _, err := s.runPass(ctx); err != nil {
		s.logger.Error("scheduled cleanup pass failed", "error", err)
	}
}

// RunCleanupPass runs one cleanup pass synchronously. Unlike the scheduled
// path, errors are returned to the caller.
func (s *CleanupService) RunCleanupPass(ctx context.Context) (*CleanupResult, error) {
	s.passMu.Lock()
	defer s.passMu.Unlock()
	return s.runPass(ctx)
}

func (s *CleanupService) runPass(ctx context.Context) (*CleanupResult, error) {
	now := s.nowFn()
	recordCutoff := now.Add(-s.recordRetention)
	usageLogCutoff := now.Add(-s.usageLogRetention)

	s.logger.Info("starting cleanup pass",
		"record_cutoff", recordCutoff.Format(time.RFC3339),
		"usage_log_cutoff", usageLogCutoff.Format(time.RFC3339),
	)

	result := &CleanupResult{}

	var err error
	result.OptimizationsDeleted, err = s.repos.Optimization.DeleteOlderThan(ctx, recordCutoff)
	if err != nil {
		return result, fmt.Errorf("failed to delete old optimizations: %w", err)
	}

	result.PersonasDeleted, err = s.repos.Persona.DeleteUnsavedOlderThan(ctx, recordCutoff)
	if err != nil {
		return result, fmt.Errorf("failed to delete old personas: %w", err)
	}

	result.UsageLogsDeleted, err = s.repos.UsageLog.DeleteOlderThan(ctx, usageLogCutoff)
	if err != nil {
		return result, fmt.Errorf("failed to delete old usage logs: %w", err)
	}

	s.logger.Info("cleanup pass completed",
		"optimizations_deleted", result.OptimizationsDeleted,
		"personas_deleted", result.PersonasDeleted,
		"usage_logs_deleted", result.UsageLogsDeleted,
	)

	return result, nil
}

// ErasureResult holds the counts of a user-initiated deletion.
type ErasureResult struct {
	OptimizationsDeleted int64 `json:"optimizations_deleted"`
	PersonasDeleted      int64 `json:"personas_deleted"`
}

// DeleteUserData removes every optimization and persona owned by the
// fingerprint, saved or not. Synchronous and exact: it is user-facing.
// Deleting for an unknown fingerprint returns zero counts, not an error.
func (s *CleanupService) DeleteUserData(ctx context.Context, fingerprint string) (*ErasureResult, error) {
	result := &ErasureResult{}

	var err error
	result.OptimizationsDeleted, err = s.repos.Optimization.DeleteByOwner(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to delete optimizations: %w", err)
	}

	result.PersonasDeleted, err = s.repos.Persona.DeleteByOwner(ctx, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to delete personas: %w", err)
	}

	s.logger.Info("user data deleted",
		"fingerprint", fingerprint,
		"optimizations_deleted", result.OptimizationsDeleted,
		"personas_deleted", result.PersonasDeleted,
	)

	return result, nil
}
