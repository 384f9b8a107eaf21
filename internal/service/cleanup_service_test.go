package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
)

const (
	testRecordRetention   = 30 * 24 * time.Hour
	testUsageLogRetention = 90 * 24 * time.Hour
)

func setupCleanupService(t *testing.T) (*CleanupService, *repository.Repositories) {
	t.Helper()
	repos := setupTestRepos(t)
	svc := NewCleanupService(repos, testRecordRetention, testUsageLogRetention, 24*time.Hour, discardLogger)
	return svc, repos
}

func createOptimizationAt(t *testing.T, repos *repository.Repositories, fingerprint string, createdAt time.Time) int64 {
	t.Helper()
	opt := &models.Optimization{
		OriginalPrompt:  "write a poem",
		OptimizedPrompt: "Write a four stanza poem about autumn.",
		Fingerprint:     fingerprint,
		CreatedAt:       createdAt,
	}
	if err := repos.Optimization.Create(context.Background(), opt); err != nil {
		t.Fatalf("failed to create optimization: %v", err)
	}
	return opt.ID
}

func createPersonaAt(t *testing.T, repos *repository.Repositories, fingerprint string, saved bool, createdAt time.Time) int64 {
	t.Helper()
	p := &models.Persona{
		Name:             "Test Persona",
		OriginalInput:    "a patient tutor",
		GeneratedPersona: "You are a patient tutor...",
		Fingerprint:      fingerprint,
		Phase:            models.PersonaPhaseGenerated,
		Saved:            saved,
		CreatedAt:        createdAt,
	}
	if err := repos.Persona.Create(context.Background(), p); err != nil {
		t.Fatalf("failed to create persona: %v", err)
	}
	return p.ID
}

func TestRunCleanupPassRetention(t *testing.T) {
	svc, repos := setupCleanupService(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc.nowFn = func() time.Time { return now }

	// Older than 30 days: deleted
	createOptimizationAt(t, repos, "fp_1", now.Add(-31*24*time.Hour))
	// Inside the window: kept
	keptOpt := createOptimizationAt(t, repos, "fp_1", now.Add(-29*24*time.Hour))

	// Saved persona past the window: kept anyway
	savedID := createPersonaAt(t, repos, "fp_1", true, now.Add(-60*24*time.Hour))
	// Unsaved past the window: deleted
	createPersonaAt(t, repos, "fp_1", false, now.Add(-31*24*time.Hour))

	result, err := svc.RunCleanupPass(ctx)
	if err != nil {
		t.Fatalf("RunCleanupPass failed: %v", err)
	}
	if result.OptimizationsDeleted != 1 {
		t.Errorf("expected 1 optimization deleted, got %d", result.OptimizationsDeleted)
	}
	if result.PersonasDeleted != 1 {
		t.Errorf("expected 1 persona deleted, got %d", result.PersonasDeleted)
	}

	if got, _ := repos.Optimization.GetByID(ctx, keptOpt); got == nil {
		t.Error("optimization inside retention window was deleted")
	}
	if got, _ := repos.Persona.GetByID(ctx, savedID); got == nil {
		t.Error("saved persona must never be deleted by the scheduled pass")
	}
}

func TestRunCleanupPassUsageLogWindow(t *testing.T) {
	svc, repos := setupCleanupService(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc.nowFn = func() time.Time { return now }

	logs := []struct {
		id  string
		age time.Duration
	}{
		{"log_ancient", 91 * 24 * time.Hour},
		{"log_recent", 89 * 24 * time.Hour},
	}
	for _, l := range logs {
		err := repos.UsageLog.Create(ctx, &models.UsageLog{
			ID:          l.id,
			RequestType: "optimize",
			CreatedAt:   now.Add(-l.age),
		})
		if err != nil {
			t.Fatalf("failed to create usage log: %v", err)
		}
	}

	result, err := svc.RunCleanupPass(ctx)
	if err != nil {
		t.Fatalf("RunCleanupPass failed: %v", err)
	}
	if result.UsageLogsDeleted != 1 {
		t.Errorf("expected 1 usage log deleted, got %d", result.UsageLogsDeleted)
	}
}

func TestRunCleanupPassEmptyStore(t *testing.T) {
	svc, _ := setupCleanupService(t)

	result, err := svc.RunCleanupPass(context.Background())
	if err != nil {
		t.Fatalf("RunCleanupPass on empty store failed: %v", err)
	}
	if result.OptimizationsDeleted != 0 || result.PersonasDeleted != 0 || result.UsageLogsDeleted != 0 {
		t.Errorf("expected zero counts, got %+v", result)
	}
}

func TestDeleteUserData(t *testing.T) {
	svc, repos := setupCleanupService(t)
	ctx := context.Background()

	now := time.Now().UTC()
	createOptimizationAt(t, repos, "fp_1", now)
	createOptimizationAt(t, repos, "fp_1", now)
	// Saved personas are NOT exempt from user-initiated erasure
	createPersonaAt(t, repos, "fp_1", true, now)
	createPersonaAt(t, repos, "fp_1", false, now)
	otherOpt := createOptimizationAt(t, repos, "fp_other", now)

	result, err := svc.DeleteUserData(ctx, "fp_1")
	if err != nil {
		t.Fatalf("DeleteUserData failed: %v", err)
	}
	if result.OptimizationsDeleted != 2 {
		t.Errorf("expected 2 optimizations deleted, got %d", result.OptimizationsDeleted)
	}
	if result.PersonasDeleted != 2 {
		t.Errorf("expected 2 personas deleted, got %d", result.PersonasDeleted)
	}

	if got, _ := repos.Optimization.GetByID(ctx, otherOpt); got == nil {
		t.Error("other fingerprints must be untouched")
	}

	// Second erasure returns zero counts without error
	again, err := svc.DeleteUserData(ctx, "fp_1")
	if err != nil {
		t.Fatalf("second DeleteUserData failed: %v", err)
	}
	if again.OptimizationsDeleted != 0 || again.PersonasDeleted != 0 {
		t.Errorf("expected zero counts on repeat erasure, got %+v", again)
	}
}

func TestStartIsIdempotentAndStops(t *testing.T) {
	svc, _ := setupCleanupService(t)

	ctx := context.Background()
	svc.Start(ctx)
	svc.Start(ctx) // no-op
	svc.Stop()

	// Stop again is safe
	svc.Stop()
}
