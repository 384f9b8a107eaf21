package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

func TestEnsureUserGrantsWelcomeBonusOnce(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)
	users := NewUserService(repos, tokens, 3, discardLogger)
	ctx := context.Background()

	user, err := users.EnsureUser(ctx, "user_1", "a@example.com", "Ada", "L")
	if err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}
	if user.TokenBalance != 3 {
		t.Errorf("expected welcome bonus of 3, got balance %d", user.TokenBalance)
	}

	// Second sign-in refreshes the profile but grants nothing
	user, err = users.EnsureUser(ctx, "user_1", "new@example.com", "Ada", "L")
	if err != nil {
		t.Fatalf("second EnsureUser failed: %v", err)
	}
	if user.TokenBalance != 3 {
		t.Errorf("welcome bonus granted twice, balance %d", user.TokenBalance)
	}
	if user.Email != "new@example.com" {
		t.Errorf("expected refreshed email, got %s", user.Email)
	}

	history, err := tokens.GetHistory(ctx, "user_1", 10, 0)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Type != models.TxTypeBonus {
		t.Errorf("expected a single bonus transaction, got %+v", history)
	}
}

func TestGetUnknownUser(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)
	users := NewUserService(repos, tokens, 0, discardLogger)

	_, err := users.Get(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestStatsCountsTodayOnly(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)
	users := NewUserService(repos, tokens, 0, discardLogger)
	ctx := context.Background()

	if _, err := users.EnsureUser(ctx, "user_1", "a@example.com", "", ""); err != nil {
		t.Fatalf("EnsureUser failed: %v", err)
	}

	now := time.Now()
	today := startOfDay(now).Add(time.Hour)
	yesterday := startOfDay(now).Add(-time.Hour)

	createOptimizationAt(t, repos, "user_1", today.UTC())
	createOptimizationAt(t, repos, "user_1", yesterday.UTC())
	createPersonaAt(t, repos, "user_1", false, today.UTC())

	stats, err := users.Stats(ctx, "user_1", "user_1", 20)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.OptimizationsToday != 1 {
		t.Errorf("expected 1 optimization today, got %d", stats.OptimizationsToday)
	}
	if stats.PersonasToday != 1 {
		t.Errorf("expected 1 persona today, got %d", stats.PersonasToday)
	}
	if stats.DailyPersonaLimit != 20 {
		t.Errorf("expected limit 20, got %d", stats.DailyPersonaLimit)
	}
}

func TestDataSummary(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)
	users := NewUserService(repos, tokens, 0, discardLogger)
	ctx := context.Background()

	now := time.Now().UTC()
	createOptimizationAt(t, repos, "fp_1", now)
	createPersonaAt(t, repos, "fp_1", true, now)
	createPersonaAt(t, repos, "fp_1", false, now)

	summary, err := users.Summary(ctx, "fp_1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Optimizations != 1 || summary.Personas != 2 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestStartOfDayBoundary(t *testing.T) {
	// A record at 23:59:59 today is inside the bucket; one at 00:00:00
	// yesterday is not.
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.Local)
	dayStart := startOfDay(now)

	lateToday := time.Date(2026, 8, 29, 23, 59, 59, 0, time.Local)
	if lateToday.Before(dayStart) {
		t.Error("23:59:59 today must be >= start of day")
	}

	yesterdayMidnight := time.Date(2026, 8, 28, 0, 0, 0, 0, time.Local)
	if !yesterdayMidnight.Before(dayStart) {
		t.Error("00:00:00 yesterday must be < start of day")
	}
}
