package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

func TestPaymentLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	insertTestUser(t, db, "user_1", 0)

	payment := &models.Payment{
		ID:              "pay_1",
		UserID:          "user_1",
		PaymentIntentID: "pi_123",
		SessionID:       "cs_123",
		PackageID:       "popular",
		AmountUSD:       9.99,
		TokensGranted:   50,
		Status:          models.PaymentPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := repos.Payment.Create(ctx, payment); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repos.Payment.GetByPaymentIntentID(ctx, "pi_123")
	if err != nil {
		t.Fatalf("GetByPaymentIntentID failed: %v", err)
	}
	if got == nil || got.Status != models.PaymentPending {
		t.Fatalf("expected pending payment, got %+v", got)
	}
	if got.CompletedAt != nil {
		t.Error("expected nil completed_at on pending payment")
	}

	bySession, err := repos.Payment.GetBySessionID(ctx, "cs_123")
	if err != nil {
		t.Fatalf("GetBySessionID failed: %v", err)
	}
	if bySession == nil || bySession.ID != "pay_1" {
		t.Fatalf("expected pay_1 via session lookup, got %+v", bySession)
	}

	completedAt := time.Now().UTC()
	if err := repos.Payment.MarkCompleted(ctx, "pay_1", completedAt); err != nil {
		t.Fatalf("MarkCompleted failed: %v", err)
	}

	got, err = repos.Payment.GetByPaymentIntentID(ctx, "pi_123")
	if err != nil {
		t.Fatalf("GetByPaymentIntentID after complete failed: %v", err)
	}
	if got.Status != models.PaymentCompleted {
		t.Errorf("expected completed status, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}

func TestPaymentIntentIDUnique(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	insertTestUser(t, db, "user_1", 0)

	base := models.Payment{
		UserID:          "user_1",
		PaymentIntentID: "pi_dup",
		PackageID:       "starter",
		AmountUSD:       2.99,
		TokensGranted:   10,
		Status:          models.PaymentPending,
		CreatedAt:       time.Now().UTC(),
	}

	first := base
	first.ID = "pay_1"
	if err := repos.Payment.Create(ctx, &first); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	second := base
	second.ID = "pay_2"
	if err := repos.Payment.Create(ctx, &second); err == nil {
		t.Error("expected unique constraint violation on payment_intent_id, got nil")
	}
}

func TestPaymentMarkFailed(t *testing.T) {
	db := setupTestDB(t)
	repos := NewRepositories(db)
	ctx := context.Background()

	insertTestUser(t, db, "user_1", 0)

	payment := &models.Payment{
		ID:              "pay_1",
		UserID:          "user_1",
		PaymentIntentID: "pi_fail",
		PackageID:       "starter",
		AmountUSD:       2.99,
		TokensGranted:   10,
		Status:          models.PaymentPending,
		CreatedAt:       time.Now().UTC(),
	}
	if err := repos.Payment.Create(ctx, payment); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := repos.Payment.MarkFailed(ctx, "pay_1", "card_declined"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	got, err := repos.Payment.GetByPaymentIntentID(ctx, "pi_fail")
	if err != nil {
		t.Fatalf("GetByPaymentIntentID failed: %v", err)
	}
	if got.Status != models.PaymentFailed {
		t.Errorf("expected failed status, got %s", got.Status)
	}
	if got.FailureReason != "card_declined" {
		t.Errorf("expected failure reason recorded, got %q", got.FailureReason)
	}
}
