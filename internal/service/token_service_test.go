package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

func TestCreditAndDeduct(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)
	ctx := context.Background()

	createTestUser(t, repos, "user_1")

	balance, err := tokens.Credit(ctx, "user_1", 10, models.TxTypePurchase, "Purchased 10 tokens", "pi_1", "")
	if err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if balance != 10 {
		t.Errorf("expected balance 10, got %d", balance)
	}

	balance, err = tokens.Deduct(ctx, "user_1", 3, "Prompt optimization", "")
	if err != nil {
		t.Fatalf("Deduct failed: %v", err)
	}
	if balance != 7 {
		t.Errorf("expected balance 7, got %d", balance)
	}

	cached, ledger, ok, err := tokens.VerifyLedger(ctx, "user_1")
	if err != nil {
		t.Fatalf("VerifyLedger failed: %v", err)
	}
	if !ok {
		t.Errorf("cached balance %d disagrees with ledger sum %d", cached, ledger)
	}
}

func TestDeductInsufficientBalance(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)
	ctx := context.Background()

	createTestUser(t, repos, "user_1")

	_, err := tokens.Deduct(ctx, "user_1", 1, "Prompt optimization", "")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// No partial transaction was recorded
	history, err := tokens.GetHistory(ctx, "user_1", 10, 0)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty ledger after failed deduct, got %d entries", len(history))
	}

	balance, err := tokens.GetBalance(ctx, "user_1")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 0 {
		t.Errorf("expected balance unchanged at 0, got %d", balance)
	}
}

func TestCreditIdempotentByReference(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)
	ctx := context.Background()

	createTestUser(t, repos, "user_1")

	first, err := tokens.Credit(ctx, "user_1", 10, models.TxTypePurchase, "Purchased 10 tokens", "pi_dup", "")
	if err != nil {
		t.Fatalf("first Credit failed: %v", err)
	}
	second, err := tokens.Credit(ctx, "user_1", 10, models.TxTypePurchase, "Purchased 10 tokens", "pi_dup", "")
	if err != nil {
		t.Fatalf("replayed Credit failed: %v", err)
	}
	if first != second {
		t.Errorf("replayed credit returned %d, want same balance %d", second, first)
	}

	history, err := tokens.GetHistory(ctx, "user_1", 10, 0)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected exactly one ledger entry, got %d", len(history))
	}
	if balance, _ := tokens.GetBalance(ctx, "user_1"); balance != 10 {
		t.Errorf("expected balance 10, got %d", balance)
	}
}

func TestDeductUnknownUser(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)

	_, err := tokens.Deduct(context.Background(), "nobody", 1, "Prompt optimization", "")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestConcurrentDeductsSerialize(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)
	ctx := context.Background()

	createTestUser(t, repos, "user_1")
	if _, err := tokens.Credit(ctx, "user_1", 50, models.TxTypePurchase, "Purchased 50 tokens", "pi_1", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}

	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = tokens.Deduct(ctx, "user_1", 1, "Prompt optimization", "")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("concurrent Deduct %d failed: %v", i, err)
		}
	}

	// No update may be lost: 50 - 10 = 40, and the ledger must agree
	balance, err := tokens.GetBalance(ctx, "user_1")
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if balance != 40 {
		t.Errorf("expected balance 40 after 10 concurrent deducts, got %d", balance)
	}

	_, _, ok, err := tokens.VerifyLedger(ctx, "user_1")
	if err != nil {
		t.Fatalf("VerifyLedger failed: %v", err)
	}
	if !ok {
		t.Error("cached balance diverged from ledger under concurrency")
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	repos := setupTestRepos(t)
	tokens := NewTokenService(repos, discardLogger)
	ctx := context.Background()

	createTestUser(t, repos, "user_1")

	if _, err := tokens.Credit(ctx, "user_1", 5, models.TxTypeBonus, "Welcome bonus", "welcome_user_1", ""); err != nil {
		t.Fatalf("Credit failed: %v", err)
	}
	if _, err := tokens.Deduct(ctx, "user_1", 1, "Prompt optimization", ""); err != nil {
		t.Fatalf("Deduct failed: %v", err)
	}

	history, err := tokens.GetHistory(ctx, "user_1", 10, 0)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if history[0].Type != models.TxTypeDeduction {
		t.Errorf("expected newest entry first, got %s", history[0].Type)
	}
	if history[0].BalanceAfter != 4 {
		t.Errorf("expected balance_after 4 on latest entry, got %d", history[0].BalanceAfter)
	}
}
