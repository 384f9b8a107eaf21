package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
)

// TokenService maintains per-user token balances and the transaction ledger.
// The ledger is the source of truth; the balance stored on the user row is a
// cache of the latest ledger state. All balance mutation goes through Deduct
// and Credit, which serialize per user so the read-modify-write is atomic.
type TokenService struct {
	repos  *repository.Repositories
	locks  *userLocks
	logger *slog.Logger
}

// NewTokenService creates a new token service.
func NewTokenService(repos *repository.Repositories, logger *slog.Logger) *TokenService {
	return &TokenService{
		repos:  repos,
		locks:  newUserLocks(),
		logger: logger.With("component", "tokens"),
	}
}

// GetBalance returns the user's current cached balance.
func (s *TokenService) GetBalance(ctx context.Context, userID string) (int, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	return user.TokenBalance, nil
}

// Deduct removes amount tokens from the user's balance. It fails with
// ErrInsufficientBalance, recording nothing, when the balance is too low.
// Returns the new balance on success.
func (s *TokenService) Deduct(ctx context.Context, userID string, amount int, description, referenceID string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("deduct amount must be positive, got %d", amount)
	}

	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}

	if user.TokenBalance < amount {
		return user.TokenBalance, ErrInsufficientBalance
	}

	newBalance := user.TokenBalance - amount
	if err := s.append(ctx, user, models.TxTypeDeduction, -amount, newBalance, description, referenceID, ""); err != nil {
		return 0, err
	}

	return newBalance, nil
}

// Credit adds amount tokens to the user's balance. When referenceID has
// already been credited for this user, the call is an idempotent no-op that
// returns the balance the original credit produced. Returns the resulting
// balance.
func (s *TokenService) Credit(ctx context.Context, userID string, amount int, txType models.TransactionType, description, referenceID, metadata string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}

	if referenceID != "" {
		existing, err := s.repos.TokenTx.GetByReference(ctx, userID, referenceID)
		if err != nil {
			return 0, fmt.Errorf("failed to check reference: %w", err)
		}
		if existing != nil {
			s.logger.Info("duplicate credit reference ignored",
				"user_id", userID, "reference_id", referenceID)
			return existing.BalanceAfter, nil
		}
	}

	newBalance := user.TokenBalance + amount
	if err := s.append(ctx, user, txType, amount, newBalance, description, referenceID, metadata); err != nil {
		// The unique index is the backstop if two credits race past the
		// lookup above; resolve to the already-recorded entry.
		if isDuplicateKeyError(err) && referenceID != "" {
			existing, lookupErr := s.repos.TokenTx.GetByReference(ctx, userID, referenceID)
			if lookupErr == nil && existing != nil {
				return existing.BalanceAfter, nil
			}
		}
		return 0, err
	}

	return newBalance, nil
}

// GetHistory returns the user's transactions, newest first.
func (s *TokenService) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*models.TokenTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repos.TokenTx.GetByUserID(ctx, userID, limit, offset)
}

// VerifyLedger checks that the cached balance equals the ledger sum for a
// user. Returns the two values and whether they agree.
func (s *TokenService) VerifyLedger(ctx context.Context, userID string) (cached, ledger int, ok bool, err error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, 0, false, ErrUserNotFound
	}

	sum, err := s.repos.TokenTx.SumAmounts(ctx, userID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("failed to sum ledger: %w", err)
	}

	return user.TokenBalance, sum, user.TokenBalance == sum, nil
}

// append writes a ledger entry and refreshes the cached balance.
// Callers must hold the per-user lock.
func (s *TokenService) append(ctx context.Context, user *models.User, txType models.TransactionType, amount, newBalance int, description, referenceID, metadata string) error {
	var refPtr *string
	if referenceID != "" {
		refPtr = &referenceID
	}

	tx := &models.TokenTransaction{
		ID:           ulid.Make().String(),
		UserID:       user.ID,
		Type:         txType,
		Amount:       amount,
		Description:  description,
		ReferenceID:  refPtr,
		BalanceAfter: newBalance,
		Metadata:     metadata,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repos.TokenTx.Create(ctx, tx); err != nil {
		return fmt.Errorf("failed to create token transaction: %w", err)
	}

	hasPurchased := user.HasPurchased || txType == models.TxTypePurchase
	if err := s.repos.User.UpdateTokenBalance(ctx, user.ID, newBalance, hasPurchased); err != nil {
		return fmt.Errorf("failed to update cached balance: %w", err)
	}

	s.logger.Info("token transaction recorded",
		"user_id", user.ID,
		"type", txType,
		"amount", amount,
		"balance_after", newBalance,
	)

	return nil
}

// isDuplicateKeyError checks for a SQLite unique constraint violation.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
