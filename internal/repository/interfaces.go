// Package repository defines repository interfaces for data access.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

// UserRepository defines methods for user data access.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	// Upsert inserts the user or refreshes profile fields on conflict.
	// Balance fields are never touched by Upsert.
	Upsert(ctx context.Context, user *models.User) error
	// UpdateTokenBalance writes the cached balance after a ledger append.
	UpdateTokenBalance(ctx context.Context, userID string, balance int, hasPurchased bool) error
}

// TokenTransactionRepository defines methods for the append-only token ledger.
type TokenTransactionRepository interface {
	Create(ctx context.Context, tx *models.TokenTransaction) error
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.TokenTransaction, error)
	// GetByReference returns the entry with the given reference id for a
	// user, or nil. Used to detect replayed credits.
	GetByReference(ctx context.Context, userID, referenceID string) (*models.TokenTransaction, error)
	// SumAmounts returns the sum of all entry amounts for a user. The
	// result must always equal the cached balance on the user row.
	SumAmounts(ctx context.Context, userID string) (int, error)
}

// PaymentRepository defines methods for payment data access.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByPaymentIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error)
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error)
	MarkCompleted(ctx context.Context, id string, completedAt time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

// OptimizationRepository defines methods for optimization record data access.
// Records are owned by a browser fingerprint.
type OptimizationRepository interface {
	Create(ctx context.Context, opt *models.Optimization) error
	GetByID(ctx context.Context, id int64) (*models.Optimization, error)
	CountByOwnerSince(ctx context.Context, fingerprint string, since time.Time) (int, error)
	ListByOwnerSince(ctx context.Context, fingerprint string, since time.Time) ([]*models.Optimization, error)
	CountByOwner(ctx context.Context, fingerprint string) (int, error)
	// DeleteOlderThan removes records created strictly before the cutoff
	// and returns the number deleted.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	DeleteByOwner(ctx context.Context, fingerprint string) (int64, error)
}

// PersonaRepository defines methods for persona data access.
type PersonaRepository interface {
	Create(ctx context.Context, persona *models.Persona) error
	GetByID(ctx context.Context, id int64) (*models.Persona, error)
	// UpdateEnhancement writes the phase 2 result over a phase 1 persona.
	UpdateEnhancement(ctx context.Context, id int64, generated string, answersJSON string) error
	MarkSaved(ctx context.Context, id int64) error
	ListSavedByOwner(ctx context.Context, fingerprint string) ([]*models.Persona, error)
	CountByOwnerSince(ctx context.Context, fingerprint string, since time.Time) (int, error)
	CountByOwner(ctx context.Context, fingerprint string) (int, error)
	// DeleteUnsavedOlderThan removes unsaved personas created strictly
	// before the cutoff. Saved personas are never touched.
	DeleteUnsavedOlderThan(ctx context.Context, before time.Time) (int64, error)
	DeleteByOwner(ctx context.Context, fingerprint string) (int64, error)
}

// UsageLogRepository defines methods for LLM usage log data access.
type UsageLogRepository interface {
	Create(ctx context.Context, log *models.UsageLog) error
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.UsageLog, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Repositories holds all repository instances.
type Repositories struct {
	User         UserRepository
	TokenTx      TokenTransactionRepository
	Payment      PaymentRepository
	Optimization OptimizationRepository
	Persona      PersonaRepository
	UsageLog     UsageLogRepository
}

// NewRepositories creates all repository instances.
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		User:         NewSQLiteUserRepository(db),
		TokenTx:      NewSQLiteTokenTransactionRepository(db),
		Payment:      NewSQLitePaymentRepository(db),
		Optimization: NewSQLiteOptimizationRepository(db),
		Persona:      NewSQLitePersonaRepository(db),
		UsageLog:     NewSQLiteUsageLogRepository(db),
	}
}
