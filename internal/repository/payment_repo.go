package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

// SQLitePaymentRepository implements PaymentRepository for SQLite.
type SQLitePaymentRepository struct {
	db *sql.DB
}

// NewSQLitePaymentRepository creates a new SQLite payment repository.
func NewSQLitePaymentRepository(db *sql.DB) *SQLitePaymentRepository {
	return &SQLitePaymentRepository{db: db}
}

func (r *SQLitePaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `INSERT INTO payments (id, user_id, payment_intent_id, session_id, package_id, amount_usd, tokens_granted, status, failure_reason, metadata, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var sessionID, failureReason, metadata, completedAt *string
	if payment.SessionID != "" {
		sessionID = &payment.SessionID
	}
	if payment.FailureReason != "" {
		failureReason = &payment.FailureReason
	}
	if payment.Metadata != "" {
		metadata = &payment.Metadata
	}
	if payment.CompletedAt != nil {
		s := payment.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &s
	}

	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.UserID, payment.PaymentIntentID, sessionID,
		payment.PackageID, payment.AmountUSD, payment.TokensGranted,
		payment.Status, failureReason, metadata,
		payment.CreatedAt.UTC().Format(time.RFC3339), completedAt)
	return err
}

func (r *SQLitePaymentRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	return r.getOne(ctx, `payment_intent_id = ?`, intentID)
}

func (r *SQLitePaymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Payment, error) {
	return r.getOne(ctx, `session_id = ?`, sessionID)
}

func (r *SQLitePaymentRepository) getOne(ctx context.Context, where string, arg any) (*models.Payment, error) {
	query := `SELECT id, user_id, payment_intent_id, session_id, package_id, amount_usd, tokens_granted, status, failure_reason, metadata, created_at, completed_at
		FROM payments WHERE ` + where

	var payment models.Payment
	var sessionID, failureReason, metadata, completedAt sql.NullString
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&payment.ID, &payment.UserID, &payment.PaymentIntentID, &sessionID,
		&payment.PackageID, &payment.AmountUSD, &payment.TokensGranted,
		&payment.Status, &failureReason, &metadata, &createdAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	payment.SessionID = sessionID.String
	payment.FailureReason = failureReason.String
	payment.Metadata = metadata.String
	payment.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		payment.CompletedAt = &t
	}

	return &payment, nil
}

func (r *SQLitePaymentRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.Payment, error) {
	query := `SELECT id, user_id, payment_intent_id, session_id, package_id, amount_usd, tokens_granted, status, failure_reason, metadata, created_at, completed_at
		FROM payments WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var payments []*models.Payment
	for rows.Next() {
		var payment models.Payment
		var sessionID, failureReason, metadata, completedAt sql.NullString
		var createdAt string

		if err := rows.Scan(&payment.ID, &payment.UserID, &payment.PaymentIntentID, &sessionID,
			&payment.PackageID, &payment.AmountUSD, &payment.TokensGranted,
			&payment.Status, &failureReason, &metadata, &createdAt, &completedAt); err != nil {
			return nil, err
		}

		payment.SessionID = sessionID.String
		payment.FailureReason = failureReason.String
		payment.Metadata = metadata.String
		payment.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if completedAt.Valid {
			t, _ := time.Parse(time.RFC3339, completedAt.String)
			payment.CompletedAt = &t
		}

		payments = append(payments, &payment)
	}

	return payments, rows.Err()
}

func (r *SQLitePaymentRepository) MarkCompleted(ctx context.Context, id string, completedAt time.Time) error {
	query := `UPDATE payments SET status = ?, completed_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, models.PaymentCompleted, completedAt.UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLitePaymentRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `UPDATE payments SET status = ?, failure_reason = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, models.PaymentFailed, reason, id)
	return err
}
