package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

// SQLiteTokenTransactionRepository implements TokenTransactionRepository for SQLite.
type SQLiteTokenTransactionRepository struct {
	db *sql.DB
}

// NewSQLiteTokenTransactionRepository creates a new SQLite token transaction repository.
func NewSQLiteTokenTransactionRepository(db *sql.DB) *SQLiteTokenTransactionRepository {
	return &SQLiteTokenTransactionRepository{db: db}
}

func (r *SQLiteTokenTransactionRepository) Create(ctx context.Context, tx *models.TokenTransaction) error {
	query := `INSERT INTO token_transactions (id, user_id, type, amount, description, reference_id, balance_after, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var metadata *string
	if tx.Metadata != "" {
		metadata = &tx.Metadata
	}

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Description,
		tx.ReferenceID, tx.BalanceAfter, metadata,
		tx.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteTokenTransactionRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.TokenTransaction, error) {
	query := `SELECT id, user_id, type, amount, description, reference_id, balance_after, metadata, created_at
		FROM token_transactions WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var transactions []*models.TokenTransaction
	for rows.Next() {
		tx, err := scanTokenTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func (r *SQLiteTokenTransactionRepository) GetByReference(ctx context.Context, userID, referenceID string) (*models.TokenTransaction, error) {
	query := `SELECT id, user_id, type, amount, description, reference_id, balance_after, metadata, created_at
		FROM token_transactions WHERE user_id = ? AND reference_id = ?`

	row := r.db.QueryRowContext(ctx, query, userID, referenceID)
	tx, err := scanTokenTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *SQLiteTokenTransactionRepository) SumAmounts(ctx context.Context, userID string) (int, error) {
	query := `SELECT COALESCE(SUM(amount), 0) FROM token_transactions WHERE user_id = ?`
	var sum int
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&sum)
	return sum, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTokenTransaction(row rowScanner) (*models.TokenTransaction, error) {
	var tx models.TokenTransaction
	var referenceID, metadata sql.NullString
	var createdAt string

	if err := row.Scan(&tx.ID, &tx.UserID, &tx.Type, &tx.Amount, &tx.Description,
		&referenceID, &tx.BalanceAfter, &metadata, &createdAt); err != nil {
		return nil, err
	}

	if referenceID.Valid {
		tx.ReferenceID = &referenceID.String
	}
	if metadata.Valid {
		tx.Metadata = metadata.String
	}
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &tx, nil
}
