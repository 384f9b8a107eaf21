package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

// SQLiteUserRepository implements UserRepository for SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository creates a new SQLite user repository.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, first_name, last_name, token_balance, has_purchased, is_active, created_at, updated_at
		FROM users WHERE id = ?`

	var user models.User
	var createdAt, updatedAt string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.TokenBalance, &user.HasPurchased, &user.IsActive,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &user, nil
}

func (r *SQLiteUserRepository) Upsert(ctx context.Context, user *models.User) error {
	// Balance fields are deliberately not in the update set; only the
	// ledger path may change them.
	query := `INSERT INTO users (id, email, first_name, last_name, token_balance, has_purchased, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName,
		user.TokenBalance, user.HasPurchased, user.IsActive,
		user.CreatedAt.UTC().Format(time.RFC3339), user.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteUserRepository) UpdateTokenBalance(ctx context.Context, userID string, balance int, hasPurchased bool) error {
	query := `UPDATE users SET token_balance = ?, has_purchased = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, balance, hasPurchased, time.Now().UTC().Format(time.RFC3339), userID)
	return err
}
