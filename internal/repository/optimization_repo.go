package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

// SQLiteOptimizationRepository implements OptimizationRepository for SQLite.
type SQLiteOptimizationRepository struct {
	db *sql.DB
}

// NewSQLiteOptimizationRepository creates a new SQLite optimization repository.
func NewSQLiteOptimizationRepository(db *sql.DB) *SQLiteOptimizationRepository {
	return &SQLiteOptimizationRepository{db: db}
}

func (r *SQLiteOptimizationRepository) Create(ctx context.Context, opt *models.Optimization) error {
	query := `INSERT INTO optimizations (original_prompt, context, optimized_prompt, score, fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	var contextArg *string
	if opt.Context != "" {
		contextArg = &opt.Context
	}

	result, err := r.db.ExecContext(ctx, query,
		opt.OriginalPrompt, contextArg, opt.OptimizedPrompt, opt.Score,
		opt.Fingerprint, opt.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	opt.ID, err = result.LastInsertId()
	return err
}

func (r *SQLiteOptimizationRepository) GetByID(ctx context.Context, id int64) (*models.Optimization, error) {
	query := `SELECT id, original_prompt, context, optimized_prompt, score, fingerprint, created_at
		FROM optimizations WHERE id = ?`

	var opt models.Optimization
	var contextCol sql.NullString
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&opt.ID, &opt.OriginalPrompt, &contextCol, &opt.OptimizedPrompt,
		&opt.Score, &opt.Fingerprint, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	opt.Context = contextCol.String
	opt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &opt, nil
}

func (r *SQLiteOptimizationRepository) CountByOwnerSince(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM optimizations WHERE fingerprint = ? AND created_at >= ?`
	var count int
	err := r.db.QueryRowContext(ctx, query, fingerprint, since.UTC().Format(time.RFC3339)).Scan(&count)
	return count, err
}

func (r *SQLiteOptimizationRepository) ListByOwnerSince(ctx context.Context, fingerprint string, since time.Time) ([]*models.Optimization, error) {
	query := `SELECT id, original_prompt, context, optimized_prompt, score, fingerprint, created_at
		FROM optimizations WHERE fingerprint = ? AND created_at >= ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, fingerprint, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var opts []*models.Optimization
	for rows.Next() {
		var opt models.Optimization
		var contextCol sql.NullString
		var createdAt string

		if err := rows.Scan(&opt.ID, &opt.OriginalPrompt, &contextCol, &opt.OptimizedPrompt,
			&opt.Score, &opt.Fingerprint, &createdAt); err != nil {
			return nil, err
		}

		opt.Context = contextCol.String
		opt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		opts = append(opts, &opt)
	}

	return opts, rows.Err()
}

func (r *SQLiteOptimizationRepository) CountByOwner(ctx context.Context, fingerprint string) (int, error) {
	query := `SELECT COUNT(*) FROM optimizations WHERE fingerprint = ?`
	var count int
	err := r.db.QueryRowContext(ctx, query, fingerprint).Scan(&count)
	return count, err
}

// DeleteOlderThan removes records created strictly before the cutoff.
// A record created exactly at the cutoff survives.
func (r *SQLiteOptimizationRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM optimizations WHERE created_at < ?`
	result, err := r.db.ExecContext(ctx, query, before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SQLiteOptimizationRepository) DeleteByOwner(ctx context.Context, fingerprint string) (int64, error) {
	query := `DELETE FROM optimizations WHERE fingerprint = ?`
	result, err := r.db.ExecContext(ctx, query, fingerprint)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
