package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

// SQLiteUsageLogRepository implements UsageLogRepository for SQLite.
type SQLiteUsageLogRepository struct {
	db *sql.DB
}

// NewSQLiteUsageLogRepository creates a new SQLite usage log repository.
func NewSQLiteUsageLogRepository(db *sql.DB) *SQLiteUsageLogRepository {
	return &SQLiteUsageLogRepository{db: db}
}

func (r *SQLiteUsageLogRepository) Create(ctx context.Context, log *models.UsageLog) error {
	query := `INSERT INTO usage_logs (id, user_id, fingerprint, request_type, input_chars, output_chars, estimated_cost_usd, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.UserID, log.Fingerprint, log.RequestType,
		log.InputChars, log.OutputChars, log.EstimatedCostUSD,
		log.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteUsageLogRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.UsageLog, error) {
	query := `SELECT id, user_id, fingerprint, request_type, input_chars, output_chars, estimated_cost_usd, created_at
		FROM usage_logs WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var logs []*models.UsageLog
	for rows.Next() {
		var log models.UsageLog
		var uid, fingerprint sql.NullString
		var createdAt string

		if err := rows.Scan(&log.ID, &uid, &fingerprint, &log.RequestType,
			&log.InputChars, &log.OutputChars, &log.EstimatedCostUSD, &createdAt); err != nil {
			return nil, err
		}

		if uid.Valid {
			log.UserID = &uid.String
		}
		if fingerprint.Valid {
			log.Fingerprint = &fingerprint.String
		}
		log.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func (r *SQLiteUsageLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM usage_logs WHERE created_at < ?`
	result, err := r.db.ExecContext(ctx, query, before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
