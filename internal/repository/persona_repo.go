package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
)

// SQLitePersonaRepository implements PersonaRepository for SQLite.
type SQLitePersonaRepository struct {
	db *sql.DB
}

// NewSQLitePersonaRepository creates a new SQLite persona repository.
func NewSQLitePersonaRepository(db *sql.DB) *SQLitePersonaRepository {
	return &SQLitePersonaRepository{db: db}
}

func (r *SQLitePersonaRepository) Create(ctx context.Context, persona *models.Persona) error {
	query := `INSERT INTO personas (name, original_input, generated_persona, enhancement_answers, fingerprint, phase, saved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		persona.Name, persona.OriginalInput, persona.GeneratedPersona,
		persona.EnhancementAnswers, persona.Fingerprint, persona.Phase,
		persona.Saved, persona.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	persona.ID, err = result.LastInsertId()
	return err
}

func (r *SQLitePersonaRepository) GetByID(ctx context.Context, id int64) (*models.Persona, error) {
	query := `SELECT id, name, original_input, generated_persona, enhancement_answers, fingerprint, phase, saved, created_at
		FROM personas WHERE id = ?`

	var persona models.Persona
	var answers sql.NullString
	var createdAt string

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&persona.ID, &persona.Name, &persona.OriginalInput, &persona.GeneratedPersona,
		&answers, &persona.Fingerprint, &persona.Phase, &persona.Saved, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if answers.Valid {
		persona.EnhancementAnswers = &answers.String
	}
	persona.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return &persona, nil
}

func (r *SQLitePersonaRepository) UpdateEnhancement(ctx context.Context, id int64, generated string, answersJSON string) error {
	query := `UPDATE personas SET generated_persona = ?, enhancement_answers = ?, phase = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, generated, answersJSON, models.PersonaPhaseEnhanced, id)
	return err
}

func (r *SQLitePersonaRepository) MarkSaved(ctx context.Context, id int64) error {
	query := `UPDATE personas SET saved = 1 WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *SQLitePersonaRepository) ListSavedByOwner(ctx context.Context, fingerprint string) ([]*models.Persona, error) {
	query := `SELECT id, name, original_input, generated_persona, enhancement_answers, fingerprint, phase, saved, created_at
		FROM personas WHERE fingerprint = ? AND saved = 1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, fingerprint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var personas []*models.Persona
	for rows.Next() {
		var persona models.Persona
		var answers sql.NullString
		var createdAt string

		if err := rows.Scan(&persona.ID, &persona.Name, &persona.OriginalInput, &persona.GeneratedPersona,
			&answers, &persona.Fingerprint, &persona.Phase, &persona.Saved, &createdAt); err != nil {
			return nil, err
		}

		if answers.Valid {
			persona.EnhancementAnswers = &answers.String
		}
		persona.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

		personas = append(personas, &persona)
	}

	return personas, rows.Err()
}

func (r *SQLitePersonaRepository) CountByOwnerSince(ctx context.Context, fingerprint string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM personas WHERE fingerprint = ? AND created_at >= ?`
	var count int
	err := r.db.QueryRowContext(ctx, query, fingerprint, since.UTC().Format(time.RFC3339)).Scan(&count)
	return count, err
}

func (r *SQLitePersonaRepository) CountByOwner(ctx context.Context, fingerprint string) (int, error) {
	query := `SELECT COUNT(*) FROM personas WHERE fingerprint = ?`
	var count int
	err := r.db.QueryRowContext(ctx, query, fingerprint).Scan(&count)
	return count, err
}

// DeleteUnsavedOlderThan removes unsaved personas created strictly before
// the cutoff. Saved personas are exempt regardless of age.
func (r *SQLitePersonaRepository) DeleteUnsavedOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM personas WHERE saved = 0 AND created_at < ?`
	result, err := r.db.ExecContext(ctx, query, before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *SQLitePersonaRepository) DeleteByOwner(ctx context.Context, fingerprint string) (int64, error) {
	query := `DELETE FROM personas WHERE fingerprint = ?`
	result, err := r.db.ExecContext(ctx, query, fingerprint)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
