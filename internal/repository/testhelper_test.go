package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/database/migrations"
	_ "github.com/tursodatabase/go-libsql"
)

// setupTestDB creates an in-memory SQLite database with migrations applied.
// The connection is closed when the test completes.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := migrations.Run(db, nil); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// setupTestRepos creates all repositories backed by a test database.
func setupTestRepos(t *testing.T) *Repositories {
	t.Helper()
	db := setupTestDB(t)
	return NewRepositories(db)
}

// insertTestUser inserts a user row directly.
func insertTestUser(t *testing.T, db *sql.DB, id string, balance int) {
	t.Helper()
	query := `
		INSERT INTO users (id, email, token_balance, created_at, updated_at)
		VALUES (?, ?, ?, datetime('now'), datetime('now'))
	`
	if _, err := db.Exec(query, id, id+"@example.com", balance); err != nil {
		t.Fatalf("failed to insert test user: %v", err)
	}
}

// insertTestOptimization inserts an optimization row with an explicit created_at.
func insertTestOptimization(t *testing.T, db *sql.DB, fingerprint string, createdAt time.Time) int64 {
	t.Helper()
	query := `
		INSERT INTO optimizations (original_prompt, optimized_prompt, score, fingerprint, created_at)
		VALUES ('write a poem', 'Write a four stanza poem about autumn.', 72, ?, ?)
	`
	result, err := db.Exec(query, fingerprint, createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("failed to insert test optimization: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

// insertTestPersona inserts a persona row with an explicit created_at and saved flag.
func insertTestPersona(t *testing.T, db *sql.DB, fingerprint string, saved bool, createdAt time.Time) int64 {
	t.Helper()
	savedInt := 0
	if saved {
		savedInt = 1
	}
	query := `
		INSERT INTO personas (name, original_input, generated_persona, fingerprint, phase, saved, created_at)
		VALUES ('Test Persona', 'a patient tutor', 'You are a patient tutor...', ?, '1', ?, ?)
	`
	result, err := db.Exec(query, fingerprint, savedInt, createdAt.UTC().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("failed to insert test persona: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

// insertTestUsageLog inserts a usage log row with an explicit created_at.
func insertTestUsageLog(t *testing.T, db *sql.DB, id string, createdAt time.Time) {
	t.Helper()
	query := `
		INSERT INTO usage_logs (id, request_type, input_chars, output_chars, estimated_cost_usd, created_at)
		VALUES (?, 'optimize', 120, 340, 0.0004, ?)
	`
	if _, err := db.Exec(query, id, createdAt.UTC().Format(time.RFC3339)); err != nil {
		t.Fatalf("failed to insert test usage log: %v", err)
	}
}
