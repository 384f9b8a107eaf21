package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/jmaintain/makepromptsbetter-sub000/internal/database/migrations"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/models"
	"github.com/jmaintain/makepromptsbetter-sub000/internal/repository"
)

// discardLogger is used in tests to keep output quiet.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// setupTestRepos creates repositories over an in-memory database.
func setupTestRepos(t *testing.T) *repository.Repositories {
	t.Helper()

	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// Every new :memory: connection is a separate database; keep the pool
	// at one so concurrent test goroutines share state.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}
	if err := migrations.Run(db, discardLogger); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return repository.NewRepositories(db)
}

// createTestUser inserts a user through the repository layer.
func createTestUser(t *testing.T, repos *repository.Repositories, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := repos.User.Upsert(context.Background(), &models.User{
		ID:        id,
		Email:     id + "@example.com",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
}

// stubLLM returns canned completions and records calls.
type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}
