package database

import (
	"database/sql"
	"testing"

	_ "github.com/tursodatabase/go-libsql"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := sql.Open("libsql", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count == 0 {
		t.Fatal("no migrations recorded")
	}

	var repeat int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations GROUP BY version HAVING COUNT(*) > 1").Scan(&repeat); err != sql.ErrNoRows {
		t.Fatalf("expected no duplicate versions, got count=%d err=%v", repeat, err)
	}

	// Schema is usable after the second run
	if _, err := db.Exec("SELECT id FROM users LIMIT 1"); err != nil {
		t.Fatalf("users table missing: %v", err)
	}
}
