package auth

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the auth schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Temp file rather than :memory: so WAL mode works
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schema := `
		CREATE TABLE users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			full_name     TEXT,
			password_hash TEXT,
			is_active     INTEGER NOT NULL DEFAULT 1,
			created_at    TEXT NOT NULL
		) STRICT;

		CREATE TABLE revoked_tokens (
			jti        TEXT PRIMARY KEY,
			user_id    TEXT REFERENCES users(id) ON DELETE CASCADE,
			revoked_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE login_attempts (
			id         INTEGER PRIMARY KEY,
			email      TEXT NOT NULL,
			ip         TEXT NOT NULL DEFAULT '',
			success    INTEGER NOT NULL,
			created_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying auth schema: %v", err)
	}

	return db
}

// seedTestUser inserts an active user with a known password and returns it.
func seedTestUser(t *testing.T, db *sql.DB, email string) *User {
	t.Helper()

	hash, err := HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	repo := NewUserRepository(db)
	user := &User{
		Email:        email,
		FullName:     "Test User",
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := repo.Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}
