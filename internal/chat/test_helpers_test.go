package chat

import (
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chatwire/chatwire/internal/infrastructure/config"
	"github.com/chatwire/chatwire/internal/infrastructure/logging"
)

// testDB creates a temporary SQLite database with the chat schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "chat-test-*.db")
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

		CREATE TABLE sessions (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL UNIQUE,
			censorship_level TEXT NOT NULL CHECK (censorship_level IN ('low', 'medium', 'high')),
			created_by       TEXT REFERENCES users(id) ON DELETE SET NULL,
			created_at       TEXT NOT NULL
		) STRICT;

		CREATE TABLE messages (
			id          TEXT PRIMARY KEY,
			session_id  TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			content     TEXT NOT NULL,
			sender_type TEXT NOT NULL CHECK (sender_type IN ('user', 'system')),
			sender_id   TEXT REFERENCES users(id) ON DELETE SET NULL,
			created_at  TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("applying chat schema: %v", err)
	}

	return db
}

// testLogger returns a quiet logger for tests.
func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")
}

// fakeMatcher flags and masks the literal word "badword".
type fakeMatcher struct{}

func (fakeMatcher) ContainsProfanity(text string) bool {
	for i := 0; i+7 <= len(text); i++ {
		if text[i:i+7] == "badword" {
			return true
		}
	}
	return false
}

func (m fakeMatcher) Censor(text string) string {
	out := []byte(text)
	for i := 0; i+7 <= len(out); i++ {
		if string(out[i:i+7]) == "badword" {
			copy(out[i:i+7], "*******")
		}
	}
	return string(out)
}

// testConn is an in-memory Connection recording delivered payloads.
type testConn struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
}

func (c *testConn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection gone")
	}
	c.payloads = append(c.payloads, payload)
	return nil
}

func (c *testConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.payloads))
	copy(out, c.payloads)
	return out
}
