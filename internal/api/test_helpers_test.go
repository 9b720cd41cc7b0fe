package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chatwire/chatwire/internal/audit"
	"github.com/chatwire/chatwire/internal/auth"
	"github.com/chatwire/chatwire/internal/chat"
	"github.com/chatwire/chatwire/internal/infrastructure/config"
	"github.com/chatwire/chatwire/internal/infrastructure/logging"
)

const testJWTSecret = "test-secret-key-at-least-32-characters-long"

// stubMatcher flags and masks the literal "badword".
type stubMatcher struct{}

func (stubMatcher) ContainsProfanity(content string) bool {
	return strings.Contains(content, "badword")
}

func (stubMatcher) Censor(content string) string {
	return strings.ReplaceAll(content, "badword", "*******")
}

// testDB creates a temporary SQLite database with the full schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	f, err := os.CreateTemp("", "api-test-*.db")
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

		CREATE TABLE revoked_tokens (
			jti        TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			revoked_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE login_attempts (
			id         INTEGER PRIMARY KEY,
			email      TEXT NOT NULL,
			ip         TEXT,
			success    INTEGER NOT NULL,
			created_at TEXT NOT NULL
		) STRICT;

		CREATE TABLE audit_events (
			id         TEXT PRIMARY KEY,
			username   TEXT,
			ip         TEXT,
			user_agent TEXT,
			endpoint   TEXT NOT NULL,
			method     TEXT NOT NULL,
			action     TEXT NOT NULL,
			success    INTEGER NOT NULL,
			created_at TEXT NOT NULL
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}

	return db
}

// testFixture bundles the server with the stores tests need directly.
type testFixture struct {
	server      *Server
	handler     http.Handler
	registry    *chat.Registry
	broadcaster *chat.Broadcaster
	users       auth.UserRepository
	audit       audit.Repository
}

// newTestFixture builds a Server over a real SQLite-backed stack.
// Lockout is enabled with a low threshold so tests can exercise it.
func newTestFixture(t *testing.T) *testFixture {
	t.Helper()

	db := testDB(t)
	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")

	registry := chat.NewRegistry()
	broadcaster := chat.NewBroadcaster(registry, logger, 16)
	t.Cleanup(broadcaster.Close)

	sessions := chat.NewSessionRepository(db)
	messages := chat.NewMessageRepository(db)
	users := auth.NewUserRepository(db)
	revoked := auth.NewRevokedTokenRepository(db)
	attempts := auth.NewLoginAttemptRepository(db)
	auditRepo := audit.NewSQLiteRepository(db)

	pipeline, err := chat.NewPipeline(chat.PipelineDeps{
		Registry:    registry,
		Policy:      chat.NewPolicy(stubMatcher{}),
		Messages:    messages,
		Broadcaster: broadcaster,
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host:     "127.0.0.1",
			Port:     0,
			Timeouts: config.APITimeoutConfig{Read: 5, Write: 5, Idle: 5},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
			SendBufferSize: 16,
		},
		Security: config.SecurityConfig{
			JWT: config.JWTConfig{Secret: testJWTSecret, AccessTokenTTL: 15},
			LoginAttempts: config.LoginAttemptsConfig{
				Enabled:       true,
				Max:           3,
				WindowMinutes: 15,
			},
		},
		Logger:        logger,
		Registry:      registry,
		Sessions:      sessions,
		Messages:      messages,
		Pipeline:      pipeline,
		Users:         users,
		RevokedTokens: revoked,
		LoginAttempts: attempts,
		Audit:         auditRepo,
		Version:       "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testFixture{
		server:      srv,
		handler:     srv.buildRouter(),
		registry:    registry,
		broadcaster: broadcaster,
		users:       users,
		audit:       auditRepo,
	}
}

// doJSON performs a request with a JSON body against the router.
func (f *testFixture) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a response body, failing the test on bad JSON.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

// registerAndLogin creates an account via the API and returns a token.
func (f *testFixture) registerAndLogin(t *testing.T, email string) string {
	t.Helper()

	rec := f.doJSON(t, http.MethodPost, "/auth/register", "", registerRequest{
		Email:    email,
		FullName: "Test User",
		Password: "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register returned %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.doJSON(t, http.MethodPost, "/auth/login", "", loginRequest{
		Email:    email,
		Password: "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login returned %d: %s", rec.Code, rec.Body.String())
	}

	return decode[loginResponse](t, rec).AccessToken
}

// createSession creates a session via the API and returns it.
func (f *testFixture) createSession(t *testing.T, token, name string, level chat.CensorshipLevel) chat.Session {
	t.Helper()

	rec := f.doJSON(t, http.MethodPost, "/sessions", token, createSessionRequest{
		Name:            name,
		CensorshipLevel: string(level),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session returned %d: %s", rec.Code, rec.Body.String())
	}
	return decode[chat.Session](t, rec)
}
