package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSecret = "test-secret-0123456789abcdefghijklmnop"

// writeConfig writes a YAML config file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
security:
  jwt:
    secret: "`+testSecret+`"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
	}
	if !cfg.Database.WALMode {
		t.Error("Database.WALMode = false, want true")
	}
	if cfg.WebSocket.BroadcastQueueSize != 256 {
		t.Errorf("WebSocket.BroadcastQueueSize = %d, want 256", cfg.WebSocket.BroadcastQueueSize)
	}
	if cfg.Moderation.MaskChar != "*" {
		t.Errorf("Moderation.MaskChar = %q, want %q", cfg.Moderation.MaskChar, "*")
	}
	if cfg.Security.JWT.AccessTokenTTL != 30 {
		t.Errorf("Security.JWT.AccessTokenTTL = %d, want 30", cfg.Security.JWT.AccessTokenTTL)
	}
	if cfg.Security.LoginAttempts.Enabled {
		t.Error("Security.LoginAttempts.Enabled = true, want false by default")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9090
websocket:
  broadcast_queue_size: 16
security:
  jwt:
    secret: "`+testSecret+`"
    access_token_ttl: 60
  login_attempts:
    enabled: true
    max: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.WebSocket.BroadcastQueueSize != 16 {
		t.Errorf("WebSocket.BroadcastQueueSize = %d, want 16", cfg.WebSocket.BroadcastQueueSize)
	}
	if cfg.Security.JWT.AccessTokenTTL != 60 {
		t.Errorf("Security.JWT.AccessTokenTTL = %d, want 60", cfg.Security.JWT.AccessTokenTTL)
	}
	if !cfg.Security.LoginAttempts.Enabled || cfg.Security.LoginAttempts.Max != 3 {
		t.Errorf("LoginAttempts = %+v, want enabled with max 3", cfg.Security.LoginAttempts)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
database:
  path: "./from-file.db"
security:
  jwt:
    secret: "file-secret-but-too-short"
`)

	t.Setenv("CHATWIRE_DATABASE_PATH", "./from-env.db")
	t.Setenv("CHATWIRE_JWT_SECRET", testSecret)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./from-env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Security.JWT.Secret != testSecret {
		t.Error("JWT secret not taken from environment")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() with missing file: expected error, got nil")
	}
}

func TestValidateRejectsShortSecret(t *testing.T) {
	path := writeConfig(t, `
security:
  jwt:
    secret: "short"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() with short secret: expected error, got nil")
	}
	if !strings.Contains(err.Error(), "32 characters") {
		t.Errorf("error = %v, want mention of minimum length", err)
	}
}

func TestValidateRejectsMissingSecret(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 8080
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() without secret: expected error, got nil")
	}
}

func TestValidateRejectsBadQoS(t *testing.T) {
	path := writeConfig(t, `
relay:
  qos: 3
security:
  jwt:
    secret: "`+testSecret+`"
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with qos 3: expected error, got nil")
	}
}

func TestValidateTelemetryRequiresURL(t *testing.T) {
	path := writeConfig(t, `
telemetry:
  enabled: true
  token: "tok"
security:
  jwt:
    secret: "`+testSecret+`"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() with telemetry enabled and no url: expected error, got nil")
	}
	if !strings.Contains(err.Error(), "telemetry.url") {
		t.Errorf("error = %v, want mention of telemetry.url", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	path := writeConfig(t, `
security:
  jwt:
    secret: "`+testSecret+`"
    access_token_ttl: 45
  login_attempts:
    window_minutes: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := cfg.AccessTokenTTL().Minutes(); got != 45 {
		t.Errorf("AccessTokenTTL() = %v minutes, want 45", got)
	}
	if got := cfg.LoginAttemptWindow().Minutes(); got != 10 {
		t.Errorf("LoginAttemptWindow() = %v minutes, want 10", got)
	}
	if got := cfg.ReadTimeout().Seconds(); got != 30 {
		t.Errorf("ReadTimeout() = %v seconds, want 30", got)
	}
}
