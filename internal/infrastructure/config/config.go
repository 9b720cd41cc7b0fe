package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Chatwire.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Moderation ModerationConfig `yaml:"moderation"`
	Relay      RelayConfig      `yaml:"relay"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
	Security   SecurityConfig   `yaml:"security"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"` // seconds
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket and broadcast settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"` // bytes
	PingInterval   int `yaml:"ping_interval"`    // seconds
	PongTimeout    int `yaml:"pong_timeout"`     // seconds
	SendBufferSize int `yaml:"send_buffer_size"`
	// BroadcastQueueSize bounds each session's dispatch queue. A burst
	// deeper than this drops messages for that session instead of
	// blocking the admission path.
	BroadcastQueueSize int `yaml:"broadcast_queue_size"`
}

// ModerationConfig contains profanity filter settings.
type ModerationConfig struct {
	// WordListPath points to a plain-text file with one term per line.
	// Empty means the embedded default list is used.
	WordListPath string `yaml:"word_list_path"`
	MaskChar     string `yaml:"mask_char"`
}

// RelayConfig contains the optional MQTT message relay settings.
type RelayConfig struct {
	Enabled   bool                 `yaml:"enabled"`
	Broker    RelayBrokerConfig    `yaml:"broker"`
	Auth      RelayAuthConfig      `yaml:"auth"`
	QoS       int                  `yaml:"qos"`
	Reconnect RelayReconnectConfig `yaml:"reconnect"`
}

// RelayBrokerConfig contains MQTT broker connection details.
type RelayBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// RelayAuthConfig contains MQTT authentication credentials.
type RelayAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// RelayReconnectConfig contains MQTT reconnection settings (seconds).
type RelayReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// TelemetryConfig contains optional InfluxDB telemetry settings.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // milliseconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT           JWTConfig           `yaml:"jwt"`
	LoginAttempts LoginAttemptsConfig `yaml:"login_attempts"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// LoginAttemptsConfig controls brute-force lockout on login.
type LoginAttemptsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Max is the number of failed attempts tolerated within the window
	// before further attempts for the same account are refused.
	Max           int `yaml:"max"`
	WindowMinutes int `yaml:"window_minutes"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CHATWIRE_SECTION_KEY
// For example: CHATWIRE_DATABASE_PATH, CHATWIRE_JWT_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/chatwire.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize:     8192,
			PingInterval:       30,
			PongTimeout:        10,
			SendBufferSize:     256,
			BroadcastQueueSize: 256,
		},
		Moderation: ModerationConfig{
			MaskChar: "*",
		},
		Relay: RelayConfig{
			Broker: RelayBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "chatwire-core",
			},
			QoS: 1,
			Reconnect: RelayReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Telemetry: TelemetryConfig{
			BatchSize:     100,
			FlushInterval: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 30,
			},
			LoginAttempts: LoginAttemptsConfig{
				Enabled:       false,
				Max:           5,
				WindowMinutes: 15,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CHATWIRE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("CHATWIRE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("CHATWIRE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("CHATWIRE_RELAY_HOST"); v != "" {
		cfg.Relay.Broker.Host = v
	}
	if v := os.Getenv("CHATWIRE_RELAY_USERNAME"); v != "" {
		cfg.Relay.Auth.Username = v
	}
	if v := os.Getenv("CHATWIRE_RELAY_PASSWORD"); v != "" {
		cfg.Relay.Auth.Password = v
	}

	if v := os.Getenv("CHATWIRE_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}

	// IMPORTANT: always set in production.
	if v := os.Getenv("CHATWIRE_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// minJWTSecretLength is the minimum accepted JWT signing secret length.
// Short secrets make HS256 tokens forgeable by brute force.
const minJWTSecretLength = 32

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set CHATWIRE_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if c.Security.JWT.AccessTokenTTL < 1 {
		errs = append(errs, "security.jwt.access_token_ttl must be at least 1 minute")
	}

	if c.Relay.QoS < 0 || c.Relay.QoS > 2 {
		errs = append(errs, "relay.qos must be 0, 1, or 2")
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Token == "" {
			errs = append(errs, "telemetry.token is required when telemetry is enabled")
		}
	}

	if c.WebSocket.BroadcastQueueSize < 1 {
		errs = append(errs, "websocket.broadcast_queue_size must be at least 1")
	}

	if len([]rune(c.Moderation.MaskChar)) != 1 {
		errs = append(errs, "moderation.mask_char must be a single character")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the API read timeout as a Duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// WriteTimeout returns the API write timeout as a Duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// IdleTimeout returns the API idle timeout as a Duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// AccessTokenTTL returns the JWT access token lifetime as a Duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.AccessTokenTTL) * time.Minute
}

// LoginAttemptWindow returns the failed-login counting window as a Duration.
func (c *Config) LoginAttemptWindow() time.Duration {
	return time.Duration(c.Security.LoginAttempts.WindowMinutes) * time.Minute
}
