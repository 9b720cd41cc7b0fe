// Chatwire - Chat Session Backend
//
// This is the main entry point for the Chatwire application.
// Chatwire is a chat-session backend providing:
//   - User registration and JWT-based authentication
//   - Named chat sessions with per-session censorship levels
//   - A message admission pipeline with profanity moderation
//   - Per-session WebSocket fan-out to connected clients
//
// For configuration details, see: configs/config.yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/chatwire/chatwire/migrations"

	"github.com/chatwire/chatwire/internal/api"
	"github.com/chatwire/chatwire/internal/audit"
	"github.com/chatwire/chatwire/internal/auth"
	"github.com/chatwire/chatwire/internal/chat"
	"github.com/chatwire/chatwire/internal/infrastructure/config"
	"github.com/chatwire/chatwire/internal/infrastructure/database"
	"github.com/chatwire/chatwire/internal/infrastructure/influxdb"
	"github.com/chatwire/chatwire/internal/infrastructure/logging"
	"github.com/chatwire/chatwire/internal/infrastructure/mqtt"
	"github.com/chatwire/chatwire/internal/moderation"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Chatwire",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Build the profanity moderator
	terms, err := moderation.LoadTerms(cfg.Moderation.WordListPath)
	if err != nil {
		return fmt.Errorf("loading moderation terms: %w", err)
	}
	moderator, err := moderation.New(terms, []rune(cfg.Moderation.MaskChar)[0])
	if err != nil {
		return fmt.Errorf("building moderator: %w", err)
	}
	log.Info("moderator initialised", "terms", len(terms))

	// Repositories
	sessionStore := chat.NewSessionRepository(db.DB)
	messageStore := chat.NewMessageRepository(db.DB)
	userRepo := auth.NewUserRepository(db.DB)
	revokedTokens := auth.NewRevokedTokenRepository(db.DB)
	loginAttempts := auth.NewLoginAttemptRepository(db.DB)
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Initialise the session registry. The warm-up must complete before
	// the server starts so WebSocket attaches resolve from the first
	// request.
	registry := chat.NewRegistry()
	if warmErr := registry.WarmUp(ctx, sessionStore); warmErr != nil {
		return fmt.Errorf("warming up session registry: %w", warmErr)
	}
	log.Info("session registry warmed up", "sessions", registry.SessionCount())

	// Broadcaster for per-session fan-out
	broadcaster := chat.NewBroadcaster(registry, log, cfg.WebSocket.BroadcastQueueSize)
	defer func() {
		log.Info("stopping broadcaster")
		broadcaster.Close()
	}()

	// Connect to the MQTT relay broker (optional)
	var relay chat.Relay
	if cfg.Relay.Enabled {
		mqttClient, connectErr := mqtt.Connect(cfg.Relay)
		if connectErr != nil {
			return fmt.Errorf("connecting to MQTT relay: %w", connectErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT relay")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT relay", "error", closeErr)
			}
		}()
		log.Info("MQTT relay connected",
			"broker", fmt.Sprintf("%s:%d", cfg.Relay.Broker.Host, cfg.Relay.Broker.Port),
			"client_id", cfg.Relay.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT relay reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT relay disconnected", "error", err)
		})

		relay = mqtt.NewMessageRelay(mqttClient, byte(cfg.Relay.QoS), log)
	} else {
		log.Info("MQTT relay disabled")
	}

	// Connect to InfluxDB telemetry (optional)
	var recorder chat.Recorder
	if cfg.Telemetry.Enabled {
		influxClient, connectErr := influxdb.Connect(cfg.Telemetry)
		if connectErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connectErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		telemetry := influxdb.NewRecorder(influxClient)
		recorder = telemetry
		broadcaster.SetObserver(telemetry)
		registry.SetObserver(telemetry)
	} else {
		log.Info("InfluxDB telemetry disabled")
	}

	// Admission pipeline
	pipeline, err := chat.NewPipeline(chat.PipelineDeps{
		Registry:    registry,
		Policy:      chat.NewPolicy(moderator),
		Messages:    messageStore,
		Broadcaster: broadcaster,
		Relay:       relay,
		Recorder:    recorder,
		Logger:      log,
	})
	if err != nil {
		return fmt.Errorf("building admission pipeline: %w", err)
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Security:      cfg.Security,
		Logger:        log,
		Registry:      registry,
		Sessions:      sessionStore,
		Messages:      messageStore,
		Pipeline:      pipeline,
		Users:         userRepo,
		RevokedTokens: revokedTokens,
		LoginAttempts: loginAttempts,
		Audit:         auditRepo,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
		"tls", cfg.API.TLS.Enabled,
	)

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server (closes WebSocket clients, drains HTTP)
	// 2. InfluxDB (if enabled)
	// 3. MQTT relay (if enabled)
	// 4. Broadcaster
	// 5. Database

	log.Info("Chatwire stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CHATWIRE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CHATWIRE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
