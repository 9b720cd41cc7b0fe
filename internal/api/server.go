// Package api provides the HTTP REST API and WebSocket server.
//
// It exposes registration and login, session management, the message
// admission endpoint, paginated listings, and per-session WebSocket
// delivery to chat clients.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chatwire/chatwire/internal/audit"
	"github.com/chatwire/chatwire/internal/auth"
	"github.com/chatwire/chatwire/internal/chat"
	"github.com/chatwire/chatwire/internal/infrastructure/config"
	"github.com/chatwire/chatwire/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Registry *chat.Registry
	Sessions chat.SessionStore
	Messages chat.MessageStore
	Pipeline *chat.Pipeline

	Users         auth.UserRepository
	RevokedTokens auth.RevokedTokenRepository
	LoginAttempts auth.LoginAttemptRepository // optional; required when lockout is enabled
	Audit         audit.Repository            // optional; security events are skipped when nil

	Version string
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and the set of live
// WebSocket clients. The server is created with New() and started with
// Start(). The session registry must be warmed up before Start so that
// WebSocket attaches resolve correctly from the first request.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	registry *chat.Registry
	sessions chat.SessionStore
	messages chat.MessageStore
	pipeline *chat.Pipeline

	users         auth.UserRepository
	revokedTokens auth.RevokedTokenRepository
	loginAttempts auth.LoginAttemptRepository
	audit         audit.Repository

	version string
	server  *http.Server

	// Live WebSocket clients, tracked so Close() can shut them down;
	// http.Server.Shutdown does not cover hijacked connections.
	clients  map[*wsClient]struct{}
	clientMu sync.Mutex
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if deps.Messages == nil {
		return nil, fmt.Errorf("message store is required")
	}
	if deps.Pipeline == nil {
		return nil, fmt.Errorf("admission pipeline is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if deps.RevokedTokens == nil {
		return nil, fmt.Errorf("revoked token repository is required")
	}
	if deps.Security.LoginAttempts.Enabled && deps.LoginAttempts == nil {
		return nil, fmt.Errorf("login attempt repository is required when lockout is enabled")
	}

	return &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		secCfg:        deps.Security,
		logger:        deps.Logger,
		registry:      deps.Registry,
		sessions:      deps.Sessions,
		messages:      deps.Messages,
		pipeline:      deps.Pipeline,
		users:         deps.Users,
		revokedTokens: deps.RevokedTokens,
		loginAttempts: deps.LoginAttempts,
		audit:         deps.Audit,
		version:       deps.Version,
		clients:       make(map[*wsClient]struct{}),
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; the server is stopped
// with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It closes live WebSocket connections, then waits up to 10 seconds for
// in-flight requests to complete before forcefully closing the rest.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	s.closeAllClients()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// registerClient tracks a live WebSocket client for shutdown.
func (s *Server) registerClient(c *wsClient) {
	s.clientMu.Lock()
	s.clients[c] = struct{}{}
	s.clientMu.Unlock()
}

// unregisterClient stops tracking a WebSocket client.
func (s *Server) unregisterClient(c *wsClient) {
	s.clientMu.Lock()
	delete(s.clients, c)
	s.clientMu.Unlock()
}

// closeAllClients disconnects every live WebSocket client.
func (s *Server) closeAllClients() {
	s.clientMu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientMu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
