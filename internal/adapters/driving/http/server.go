package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f(ctx)
func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *zap.Logger

	// Services
	authService       driving.AuthService
	userService       driving.UserService
	collectionService driving.CollectionService
	documentService   driving.DocumentService
	searchService     driving.SearchService
	chatService       driving.ChatService
	runtimeServices   *runtime.Services

	// Infrastructure
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)

	chatLimiter     *RateLimiter
	origins         []string
	shutdownTimeout time.Duration
}

// Config holds server configuration
type Config struct {
	Host            string
	Port            int
	Version         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// ChatRatePerMinute limits chat queries per user; zero disables the limit
	ChatRatePerMinute int
	ChatBurst         int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		Version:           "dev",
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		AllowedOrigins:    []string{"*"},
		ChatRatePerMinute: 30,
		ChatBurst:         5,
	}
}

// Services groups the driving ports served over HTTP
type Services struct {
	Auth       driving.AuthService
	User       driving.UserService
	Collection driving.CollectionService
	Document   driving.DocumentService
	Search     driving.SearchService
	Chat       driving.ChatService
	Runtime    *runtime.Services
}

// NewServer creates a new HTTP server.
// redisClient may be nil when sessions live in PostgreSQL.
func NewServer(cfg Config, svcs Services, db Pinger, redisClient Pinger, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		logger:            logger,
		authService:       svcs.Auth,
		userService:       svcs.User,
		collectionService: svcs.Collection,
		documentService:   svcs.Document,
		searchService:     svcs.Search,
		chatService:       svcs.Chat,
		runtimeServices:   svcs.Runtime,
		db:                db,
		redisClient:       redisClient,
		origins:           cfg.AllowedOrigins,
		shutdownTimeout:   cfg.ShutdownTimeout,
	}
	if cfg.ChatRatePerMinute > 0 {
		s.chatLimiter = NewRateLimiter(cfg.ChatRatePerMinute, cfg.ChatBurst)
	}

	s.setupRoutes()
	s.handler = s.buildHandler()

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// buildHandler wraps the router in the global middleware chain.
// Metrics sit closest to the router so they see the matched pattern.
func (s *Server) buildHandler() http.Handler {
	var h http.Handler = s.router
	h = NewMetricsMiddleware().Handler(h)
	h = NewCORSMiddleware(s.origins).Handler(h)
	h = NewLoggingMiddleware(s.logger).Handler(h)
	h = NewRecoveryMiddleware(s.logger).Handler(h)
	return h
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.Handler())

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)

	// Auth endpoints (authenticated)
	s.router.Handle("POST /api/v1/auth/logout", authed(s.handleLogout))
	s.router.Handle("POST /api/v1/auth/logout-all", authed(s.handleLogoutAll))
	s.router.Handle("GET /api/v1/me", authed(s.handleGetMe))

	// Collections
	s.router.Handle("POST /api/v1/collections", authed(s.handleCreateCollection))
	s.router.Handle("GET /api/v1/collections", authed(s.handleListCollections))
	s.router.Handle("GET /api/v1/collections/{id}", authed(s.handleGetCollection))
	s.router.Handle("PUT /api/v1/collections/{id}", authed(s.handleUpdateCollection))
	s.router.Handle("DELETE /api/v1/collections/{id}", authed(s.handleDeleteCollection))

	// Documents
	s.router.Handle("POST /api/v1/collections/{id}/documents", authed(s.handleCreateDocument))
	s.router.Handle("GET /api/v1/collections/{id}/documents", authed(s.handleListDocuments))
	s.router.Handle("GET /api/v1/collections/{id}/documents/{documentID}", authed(s.handleGetDocument))
	s.router.Handle("PUT /api/v1/collections/{id}/documents/{documentID}", authed(s.handleUpdateDocument))
	s.router.Handle("DELETE /api/v1/collections/{id}/documents/{documentID}", authed(s.handleDeleteDocument))

	// Retrieval and chat
	s.router.Handle("POST /api/v1/search", authed(s.handleSearch))
	var chat http.Handler = http.HandlerFunc(s.handleChatQuery)
	if s.chatLimiter != nil {
		chat = s.chatLimiter.Handler(chat)
	}
	s.router.Handle("POST /api/v1/chat/query", authMiddleware.Authenticate(chat))
	s.router.Handle("GET /api/v1/chat/history", authed(s.handleChatHistory))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
