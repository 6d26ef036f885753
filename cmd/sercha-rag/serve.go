package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
	httpadapter "github.com/custodia-labs/sercha-rag/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Run the HTTP API server until SIGINT or SIGTERM.

The database schema is applied on startup, so a separate migrate step is
optional.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// loadConfig loads configuration and builds the logger
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(logger) }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("sercha-rag starting", zap.String("version", version))

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown cleanup failed", zap.Error(err))
		}
	}()

	// Redis expires sessions itself; PostgreSQL needs a sweeper
	if pgSessions, ok := a.sessionStore.(*postgres.SessionStore); ok {
		go cleanupSessions(ctx, pgSessions, cfg.Auth.SessionCleanupInterval, logger)
	}

	var redisPinger httpadapter.Pinger
	if a.redisClient != nil {
		redisPinger = httpadapter.PingFunc(func(ctx context.Context) error {
			return a.redisClient.Ping(ctx).Err()
		})
	}

	server := httpadapter.NewServer(httpadapter.Config{
		Host:              cfg.Server.Host,
		Port:              cfg.Server.Port,
		Version:           version,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		ChatRatePerMinute: cfg.Server.ChatRatePerMinute,
		ChatBurst:         cfg.Server.ChatBurst,
	}, a.services, a.db, redisPinger, logger.Named("http"))

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// sessionSweeper is the part of the PostgreSQL session store the sweeper needs
type sessionSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// cleanupSessions deletes expired sessions every interval until ctx is done
func cleanupSessions(ctx context.Context, store sessionSweeper, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.DeleteExpired(ctx)
			if err != nil {
				logger.Warn("session cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("expired sessions removed", zap.Int64("count", removed))
			}
		}
	}
}
