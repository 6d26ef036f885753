package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-rag/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/chromem"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/pinecone"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/vector/qdrant"
	httpadapter "github.com/custodia-labs/sercha-rag/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// app holds every long-lived dependency of the server
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	db           *postgres.DB
	redisClient  *redis.Client
	sessionStore driven.SessionStore
	runtime      *runtime.Services
	services     httpadapter.Services
}

// connectDatabase opens the pool and applies the schema
func connectDatabase(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.Database.URL.Value(),
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// connectRedis returns nil when no Redis URL is configured
func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.URL.IsSet() {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL.Value())
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// newVectorIndex builds the configured vector backend
func newVectorIndex(ctx context.Context, cfg *config.Config, db *postgres.DB, logger *zap.Logger) (driven.VectorIndex, error) {
	logger = logger.Named("vector")

	switch cfg.Vector.Backend {
	case config.VectorBackendPinecone:
		return pinecone.New(pinecone.Config{
			APIKey:         cfg.Pinecone.APIKey.Value(),
			RequestTimeout: cfg.Pinecone.RequestTimeout,
		}, logger)
	case config.VectorBackendQdrant:
		return qdrant.New(qdrant.Config{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: cfg.Qdrant.APIKey.Value(),
			UseTLS: cfg.Qdrant.UseTLS,
		}, logger)
	case config.VectorBackendPGVector:
		idx := pgvector.New(db.DB, logger)
		if err := idx.InitSchema(ctx); err != nil {
			return nil, err
		}
		return idx, nil
	case config.VectorBackendMemory:
		return chromem.New(logger), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}

// newApp connects the infrastructure and wires the core services
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if a.db, err = connectDatabase(ctx, cfg); err != nil {
		return nil, err
	}
	logger.Info("postgres connected, schema initialized")

	if a.redisClient, err = connectRedis(ctx, cfg); err != nil {
		return nil, err
	}

	// Sessions and locks live in Redis when available, otherwise PostgreSQL
	var lock driven.DistributedLock
	if a.redisClient != nil {
		a.sessionStore = redisadapter.NewSessionStore(a.redisClient)
		lock = redisadapter.NewLock(a.redisClient)
	} else {
		a.sessionStore = postgres.NewSessionStore(a.db)
		lock = postgres.NewAdvisoryLock(a.db)
	}

	runtimeConfig := domain.NewRuntimeConfig(cfg.SessionBackend(), cfg.Vector.Backend)
	a.runtime = runtime.NewServices(runtimeConfig)

	index, err := newVectorIndex(ctx, cfg, a.db, logger)
	if err != nil {
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	a.runtime.SetVectorIndex(index)

	// AI services are optional at startup; requests that need a missing one fail with ErrServiceUnavailable (503)
	factory := ai.NewFactory(logger.Named("ai"))
	if err := a.runtime.Configure(ctx, factory, cfg.EmbeddingSettings(), cfg.LLMSettings(), false); err != nil {
		if errors.Is(err, domain.ErrInvalidProvider) {
			return nil, err
		}
		logger.Warn("ai services unavailable", zap.Error(err))
	}

	status := runtimeConfig.Status()
	logger.Info("runtime configured",
		zap.String("session_backend", status.SessionBackend),
		zap.String("vector_backend", status.VectorBackend),
		zap.Bool("embedding", status.EmbeddingAvailable),
		zap.Bool("llm", status.LLMAvailable))

	// Stores
	userStore := postgres.NewUserStore(a.db)
	collectionStore := postgres.NewCollectionStore(a.db)
	documentStore := postgres.NewDocumentStore(a.db)
	historyStore := postgres.NewChatHistoryStore(a.db)

	// Core
	authAdapter := auth.NewAdapter(cfg.Auth.JWTSecret.Value())
	retriever := services.NewRetriever(a.runtime, services.RetrieverConfig{
		TopK:        cfg.Chat.TopK,
		Threshold:   cfg.Chat.Threshold,
		Concurrency: cfg.Chat.Concurrency,
	}, logger.Named("retriever"))
	generator := services.NewAnswerGenerator(a.runtime, services.AnswerGeneratorConfig{
		MaxLength: cfg.LLM.MaxLength,
	}, logger.Named("answer"))
	indexer := services.NewDocumentIndexer(services.DocumentIndexerConfig{
		Services:  a.runtime,
		Pipeline:  postprocessors.DefaultPipeline(),
		Lock:      lock,
		BatchSize: cfg.Embedding.BatchSize,
		Logger:    logger.Named("indexer"),
	})

	a.services = httpadapter.Services{
		Auth: services.NewAuthService(userStore, a.sessionStore, authAdapter, services.AuthConfig{
			AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
			RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		}),
		User:       services.NewUserService(userStore, authAdapter),
		Collection: services.NewCollectionService(collectionStore, a.runtime, cfg.IndexSpec(), logger.Named("collections")),
		Document:   services.NewDocumentService(collectionStore, documentStore, indexer, logger.Named("documents")),
		Search:     services.NewSearchService(collectionStore, retriever, logger.Named("search")),
		Chat: services.NewChatService(services.ChatServiceConfig{
			CollectionStore: collectionStore,
			HistoryStore:    historyStore,
			Retriever:       retriever,
			Generator:       generator,
			DefaultAnswer:   cfg.Chat.DefaultAnswer,
			Logger:          logger.Named("chat"),
		}),
		Runtime: a.runtime,
	}
	return a, nil
}

// Close releases every connection the app opened
func (a *app) Close() error {
	var errs []error
	if a.runtime != nil {
		errs = append(errs, a.runtime.Close())
	}
	if a.redisClient != nil {
		errs = append(errs, a.redisClient.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
