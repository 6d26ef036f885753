// Package config loads sercha-rag configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Vector backends
const (
	VectorBackendPinecone = "pinecone"
	VectorBackendQdrant   = "qdrant"
	VectorBackendPGVector = "pgvector"
	VectorBackendMemory   = "memory"
)

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Auth      AuthConfig      `koanf:"auth"`
	Vector    VectorConfig    `koanf:"vector"`
	Pinecone  PineconeConfig  `koanf:"pinecone"`
	Qdrant    QdrantConfig    `koanf:"qdrant"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	LLM       LLMConfig       `koanf:"llm"`
	Chat      ChatConfig      `koanf:"chat"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	AllowedOrigins    []string      `koanf:"allowed_origins"`
	ChatRatePerMinute int           `koanf:"chat_rate_per_minute"`
	ChatBurst         int           `koanf:"chat_burst"`
}

// DatabaseConfig configures the PostgreSQL pool
type DatabaseConfig struct {
	URL             Secret        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

// RedisConfig is optional; an empty URL keeps sessions and locks in PostgreSQL
type RedisConfig struct {
	URL Secret `koanf:"url"`
}

// AuthConfig configures token signing and lifetimes
type AuthConfig struct {
	JWTSecret              Secret        `koanf:"jwt_secret"`
	AccessTokenTTL         time.Duration `koanf:"access_token_ttl"`
	RefreshTokenTTL        time.Duration `koanf:"refresh_token_ttl"`
	SessionCleanupInterval time.Duration `koanf:"session_cleanup_interval"`
}

// VectorConfig selects the vector backend and the shape of new indexes
type VectorConfig struct {
	Backend string `koanf:"backend"`
	// Dimension of new indexes; zero follows the embedding model
	Dimension int    `koanf:"dimension"`
	Metric    string `koanf:"metric"`
	Cloud     string `koanf:"cloud"`
	Region    string `koanf:"region"`
}

// PineconeConfig configures the Pinecone backend
type PineconeConfig struct {
	APIKey         Secret        `koanf:"api_key"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// QdrantConfig configures the Qdrant backend
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	APIKey Secret `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
}

// EmbeddingConfig configures the embedding provider
type EmbeddingConfig struct {
	Provider   string `koanf:"provider"`
	Model      string `koanf:"model"`
	APIKey     Secret `koanf:"api_key"`
	BaseURL    string `koanf:"base_url"`
	Dimensions int    `koanf:"dimensions"`
	CacheDir   string `koanf:"cache_dir"`
	BatchSize  int    `koanf:"batch_size"`
}

// LLMConfig configures the answer model
type LLMConfig struct {
	Provider  string `koanf:"provider"`
	Model     string `koanf:"model"`
	APIKey    Secret `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	MaxLength int    `koanf:"max_length"`
}

// ChatConfig tunes retrieval and the fallback answer
type ChatConfig struct {
	// DefaultAnswer is returned when nothing relevant is retrieved
	DefaultAnswer string  `koanf:"default_answer"`
	TopK          int     `koanf:"top_k"`
	Threshold     float64 `koanf:"threshold"`
	Concurrency   int     `koanf:"concurrency"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server shutdown timeout must be positive"))
	}
	if c.Server.ChatRatePerMinute < 0 {
		errs = append(errs, errors.New("chat rate per minute must not be negative"))
	}
	if !c.Database.URL.IsSet() {
		errs = append(errs, errors.New("database url is required"))
	}

	if !c.Auth.JWTSecret.IsSet() {
		errs = append(errs, errors.New("auth jwt secret is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}

	switch c.Vector.Backend {
	case VectorBackendPinecone:
		if !c.Pinecone.APIKey.IsSet() {
			errs = append(errs, errors.New("pinecone api key is required for the pinecone backend"))
		}
	case VectorBackendQdrant:
		if c.Qdrant.Host == "" {
			errs = append(errs, errors.New("qdrant host is required for the qdrant backend"))
		}
	case VectorBackendPGVector, VectorBackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown vector backend %q", c.Vector.Backend))
	}
	switch domain.DistanceMetric(c.Vector.Metric) {
	case domain.MetricCosine, domain.MetricDotProduct, domain.MetricEuclidean:
	default:
		errs = append(errs, fmt.Errorf("unknown vector metric %q", c.Vector.Metric))
	}
	if c.Vector.Dimension < 0 {
		errs = append(errs, errors.New("vector dimension must not be negative"))
	}

	embedding := domain.AIProvider(c.Embedding.Provider)
	if !embedding.IsValid() || (embedding != domain.AIProviderNone && !embedding.SupportsEmbedding()) {
		errs = append(errs, fmt.Errorf("unsupported embedding provider %q", c.Embedding.Provider))
	}
	llm := domain.AIProvider(c.LLM.Provider)
	if !llm.IsValid() || (llm != domain.AIProviderNone && !llm.SupportsLLM()) {
		errs = append(errs, fmt.Errorf("unsupported llm provider %q", c.LLM.Provider))
	}

	if c.Chat.TopK <= 0 {
		errs = append(errs, errors.New("chat top_k must be positive"))
	}
	if c.Chat.Threshold < 0 || c.Chat.Threshold > 1 {
		errs = append(errs, fmt.Errorf("chat threshold %v must be within [0, 1]", c.Chat.Threshold))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// SessionBackend names where sessions and locks live
func (c *Config) SessionBackend() string {
	if c.Redis.URL.IsSet() {
		return "redis"
	}
	return "postgres"
}

// EmbeddingSettings converts the embedding section for the AI factory
func (c *Config) EmbeddingSettings() *domain.EmbeddingSettings {
	return &domain.EmbeddingSettings{
		Provider:   domain.AIProvider(c.Embedding.Provider),
		Model:      c.Embedding.Model,
		APIKey:     c.Embedding.APIKey.Value(),
		BaseURL:    c.Embedding.BaseURL,
		Dimensions: c.Embedding.Dimensions,
		CacheDir:   c.Embedding.CacheDir,
	}
}

// LLMSettings converts the llm section for the AI factory
func (c *Config) LLMSettings() *domain.LLMSettings {
	return &domain.LLMSettings{
		Provider: domain.AIProvider(c.LLM.Provider),
		Model:    c.LLM.Model,
		APIKey:   c.LLM.APIKey.Value(),
		BaseURL:  c.LLM.BaseURL,
	}
}

// IndexSpec returns the spec for new collection indexes
func (c *Config) IndexSpec() domain.IndexSpec {
	return domain.IndexSpec{
		Dimension: c.Vector.Dimension,
		Metric:    domain.DistanceMetric(c.Vector.Metric),
		Cloud:     c.Vector.Cloud,
		Region:    c.Vector.Region,
	}
}
