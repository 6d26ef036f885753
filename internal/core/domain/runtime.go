package domain

import "sync"

// RuntimeConfig tracks which backends are wired and which AI services are available.
// Backend names are set at startup; AI availability changes when services are swapped.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	SessionBackend string // "redis" or "postgres"
	VectorBackend  string // "pinecone", "qdrant", "pgvector" or "memory"

	// Dynamic capability flags
	embeddingAvailable bool
	llmAvailable       bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(sessionBackend, vectorBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		SessionBackend: sessionBackend,
		VectorBackend:  vectorBackend,
	}
}

// EmbeddingAvailable returns whether embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// LLMAvailable returns whether LLM service is available
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// CanRetrieve returns true if documents can be indexed and searched
func (c *RuntimeConfig) CanRetrieve() bool {
	return c.EmbeddingAvailable()
}

// CanAnswer returns true if chat answers can be generated
func (c *RuntimeConfig) CanAnswer() bool {
	return c.EmbeddingAvailable() && c.LLMAvailable()
}

// RuntimeStatus is a point-in-time view of RuntimeConfig for health reporting.
type RuntimeStatus struct {
	SessionBackend     string `json:"session_backend"`
	VectorBackend      string `json:"vector_backend"`
	EmbeddingAvailable bool   `json:"embedding_available"`
	LLMAvailable       bool   `json:"llm_available"`
}

// Status returns a snapshot of the configuration.
func (c *RuntimeConfig) Status() RuntimeStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return RuntimeStatus{
		SessionBackend:     c.SessionBackend,
		VectorBackend:      c.VectorBackend,
		EmbeddingAvailable: c.embeddingAvailable,
		LLMAvailable:       c.llmAvailable,
	}
}
