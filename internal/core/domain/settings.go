package domain

// AIProvider identifies the embedding or LLM provider
type AIProvider string

const (
	AIProviderOpenAI      AIProvider = "openai"      // OpenAI API or any compatible server (TEI, vLLM)
	AIProviderHuggingFace AIProvider = "huggingface" // Hugging Face inference API
	AIProviderOllama      AIProvider = "ollama"      // Self-hosted Ollama
	AIProviderFastEmbed   AIProvider = "fastembed"   // Local ONNX embeddings, embedding only
	AIProviderNone        AIProvider = "none"
)

// Default models, matching the index dimension of DefaultIndexSpec.
const (
	DefaultEmbeddingModel      = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultEmbeddingDimensions = 384
	DefaultLLMModel            = "meta-llama/Llama-2-70b-chat-hf"
)

// EmbeddingSettings configures the embedding service
type EmbeddingSettings struct {
	Provider   AIProvider `json:"provider"`
	Model      string     `json:"model"`
	APIKey     string     `json:"-"` // Never serialize to JSON
	BaseURL    string     `json:"base_url,omitempty"`
	Dimensions int        `json:"dimensions"`
	CacheDir   string     `json:"cache_dir,omitempty"` // fastembed model cache
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" || e.Provider == AIProviderNone {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings configures the LLM service
type LLMSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if LLM settings are properly configured
func (l *LLMSettings) IsConfigured() bool {
	if l.Provider == "" || l.Provider == AIProviderNone {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RequiresAPIKey returns true if this provider requires an API key
func (p AIProvider) RequiresAPIKey() bool {
	switch p {
	case AIProviderOllama, AIProviderFastEmbed, AIProviderNone:
		return false
	case AIProviderOpenAI:
		// Self-hosted OpenAI-compatible servers usually run without a key.
		return false
	default:
		return true
	}
}

// IsValid returns true if this is a known provider
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderHuggingFace, AIProviderOllama, AIProviderFastEmbed, AIProviderNone:
		return true
	default:
		return false
	}
}

// SupportsEmbedding returns true if the provider can produce embeddings
func (p AIProvider) SupportsEmbedding() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama, AIProviderFastEmbed:
		return true
	default:
		return false
	}
}

// SupportsLLM returns true if the provider can generate text
func (p AIProvider) SupportsLLM() bool {
	switch p {
	case AIProviderOpenAI, AIProviderHuggingFace, AIProviderOllama:
		return true
	default:
		return false
	}
}
