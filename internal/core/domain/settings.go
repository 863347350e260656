package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderTGI is a Hugging Face text-generation-inference server.
	AIProviderTGI AIProvider = "tgi"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderTGI, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama || p == AIProviderTGI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderTGI:
		return "Text Generation Inference (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// VectorBackend identifies a vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendMemory is the exact in-memory index. It is also the fallback.
	VectorBackendMemory VectorBackend = "memory"

	// VectorBackendSQLite persists vectors in a local SQLite database.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendPgvector stores vectors in PostgreSQL with pgvector.
	VectorBackendPgvector VectorBackend = "pgvector"

	// VectorBackendMilvus stores vectors in a Milvus collection.
	VectorBackendMilvus VectorBackend = "milvus"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendSQLite, VectorBackendPgvector, VectorBackendMilvus:
		return true
	default:
		return false
	}
}

// IsPersistent returns true if the backend survives a restart.
func (b VectorBackend) IsPersistent() bool {
	return b.IsValid() && b != VectorBackendMemory
}

// String returns the string representation.
func (b VectorBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendMemory:
		return "Memory (exact, not persisted)"
	case VectorBackendSQLite:
		return "SQLite (local file)"
	case VectorBackendPgvector:
		return "PostgreSQL + pgvector"
	case VectorBackendMilvus:
		return "Milvus"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider != AIProviderOllama && e.Provider != AIProviderOpenAI {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama and TGI).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Timeout bounds a single generation call.
	Timeout time.Duration

	// FallbackURL is a TGI endpoint tried when the primary provider fails.
	// Empty disables the fallback.
	FallbackURL string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkSettings controls the chunker window.
type ChunkSettings struct {
	// MaxChars is the maximum chunk size in characters.
	MaxChars int

	// OverlapChars is carried from one chunk into the next.
	OverlapChars int
}

// CorpusSettings describes what gets indexed.
type CorpusSettings struct {
	// Root is the codebase directory walked by the indexer.
	Root string

	// SchemaDir holds *.sql, *.prisma and *.dbml files given to code generation.
	SchemaDir string

	// GitHubToken authenticates GitHub repository sources.
	GitHubToken string

	// Watch re-indexes changed files while serving.
	Watch bool
}

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	// Backend is the preferred persistent backend.
	Backend VectorBackend

	// Dimensions is the embedding vector size. Zero means taken from the first insert.
	Dimensions int

	// DSN is the PostgreSQL connection string (for pgvector).
	DSN string

	// MilvusAddress is the Milvus gRPC address (for milvus).
	MilvusAddress string

	// Collection is the table or collection name.
	Collection string
}

// RetrievalSettings controls retrieval and generation budgets.
type RetrievalSettings struct {
	// TopK is the number of fragments retrieved per request.
	TopK int

	// MaxTokens is the output budget for code generation.
	MaxTokens int

	// MaxAttempts bounds generation retries (attempts, not retries).
	MaxAttempts int
}

// UploadSettings limits the document upload path.
type UploadSettings struct {
	// MaxFileBytes rejects larger uploads.
	MaxFileBytes int64

	// MaxChunks caps the chunks indexed per document.
	MaxChunks int
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	// Addr is the listen address.
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir holds the vector database, the document registry and uploads.
	DataDir string

	Embedding   EmbeddingSettings
	LLM         LLMSettings
	Chunking    ChunkSettings
	Corpus      CorpusSettings
	VectorIndex VectorIndexSettings
	Retrieval   RetrievalSettings
	Upload      UploadSettings
	Server      ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// DataDir is left empty; callers resolve it to ~/.codeassist.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       "qwen2.5:14b",
			BaseURL:     "http://localhost:11434",
			Timeout:     600 * time.Second,
			FallbackURL: "http://localhost:8080",
		},
		Chunking: ChunkSettings{
			MaxChars:     2000,
			OverlapChars: 200,
		},
		Corpus: CorpusSettings{
			Root:      ".",
			SchemaDir: "database",
		},
		VectorIndex: VectorIndexSettings{
			Backend:    VectorBackendSQLite,
			Collection: "codeassist_chunks",
		},
		Retrieval: RetrievalSettings{
			TopK:        15,
			MaxTokens:   4096,
			MaxAttempts: 3,
		},
		Upload: UploadSettings{
			MaxFileBytes: 10 * 1024 * 1024,
			MaxChunks:    500,
		},
		Server: ServerSettings{
			Addr: ":8000",
		},
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderTGI,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllVectorBackends returns every vector backend.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendSQLite,
		VectorBackendPgvector,
		VectorBackendMilvus,
		VectorBackendMemory,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "qwen2.5:14b",
		AIProviderTGI:       "tgi",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
