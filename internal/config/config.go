// Package config loads knowledge-base engine configuration from the
// environment (and an optional .env file), following the same
// getEnvOrDefault/getEnvAsInt/getEnvAsFloat/getEnvAsBool pattern used
// throughout this codebase.
package config

import (
	"fmt"
	"os"
	"runtime"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Provider endpoints
	OllamaURL      string
	EmbeddingModel string
	LLMModel       string

	// Vector store selection: "qdrant" (default) or "postgres"
	VectorStoreBackend string
	VectorStoreURL     string // Qdrant host:port
	CollectionName     string
	PostgresDSN        string // used when VectorStoreBackend == "postgres"

	// Chunk store selection: "redis" (default) or "bbolt"
	ChunkStoreBackend string
	RedisURL          string
	RedisPassword     string
	RedisDB           int
	BboltPath         string // used when ChunkStoreBackend == "bbolt"

	// File system selection: "local" (default) or "minio"
	FileSystemBackend string
	LocalRootDir      string
	MinIOEndpoint     string
	MinIOAccessKey    string
	MinIOSecretKey    string
	MinIOBucket       string
	MinIOUseSSL       bool

	// Metadata store root (JSON-per-KB files)
	MetadataRootDir string

	// Server / logging (ambient, not a core concern)
	ServerPort string
	LogLevel   string
	LogFormat  string

	// Sectioning (component C)
	UseSemanticSectioning  bool
	MaxCharsPerWindow      int
	MinAvgCharsPerSection  int // safeguard threshold
	SectioningMaxRetries   int // R in the retry policy, default 2
	LLMMaxConcurrentReqs   int // bounded-concurrency pool size for LLM-bound stages

	// Chunking (component D)
	ChunkSize             int
	MinLengthForChunking  int
	MarkdownAwareChunking bool // prefer goldmark block boundaries over plain-text heuristics

	// AutoContext (component E)
	AutoContextMaxTokens int // token budget for title/summary source excerpt
	AutoContextModel     string

	// Indexer / ingest batch (component F, §5)
	NumWorkers       int // file-level / doc-level parallelism (default: max(2*CPU, 4))
	EmbeddingWorkers int // workers per EmbedBatch call
	MaxRetries       int // store-write retry attempts
	RateLimitPause   float64 // seconds paused between documents in a batch ingest

	// Retriever (component G)
	ANNSearchTopK int // top-K searched per query before rerank, default 200

	// RSE defaults (component I), passed to the knowledge base as its
	// DefaultRSEParams. Their default values differ from the named presets
	// ("balanced", "precise", "comprehensive") in internal/rse/params.go.
	RSEMaxLength                 int
	RSEOverallMaxLength          int
	RSEMinimumValue              float64
	RSEIrrelevantChunkPenalty    float64
	RSEDecayRate                 float64
	RSEMinimumSimilarity         float64
	RSEChunkLengthAdjustment     bool
	RSEOverallMaxLengthExtension int
	RSETopKForDocumentSelection  int

	// Reranker
	UseMMR    bool
	MMRLambda float64
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		OllamaURL:      getEnvOrDefault("OLLAMA_URL", "http://localhost:11434"),
		EmbeddingModel: getEnvOrDefault("EMBEDDING_MODEL", "all-minilm"),
		LLMModel:       getEnvOrDefault("LLM_MODEL", "llama3.2:1b"),

		VectorStoreBackend: getEnvOrDefault("VECTOR_STORE_BACKEND", "qdrant"),
		VectorStoreURL:     getEnvOrDefault("VECTOR_STORE_URL", "http://localhost:6333"),
		CollectionName:     getEnvOrDefault("COLLECTION_NAME", "kb_chunks"),
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),

		ChunkStoreBackend: getEnvOrDefault("CHUNK_STORE_BACKEND", "redis"),
		RedisURL:          getEnvOrDefault("REDIS_URL", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		BboltPath:         getEnvOrDefault("BBOLT_PATH", "./kb_chunks.db"),

		FileSystemBackend: getEnvOrDefault("FILE_SYSTEM_BACKEND", "local"),
		LocalRootDir:      getEnvOrDefault("LOCAL_ROOT_DIR", "./kb_data"),
		MinIOEndpoint:     os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey:    os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey:    os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:       getEnvOrDefault("MINIO_BUCKET", "kb-pages"),
		MinIOUseSSL:       getEnvAsBool("MINIO_USE_SSL", false),

		MetadataRootDir: getEnvOrDefault("METADATA_ROOT_DIR", "./kb_metadata"),

		ServerPort: getEnvOrDefault("SERVER_PORT", "8080"),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:  getEnvOrDefault("LOG_FORMAT", "json"),

		UseSemanticSectioning: getEnvAsBool("USE_SEMANTIC_SECTIONING", true),
		MaxCharsPerWindow:     getEnvAsInt("MAX_CHARS_PER_WINDOW", 20000),
		MinAvgCharsPerSection: getEnvAsInt("MIN_AVG_CHARS_PER_SECTION", 500),
		SectioningMaxRetries:  getEnvAsInt("SECTIONING_MAX_RETRIES", 2),
		LLMMaxConcurrentReqs:  getEnvAsInt("LLM_MAX_CONCURRENT_REQUESTS", 5),

		ChunkSize:             getEnvAsInt("CHUNK_SIZE", 800),
		MinLengthForChunking:  getEnvAsInt("MIN_LENGTH_FOR_CHUNKING", 1000),
		MarkdownAwareChunking: getEnvAsBool("MARKDOWN_AWARE_CHUNKING", true),

		AutoContextMaxTokens: getEnvAsInt("AUTO_CONTEXT_MAX_TOKENS", 2000),
		AutoContextModel:     getEnvOrDefault("AUTO_CONTEXT_MODEL", "gpt-4o"),

		NumWorkers:       getEnvAsInt("NUM_WORKERS", max(2*runtime.NumCPU(), 4)),
		EmbeddingWorkers: getEnvAsInt("EMBEDDING_WORKERS", 8),
		MaxRetries:       getEnvAsInt("MAX_RETRIES", 3),
		RateLimitPause:   getEnvAsFloat("RATE_LIMIT_PAUSE", 1.0),

		ANNSearchTopK: getEnvAsInt("ANN_SEARCH_TOP_K", 200),

		RSEMaxLength:                 getEnvAsInt("RSE_MAX_LENGTH", 15),
		RSEOverallMaxLength:          getEnvAsInt("RSE_OVERALL_MAX_LENGTH", 30),
		RSEMinimumValue:              getEnvAsFloat("RSE_MINIMUM_VALUE", 0.5),
		RSEIrrelevantChunkPenalty:    getEnvAsFloat("RSE_IRRELEVANT_CHUNK_PENALTY", 0.18),
		RSEDecayRate:                 getEnvAsFloat("RSE_DECAY_RATE", 20),
		RSEMinimumSimilarity:         getEnvAsFloat("RSE_MINIMUM_SIMILARITY", 0),
		RSEChunkLengthAdjustment:     getEnvAsBool("RSE_CHUNK_LENGTH_ADJUSTMENT", true),
		RSEOverallMaxLengthExtension: getEnvAsInt("RSE_OVERALL_MAX_LENGTH_EXTENSION", 5),
		RSETopKForDocumentSelection:  getEnvAsInt("RSE_TOP_K_FOR_DOCUMENT_SELECTION", 200),

		UseMMR:    getEnvAsBool("USE_MMR", true),
		MMRLambda: getEnvAsFloat("MMR_LAMBDA", 0.7),
	}

	// Validate required fields
	if cfg.OllamaURL == "" {
		return nil, fmt.Errorf("OLLAMA_URL must be set")
	}

	return cfg, nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		fmt.Sscanf(value, "%d", &i)
		return i
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		fmt.Sscanf(value, "%f", &f)
		return f
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true"
	}
	return defaultValue
}
