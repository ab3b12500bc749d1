package config

import (
	"os"
	"testing"
)

func TestLoad(t *testing.T) {
	// Cleanup env after test
	defer os.Clearenv()

	t.Run("success with defaults", func(t *testing.T) {
		os.Clearenv()
		os.Setenv("OLLAMA_URL", "http://test-ollama:11434")
		defer os.Unsetenv("OLLAMA_URL")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.OllamaURL != "http://test-ollama:11434" {
			t.Errorf("OllamaURL = %v, want %v", cfg.OllamaURL, "http://test-ollama:11434")
		}
		if cfg.EmbeddingModel != "all-minilm" {
			t.Errorf("EmbeddingModel = %v, want %v", cfg.EmbeddingModel, "all-minilm")
		}
		if cfg.ChunkSize != 800 {
			t.Errorf("ChunkSize = %v, want %v", cfg.ChunkSize, 800)
		}
		if cfg.RSEOverallMaxLengthExtension != 5 {
			t.Errorf("RSEOverallMaxLengthExtension = %v, want %v", cfg.RSEOverallMaxLengthExtension, 5)
		}
	})

	t.Run("defaults when missing", func(t *testing.T) {
		os.Clearenv()
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.OllamaURL != "http://localhost:11434" {
			t.Errorf("OllamaURL = %v, want default", cfg.OllamaURL)
		}
		if cfg.VectorStoreBackend != "qdrant" {
			t.Errorf("VectorStoreBackend = %v, want qdrant", cfg.VectorStoreBackend)
		}
		if cfg.ChunkStoreBackend != "redis" {
			t.Errorf("ChunkStoreBackend = %v, want redis", cfg.ChunkStoreBackend)
		}
		if cfg.FileSystemBackend != "local" {
			t.Errorf("FileSystemBackend = %v, want local", cfg.FileSystemBackend)
		}
	})

	t.Run("custom values", func(t *testing.T) {
		os.Clearenv()
		envVars := map[string]string{
			"OLLAMA_URL":                "http://custom:11434",
			"EMBEDDING_MODEL":           "custom-model",
			"LLM_MODEL":                 "custom-llm",
			"VECTOR_STORE_URL":          "http://custom-vec:6333",
			"VECTOR_STORE_BACKEND":      "postgres",
			"COLLECTION_NAME":           "custom-coll",
			"SERVER_PORT":               "9090",
			"LOG_LEVEL":                 "debug",
			"LOG_FORMAT":                "text",
			"REDIS_URL":                 "custom-redis:6379",
			"REDIS_DB":                  "1",
			"CHUNK_SIZE":                "500",
			"MIN_LENGTH_FOR_CHUNKING":   "200",
			"MAX_CHARS_PER_WINDOW":      "10000",
			"MIN_AVG_CHARS_PER_SECTION": "300",
			"RSE_MAX_LENGTH":            "10",
			"RSE_OVERALL_MAX_LENGTH":    "20",
		}

		for k, v := range envVars {
			os.Setenv(k, v)
			defer os.Unsetenv(k)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.OllamaURL != "http://custom:11434" {
			t.Errorf("OllamaURL = %v", cfg.OllamaURL)
		}
		if cfg.VectorStoreBackend != "postgres" {
			t.Errorf("VectorStoreBackend = %v", cfg.VectorStoreBackend)
		}
		if cfg.RedisDB != 1 {
			t.Errorf("RedisDB = %v", cfg.RedisDB)
		}
		if cfg.ChunkSize != 500 {
			t.Errorf("ChunkSize = %v", cfg.ChunkSize)
		}
		if cfg.MinAvgCharsPerSection != 300 {
			t.Errorf("MinAvgCharsPerSection = %v", cfg.MinAvgCharsPerSection)
		}
		if cfg.RSEMaxLength != 10 {
			t.Errorf("RSEMaxLength = %v", cfg.RSEMaxLength)
		}
	})
}
