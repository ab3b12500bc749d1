package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Guru2308/rag-code/docs"
	"github.com/Guru2308/rag-code/internal/api"
	"github.com/Guru2308/rag-code/internal/autocontext"
	"github.com/Guru2308/rag-code/internal/chunking"
	"github.com/Guru2308/rag-code/internal/chunkstore"
	"github.com/Guru2308/rag-code/internal/config"
	"github.com/Guru2308/rag-code/internal/embedding"
	"github.com/Guru2308/rag-code/internal/filesystem"
	"github.com/Guru2308/rag-code/internal/ingest"
	"github.com/Guru2308/rag-code/internal/llmprovider"
	"github.com/Guru2308/rag-code/internal/logger"
	"github.com/Guru2308/rag-code/internal/metadatastore"
	"github.com/Guru2308/rag-code/internal/reranker"
	"github.com/Guru2308/rag-code/internal/rse"
	"github.com/Guru2308/rag-code/internal/sectioning"
	"github.com/Guru2308/rag-code/internal/vectorstore"
	"github.com/Guru2308/rag-code/knowledgebase"
	"github.com/redis/go-redis/v9"
)

// @title           Knowledge Base Engine API
// @version         1.0
// @description     A retrieval-augmented knowledge base engine: semantic
// @description     sectioning, chunking, and relevant-segment-extraction
// @description     retrieval over arbitrary documents.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api

// embeddingDimensions is all-minilm's output width, the default embedding
// model; a deployment using a different model must override via
// EMBEDDING_DIMENSIONS once that knob exists.
const embeddingDimensions = 384

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(logger.Config{Level: logger.Level(cfg.LogLevel), Format: cfg.LogFormat}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Info("knowledge base engine starting",
		"ollama_url", cfg.OllamaURL,
		"embedding_model", cfg.EmbeddingModel,
		"llm_model", cfg.LLMModel,
		"vector_store_backend", cfg.VectorStoreBackend,
		"chunk_store_backend", cfg.ChunkStoreBackend,
		"file_system_backend", cfg.FileSystemBackend,
		"port", cfg.ServerPort,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder := embedding.NewWithWorkers(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingWorkers)
	llmProvider := llmprovider.NewOllamaProvider(cfg.OllamaURL, cfg.LLMModel)

	autoContextLLM := llmProvider
	if cfg.AutoContextModel != "" && cfg.AutoContextModel != cfg.LLMModel {
		autoContextLLM = llmprovider.NewOllamaProvider(cfg.OllamaURL, cfg.AutoContextModel)
	}

	vectors, err := buildVectorStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize vector store", "backend", cfg.VectorStoreBackend, "error", err)
		os.Exit(1)
	}

	chunks, err := buildChunkStore(cfg)
	if err != nil {
		logger.Error("failed to initialize chunk store", "backend", cfg.ChunkStoreBackend, "error", err)
		os.Exit(1)
	}

	files, err := buildFileSystem(cfg)
	if err != nil {
		logger.Error("failed to initialize file system", "backend", cfg.FileSystemBackend, "error", err)
		os.Exit(1)
	}

	var rr reranker.Reranker = reranker.NewHeuristicReranker()
	if cfg.UseMMR {
		rr = reranker.NewMMRReranker(rr, float32(cfg.MMRLambda))
	}

	metaStore, err := metadatastore.NewJSONStore(cfg.MetadataRootDir)
	if err != nil {
		logger.Error("failed to initialize metadata store", "error", err)
		os.Exit(1)
	}
	registry := knowledgebase.NewRegistry(metaStore)

	comps := knowledgebase.Components{
		LLM:            llmProvider,
		AutoContextLLM: autoContextLLM,
		Embedder:       embedder,
		Reranker:       rr,
		Chunks:         chunks,
		Vectors:        vectors,
		Files:          files,
	}
	kbConfig := knowledgebase.Config{
		Sectioning: sectioning.Config{
			MaxCharsPerWindow:     cfg.MaxCharsPerWindow,
			MaxRetries:            cfg.SectioningMaxRetries,
			LLMMaxConcurrentReqs:  cfg.LLMMaxConcurrentReqs,
			MinAvgCharsPerSection: cfg.MinAvgCharsPerSection,
		},
		Chunking: chunking.Config{
			ChunkSize:            cfg.ChunkSize,
			MinLengthForChunking: cfg.MinLengthForChunking,
			MarkdownAware:        cfg.MarkdownAwareChunking,
		},
		AutoContext: autocontext.Config{
			MaxTokens:            cfg.AutoContextMaxTokens,
			LLMMaxConcurrentReqs: cfg.LLMMaxConcurrentReqs,
		},
		Ingest: ingest.Config{
			BatchSize:             cfg.EmbeddingWorkers,
			MaxRetries:            cfg.MaxRetries,
			UseSemanticSectioning: cfg.UseSemanticSectioning,
		},
		RateLimitPause: time.Duration(cfg.RateLimitPause * float64(time.Second)),
		ANNSearchTopK:  cfg.ANNSearchTopK,
		IngestWorkers:  cfg.NumWorkers,
		DefaultRSEParams: &rse.Params{
			DecayRate:                 float32(cfg.RSEDecayRate),
			MinimumSimilarity:         float32(cfg.RSEMinimumSimilarity),
			IrrelevantChunkPenalty:    float32(cfg.RSEIrrelevantChunkPenalty),
			ChunkLengthAdjustment:     cfg.RSEChunkLengthAdjustment,
			ReferenceChunkChars:       cfg.ChunkSize,
			MaxLength:                 uint32(cfg.RSEMaxLength),
			OverallMaxLength:          uint32(cfg.RSEOverallMaxLength),
			OverallMaxLengthExtension: uint32(cfg.RSEOverallMaxLengthExtension),
			MinimumValue:              float32(cfg.RSEMinimumValue),
			TopKForDocumentSelection:  cfg.RSETopKForDocumentSelection,
		},
	}

	const defaultKBID = "default"
	existing, err := registry.Exists(ctx, defaultKBID)
	if err != nil {
		logger.Error("failed to check for existing knowledge base", "error", err)
		os.Exit(1)
	}

	var kb *knowledgebase.KnowledgeBase
	if existing {
		kb = knowledgebase.New(defaultKBID, comps, kbConfig)
		logger.Info("reattached to previously persisted knowledge base", "kb_id", defaultKBID)
	} else {
		kb, err = registry.Create(ctx, defaultKBID, knowledgebase.Descriptor{
			Title:       "default",
			Description: "default knowledge base",
		}, comps, kbConfig)
		if err != nil {
			logger.Error("failed to create knowledge base", "error", err)
			os.Exit(1)
		}
	}

	srv := api.NewServer(cfg.ServerPort, kb)

	logger.Info("all services initialized successfully")

	if err := srv.Start(); err != nil {
		logger.Error("API server failed", "error", err)
		os.Exit(1)
	}
}

func buildVectorStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.VectorStoreBackend {
	case "postgres":
		return vectorstore.NewPostgresStore(ctx, cfg.PostgresDSN, embeddingDimensions)
	default:
		store, err := vectorstore.NewQdrantStore(cfg.VectorStoreURL, cfg.CollectionName)
		if err != nil {
			return nil, err
		}
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := store.InitCollection(initCtx, embeddingDimensions); err != nil {
			return nil, err
		}
		return store, nil
	}
}

func buildChunkStore(cfg *config.Config) (chunkstore.Store, error) {
	switch cfg.ChunkStoreBackend {
	case "bbolt":
		return chunkstore.NewBoltStore(cfg.BboltPath)
	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return chunkstore.NewRedisStore(client, "kb:"), nil
	}
}

func buildFileSystem(cfg *config.Config) (filesystem.FileSystem, error) {
	switch cfg.FileSystemBackend {
	case "minio":
		return filesystem.NewMinIOFileSystem(filesystem.MinIOConfig{
			Endpoint:        cfg.MinIOEndpoint,
			AccessKeyID:     cfg.MinIOAccessKey,
			SecretAccessKey: cfg.MinIOSecretKey,
			BucketName:      cfg.MinIOBucket,
			UseSSL:          cfg.MinIOUseSSL,
		})
	default:
		return filesystem.NewLocalFileSystem(cfg.LocalRootDir)
	}
}
