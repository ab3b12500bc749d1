// Package embedding implements the EmbeddingModel collaborator contract
// (embed(text) -> vector, embed_batch(texts) -> vectors) against an
// Ollama-compatible embeddings API. Adapted from this codebase's
// CodeChunk-oriented embedder: the HTTP client, concurrency limiter, and
// truncation guard are unchanged, generalized to operate on plain text
// rather than source chunks.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/logger"
)

// Model is the EmbeddingModel collaborator contract.
type Model interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OllamaModel implements Model against an Ollama-compatible embeddings API.
type OllamaModel struct {
	baseURL    string
	model      string
	client     *http.Client
	numWorkers int
	sem        chan struct{}
}

// New creates an embedding model with default parallelism (4 workers per
// batch call, 16 concurrent requests in flight).
func New(baseURL, model string) *OllamaModel {
	return NewWithConfig(baseURL, model, 4, 16)
}

// NewWithWorkers creates an embedding model with a caller-chosen worker
// count per batch call.
func NewWithWorkers(baseURL, model string, numWorkers int) *OllamaModel {
	return NewWithConfig(baseURL, model, numWorkers, numWorkers*2)
}

// NewWithConfig creates an embedding model with full concurrency control.
// numWorkers bounds parallelism within a single EmbedBatch call;
// maxConcurrent bounds the total number of in-flight requests across all
// calls sharing this model.
func NewWithConfig(baseURL, model string, numWorkers, maxConcurrent int) *OllamaModel {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if maxConcurrent <= 0 {
		maxConcurrent = numWorkers * 2
	}
	return &OllamaModel{
		baseURL:    baseURL,
		model:      model,
		numWorkers: numWorkers,
		sem:        make(chan struct{}, maxConcurrent),
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

// maxEmbeddingChars is a conservative limit for small local embedding
// models (e.g. all-minilm's 512 token window). 384 chars (~128-192
// tokens) keeps requests within budget across model variants.
const maxEmbeddingChars = 384

func truncateForEmbedding(text string) string {
	text = strings.ToValidUTF8(text, "�")
	if utf8.RuneCountInString(text) <= maxEmbeddingChars {
		return text
	}
	runes := []rune(text)
	truncated := string(runes[:maxEmbeddingChars])
	logger.Debug("truncated text for embedding", "original_runes", len(runes), "truncated_runes", maxEmbeddingChars)
	return truncated
}

// Embed generates an embedding for a single text.
func (m *OllamaModel) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	text = truncateForEmbedding(text)
	reqBody := embeddingRequest{Model: m.model, Prompt: text}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to marshal embedding request")
	}

	url := fmt.Sprintf("%s/api/embeddings", m.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to create embedding request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, kberrors.TransientProviderError("failed to reach embedding provider", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		return nil, kberrors.TransientProviderError(fmt.Sprintf("embedding provider returned %d: %s", resp.StatusCode, string(body)), nil)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, kberrors.New(kberrors.ErrorTypeExternal, fmt.Sprintf("embedding provider returned %d: %s", resp.StatusCode, string(body)))
	}

	var res embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, kberrors.TransientProviderError("failed to decode embedding response", err)
	}
	return res.Embedding, nil
}

type embeddingJob struct {
	index int
	text  string
}

type embeddingResult struct {
	index     int
	embedding []float32
	err       error
}

// EmbedBatch generates embeddings for multiple texts in parallel using a
// bounded worker pool. Results preserve the input order.
func (m *OllamaModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	logger.Debug("generating batch embeddings", "count", len(texts), "workers", m.numWorkers)

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	jobs := make(chan embeddingJob, len(texts))
	results := make(chan embeddingResult, len(texts))

	var wg sync.WaitGroup
	numWorkers := m.numWorkers
	if numWorkers > len(texts) {
		numWorkers = len(texts)
	}
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				emb, err := m.Embed(ctx, job.text)
				results <- embeddingResult{index: job.index, embedding: emb, err: err}
			}
		}()
	}

	for i, text := range texts {
		jobs <- embeddingJob{index: i, text: truncateForEmbedding(text)}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([][]float32, len(texts))
	for res := range results {
		if res.err != nil {
			return nil, fmt.Errorf("embedding worker failed on index %d: %w", res.index, res.err)
		}
		ordered[res.index] = res.embedding
	}
	return ordered, nil
}
