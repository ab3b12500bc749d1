// Package retriever implements the Retriever (component G): for each
// query string, embed once, ANN-search the vector store's configured
// top-k, then rerank. Adapted from the teacher's internal/retrieval/retriever.go
// composition shape (embedder + store + reranker wired into a single
// struct with a Retrieve method); the teacher's keyword/BM25 hybrid
// fusion has no equivalent here — this spec's retrieval is dense-only,
// reranked.
package retriever

import (
	"context"
	"sync"

	"github.com/Guru2308/rag-code/internal/chunkstore"
	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/embedding"
	"github.com/Guru2308/rag-code/internal/logger"
	"github.com/Guru2308/rag-code/internal/reranker"
	"github.com/Guru2308/rag-code/internal/vectorstore"
)

// defaultANNSearchK is the top-k the ANN search pulls before reranking
// when New is given topK <= 0, per SPEC_FULL.md §4.G's default.
const defaultANNSearchK = 200

// Retriever executes the query-time search-and-rerank pipeline.
type Retriever struct {
	embedder embedding.Model
	vectors  vectorstore.Store
	chunks   chunkstore.Store
	reranker reranker.Reranker
	topK     int
}

// New builds a Retriever over the given collaborators. topK is the
// number of ANN hits searched per query before reranking; topK <= 0
// falls back to defaultANNSearchK.
func New(embedder embedding.Model, vectors vectorstore.Store, chunks chunkstore.Store, rr reranker.Reranker, topK int) *Retriever {
	if topK <= 0 {
		topK = defaultANNSearchK
	}
	return &Retriever{embedder: embedder, vectors: vectors, chunks: chunks, reranker: rr, topK: topK}
}

// RetrieveOne runs the embed -> ANN search -> rerank pipeline for a
// single query string, with an optional metadata filter.
func (r *Retriever) RetrieveOne(ctx context.Context, query string, filter map[string]string) ([]domain.RankedResult, error) {
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := r.vectors.Search(ctx, queryVector, r.topK, filter)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	candidates := make([]reranker.Candidate, 0, len(hits))
	for _, h := range hits {
		content, err := r.chunks.GetChunkText(ctx, h.DocID, h.ChunkIndex)
		if err != nil {
			logger.Warn("skipping candidate: chunk text unavailable", "doc_id", h.DocID, "chunk_index", h.ChunkIndex, "error", err)
			continue
		}
		candidates = append(candidates, reranker.Candidate{
			DocID:      h.DocID,
			ChunkIndex: h.ChunkIndex,
			Content:    content,
			Similarity: h.Similarity,
		})
	}

	return r.reranker.Rerank(ctx, query, candidates)
}

// RetrieveAll fans out RetrieveOne across every query string in the
// set with unbounded concurrency, per SPEC_FULL.md §4.G ("N is small,
// typically 1-8"). Results preserve the input query order; a failed
// query is logged and contributes an empty list rather than aborting
// the whole batch, since downstream components (H/I) tolerate shorter
// or missing lists.
func (r *Retriever) RetrieveAll(ctx context.Context, queries []string, filter map[string]string) ([][]domain.RankedResult, error) {
	results := make([][]domain.RankedResult, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			res, err := r.RetrieveOne(ctx, q, filter)
			if err != nil {
				logger.Error("query retrieval failed", "query", q, "error", err)
				return
			}
			results[i] = res
		}(i, q)
	}
	wg.Wait()
	return results, nil
}
