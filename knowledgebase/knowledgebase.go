// Package knowledgebase is the repo-root facade over the engine: it
// composes the Line Indexer, Windower, Section Extractor, Chunker, and
// AutoContext Annotator into the Indexer for ingest (components A-F), and
// the Retriever, Meta-Document Builder, RSE Optimizer, and Segment
// Materializer for query (components G-J), into a single instance bound
// to one knowledge base's collaborators. Per the Design Notes'
// "Global/mutable state" section, no global or package-level state is
// required: every cache and in-flight request lives on the instance or
// the call stack.
package knowledgebase

import (
	"context"
	"sync"
	"time"

	"github.com/Guru2308/rag-code/internal/autocontext"
	"github.com/Guru2308/rag-code/internal/chunking"
	"github.com/Guru2308/rag-code/internal/chunkstore"
	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/embedding"
	"github.com/Guru2308/rag-code/internal/filesystem"
	"github.com/Guru2308/rag-code/internal/ingest"
	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/llmprovider"
	"github.com/Guru2308/rag-code/internal/logger"
	"github.com/Guru2308/rag-code/internal/metadoc"
	"github.com/Guru2308/rag-code/internal/reranker"
	"github.com/Guru2308/rag-code/internal/retriever"
	"github.com/Guru2308/rag-code/internal/rse"
	"github.com/Guru2308/rag-code/internal/sectioning"
	"github.com/Guru2308/rag-code/internal/segment"
	"github.com/Guru2308/rag-code/internal/validator"
	"github.com/Guru2308/rag-code/internal/vectorstore"
)

// Components groups every collaborator a knowledge base instance is wired
// to, per §6's collaborator contracts.
type Components struct {
	LLM      llmprovider.Provider
	Embedder embedding.Model
	Reranker reranker.Reranker
	Chunks   chunkstore.Store
	Vectors  vectorstore.Store
	Files    filesystem.FileSystem
	// AutoContextLLM is the model the AutoContext Annotator (component
	// E) uses to draft document titles/summaries. The persisted
	// metadata layout tracks it as a component distinct from the
	// sectioning LLM (auto_context_model), since a deployment may want
	// a cheaper model for this step. Nil falls back to LLM.
	AutoContextLLM llmprovider.Provider
}

// Config gathers the per-stage configuration structs already defined by
// the A-F pipeline packages, plus the batch-ingest knobs from §5.
type Config struct {
	Sectioning  sectioning.Config
	Chunking    chunking.Config
	AutoContext autocontext.Config
	Ingest      ingest.Config
	// RateLimitPause is inserted between documents in a batch ingest to
	// respect provider quotas, per §5. Zero disables the pause.
	RateLimitPause time.Duration
	// ANNSearchTopK is the number of ANN hits the Retriever pulls per
	// query before reranking, per §4.G. Zero falls back to the
	// Retriever package's own default.
	ANNSearchTopK int
	// DefaultRSEParams seeds the RSE Optimizer's parameters for a query
	// that does not specify rse_params, overriding the "balanced" preset
	// a nil value would otherwise resolve to.
	DefaultRSEParams *rse.Params
	// IngestWorkers bounds AddDocuments' concurrent document-level
	// parallelism, per §5's scheduling model. Zero (or one) ingests the
	// batch on a single worker.
	IngestWorkers int
}

// KnowledgeBase is one knowledge base's composed instance: an Indexer for
// the A-F ingest pipeline, and a Retriever plus the H-J query pipeline
// (meta-document build, RSE selection, segment materialization).
type KnowledgeBase struct {
	id      string
	chunks  chunkstore.Store
	vectors vectorstore.Store
	files   filesystem.FileSystem

	indexer      *ingest.Indexer
	retriever    *retriever.Retriever
	materializer *segment.Materializer

	rateLimitPause   time.Duration
	defaultRSEParams *rse.Params
	ingestWorkers    int
}

// New builds a KnowledgeBase identified by id over the given collaborators
// and configuration.
func New(id string, comps Components, cfg Config) *KnowledgeBase {
	autoContextLLM := comps.AutoContextLLM
	if autoContextLLM == nil {
		autoContextLLM = comps.LLM
	}

	sectioner := sectioning.New(comps.LLM, cfg.Sectioning)
	chunker := chunking.New(cfg.Chunking)
	annotator := autocontext.New(autoContextLLM, cfg.AutoContext)

	idx := ingest.New(sectioner, chunker, annotator, comps.Embedder, comps.Chunks, comps.Vectors, cfg.Ingest)
	retr := retriever.New(comps.Embedder, comps.Vectors, comps.Chunks, comps.Reranker, cfg.ANNSearchTopK)
	mat := segment.New(comps.Chunks, comps.Files)

	return &KnowledgeBase{
		id:               id,
		chunks:           comps.Chunks,
		vectors:          comps.Vectors,
		files:            comps.Files,
		indexer:          idx,
		retriever:        retr,
		materializer:     mat,
		rateLimitPause:   cfg.RateLimitPause,
		defaultRSEParams: cfg.DefaultRSEParams,
		ingestWorkers:    cfg.IngestWorkers,
	}
}

// AddDocument validates and ingests a single document (pipeline A-F),
// rejecting a doc_id already present in this knowledge base rather than
// overwriting it silently — duplicates within a batch are the caller's
// (AddDocuments') concern, this method is the single-document primitive.
func (kb *KnowledgeBase) AddDocument(ctx context.Context, in ingest.Input) error {
	if err := validator.ValidateDocID(in.DocID); err != nil {
		return err
	}
	return kb.indexer.AddDocument(ctx, in)
}

// AddDocuments ingests a batch of documents across a bounded pool of
// IngestWorkers goroutines (§5's "thread pool of arbitrary size" / "a
// worker pool bounded by configured concurrency caps"), isolating
// per-document failures per §7 ("one document's exception does not
// abort others") and skipping doc_ids already present in the knowledge
// base (or duplicated earlier in this same batch) with a warning
// rather than an error, per §7's duplicate-doc_id handling. Each worker
// inserts RateLimitPause between its own successive ingests to respect
// provider quotas, per §5's "inserted per worker". It returns the
// doc_ids that were successfully ingested, in completion order, which
// need not match the input order. Cancellation stops workers early
// without rolling back documents already committed.
func (kb *KnowledgeBase) AddDocuments(ctx context.Context, docs []ingest.Input) []string {
	existing := make(map[string]bool)
	if ids, err := kb.chunks.GetAllDocIDs(ctx); err == nil {
		for _, id := range ids {
			existing[id] = true
		}
	}

	workers := kb.ingestWorkers
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan ingest.Input)
	var mu sync.Mutex
	var succeeded []string

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first := true
			for in := range jobs {
				if !first && kb.rateLimitPause > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(kb.rateLimitPause):
					}
				}
				first = false

				if err := validator.ValidateDocID(in.DocID); err != nil {
					logger.Error("skipping document with invalid doc_id", "doc_id", in.DocID, "error", err)
					continue
				}
				if err := kb.indexer.AddDocument(ctx, in); err != nil {
					logger.Error("document ingest failed, continuing batch", "doc_id", in.DocID, "error", err)
					continue
				}
				mu.Lock()
				succeeded = append(succeeded, in.DocID)
				mu.Unlock()
			}
		}()
	}

	for i, in := range docs {
		if ctx.Err() != nil {
			logger.Warn("batch ingest cancelled", "remaining", len(docs)-i)
			break
		}
		if existing[in.DocID] {
			logger.Warn("skipping duplicate doc_id in batch ingest", "doc_id", in.DocID)
			continue
		}
		existing[in.DocID] = true

		select {
		case jobs <- in:
		case <-ctx.Done():
			logger.Warn("batch ingest cancelled while dispatching", "remaining", len(docs)-i)
			close(jobs)
			wg.Wait()
			return succeeded
		}
	}
	close(jobs)
	wg.Wait()
	return succeeded
}

// DeleteDocument removes a document's chunks and vectors, and any
// on-disk page-image artifacts. It is idempotent: a second call after a
// successful delete is a no-op, since every collaborator's remove
// operation tolerates a missing document.
func (kb *KnowledgeBase) DeleteDocument(ctx context.Context, docID string) error {
	if err := kb.indexer.RemoveDocument(ctx, docID); err != nil {
		return err
	}
	if err := kb.files.DeleteDirectory(ctx, kb.id, docID); err != nil {
		return kberrors.Wrap(err, kberrors.ErrorTypeStore, "failed to delete document artifacts")
	}
	return nil
}

// QueryInput is one query-time request: a query set, an optional
// metadata filter, the RSE parameter selection (a preset name or
// rse.Overrides, per §6's "rse_params accepts either a dict or a preset
// string" contract), and the desired return mode.
type QueryInput struct {
	Queries  []string
	Filter   map[string]string
	RSEInput any
	Mode     domain.ReturnMode
}

// Query runs the full query pipeline (G-J): retrieve-and-rerank each
// query, fold the results into a meta-document, synthesize relevance and
// select segments, then materialize them. An empty meta-document (no
// query produced any hit) is not an error — it returns an empty segment
// list per §7's EmptyResult.
func (kb *KnowledgeBase) Query(ctx context.Context, in QueryInput) ([]domain.Segment, error) {
	if len(in.Queries) == 0 {
		return nil, kberrors.ValidationError("query set must not be empty")
	}

	var params rse.Params
	var err error
	if in.RSEInput == nil && kb.defaultRSEParams != nil {
		params = *kb.defaultRSEParams
	} else {
		params, err = rse.ResolveInput(in.RSEInput)
		if err != nil {
			return nil, err
		}
	}

	resultLists, err := kb.retriever.RetrieveAll(ctx, in.Queries, in.Filter)
	if err != nil {
		return nil, err
	}

	meta, err := metadoc.Build(ctx, resultLists, kb.chunks.GetChunkCount, params.TopKForDocumentSelection)
	if err != nil {
		return nil, err
	}
	if meta.Length() == 0 {
		return nil, nil // EmptyResult
	}

	relevance, err := rse.BuildRelevanceVector(ctx, meta, resultLists, params, kb.chunkCharLength)
	if err != nil {
		return nil, err
	}

	segments := rse.SelectSegments(meta, relevance, params, len(in.Queries))
	return kb.materializer.MaterializeAll(ctx, kb.id, segments, in.Mode)
}

// chunkCharLength returns a chunk's display-content length, used by the
// RSE Optimizer's length-adjustment step.
func (kb *KnowledgeBase) chunkCharLength(ctx context.Context, docID string, chunkIndex uint32) (int, error) {
	text, err := kb.chunks.GetChunkText(ctx, docID, chunkIndex)
	if err != nil {
		return 0, err
	}
	return len(text), nil
}

// Delete tears down this knowledge base entirely: every vector, every
// chunk, and every on-disk artifact.
func (kb *KnowledgeBase) Delete(ctx context.Context) error {
	if err := kb.vectors.Delete(ctx); err != nil {
		return kberrors.StoreError("failed to delete vector store", err)
	}
	if err := kb.chunks.Delete(ctx); err != nil {
		return kberrors.StoreError("failed to delete chunk store", err)
	}
	if err := kb.files.DeleteKB(ctx, kb.id); err != nil {
		return kberrors.Wrap(err, kberrors.ErrorTypeStore, "failed to delete file system artifacts")
	}
	return nil
}
