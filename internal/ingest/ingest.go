// Package ingest implements the Indexer (component F): it orchestrates
// the full ingest pipeline (A through F) for one document — line
// indexing, windowing/sectioning, chunking, AutoContext annotation,
// embedding, and the chunk-store-then-vector-store write with a
// compensating delete on partial failure. Adapted from the teacher's
// internal/indexing/indexer.go batched-embed/store-with-retry
// orchestration.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Guru2308/rag-code/internal/autocontext"
	"github.com/Guru2308/rag-code/internal/chunking"
	"github.com/Guru2308/rag-code/internal/chunkstore"
	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/embedding"
	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/lineindex"
	"github.com/Guru2308/rag-code/internal/logger"
	"github.com/Guru2308/rag-code/internal/sectioning"
	"github.com/Guru2308/rag-code/internal/vectorstore"
)

// Config controls batching, retry, and pipeline toggles.
type Config struct {
	BatchSize             int  // embedding batch size
	MaxRetries            int  // vector-store write attempts
	UseSemanticSectioning bool // false skips the LLM sectioning call entirely
}

// DefaultConfig returns sensible defaults, mirroring the teacher's
// indexing.DefaultConfig.
func DefaultConfig() Config {
	return Config{BatchSize: 20, MaxRetries: 3, UseSemanticSectioning: true}
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * 100 * time.Millisecond
}

// Input is one document submitted for ingest.
type Input struct {
	DocID    string
	Text     string
	Title    string // optional user-supplied title
	Summary  string // optional user-supplied summary
	SuppID   string
	Metadata map[string]string
	// PageLookup resolves the page range for a section's content,
	// when the parser supplied page-aware text; nil when unavailable.
	PageLookup func(sectionStartLine, sectionEndLine uint32) (pageStart, pageEnd *int)
}

// Indexer wires the A-F pipeline and writes results to the chunk and
// vector stores.
type Indexer struct {
	sectioner *sectioning.Extractor
	chunker   *chunking.Chunker
	annotator *autocontext.Annotator
	embedder  embedding.Model
	chunks    chunkstore.Store
	vectors   vectorstore.Store
	cfg       Config
}

// New builds an Indexer over the given pipeline stages and stores.
func New(sectioner *sectioning.Extractor, chunker *chunking.Chunker, annotator *autocontext.Annotator, embedder embedding.Model, chunks chunkstore.Store, vectors vectorstore.Store, cfg Config) *Indexer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Indexer{sectioner: sectioner, chunker: chunker, annotator: annotator, embedder: embedder, chunks: chunks, vectors: vectors, cfg: cfg}
}

// AddDocument runs the full A-F pipeline for one document: line index,
// section extraction, chunking, AutoContext annotation, batched
// embedding, then chunk-store-then-vector-store write with a
// compensating delete on vector-store failure.
func (idx *Indexer) AddDocument(ctx context.Context, in Input) error {
	if in.Text == "" {
		return kberrors.ValidationError("document text must not be empty")
	}
	logger.Info("ingesting document", "doc_id", in.DocID)

	indexed := lineindex.Index(in.Text)
	if len(indexed.Lines) == 0 {
		return kberrors.ValidationError("document has no non-empty lines")
	}

	sections, err := idx.sectioner.ExtractSections(ctx, indexed.Lines, idx.cfg.UseSemanticSectioning)
	if err != nil {
		return err
	}

	docCtx, err := idx.annotator.ResolveDocumentContext(ctx, in.Text, in.Title, in.Summary)
	if err != nil {
		return err
	}

	sectionText := func(i int) string {
		return indexed.Text(sections[i].StartLine, sections[i].EndLine)
	}
	sectionSummaries, err := idx.annotator.SectionSummaries(ctx, sections, sectionText)
	if err != nil {
		return err
	}

	var chunks []domain.Chunk
	var nextChunkIndex uint32
	for i, sec := range sections {
		content := sectionText(i)
		var pageStart, pageEnd *int
		if in.PageLookup != nil {
			pageStart, pageEnd = in.PageLookup(sec.StartLine, sec.EndLine)
		}
		secChunks, next := idx.chunker.ChunkSection(in.DocID, uint32(i), content, pageStart, pageEnd, nextChunkIndex)
		nextChunkIndex = next
		for j := range secChunks {
			idx.annotator.Annotate(&secChunks[j], docCtx.Title, docCtx.Summary, sectionSummaries[i])
		}
		chunks = append(chunks, secChunks...)
	}
	if len(chunks) == 0 {
		return kberrors.ValidationError("document produced no chunks")
	}

	embeddings, err := idx.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}

	return idx.writeChunksAndVectors(ctx, in, docCtx, chunks, embeddings)
}

// embedChunks generates one embedding per chunk's embedding_text, in
// configured batches, preserving chunk order.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += idx.cfg.BatchSize {
		end := start + idx.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.EmbeddingText
		}
		batch, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to generate batch embeddings")
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}

// writeChunksAndVectors writes the chunk store first, then the vector
// store; on vector-store failure after a successful chunk-store write,
// it attempts a compensating delete of the chunk-store write and
// surfaces the original error, per SPEC_FULL.md §4.F.
func (idx *Indexer) writeChunksAndVectors(ctx context.Context, in Input, docCtx autocontext.DocContext, chunks []domain.Chunk, embeddings [][]float32) error {
	storedChunks := make([]chunkstore.StoredChunk, len(chunks))
	for i, c := range chunks {
		storedChunks[i] = chunkstore.StoredChunk{
			ChunkIndex: c.ChunkIndex,
			Content:    c.Content,
			PageStart:  c.PageStart,
			PageEnd:    c.PageEnd,
			IsVisual:   c.IsVisual,
		}
	}
	doc := chunkstore.DocumentRecord{
		Title:      docCtx.Title,
		Summary:    docCtx.Summary,
		SuppID:     in.SuppID,
		Metadata:   in.Metadata,
		ChunkCount: uint32(len(chunks)),
	}
	if err := idx.chunks.PutChunks(ctx, in.DocID, storedChunks, doc); err != nil {
		return kberrors.StoreError("failed to persist chunks", err)
	}

	records := make([]domain.VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = domain.VectorRecord{DocID: c.DocID, ChunkIndex: c.ChunkIndex, Vector: embeddings[i], Metadata: in.Metadata}
	}

	if err := idx.upsertWithRetry(ctx, records); err != nil {
		if delErr := idx.chunks.RemoveDocument(ctx, in.DocID); delErr != nil {
			logger.Error("compensating chunk-store delete failed after vector-store write failure", "doc_id", in.DocID, "error", delErr)
		}
		return err
	}
	return nil
}

// upsertWithRetry retries the vector-store upsert with the teacher's
// attempt^2 * 100ms backoff.
func (idx *Indexer) upsertWithRetry(ctx context.Context, records []domain.VectorRecord) error {
	var lastErr error
	for attempt := 0; attempt < idx.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBackoff(attempt)
			logger.Warn("retrying vector upsert", "attempt", attempt+1, "backoff_ms", backoff.Milliseconds(), "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := idx.vectors.Upsert(ctx, records); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return kberrors.StoreError(fmt.Sprintf("failed to upsert vectors after %d attempts", idx.cfg.MaxRetries), lastErr)
}

// RemoveDocument deletes a document's chunks and vectors.
func (idx *Indexer) RemoveDocument(ctx context.Context, docID string) error {
	if err := idx.vectors.RemoveDocument(ctx, docID); err != nil {
		return kberrors.StoreError("failed to remove vectors", err)
	}
	if err := idx.chunks.RemoveDocument(ctx, docID); err != nil {
		return kberrors.StoreError("failed to remove chunks", err)
	}
	return nil
}
