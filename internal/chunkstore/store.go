// Package chunkstore implements the ChunkStore collaborator contract:
// put_chunks(doc_id, chunks, metadata, supp_id), get_chunk_text,
// get_chunk_page_numbers, get_is_visual, get_document_title,
// get_document_summary, get_all_doc_ids, remove_document, delete. Two
// backends are provided: Redis (grounded on the teacher's inverted-index
// key conventions, repurposed from posting lists to one JSON string key
// per chunk) and
// bbolt (grounded on the pack's embedded key-value store) for
// single-node deployments that want no external dependency.
package chunkstore

import "context"

// DocumentRecord is the document-level metadata PutChunks persists
// alongside the chunks themselves.
type DocumentRecord struct {
	Title      string
	Summary    string
	SuppID     string
	Metadata   map[string]string
	ChunkCount uint32
}

// Store is the ChunkStore collaborator contract.
type Store interface {
	PutChunks(ctx context.Context, docID string, chunks []StoredChunk, doc DocumentRecord) error
	GetChunkText(ctx context.Context, docID string, chunkIndex uint32) (string, error)
	GetChunkPageNumbers(ctx context.Context, docID string, chunkIndex uint32) (pageStart, pageEnd *int, err error)
	GetIsVisual(ctx context.Context, docID string, chunkIndex uint32) (bool, error)
	GetDocumentTitle(ctx context.Context, docID string) (string, error)
	GetDocumentSummary(ctx context.Context, docID string) (string, error)
	// GetChunkCount returns the document's dense chunk count, the
	// chunks_in_doc primitive the Meta-Document Builder needs to size
	// each document's span in the meta-address space.
	GetChunkCount(ctx context.Context, docID string) (uint32, error)
	GetAllDocIDs(ctx context.Context) ([]string, error)
	RemoveDocument(ctx context.Context, docID string) error
	Delete(ctx context.Context) error
}

// StoredChunk is the subset of domain.Chunk the chunk store persists —
// embeddings live in the vector store, not here.
type StoredChunk struct {
	ChunkIndex uint32
	Content    string
	PageStart  *int
	PageEnd    *int
	IsVisual   bool
}
