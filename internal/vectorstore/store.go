// Package vectorstore implements the VectorStore collaborator contract:
// upsert(records), search(query_vec, k, filter?) -> RankedResult[],
// remove_document(doc_id), delete(). Two backends are provided: Qdrant
// (adapted from the teacher's code-search store) and Postgres/pgvector
// (grounded on the pack's HSn0918-rag adapter, pooled for concurrent
// writers).
package vectorstore

import (
	"context"

	"github.com/Guru2308/rag-code/internal/domain"
)

// Store is the VectorStore collaborator contract.
type Store interface {
	Upsert(ctx context.Context, records []domain.VectorRecord) error
	Search(ctx context.Context, queryVector []float32, k int, filter map[string]string) ([]domain.RankedResult, error)
	RemoveDocument(ctx context.Context, docID string) error
	Delete(ctx context.Context) error
}
