// Package metadatastore implements the MetadataStore collaborator
// contract: save(obj, kb_id), load(kb_id), kb_exists(kb_id), delete(kb_id).
// The persisted shape is a single JSON document per knowledge base
// carrying top-level metadata plus a discriminated record per component
// collaborator ({subclass_name, ...params}) so the facade can re-hydrate
// whichever concrete adapter a knowledge base was configured with.
// Grounded on knowledge_base.py's _save/_load.
package metadatastore

import (
	"context"
	"time"
)

// ComponentRecord is a discriminated record identifying which concrete
// adapter backs a collaborator, plus the parameters needed to
// re-construct it (e.g. {"subclass_name": "QdrantStore", "url": "...",
// "collection": "..."}).
type ComponentRecord map[string]any

// SubclassName returns the "subclass_name" discriminator, or "" if absent.
func (c ComponentRecord) SubclassName() string {
	name, _ := c["subclass_name"].(string)
	return name
}

// Components groups the discriminated records for every collaborator a
// knowledge base is wired to.
type Components struct {
	EmbeddingModel   ComponentRecord `json:"embedding_model"`
	Reranker         ComponentRecord `json:"reranker"`
	AutoContextModel ComponentRecord `json:"auto_context_model"`
	VectorDB         ComponentRecord `json:"vector_db"`
	ChunkDB          ComponentRecord `json:"chunk_db"`
	FileSystem       ComponentRecord `json:"file_system"`
}

// Record is the full persisted shape for one knowledge base.
type Record struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Language    string     `json:"language"`
	SuppID      string     `json:"supp_id,omitempty"`
	CreatedOn   time.Time  `json:"created_on"`
	Components  Components `json:"components"`
}

// Store is the MetadataStore collaborator contract.
type Store interface {
	Save(ctx context.Context, kbID string, record Record) error
	Load(ctx context.Context, kbID string) (Record, error)
	KBExists(ctx context.Context, kbID string) (bool, error)
	Delete(ctx context.Context, kbID string) error
}
