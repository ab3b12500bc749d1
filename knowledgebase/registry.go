package knowledgebase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/metadatastore"
)

// Registry tracks every knowledge base a process has created or loaded,
// persisting each one's descriptive metadata and collaborator
// discriminators (per component's concrete Go type) through a
// MetadataStore so a restart can tell which knowledge bases exist and
// what they were last configured with, per knowledge_base.py's
// create/load split. The constructed *KnowledgeBase instances
// themselves live only in this Registry's memory: Go collaborators
// (interfaces bound to live clients) are not re-hydrated from the
// persisted record, only described by it.
type Registry struct {
	mu    sync.RWMutex
	store metadatastore.Store
	live  map[string]*KnowledgeBase
}

// NewRegistry wraps store.
func NewRegistry(store metadatastore.Store) *Registry {
	return &Registry{store: store, live: make(map[string]*KnowledgeBase)}
}

// Descriptor carries the human-facing fields persisted alongside a
// knowledge base's component discriminators.
type Descriptor struct {
	Title       string
	Description string
	Language    string
	SuppID      string
}

// Create builds a new KnowledgeBase over comps/cfg, rejecting an id
// already present in the store, and persists its descriptor plus a
// subclass_name discriminator per collaborator (its concrete Go type),
// matching the persisted-record shape in SPEC_FULL.md's MetadataStore
// section.
func (r *Registry) Create(ctx context.Context, id string, desc Descriptor, comps Components, cfg Config) (*KnowledgeBase, error) {
	exists, err := r.store.KBExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, kberrors.ValidationError("knowledge base already exists: " + id)
	}

	kb := New(id, comps, cfg)

	autoContextLLM := comps.AutoContextLLM
	if autoContextLLM == nil {
		autoContextLLM = comps.LLM
	}

	record := metadatastore.Record{
		Title:       desc.Title,
		Description: desc.Description,
		Language:    desc.Language,
		SuppID:      desc.SuppID,
		CreatedOn:   nowFunc(),
		Components: metadatastore.Components{
			EmbeddingModel:   discriminate(comps.Embedder),
			Reranker:         discriminate(comps.Reranker),
			AutoContextModel: discriminate(autoContextLLM),
			VectorDB:         discriminate(comps.Vectors),
			ChunkDB:          discriminate(comps.Chunks),
			FileSystem:       discriminate(comps.Files),
		},
	}
	if err := r.store.Save(ctx, id, record); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.live[id] = kb
	r.mu.Unlock()
	return kb, nil
}

// Get returns the already-constructed knowledge base for id, if this
// Registry created or re-registered it during the process lifetime.
func (r *Registry) Get(id string) (*KnowledgeBase, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kb, ok := r.live[id]
	return kb, ok
}

// Describe loads the persisted descriptor and component discriminators
// for id, without constructing a KnowledgeBase.
func (r *Registry) Describe(ctx context.Context, id string) (metadatastore.Record, error) {
	return r.store.Load(ctx, id)
}

// Exists reports whether id has a persisted record.
func (r *Registry) Exists(ctx context.Context, id string) (bool, error) {
	return r.store.KBExists(ctx, id)
}

// Delete tears down the knowledge base's data (if live in this process)
// and removes its persisted record.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	kb, ok := r.live[id]
	delete(r.live, id)
	r.mu.Unlock()

	if ok {
		if err := kb.Delete(ctx); err != nil {
			return err
		}
	}
	return r.store.Delete(ctx, id)
}

// discriminate records a collaborator's concrete Go type as its
// subclass_name, the re-hydration discriminator knowledge_base.py's
// _save persists for each component.
func discriminate(component any) metadatastore.ComponentRecord {
	if component == nil {
		return nil
	}
	return metadatastore.ComponentRecord{"subclass_name": fmt.Sprintf("%T", component)}
}

// nowFunc is a seam for tests; production code always takes the real
// wall clock.
var nowFunc = func() time.Time { return time.Now() }
