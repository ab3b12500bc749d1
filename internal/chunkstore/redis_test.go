package chunkstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(client, "test"), mr
}

func samplePage(n int) *int { return &n }

func sampleChunks() []StoredChunk {
	return []StoredChunk{
		{ChunkIndex: 0, Content: "first chunk", PageStart: samplePage(1), PageEnd: samplePage(1)},
		{ChunkIndex: 1, Content: "second chunk", IsVisual: true},
	}
}

func TestRedisStore_PutAndGetChunks(t *testing.T) {
	store, mr := setupTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	doc := DocumentRecord{Title: "Doc Title", Summary: "Doc Summary", SuppID: "supp-1"}
	if err := store.PutChunks(ctx, "doc-1", sampleChunks(), doc); err != nil {
		t.Fatalf("PutChunks() error = %v", err)
	}

	text, err := store.GetChunkText(ctx, "doc-1", 0)
	if err != nil {
		t.Fatalf("GetChunkText() error = %v", err)
	}
	if text != "first chunk" {
		t.Errorf("GetChunkText() = %q, want %q", text, "first chunk")
	}

	start, end, err := store.GetChunkPageNumbers(ctx, "doc-1", 0)
	if err != nil {
		t.Fatalf("GetChunkPageNumbers() error = %v", err)
	}
	if start == nil || *start != 1 || end == nil || *end != 1 {
		t.Errorf("GetChunkPageNumbers() = (%v, %v), want (1, 1)", start, end)
	}

	visual, err := store.GetIsVisual(ctx, "doc-1", 1)
	if err != nil {
		t.Fatalf("GetIsVisual() error = %v", err)
	}
	if !visual {
		t.Error("GetIsVisual() = false, want true")
	}

	title, err := store.GetDocumentTitle(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocumentTitle() error = %v", err)
	}
	if title != "Doc Title" {
		t.Errorf("GetDocumentTitle() = %q, want %q", title, "Doc Title")
	}

	summary, err := store.GetDocumentSummary(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetDocumentSummary() error = %v", err)
	}
	if summary != "Doc Summary" {
		t.Errorf("GetDocumentSummary() = %q, want %q", summary, "Doc Summary")
	}
}

func TestRedisStore_GetChunkCount(t *testing.T) {
	store, mr := setupTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	store.PutChunks(ctx, "doc-1", sampleChunks(), DocumentRecord{Title: "One"})

	count, err := store.GetChunkCount(ctx, "doc-1")
	if err != nil {
		t.Fatalf("GetChunkCount() error = %v", err)
	}
	if count != uint32(len(sampleChunks())) {
		t.Errorf("GetChunkCount() = %d, want %d", count, len(sampleChunks()))
	}
}

func TestRedisStore_GetAllDocIDs(t *testing.T) {
	store, mr := setupTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	store.PutChunks(ctx, "doc-1", sampleChunks(), DocumentRecord{Title: "One"})
	store.PutChunks(ctx, "doc-2", sampleChunks(), DocumentRecord{Title: "Two"})

	ids, err := store.GetAllDocIDs(ctx)
	if err != nil {
		t.Fatalf("GetAllDocIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("len(ids) = %d, want 2", len(ids))
	}
}

func TestRedisStore_RemoveDocument(t *testing.T) {
	store, mr := setupTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	store.PutChunks(ctx, "doc-1", sampleChunks(), DocumentRecord{Title: "One"})

	if err := store.RemoveDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("RemoveDocument() error = %v", err)
	}

	if _, err := store.GetDocumentTitle(ctx, "doc-1"); err == nil {
		t.Error("expected an error reading a removed document")
	}
	if _, err := store.GetChunkText(ctx, "doc-1", 0); err == nil {
		t.Error("expected an error reading a removed chunk")
	}
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := setupTestRedisStore(t)
	defer mr.Close()
	ctx := context.Background()

	store.PutChunks(ctx, "doc-1", sampleChunks(), DocumentRecord{Title: "One"})
	store.PutChunks(ctx, "doc-2", sampleChunks(), DocumentRecord{Title: "Two"})

	if err := store.Delete(ctx); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	ids, err := store.GetAllDocIDs(ctx)
	if err != nil {
		t.Fatalf("GetAllDocIDs() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("len(ids) = %d, want 0 after Delete()", len(ids))
	}
}
