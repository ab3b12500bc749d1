package chunkstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/logger"
)

// RedisStore implements Store on top of Redis, one hash-shaped JSON blob
// per document and per chunk rather than the inverted posting lists the
// teacher's redis_index.go built for BM25 — the addressing conventions
// (key prefixes, pipelined batch writes) carry over unchanged.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore wraps an existing Redis client under the given key prefix,
// so multiple knowledge bases can share one Redis instance.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) docKey(docID string) string {
	return fmt.Sprintf("%s:doc:%s", s.keyPrefix, docID)
}

func (s *RedisStore) chunkKey(docID string, chunkIndex uint32) string {
	return fmt.Sprintf("%s:chunk:%s:%d", s.keyPrefix, docID, chunkIndex)
}

func (s *RedisStore) docsSetKey() string {
	return s.keyPrefix + ":docs"
}

// PutChunks writes the document record and every chunk in one pipeline.
func (s *RedisStore) PutChunks(ctx context.Context, docID string, chunks []StoredChunk, doc DocumentRecord) error {
	doc.ChunkCount = uint32(len(chunks))
	docJSON, err := json.Marshal(doc)
	if err != nil {
		return kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to marshal document record")
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.docKey(docID), docJSON, 0)
	pipe.SAdd(ctx, s.docsSetKey(), docID)

	for _, chunk := range chunks {
		chunkJSON, err := json.Marshal(chunk)
		if err != nil {
			return kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to marshal chunk")
		}
		pipe.Set(ctx, s.chunkKey(docID, chunk.ChunkIndex), chunkJSON, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return kberrors.StoreError("failed to write chunks to Redis", err)
	}
	logger.Debug("stored chunks in Redis", "doc_id", docID, "count", len(chunks))
	return nil
}

func (s *RedisStore) getChunk(ctx context.Context, docID string, chunkIndex uint32) (StoredChunk, error) {
	var chunk StoredChunk
	raw, err := s.client.Get(ctx, s.chunkKey(docID, chunkIndex)).Bytes()
	if errors.Is(err, redis.Nil) {
		return chunk, kberrors.NotFoundError("chunk not found: " + docID)
	}
	if err != nil {
		return chunk, kberrors.StoreError("failed to read chunk from Redis", err)
	}
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return chunk, kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to unmarshal chunk")
	}
	return chunk, nil
}

func (s *RedisStore) getDoc(ctx context.Context, docID string) (DocumentRecord, error) {
	var doc DocumentRecord
	raw, err := s.client.Get(ctx, s.docKey(docID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return doc, kberrors.NotFoundError("document not found: " + docID)
	}
	if err != nil {
		return doc, kberrors.StoreError("failed to read document from Redis", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to unmarshal document record")
	}
	return doc, nil
}

func (s *RedisStore) GetChunkText(ctx context.Context, docID string, chunkIndex uint32) (string, error) {
	chunk, err := s.getChunk(ctx, docID, chunkIndex)
	if err != nil {
		return "", err
	}
	return chunk.Content, nil
}

func (s *RedisStore) GetChunkPageNumbers(ctx context.Context, docID string, chunkIndex uint32) (*int, *int, error) {
	chunk, err := s.getChunk(ctx, docID, chunkIndex)
	if err != nil {
		return nil, nil, err
	}
	return chunk.PageStart, chunk.PageEnd, nil
}

func (s *RedisStore) GetIsVisual(ctx context.Context, docID string, chunkIndex uint32) (bool, error) {
	chunk, err := s.getChunk(ctx, docID, chunkIndex)
	if err != nil {
		return false, err
	}
	return chunk.IsVisual, nil
}

func (s *RedisStore) GetDocumentTitle(ctx context.Context, docID string) (string, error) {
	doc, err := s.getDoc(ctx, docID)
	if err != nil {
		return "", err
	}
	return doc.Title, nil
}

func (s *RedisStore) GetDocumentSummary(ctx context.Context, docID string) (string, error) {
	doc, err := s.getDoc(ctx, docID)
	if err != nil {
		return "", err
	}
	return doc.Summary, nil
}

func (s *RedisStore) GetChunkCount(ctx context.Context, docID string) (uint32, error) {
	doc, err := s.getDoc(ctx, docID)
	if err != nil {
		return 0, err
	}
	return doc.ChunkCount, nil
}

func (s *RedisStore) GetAllDocIDs(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.docsSetKey()).Result()
	if err != nil {
		return nil, kberrors.StoreError("failed to list document ids from Redis", err)
	}
	return ids, nil
}

// RemoveDocument deletes the document record and every chunk key, relying
// on chunk indices being dense (0..chunk_count-1) to avoid a SCAN.
// Removing a document that is not stored is a no-op.
func (s *RedisStore) RemoveDocument(ctx context.Context, docID string) error {
	doc, err := s.getDoc(ctx, docID)
	if kberrors.Is(err, kberrors.ErrorTypeNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for i := uint32(0); i < doc.ChunkCount; i++ {
		pipe.Del(ctx, s.chunkKey(docID, i))
	}
	pipe.Del(ctx, s.docKey(docID))
	pipe.SRem(ctx, s.docsSetKey(), docID)

	if _, err := pipe.Exec(ctx); err != nil {
		return kberrors.StoreError("failed to remove document from Redis", err)
	}
	logger.Info("removed document from Redis chunk store", "doc_id", docID)
	return nil
}

// Delete removes every document this store knows about.
func (s *RedisStore) Delete(ctx context.Context) error {
	ids, err := s.GetAllDocIDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.RemoveDocument(ctx, id); err != nil {
			return err
		}
	}
	if err := s.client.Del(ctx, s.docsSetKey()).Err(); err != nil {
		return kberrors.StoreError("failed to drop docs set from Redis", err)
	}
	return nil
}
