package chunkstore

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/logger"
)

var (
	documentsBucket = []byte("documents")
	chunksBucket    = []byte("chunks")
)

// BoltStore implements Store on an embedded bbolt database, for
// single-node deployments that do not want a Redis dependency.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) a bbolt database at path and
// ensures its two buckets exist.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to open bbolt database")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(documentsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(chunksBucket)
		return err
	})
	if err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to create bbolt buckets")
	}

	return &BoltStore{db: db}, nil
}

func chunkBoltKey(docID string, chunkIndex uint32) []byte {
	return []byte(fmt.Sprintf("%s/%d", docID, chunkIndex))
}

func chunkKeyPrefix(docID string) []byte {
	return []byte(docID + "/")
}

// PutChunks writes the document record and every chunk in one transaction.
func (s *BoltStore) PutChunks(ctx context.Context, docID string, chunks []StoredChunk, doc DocumentRecord) error {
	doc.ChunkCount = uint32(len(chunks))

	err := s.db.Update(func(tx *bolt.Tx) error {
		docJSON, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		if err := tx.Bucket(documentsBucket).Put([]byte(docID), docJSON); err != nil {
			return err
		}

		cb := tx.Bucket(chunksBucket)
		for _, chunk := range chunks {
			chunkJSON, err := json.Marshal(chunk)
			if err != nil {
				return err
			}
			if err := cb.Put(chunkBoltKey(docID, chunk.ChunkIndex), chunkJSON); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return kberrors.StoreError("failed to write chunks to bbolt", err)
	}
	logger.Debug("stored chunks in bbolt", "doc_id", docID, "count", len(chunks))
	return nil
}

func (s *BoltStore) getChunk(docID string, chunkIndex uint32) (StoredChunk, error) {
	var chunk StoredChunk
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(chunksBucket).Get(chunkBoltKey(docID, chunkIndex))
		if raw == nil {
			return kberrors.NotFoundError("chunk not found: " + docID)
		}
		return json.Unmarshal(raw, &chunk)
	})
	return chunk, err
}

func (s *BoltStore) getDoc(docID string) (DocumentRecord, error) {
	var doc DocumentRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(documentsBucket).Get([]byte(docID))
		if raw == nil {
			return kberrors.NotFoundError("document not found: " + docID)
		}
		return json.Unmarshal(raw, &doc)
	})
	return doc, err
}

func (s *BoltStore) GetChunkText(ctx context.Context, docID string, chunkIndex uint32) (string, error) {
	chunk, err := s.getChunk(docID, chunkIndex)
	if err != nil {
		return "", err
	}
	return chunk.Content, nil
}

func (s *BoltStore) GetChunkPageNumbers(ctx context.Context, docID string, chunkIndex uint32) (*int, *int, error) {
	chunk, err := s.getChunk(docID, chunkIndex)
	if err != nil {
		return nil, nil, err
	}
	return chunk.PageStart, chunk.PageEnd, nil
}

func (s *BoltStore) GetIsVisual(ctx context.Context, docID string, chunkIndex uint32) (bool, error) {
	chunk, err := s.getChunk(docID, chunkIndex)
	if err != nil {
		return false, err
	}
	return chunk.IsVisual, nil
}

func (s *BoltStore) GetDocumentTitle(ctx context.Context, docID string) (string, error) {
	doc, err := s.getDoc(docID)
	if err != nil {
		return "", err
	}
	return doc.Title, nil
}

func (s *BoltStore) GetDocumentSummary(ctx context.Context, docID string) (string, error) {
	doc, err := s.getDoc(docID)
	if err != nil {
		return "", err
	}
	return doc.Summary, nil
}

func (s *BoltStore) GetChunkCount(ctx context.Context, docID string) (uint32, error) {
	doc, err := s.getDoc(docID)
	if err != nil {
		return 0, err
	}
	return doc.ChunkCount, nil
}

func (s *BoltStore) GetAllDocIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(documentsBucket).ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, kberrors.StoreError("failed to list document ids from bbolt", err)
	}
	return ids, nil
}

// RemoveDocument deletes the document record and every chunk key whose
// key starts with "docID/", found via a cursor seek over the sorted key
// space rather than a bucket-wide scan.
func (s *BoltStore) RemoveDocument(ctx context.Context, docID string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(documentsBucket).Delete([]byte(docID)); err != nil {
			return err
		}

		cb := tx.Bucket(chunksBucket)
		c := cb.Cursor()
		prefix := chunkKeyPrefix(docID)
		var toDelete [][]byte
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			toDelete = append(toDelete, append([]byte(nil), k...))
		}
		for _, k := range toDelete {
			if err := cb.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return kberrors.StoreError("failed to remove document from bbolt", err)
	}
	logger.Info("removed document from bbolt chunk store", "doc_id", docID)
	return nil
}

// Delete removes every document and chunk this store knows about.
func (s *BoltStore) Delete(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(documentsBucket); err != nil {
			return err
		}
		if err := tx.DeleteBucket(chunksBucket); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(documentsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(chunksBucket)
		return err
	})
	if err != nil {
		return kberrors.StoreError("failed to clear bbolt store", err)
	}
	return nil
}

func hasPrefix(key, prefix []byte) bool {
	if len(key) < len(prefix) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}
