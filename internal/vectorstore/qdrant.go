package vectorstore

import (
	"context"
	"fmt"
	"hash/fnv"
	"net"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/logger"
)

// qdrantClient is the subset of *qdrant.Client this package calls, narrowed
// to an interface so tests can substitute a mock instead of dialing a real
// Qdrant instance.
type qdrantClient interface {
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	DeleteCollection(ctx context.Context, name string) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
}

// QdrantStore implements Store using Qdrant.
type QdrantStore struct {
	client     qdrantClient
	collection string
}

// NewQdrantStore creates a new Qdrant-backed vector store client.
func NewQdrantStore(url string, collection string) (*QdrantStore, error) {
	host := "localhost"
	port := 6334

	cleanURL := strings.TrimPrefix(url, "http://")
	cleanURL = strings.TrimPrefix(cleanURL, "https://")

	if h, p, err := net.SplitHostPort(cleanURL); err == nil {
		host = h
		if pi, err := strconv.Atoi(p); err == nil {
			if pi == 6333 {
				port = 6334
			} else {
				port = pi
			}
		}
	} else {
		host = cleanURL
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to create Qdrant client")
	}

	return &QdrantStore{client: client, collection: collection}, nil
}

// pointID derives a deterministic Qdrant point ID from a chunk's address
// so that re-upserting the same (doc_id, chunk_index) overwrites rather
// than duplicates.
func pointID(docID string, chunkIndex uint32) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%d", docID, chunkIndex)
	return h.Sum64()
}

// Upsert persists vector records in Qdrant, one point per (doc_id,
// chunk_index).
func (s *QdrantStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		payload := map[string]any{
			"doc_id":      rec.DocID,
			"chunk_index": float64(rec.ChunkIndex),
		}
		for k, v := range rec.Metadata {
			payload[k] = v
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(pointID(rec.DocID, rec.ChunkIndex)),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return kberrors.StoreError("failed to upsert points to Qdrant", err)
	}

	logger.Debug("stored vector records in Qdrant", "count", len(records))
	return nil
}

// Search performs an ANN search in Qdrant, optionally filtered by exact
// metadata key/value matches.
func (s *QdrantStore) Search(ctx context.Context, queryVector []float32, k int, filter map[string]string) ([]domain.RankedResult, error) {
	req := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(filter) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(filter))
		for key, value := range filter {
			conditions = append(conditions, qdrant.NewMatch(key, value))
		}
		req.Filter = &qdrant.Filter{Must: conditions}
	}

	resp, err := s.client.Query(ctx, req)
	if err != nil {
		return nil, kberrors.StoreError("failed to search Qdrant", err)
	}

	results := make([]domain.RankedResult, len(resp))
	for i, point := range resp {
		results[i] = domain.RankedResult{
			DocID:      point.Payload["doc_id"].GetStringValue(),
			ChunkIndex: uint32(point.Payload["chunk_index"].GetDoubleValue()),
			Similarity: float32(point.Score),
		}
	}
	return results, nil
}

// RemoveDocument deletes every point belonging to doc_id; the Indexer
// calls it when a document is removed.
func (s *QdrantStore) RemoveDocument(ctx context.Context, docID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelectorFilter(&qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("doc_id", docID)}}),
	})
	if err != nil {
		return kberrors.StoreError("failed to delete document points from Qdrant", err)
	}
	logger.Info("deleted document vectors from Qdrant", "doc_id", docID)
	return nil
}

// Delete drops the entire collection.
func (s *QdrantStore) Delete(ctx context.Context) error {
	_, err := s.client.DeleteCollection(ctx, s.collection)
	if err != nil {
		return kberrors.StoreError("failed to delete Qdrant collection", err)
	}
	return nil
}

// InitCollection ensures the collection exists with the given vector
// dimensionality.
func (s *QdrantStore) InitCollection(ctx context.Context, vectorSize int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return kberrors.StoreError("failed to check collection existence", err)
	}
	if exists {
		return nil
	}

	logger.Info("creating Qdrant collection", "name", s.collection, "size", vectorSize)
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return kberrors.StoreError("failed to create collection", err)
	}
	return nil
}
