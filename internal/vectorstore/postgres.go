package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/logger"
)

// PostgresStore implements Store using PostgreSQL + pgvector, pooled via
// pgxpool so concurrent ingest workers and query-time rerankers can share
// one store safely.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres, enables pgvector, and ensures the
// chunk-vector table exists for the given embedding dimensionality.
func NewPostgresStore(ctx context.Context, dsn string, dimensions int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to open Postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to ping Postgres")
	}

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector;"); err != nil {
		return nil, kberrors.StoreError("failed to enable pgvector extension", err)
	}

	createTable := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS chunk_vectors (
		doc_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		embedding vector(%d) NOT NULL,
		metadata JSONB DEFAULT '{}',
		PRIMARY KEY (doc_id, chunk_index)
	);`, dimensions)
	if _, err := pool.Exec(ctx, createTable); err != nil {
		return nil, kberrors.StoreError("failed to create chunk_vectors table", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Upsert writes records in a single batched transaction.
func (s *PostgresStore) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return kberrors.StoreError("failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		metadataJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to marshal metadata")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO chunk_vectors (doc_id, chunk_index, embedding, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (doc_id, chunk_index) DO UPDATE
				SET embedding = EXCLUDED.embedding, metadata = EXCLUDED.metadata`,
			rec.DocID, rec.ChunkIndex, pgvector.NewVector(rec.Vector), metadataJSON)
		if err != nil {
			return kberrors.StoreError("failed to upsert vector record", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return kberrors.StoreError("failed to commit upsert transaction", err)
	}
	logger.Debug("stored vector records in Postgres", "count", len(records))
	return nil
}

// Search runs a pgvector cosine-distance nearest-neighbor query, optionally
// restricted by exact metadata key/value matches.
func (s *PostgresStore) Search(ctx context.Context, queryVector []float32, k int, filter map[string]string) ([]domain.RankedResult, error) {
	query := `
		SELECT doc_id, chunk_index, 1 - (embedding <=> $1) AS similarity
		FROM chunk_vectors`
	args := []any{pgvector.NewVector(queryVector)}

	if len(filter) > 0 {
		query += " WHERE "
		i := 2
		first := true
		for key, value := range filter {
			if !first {
				query += " AND "
			}
			query += fmt.Sprintf("metadata ->> %s = $%d", pgQuoteKey(key), i)
			args = append(args, value)
			i++
			first = false
		}
	}
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT %d", k)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, kberrors.StoreError("failed to search Postgres", err)
	}
	defer rows.Close()

	var results []domain.RankedResult
	for rows.Next() {
		var r domain.RankedResult
		if err := rows.Scan(&r.DocID, &r.ChunkIndex, &r.Similarity); err != nil {
			return nil, kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to scan search row")
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, kberrors.StoreError("error iterating search rows", err)
	}
	return results, nil
}

// pgQuoteKey wraps a JSON metadata key as a SQL string literal; keys are
// internal parameter names, not user input, but are still quoted against
// embedded apostrophes for safety.
func pgQuoteKey(key string) string {
	escaped := ""
	for _, r := range key {
		if r == '\'' {
			escaped += "''"
			continue
		}
		escaped += string(r)
	}
	return "'" + escaped + "'"
}

// RemoveDocument deletes every row belonging to doc_id.
func (s *PostgresStore) RemoveDocument(ctx context.Context, docID string) error {
	_, err := s.pool.Exec(ctx, "DELETE FROM chunk_vectors WHERE doc_id = $1", docID)
	if err != nil {
		return kberrors.StoreError("failed to delete document vectors from Postgres", err)
	}
	logger.Info("deleted document vectors from Postgres", "doc_id", docID)
	return nil
}

// Delete truncates the entire table.
func (s *PostgresStore) Delete(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE TABLE chunk_vectors")
	if err != nil {
		return kberrors.StoreError("failed to truncate chunk_vectors", err)
	}
	return nil
}
