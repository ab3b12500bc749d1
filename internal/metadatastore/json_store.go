package metadatastore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/logger"
)

// JSONStore persists one JSON file per knowledge base under a root
// directory: root/{kb_id}.json.
type JSONStore struct {
	root string
}

// NewJSONStore ensures root exists and wraps it.
func NewJSONStore(root string) (*JSONStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to create metadata store root")
	}
	return &JSONStore{root: root}, nil
}

func (s *JSONStore) path(kbID string) string {
	return filepath.Join(s.root, kbID+".json")
}

// Save writes record for kbID, replacing it via a temp-file-then-rename
// so a reader never observes a partially written file.
func (s *JSONStore) Save(ctx context.Context, kbID string, record Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to marshal knowledge base record")
	}

	tmp, err := os.CreateTemp(s.root, kbID+".json.tmp-*")
	if err != nil {
		return kberrors.StoreError("failed to create temp metadata file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return kberrors.StoreError("failed to write metadata", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return kberrors.StoreError("failed to close temp metadata file", err)
	}
	if err := os.Rename(tmpPath, s.path(kbID)); err != nil {
		os.Remove(tmpPath)
		return kberrors.StoreError("failed to commit metadata file", err)
	}

	logger.Debug("saved knowledge base metadata", "kb_id", kbID)
	return nil
}

// Load reads and parses the record for kbID.
func (s *JSONStore) Load(ctx context.Context, kbID string) (Record, error) {
	var record Record
	data, err := os.ReadFile(s.path(kbID))
	if err != nil {
		if os.IsNotExist(err) {
			return record, kberrors.NotFoundError("knowledge base not found: " + kbID)
		}
		return record, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to read metadata file")
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, kberrors.Wrap(err, kberrors.ErrorTypeInternal, "failed to unmarshal metadata file")
	}
	return record, nil
}

// KBExists reports whether a metadata file exists for kbID.
func (s *JSONStore) KBExists(ctx context.Context, kbID string) (bool, error) {
	_, err := os.Stat(s.path(kbID))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to stat metadata file")
}

// Delete removes the metadata file for kbID.
func (s *JSONStore) Delete(ctx context.Context, kbID string) error {
	if err := os.Remove(s.path(kbID)); err != nil && !os.IsNotExist(err) {
		return kberrors.StoreError("failed to delete metadata file", err)
	}
	return nil
}

// NewSuppID mints a fresh opaque ID for callers that did not supply one
// (e.g. a generated supp_id); doc_id itself is always caller-supplied and
// never generated here.
func NewSuppID() string {
	return uuid.New().String()
}
