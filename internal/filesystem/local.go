package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/validator"
)

// LocalFileSystem implements FileSystem on local disk, laying artifacts
// out as root/kb_id/doc_id/name.
type LocalFileSystem struct {
	root string
}

// NewLocalFileSystem ensures root exists and wraps it.
func NewLocalFileSystem(root string) (*LocalFileSystem, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to create file system root")
	}
	if err := validator.ValidateFilePath(root); err != nil {
		return nil, err
	}
	return &LocalFileSystem{root: root}, nil
}

func (f *LocalFileSystem) docDir(kbID, docID string) string {
	return filepath.Join(f.root, kbID, docID)
}

// LoadData reads a single named artifact for a document.
func (f *LocalFileSystem) LoadData(ctx context.Context, kbID, docID, name string) ([]byte, error) {
	path := filepath.Join(f.docDir(kbID, docID), name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, kberrors.NotFoundError("artifact not found: " + path)
		}
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to read artifact")
	}
	return data, nil
}

// GetFiles lists page-image paths for a document, filtered to the given
// inclusive page range (nil bounds are unbounded), sorted by page number.
func (f *LocalFileSystem) GetFiles(ctx context.Context, kbID, docID string, pageStart, pageEnd *int) ([]string, error) {
	dir := f.docDir(kbID, docID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to list document directory")
	}

	type paged struct {
		page int
		path string
	}
	var matches []paged
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		page, ok := parsePageNumber(e.Name())
		if !ok || !inPageRange(page, pageStart, pageEnd) {
			continue
		}
		matches = append(matches, paged{page: page, path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].page < matches[j].page })

	paths := make([]string, len(matches))
	for i, m := range matches {
		paths[i] = m.path
	}
	return paths, nil
}

// DeleteDirectory removes every artifact for a single document.
func (f *LocalFileSystem) DeleteDirectory(ctx context.Context, kbID, docID string) error {
	if err := os.RemoveAll(f.docDir(kbID, docID)); err != nil {
		return kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to delete document directory")
	}
	return nil
}

// DeleteKB removes every artifact for every document in a knowledge base.
func (f *LocalFileSystem) DeleteKB(ctx context.Context, kbID string) error {
	if err := os.RemoveAll(filepath.Join(f.root, kbID)); err != nil {
		return kberrors.Wrap(err, kberrors.ErrorTypeExternal, "failed to delete knowledge base directory")
	}
	return nil
}
