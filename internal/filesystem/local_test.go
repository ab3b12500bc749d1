package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func setupLocalFS(t *testing.T) *LocalFileSystem {
	fs, err := NewLocalFileSystem(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalFileSystem() error = %v", err)
	}
	return fs
}

func writeArtifact(t *testing.T, fs *LocalFileSystem, kbID, docID, name, content string) {
	t.Helper()
	dir := filepath.Join(fs.root, kbID, docID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLocalFileSystem_LoadData(t *testing.T) {
	fs := setupLocalFS(t)
	writeArtifact(t, fs, "kb-1", "doc-1", "notes.txt", "hello")

	data, err := fs.LoadData(context.Background(), "kb-1", "doc-1", "notes.txt")
	if err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("LoadData() = %q, want %q", data, "hello")
	}
}

func TestLocalFileSystem_LoadData_NotFound(t *testing.T) {
	fs := setupLocalFS(t)

	if _, err := fs.LoadData(context.Background(), "kb-1", "doc-1", "missing.txt"); err == nil {
		t.Error("expected an error for a missing artifact")
	}
}

func TestLocalFileSystem_GetFiles_FiltersAndSortsByPage(t *testing.T) {
	fs := setupLocalFS(t)
	writeArtifact(t, fs, "kb-1", "doc-1", "page_3.png", "p3")
	writeArtifact(t, fs, "kb-1", "doc-1", "page_1.png", "p1")
	writeArtifact(t, fs, "kb-1", "doc-1", "page_2.png", "p2")
	writeArtifact(t, fs, "kb-1", "doc-1", "readme.txt", "not a page")

	start, end := 1, 2
	paths, err := fs.GetFiles(context.Background(), "kb-1", "doc-1", &start, &end)
	if err != nil {
		t.Fatalf("GetFiles() error = %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("len(paths) = %d, want 2: %v", len(paths), paths)
	}
	if filepath.Base(paths[0]) != "page_1.png" || filepath.Base(paths[1]) != "page_2.png" {
		t.Errorf("paths = %v, want page_1.png then page_2.png", paths)
	}
}

func TestLocalFileSystem_GetFiles_UnboundedRange(t *testing.T) {
	fs := setupLocalFS(t)
	writeArtifact(t, fs, "kb-1", "doc-1", "page_1.png", "p1")
	writeArtifact(t, fs, "kb-1", "doc-1", "page_2.png", "p2")

	paths, err := fs.GetFiles(context.Background(), "kb-1", "doc-1", nil, nil)
	if err != nil {
		t.Fatalf("GetFiles() error = %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("len(paths) = %d, want 2", len(paths))
	}
}

func TestLocalFileSystem_GetFiles_MissingDirectoryReturnsEmpty(t *testing.T) {
	fs := setupLocalFS(t)

	paths, err := fs.GetFiles(context.Background(), "kb-1", "doc-missing", nil, nil)
	if err != nil {
		t.Fatalf("GetFiles() error = %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("paths = %v, want empty", paths)
	}
}

func TestLocalFileSystem_DeleteDirectory(t *testing.T) {
	fs := setupLocalFS(t)
	writeArtifact(t, fs, "kb-1", "doc-1", "page_1.png", "p1")
	writeArtifact(t, fs, "kb-1", "doc-2", "page_1.png", "p1")

	if err := fs.DeleteDirectory(context.Background(), "kb-1", "doc-1"); err != nil {
		t.Fatalf("DeleteDirectory() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(fs.root, "kb-1", "doc-1")); !os.IsNotExist(err) {
		t.Error("expected doc-1 directory to be removed")
	}
	if _, err := os.Stat(filepath.Join(fs.root, "kb-1", "doc-2")); err != nil {
		t.Error("doc-2 directory should survive doc-1's deletion")
	}
}

func TestLocalFileSystem_DeleteKB(t *testing.T) {
	fs := setupLocalFS(t)
	writeArtifact(t, fs, "kb-1", "doc-1", "page_1.png", "p1")

	if err := fs.DeleteKB(context.Background(), "kb-1"); err != nil {
		t.Fatalf("DeleteKB() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(fs.root, "kb-1")); !os.IsNotExist(err) {
		t.Error("expected kb-1 directory to be removed")
	}
}

func TestParsePageNumber(t *testing.T) {
	cases := []struct {
		name    string
		wantN   int
		wantOK  bool
	}{
		{"page_0.png", 0, true},
		{"page_42.jpg", 42, true},
		{"readme.txt", 0, false},
		{"page_.png", 0, false},
		{"page_12", 12, true},
	}
	for _, c := range cases {
		n, ok := parsePageNumber(c.name)
		if ok != c.wantOK || (ok && n != c.wantN) {
			t.Errorf("parsePageNumber(%q) = (%d, %v), want (%d, %v)", c.name, n, ok, c.wantN, c.wantOK)
		}
	}
}
