// Package filesystem implements the FileSystem collaborator contract:
// load_data(kb_id, doc_id, name), get_files(kb_id, doc_id, page_start,
// page_end) -> path[], delete_directory(kb_id, doc_id), delete_kb(kb_id).
// Page-image artifacts are named "page_<n><ext>" under a per-document
// directory/prefix; get_files filters by the page number encoded in the
// name. Two backends are provided: local disk (grounded on the teacher's
// path-validation conventions) and MinIO object storage (grounded on
// HSn0918-rag's adapter) for deployments that keep artifacts off the
// indexing node.
package filesystem

import "context"

// FileSystem is the FileSystem collaborator contract.
type FileSystem interface {
	LoadData(ctx context.Context, kbID, docID, name string) ([]byte, error)
	GetFiles(ctx context.Context, kbID, docID string, pageStart, pageEnd *int) ([]string, error)
	DeleteDirectory(ctx context.Context, kbID, docID string) error
	DeleteKB(ctx context.Context, kbID string) error
}

// parsePageNumber extracts the page number from a "page_<n><ext>"
// filename, returning ok=false for any name that doesn't match.
func parsePageNumber(name string) (n int, ok bool) {
	const prefix = "page_"
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return 0, false
	}
	rest := name[len(prefix):]
	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	num := 0
	for _, c := range rest[:digits] {
		num = num*10 + int(c-'0')
	}
	return num, true
}

// inPageRange reports whether page n falls within [start, end], treating
// a nil bound as unbounded on that side.
func inPageRange(n int, start, end *int) bool {
	if start != nil && n < *start {
		return false
	}
	if end != nil && n > *end {
		return false
	}
	return true
}
