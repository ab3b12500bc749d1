// Package metadoc implements the Meta-Document Builder (component H):
// it folds N reranked result lists into a single virtual linear address
// space of candidate documents, so the RSE Optimizer can treat relevance
// across many documents as one relevance vector.
package metadoc

import (
	"context"
	"sort"

	"github.com/Guru2308/rag-code/internal/domain"
)

// ChunkCounter returns the number of chunks a document has, typically
// backed by the chunk store.
type ChunkCounter func(ctx context.Context, docID string) (uint32, error)

// MetaDocument is the folded address space: unique_document_ids in order
// of first appearance, document_splits (cumulative chunk count through
// each document, exclusive), and document_start_points (the meta-address
// of chunk 0 of each document).
type MetaDocument struct {
	UniqueDocIDs        []string
	DocumentSplits      []uint32
	DocumentStartPoints map[string]uint32
}

// Build walks the reranked lists in order, considering only each list's
// first topKForDocumentSelection entries (the union, across queries, of
// documents hit within the configured top-K), appending each doc_id the
// first time it is seen and accumulating its chunk count from
// chunksInDoc. Documents not hit within that window by any list are
// excluded, even if they appear further down a reranked list. A
// non-positive topKForDocumentSelection disables truncation (every hit
// is considered), since a caller with no configured value has nothing
// meaningful to bound by.
func Build(ctx context.Context, resultLists [][]domain.RankedResult, chunksInDoc ChunkCounter, topKForDocumentSelection int) (MetaDocument, error) {
	meta := MetaDocument{DocumentStartPoints: make(map[string]uint32)}
	seen := make(map[string]bool)
	var running uint32

	for _, list := range resultLists {
		if topKForDocumentSelection > 0 && len(list) > topKForDocumentSelection {
			list = list[:topKForDocumentSelection]
		}
		for _, hit := range list {
			if seen[hit.DocID] {
				continue
			}
			seen[hit.DocID] = true

			count, err := chunksInDoc(ctx, hit.DocID)
			if err != nil {
				return MetaDocument{}, err
			}

			meta.UniqueDocIDs = append(meta.UniqueDocIDs, hit.DocID)
			meta.DocumentStartPoints[hit.DocID] = running
			running += count
			meta.DocumentSplits = append(meta.DocumentSplits, running)
		}
	}

	return meta, nil
}

// Length is the total length of the virtual meta-document.
func (m MetaDocument) Length() uint32 {
	if len(m.DocumentSplits) == 0 {
		return 0
	}
	return m.DocumentSplits[len(m.DocumentSplits)-1]
}

// MetaAddress maps a (doc_id, chunk_index) pair to its meta-address.
func (m MetaDocument) MetaAddress(docID string, chunkIndex uint32) (uint32, bool) {
	start, ok := m.DocumentStartPoints[docID]
	if !ok {
		return 0, false
	}
	return start + chunkIndex, true
}

// ResolveAddress maps a meta-address back to the (doc_id, chunk_index)
// it names, via binary search over the sorted document_splits slice
// rather than a linear scan.
func (m MetaDocument) ResolveAddress(address uint32) (docID string, chunkIndex uint32, ok bool) {
	if address >= m.Length() {
		return "", 0, false
	}
	idx := sort.Search(len(m.DocumentSplits), func(i int) bool {
		return m.DocumentSplits[i] > address
	})
	docID = m.UniqueDocIDs[idx]
	return docID, address - m.DocumentStartPoints[docID], true
}
