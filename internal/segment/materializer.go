// Package segment implements the Segment Materializer (component J): it
// turns a chosen meta-interval into a user-visible domain.Segment, in one
// of three return modes.
package segment

import (
	"context"
	"strings"

	"github.com/Guru2308/rag-code/internal/chunkstore"
	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/filesystem"
	"github.com/Guru2308/rag-code/internal/rse"
)

// Materializer resolves rse.Segment intervals into domain.Segment values
// by reading chunk content/page metadata from the chunk store and, for
// image-bearing segments, listing page-image files from the file system.
type Materializer struct {
	chunks chunkstore.Store
	files  filesystem.FileSystem
}

// New builds a Materializer over the given chunk store and file system.
func New(chunks chunkstore.Store, files filesystem.FileSystem) *Materializer {
	return &Materializer{chunks: chunks, files: files}
}

// Materialize renders one chosen segment under the given kb_id and
// return mode.
func (m *Materializer) Materialize(ctx context.Context, kbID string, seg rse.Segment, mode domain.ReturnMode) (domain.Segment, error) {
	out := domain.Segment{
		DocID:      seg.DocID,
		ChunkStart: seg.ChunkStart,
		ChunkEnd:   seg.ChunkEnd,
		Score:      seg.Score,
	}

	pageStart, pageEnd, anyVisual, err := m.pageRange(ctx, seg)
	if err != nil {
		return domain.Segment{}, err
	}
	out.SegmentPageStart = pageStart
	out.SegmentPageEnd = pageEnd

	effectiveMode := mode
	if mode == domain.ReturnModeDynamic {
		if anyVisual {
			effectiveMode = domain.ReturnModePageImages
		} else {
			effectiveMode = domain.ReturnModeText
		}
	}

	if effectiveMode == domain.ReturnModePageImages {
		paths, err := m.files.GetFiles(ctx, kbID, seg.DocID, pageStart, pageEnd)
		if err != nil {
			return domain.Segment{}, err
		}
		if len(paths) > 0 {
			out.ImagePaths = paths
			return out, nil
		}
		// no page-image files resolved: fall back to text, for an explicit
		// "page_images" request as well as for "dynamic".
	}

	content, err := m.textContent(ctx, seg)
	if err != nil {
		return domain.Segment{}, err
	}
	out.Content = content
	return out, nil
}

// pageRange computes the segment's overall page bounds and reports
// whether any chunk in the interval is visual, by scanning every chunk
// in [ChunkStart, ChunkEnd).
func (m *Materializer) pageRange(ctx context.Context, seg rse.Segment) (start, end *int, anyVisual bool, err error) {
	for i := seg.ChunkStart; i < seg.ChunkEnd; i++ {
		visual, err := m.chunks.GetIsVisual(ctx, seg.DocID, i)
		if err != nil {
			return nil, nil, false, err
		}
		if visual {
			anyVisual = true
		}

		pStart, pEnd, err := m.chunks.GetChunkPageNumbers(ctx, seg.DocID, i)
		if err != nil {
			return nil, nil, false, err
		}
		if pStart != nil && (start == nil || *pStart < *start) {
			start = pStart
		}
		if pEnd != nil && (end == nil || *pEnd > *end) {
			end = pEnd
		}
	}
	return start, end, anyVisual, nil
}

// textContent concatenates chunk contents, prefixed with the document
// title/summary header.
func (m *Materializer) textContent(ctx context.Context, seg rse.Segment) (string, error) {
	title, err := m.chunks.GetDocumentTitle(ctx, seg.DocID)
	if err != nil {
		return "", err
	}
	summary, err := m.chunks.GetDocumentSummary(ctx, seg.DocID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(summary)
	b.WriteString("\n\n")

	for i := seg.ChunkStart; i < seg.ChunkEnd; i++ {
		text, err := m.chunks.GetChunkText(ctx, seg.DocID, i)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}

	return b.String(), nil
}

// MaterializeAll renders every chosen segment, preserving the input
// order (already descending by score, per rse.SelectSegments).
func (m *Materializer) MaterializeAll(ctx context.Context, kbID string, segments []rse.Segment, mode domain.ReturnMode) ([]domain.Segment, error) {
	out := make([]domain.Segment, 0, len(segments))
	for _, seg := range segments {
		rendered, err := m.Materialize(ctx, kbID, seg, mode)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}
