// Package chunking implements the Chunker: it splits each section's content
// into chunks no larger than chunk_size, gated by a minimum-length
// threshold below which a section is emitted as a single chunk. The
// boundary-finding cascade (paragraph -> sentence -> whitespace -> hard-cut)
// is generalized from this codebase's brace-depth-aware code splitter; a
// Markdown-aware pass using goldmark's block AST is tried first when the
// source is Markdown.
package chunking

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"

	"github.com/Guru2308/rag-code/internal/domain"
)

// Config controls chunk size and the minimum-length gate.
type Config struct {
	ChunkSize            int
	MinLengthForChunking int
	MarkdownAware        bool
}

// Chunker is the Chunker component.
type Chunker struct {
	cfg Config
	md  goldmark.Markdown
}

// New creates a Chunker. Zero-valued fields fall back to sensible defaults.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.MinLengthForChunking <= 0 {
		cfg.MinLengthForChunking = 1000
	}
	return &Chunker{cfg: cfg, md: goldmark.New()}
}

// ChunkSection splits one section's content into chunks, assigning dense
// per-document chunk indexes starting at nextChunkIndex. It returns the new
// chunks and the next free chunk index.
func (c *Chunker) ChunkSection(docID string, sectionIndex uint32, content string, pageStart, pageEnd *int, nextChunkIndex uint32) ([]domain.Chunk, uint32) {
	pieces := c.split(content)

	chunks := make([]domain.Chunk, 0, len(pieces))
	idx := nextChunkIndex
	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			DocID:         docID,
			ChunkIndex:    idx,
			SectionIndex:  sectionIndex,
			Content:       p,
			EmbeddingText: p, // overwritten by the AutoContext annotator
			PageStart:     pageStart,
			PageEnd:       pageEnd,
		})
		idx++
	}
	return chunks, idx
}

// split divides content into pieces <= ChunkSize, or returns content
// unsplit when it is below the minimum-length gate.
func (c *Chunker) split(content string) []string {
	if len(content) < c.cfg.MinLengthForChunking {
		return []string{content}
	}

	var boundaries []int
	if c.cfg.MarkdownAware {
		boundaries = c.markdownBlockBoundaries(content)
	}

	var pieces []string
	start := 0
	for start < len(content) {
		end := start + c.cfg.ChunkSize
		if end >= len(content) {
			pieces = append(pieces, content[start:])
			break
		}

		bp := findBreakPoint(content, start, end, c.cfg.ChunkSize, boundaries)
		pieces = append(pieces, content[start:bp])
		start = bp
	}
	return pieces
}

// findBreakPoint applies the boundary cascade: a Markdown block edge (if
// any fall inside the window), then a paragraph break, then a sentence
// boundary, then whitespace, then a hard cut at the window edge.
func findBreakPoint(content string, start, end, chunkSize int, mdBoundaries []int) int {
	if bp := lastBoundaryInRange(mdBoundaries, start, end); bp > start {
		return bp
	}

	window := content[start:end]

	if idx := strings.LastIndex(window, "\n\n"); idx > 0 {
		return start + idx + 2
	}

	if bp := lastSentenceBoundary(window); bp > 0 {
		return start + bp
	}

	// any whitespace in the last 20% of the window
	tailStart := chunkSize - chunkSize/5
	if tailStart < 0 {
		tailStart = 0
	}
	if idx := strings.LastIndexAny(window, " \t\n"); idx != -1 && idx > tailStart {
		return start + idx + 1
	}

	return end
}

// lastSentenceBoundary returns the position just after the last
// ". ", "! ", or "? " in window, or 0 if none is found.
func lastSentenceBoundary(window string) int {
	best := -1
	for _, sep := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if idx := strings.LastIndex(window, sep); idx != -1 {
			candidate := idx + 2
			if candidate > best {
				best = candidate
			}
		}
	}
	if best <= 0 {
		return 0
	}
	return best
}

func lastBoundaryInRange(boundaries []int, start, end int) int {
	best := -1
	for _, b := range boundaries {
		if b > start && b <= end && b > best {
			best = b
		}
	}
	return best
}

// markdownBlockBoundaries parses content as Markdown and returns the byte
// offsets just past each top-level block node (heading, paragraph, code
// block, list), sorted ascending.
func (c *Chunker) markdownBlockBoundaries(content string) []int {
	source := []byte(content)
	reader := text.NewReader(source)
	doc := c.md.Parser().Parse(reader)

	var boundaries []int
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if lines, ok := n.(interface{ Lines() *text.Segments }); ok {
			segs := lines.Lines()
			if segs.Len() > 0 {
				boundaries = append(boundaries, segs.At(segs.Len()-1).Stop)
			}
		}
	}
	return boundaries
}
