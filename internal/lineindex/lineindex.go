// Package lineindex implements the Line Indexer: it numbers every non-empty
// line of a document and produces the canonical (line_no -> text) map the
// rest of the ingest pipeline addresses.
package lineindex

import (
	"strings"

	"github.com/Guru2308/rag-code/internal/domain"
)

// Result is the output of indexing a document: the dense line list plus a
// map back to the original byte offset of each line, used later for
// page-number resolution.
type Result struct {
	Lines              []domain.Line
	LineToOriginalByte map[uint32]int
}

// Index splits text by newline, discards empty/whitespace-only lines, and
// reassigns dense 0-based line numbers.
func Index(text string) Result {
	raw := strings.Split(text, "\n")

	lines := make([]domain.Line, 0, len(raw))
	offsets := make(map[uint32]int, len(raw))

	byteOffset := 0
	var lineNo uint32
	for _, r := range raw {
		trimmed := strings.TrimSpace(r)
		if trimmed != "" {
			lines = append(lines, domain.Line{LineNo: lineNo, Content: trimmed})
			offsets[lineNo] = byteOffset
			lineNo++
		}
		byteOffset += len(r) + 1 // +1 for the newline stripped by Split
	}

	return Result{Lines: lines, LineToOriginalByte: offsets}
}

// MaxLineNo returns the last line number in the index, or -1 if there are
// no lines.
func (r Result) MaxLineNo() int {
	if len(r.Lines) == 0 {
		return -1
	}
	return int(r.Lines[len(r.Lines)-1].LineNo)
}

// Text reconstructs the original (trimmed-line) document text for a closed
// line range [startLine, endLine].
func (r Result) Text(startLine, endLine uint32) string {
	var b strings.Builder
	for _, l := range r.Lines {
		if l.LineNo < startLine {
			continue
		}
		if l.LineNo > endLine {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Content)
	}
	return b.String()
}
