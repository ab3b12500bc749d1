// Package windower implements the Windower: it partitions a line-indexed
// document into non-overlapping windows bounded by a maximum character count,
// pre-windowed greedily (Design Notes' preferred, test-exercised option)
// so that all sectioning LLM calls can be dispatched in parallel.
package windower

import (
	"strings"

	"github.com/Guru2308/rag-code/internal/domain"
)

// Window builds windows by a greedy pack: starting from the next unassigned
// line, lines are appended while the running character count (including a
// single-line separator per line) stays <= maxCharsPerWindow. A window
// always contains at least one line even if that line alone exceeds the
// budget.
//
// This is the pre-windowed, non-overlapping variant (Design Notes §9,
// option (b)): overlap/reconciliation across windows is handled by the
// section extractor discarding each non-final window's terminal section,
// not by the windower itself.
func Window(lines []domain.Line, maxCharsPerWindow int) []domain.Window {
	if len(lines) == 0 {
		return nil
	}
	if maxCharsPerWindow <= 0 {
		maxCharsPerWindow = 1
	}

	var windows []domain.Window
	i := 0
	for i < len(lines) {
		start := i
		var b strings.Builder
		b.WriteString(lines[i].Content)
		i++

		for i < len(lines) {
			candidateLen := b.Len() + 1 + len(lines[i].Content)
			if candidateLen > maxCharsPerWindow {
				break
			}
			b.WriteByte('\n')
			b.WriteString(lines[i].Content)
			i++
		}

		windows = append(windows, domain.Window{
			StartLine: lines[start].LineNo,
			EndLine:   lines[i-1].LineNo,
			Text:      b.String(),
		})
	}
	return windows
}
