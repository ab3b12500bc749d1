package windower

import (
	"testing"

	"github.com/Guru2308/rag-code/internal/domain"
)

func lines(contents ...string) []domain.Line {
	out := make([]domain.Line, len(contents))
	for i, c := range contents {
		out[i] = domain.Line{LineNo: uint32(i), Content: c}
	}
	return out
}

func TestWindow(t *testing.T) {
	t.Run("packs lines under the budget into one window", func(t *testing.T) {
		ls := lines("aaaa", "bbbb", "cccc")
		got := Window(ls, 100)
		if len(got) != 1 {
			t.Fatalf("len(windows) = %d, want 1", len(got))
		}
		if got[0].StartLine != 0 || got[0].EndLine != 2 {
			t.Errorf("window bounds = [%d,%d], want [0,2]", got[0].StartLine, got[0].EndLine)
		}
	})

	t.Run("splits across windows once budget exceeded", func(t *testing.T) {
		ls := lines("01234567", "01234567", "01234567")
		got := Window(ls, 10)
		if len(got) < 2 {
			t.Fatalf("len(windows) = %d, want >= 2", len(got))
		}
		// windows must cover every line exactly once, in order
		var lastEnd = -1
		for _, w := range got {
			if int(w.StartLine) != lastEnd+1 {
				t.Errorf("gap/overlap: window start %d, expected %d", w.StartLine, lastEnd+1)
			}
			lastEnd = int(w.EndLine)
		}
		if lastEnd != 2 {
			t.Errorf("last window end = %d, want 2", lastEnd)
		}
	})

	t.Run("a single oversized line still forms its own window", func(t *testing.T) {
		huge := make([]byte, 50)
		for i := range huge {
			huge[i] = 'x'
		}
		ls := lines(string(huge))
		got := Window(ls, 10)
		if len(got) != 1 {
			t.Fatalf("len(windows) = %d, want 1", len(got))
		}
		if got[0].Text != string(huge) {
			t.Errorf("window text truncated despite single-line rule")
		}
	})

	t.Run("empty input yields no windows", func(t *testing.T) {
		got := Window(nil, 100)
		if len(got) != 0 {
			t.Errorf("len(windows) = %d, want 0", len(got))
		}
	})
}
