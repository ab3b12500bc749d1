package lineindex

import "testing"

func TestIndex(t *testing.T) {
	t.Run("discards blank lines and renumbers densely", func(t *testing.T) {
		text := "line one\n\nline two\n   \nline three"
		res := Index(text)

		if len(res.Lines) != 3 {
			t.Fatalf("len(Lines) = %d, want 3", len(res.Lines))
		}
		for i, l := range res.Lines {
			if int(l.LineNo) != i {
				t.Errorf("Lines[%d].LineNo = %d, want %d", i, l.LineNo, i)
			}
		}
		if res.Lines[0].Content != "line one" {
			t.Errorf("Lines[0].Content = %q", res.Lines[0].Content)
		}
		if res.Lines[2].Content != "line three" {
			t.Errorf("Lines[2].Content = %q", res.Lines[2].Content)
		}
	})

	t.Run("empty input yields no lines", func(t *testing.T) {
		res := Index("")
		if len(res.Lines) != 0 {
			t.Errorf("len(Lines) = %d, want 0", len(res.Lines))
		}
		if res.MaxLineNo() != -1 {
			t.Errorf("MaxLineNo() = %d, want -1", res.MaxLineNo())
		}
	})
}

func TestResultText(t *testing.T) {
	res := Index("a\nb\nc\nd")
	got := res.Text(1, 2)
	want := "b\nc"
	if got != want {
		t.Errorf("Text(1,2) = %q, want %q", got, want)
	}
}
