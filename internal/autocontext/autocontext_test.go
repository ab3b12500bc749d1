package autocontext

import (
	"context"
	"strings"
	"testing"

	"github.com/Guru2308/rag-code/internal/domain"
)

type fakeProvider struct {
	complete func(ctx context.Context, system, user string, target any) error
}

func (f *fakeProvider) Complete(ctx context.Context, system, user string, target any) error {
	return f.complete(ctx, system, user, target)
}

func TestResolveDocumentContext_UsesSuppliedValuesWithoutLLMCall(t *testing.T) {
	provider := &fakeProvider{complete: func(ctx context.Context, s, u string, target any) error {
		t.Fatal("LLM should not be called when title and summary are both supplied")
		return nil
	}}
	a := New(provider, DefaultConfig())

	ctx, err := a.ResolveDocumentContext(context.Background(), "full document text", "My Title", "My Summary")
	if err != nil {
		t.Fatalf("ResolveDocumentContext() error = %v", err)
	}
	if ctx.Title != "My Title" || ctx.Summary != "My Summary" {
		t.Errorf("ctx = %+v, want supplied values unchanged", ctx)
	}
}

func TestResolveDocumentContext_GeneratesMissingValues(t *testing.T) {
	calls := 0
	provider := &fakeProvider{complete: func(ctx context.Context, s, u string, target any) error {
		calls++
		switch v := target.(type) {
		case *titleReply:
			v.Title = "Generated Title"
		case *summaryReply:
			v.Summary = "Generated Summary"
		}
		return nil
	}}
	a := New(provider, DefaultConfig())

	ctx, err := a.ResolveDocumentContext(context.Background(), "full document text", "", "")
	if err != nil {
		t.Fatalf("ResolveDocumentContext() error = %v", err)
	}
	if ctx.Title != "Generated Title" || ctx.Summary != "Generated Summary" {
		t.Errorf("ctx = %+v", ctx)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestSectionSummaries_OneSummaryPerSectionInOrder(t *testing.T) {
	sections := []domain.Section{{Title: "A"}, {Title: "B"}, {Title: "C"}}
	texts := map[int]string{0: "section a text", 1: "section b text", 2: "section c text"}

	provider := &fakeProvider{complete: func(ctx context.Context, s, u string, target any) error {
		reply := target.(*summaryReply)
		reply.Summary = "summary of: " + u
		return nil
	}}
	cfg := DefaultConfig()
	cfg.LLMMaxConcurrentReqs = 2
	a := New(provider, cfg)

	summaries, err := a.SectionSummaries(context.Background(), sections, func(i int) string { return texts[i] })
	if err != nil {
		t.Fatalf("SectionSummaries() error = %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("len(summaries) = %d, want 3", len(summaries))
	}
	for i, s := range summaries {
		if !strings.Contains(s, texts[i]) {
			t.Errorf("summary %d = %q, want to contain %q", i, s, texts[i])
		}
	}
}

func TestAnnotate_ComposesEmbeddingTextWithoutMutatingContent(t *testing.T) {
	a := New(&fakeProvider{}, DefaultConfig())
	chunk := &domain.Chunk{Content: "the chunk body"}

	a.Annotate(chunk, "Doc Title", "Doc Summary", "Section Title")

	want := "Doc Title\n\nDoc Summary\n\nSection Title\n\nthe chunk body"
	if chunk.EmbeddingText != want {
		t.Errorf("EmbeddingText = %q, want %q", chunk.EmbeddingText, want)
	}
	if chunk.Content != "the chunk body" {
		t.Errorf("Content was mutated: %q", chunk.Content)
	}
}

func TestAnnotate_SkipsEmptyParts(t *testing.T) {
	a := New(&fakeProvider{}, DefaultConfig())
	chunk := &domain.Chunk{Content: "body"}

	a.Annotate(chunk, "", "", "")

	if chunk.EmbeddingText != "body" {
		t.Errorf("EmbeddingText = %q, want %q", chunk.EmbeddingText, "body")
	}
}

func TestAnnotate_AppliesTermMapping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TermMapping = map[string][]string{"Go": {"golang", "Golang"}}
	a := New(&fakeProvider{}, cfg)

	chunk := &domain.Chunk{Content: "I love golang and also Golang tooling."}
	a.Annotate(chunk, "", "", "")

	if strings.Contains(chunk.EmbeddingText, "golang") {
		t.Errorf("EmbeddingText still contains alias: %q", chunk.EmbeddingText)
	}
	if !strings.Contains(chunk.EmbeddingText, "Go and also Go tooling") {
		t.Errorf("EmbeddingText = %q, want aliases replaced with canonical", chunk.EmbeddingText)
	}
	if chunk.Content != "I love golang and also Golang tooling." {
		t.Errorf("Content was mutated: %q", chunk.Content)
	}
}

func TestTruncateByChars(t *testing.T) {
	if got := truncateByChars("hello world", 100); got != "hello world" {
		t.Errorf("truncateByChars should be a no-op under budget, got %q", got)
	}
	got := truncateByChars("hello world", 5)
	if len(got) > 5 {
		t.Errorf("truncateByChars did not respect the budget: %q", got)
	}
}
