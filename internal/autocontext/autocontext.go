// Package autocontext implements the AutoContext Annotator: it resolves a
// document's title/summary (user-supplied or LLM-generated), optionally
// summarizes sections through a bounded-concurrency pool, and composes each
// chunk's embedding_text by prepending that context and applying a custom
// term mapping. Token budgeting for "first N characters" prompts uses
// tiktoken-go/tokenizer, falling back to the teacher's chars-per-token
// estimate when the tokenizer can't be loaded.
package autocontext

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/llmprovider"
	"github.com/Guru2308/rag-code/internal/logger"
)

// Config controls token budgeting, concurrency, and the custom term
// mapping applied to embedding text.
type Config struct {
	MaxTokens            int // auto_context_max_tokens
	CharsPerToken        int // fallback estimate when the tokenizer can't load, default 4
	LLMMaxConcurrentReqs int
	// TermMapping is canonical -> aliases; aliases are substituted with
	// their canonical form in embedding text only (case-insensitive,
	// word-boundary matched), never in displayed content.
	TermMapping map[string][]string
}

// DefaultConfig returns the spec's default thresholds.
func DefaultConfig() Config {
	return Config{MaxTokens: 2000, CharsPerToken: 4, LLMMaxConcurrentReqs: 5}
}

// DocContext holds a document's resolved title and summary.
type DocContext struct {
	Title   string
	Summary string
}

type termRule struct {
	canonical string
	pattern   *regexp.Regexp
}

// Annotator is the AutoContext Annotator.
type Annotator struct {
	provider llmprovider.Provider
	cfg      Config
	terms    []termRule
}

// New creates an annotator backed by the given LLMProvider.
func New(provider llmprovider.Provider, cfg Config) *Annotator {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.CharsPerToken <= 0 {
		cfg.CharsPerToken = 4
	}
	if cfg.LLMMaxConcurrentReqs <= 0 {
		cfg.LLMMaxConcurrentReqs = 1
	}
	return &Annotator{provider: provider, cfg: cfg, terms: compileTermMapping(cfg.TermMapping)}
}

func compileTermMapping(mapping map[string][]string) []termRule {
	var rules []termRule
	for canonical, aliases := range mapping {
		for _, alias := range aliases {
			pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`)
			if err != nil {
				continue
			}
			rules = append(rules, termRule{canonical: canonical, pattern: pattern})
		}
	}
	return rules
}

type titleReply struct {
	Title string `json:"title"`
}

type summaryReply struct {
	Summary string `json:"summary"`
}

const titleSystemPrompt = `You produce a short, descriptive title for a document given its opening text. ` +
	`Reply with JSON {"title": "..."}.`

const summarySystemPrompt = `You produce a one or two sentence summary of a document given its opening text. ` +
	`Reply with JSON {"summary": "..."}.`

// ResolveDocumentContext returns the document's title and summary,
// preferring the caller-supplied values and falling back to one LLM call
// each over a token-budgeted prefix of the document.
func (a *Annotator) ResolveDocumentContext(ctx context.Context, fullText, userTitle, userSummary string) (DocContext, error) {
	prefix := a.truncateToBudget(fullText)

	title := userTitle
	if title == "" {
		var reply titleReply
		if err := a.provider.Complete(ctx, titleSystemPrompt, prefix, &reply); err != nil {
			return DocContext{}, err
		}
		title = reply.Title
	}

	summary := userSummary
	if summary == "" {
		var reply summaryReply
		if err := a.provider.Complete(ctx, summarySystemPrompt, prefix, &reply); err != nil {
			return DocContext{}, err
		}
		summary = reply.Summary
	}

	return DocContext{Title: title, Summary: summary}, nil
}

// SectionSummaries produces an optional one-sentence summary per section,
// run over a bounded-concurrency pool. sectionText(i) returns the content
// of section i.
func (a *Annotator) SectionSummaries(ctx context.Context, sections []domain.Section, sectionText func(int) string) ([]string, error) {
	summaries := make([]string, len(sections))
	errs := make([]error, len(sections))

	sem := make(chan struct{}, a.cfg.LLMMaxConcurrentReqs)
	var wg sync.WaitGroup
	for i := range sections {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			prefix := a.truncateToBudget(sectionText(idx))
			var reply summaryReply
			if err := a.provider.Complete(ctx, summarySystemPrompt, prefix, &reply); err != nil {
				errs[idx] = err
				return
			}
			summaries[idx] = reply.Summary
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, kberrors.Wrap(err, kberrors.ErrorTypeTransientProvider, fmt.Sprintf("section %d summary failed", i))
		}
	}
	return summaries, nil
}

// Annotate composes chunk.EmbeddingText from the document title/summary,
// section title, and chunk content, then applies the custom term mapping.
// chunk.Content is left untouched.
func (a *Annotator) Annotate(chunk *domain.Chunk, docTitle, docSummary, sectionTitle string) {
	var b strings.Builder
	parts := []string{docTitle, docSummary, sectionTitle, chunk.Content}
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		if !first {
			b.WriteString("\n\n")
		}
		b.WriteString(p)
		first = false
	}
	chunk.EmbeddingText = a.applyTermMapping(b.String())
}

func (a *Annotator) applyTermMapping(text string) string {
	for _, rule := range a.terms {
		text = rule.pattern.ReplaceAllString(text, rule.canonical)
	}
	return text
}

// truncateToBudget trims text to approximately MaxTokens tokens, using the
// GPT-4o tokenizer when available and a chars-per-token estimate otherwise.
func (a *Annotator) truncateToBudget(text string) string {
	enc, err := tokenizer.ForModel(tokenizer.GPT4o)
	if err != nil {
		logger.Debug("tokenizer unavailable, falling back to char estimate", "error", err)
		return truncateByChars(text, a.cfg.MaxTokens*a.cfg.CharsPerToken)
	}

	ids, _, err := enc.Encode(text)
	if err != nil {
		logger.Debug("tokenizer encode failed, falling back to char estimate", "error", err)
		return truncateByChars(text, a.cfg.MaxTokens*a.cfg.CharsPerToken)
	}
	if len(ids) <= a.cfg.MaxTokens {
		return text
	}

	decoded, err := enc.Decode(ids[:a.cfg.MaxTokens])
	if err != nil {
		return truncateByChars(text, a.cfg.MaxTokens*a.cfg.CharsPerToken)
	}
	return decoded
}

func truncateByChars(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	for maxChars > 0 && !isRuneStart(text[maxChars]) {
		maxChars--
	}
	return text[:maxChars]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
