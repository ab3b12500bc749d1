// Package sectioning implements the Section Extractor: it issues one
// structured LLM call per window, merges partial results across windows,
// enforces the document-level section invariants, and applies the
// safeguard that collapses pathological LLM output into a single section.
package sectioning

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/kberrors"
	"github.com/Guru2308/rag-code/internal/llmprovider"
	"github.com/Guru2308/rag-code/internal/logger"
	"github.com/Guru2308/rag-code/internal/windower"
)

// Config controls the section extractor's retry policy, concurrency, and
// safeguard threshold.
type Config struct {
	MaxCharsPerWindow     int
	MaxRetries            int // R, default 2
	LLMMaxConcurrentReqs  int
	MinAvgCharsPerSection int // safeguard threshold, default 500
	// Backoff computes the delay before retry attempt n (0-based). Exposed
	// so tests can remove real sleeps; defaults to an exponential curve
	// that starts at 100ms before the first retry and doubles each time.
	Backoff func(attempt int) time.Duration
}

// DefaultConfig returns the spec's default thresholds.
func DefaultConfig() Config {
	return Config{
		MaxCharsPerWindow:     20000,
		MaxRetries:            2,
		LLMMaxConcurrentReqs:  5,
		MinAvgCharsPerSection: 500,
		Backoff:               defaultBackoff,
	}
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 50 * time.Millisecond
}

// Extractor is the Section Extractor.
type Extractor struct {
	provider llmprovider.Provider
	cfg      Config
}

// New creates a section extractor backed by the given LLMProvider.
func New(provider llmprovider.Provider, cfg Config) *Extractor {
	if cfg.Backoff == nil {
		cfg.Backoff = defaultBackoff
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.LLMMaxConcurrentReqs <= 0 {
		cfg.LLMMaxConcurrentReqs = 1
	}
	if cfg.MinAvgCharsPerSection <= 0 {
		cfg.MinAvgCharsPerSection = 500
	}
	return &Extractor{provider: provider, cfg: cfg}
}

// windowSection is the per-window structured LLM reply shape.
type windowSection struct {
	Title      string `json:"title"`
	StartIndex int    `json:"start_index"`
}

type windowReply struct {
	Sections []windowSection `json:"sections"`
}

// ExtractSections produces the document's final section list. When
// useSemanticSectioning is false the document is returned as exactly one
// section (S3 in the testable scenarios); no LLM calls are made.
func (e *Extractor) ExtractSections(ctx context.Context, lines []domain.Line, useSemanticSectioning bool) ([]domain.Section, error) {
	if len(lines) == 0 {
		return nil, kberrors.ValidationError("cannot section an empty document")
	}
	maxLineNo := lines[len(lines)-1].LineNo

	if !useSemanticSectioning {
		return []domain.Section{{Title: "Document", StartLine: 0, EndLine: maxLineNo}}, nil
	}

	windows := windower.Window(lines, e.cfg.MaxCharsPerWindow)

	perWindow, err := e.dispatchWindows(ctx, windows)
	if err != nil {
		return nil, err
	}

	sections := mergeWindowResults(windows, perWindow, maxLineNo)
	sections = e.applySafeguard(sections, lines, maxLineNo)
	return sections, nil
}

// dispatchWindows fans out one bounded-concurrency LLM call per window
// (Design Notes §9, option (b)): all calls run in parallel; boundary
// reconciliation happens afterward in mergeWindowResults.
func (e *Extractor) dispatchWindows(ctx context.Context, windows []domain.Window) ([][]windowSection, error) {
	results := make([][]windowSection, len(windows))
	errs := make([]error, len(windows))

	sem := make(chan struct{}, e.cfg.LLMMaxConcurrentReqs)
	var wg sync.WaitGroup

	for i, w := range windows {
		wg.Add(1)
		go func(idx int, win domain.Window) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			sections, err := e.callWindowWithRetries(ctx, win)
			results[idx] = sections
			errs[idx] = err
		}(i, w)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, kberrors.SectioningFailedError(
				fmt.Sprintf("window %d exhausted retries", i), err)
		}
	}
	return results, nil
}

// callWindowWithRetries issues the structured sectioning call for a single
// window, retrying transient errors with exponential backoff and
// schema-validation failures with the previous malformed reply attached as
// negative context.
func (e *Extractor) callWindowWithRetries(ctx context.Context, w domain.Window) ([]windowSection, error) {
	prompt := buildWindowPrompt(w, "")
	var lastErr error

	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.cfg.Backoff(attempt)):
			}
		}

		var reply windowReply
		err := e.provider.Complete(ctx, sectioningSystemPrompt, prompt, &reply)
		if err == nil {
			return reply.Sections, nil
		}
		lastErr = err

		if kberrors.Is(err, kberrors.ErrorTypeValidation) {
			// schema failure: retry with the bad reply as negative context
			prompt = buildWindowPrompt(w, err.Error())
			continue
		}
		if !kberrors.IsTransient(err) {
			return nil, err
		}
		// transient: retry as-is
	}
	logger.Warn("sectioning window exhausted retries", "start_line", w.StartLine, "end_line", w.EndLine, "error", lastErr)
	return nil, lastErr
}

const sectioningSystemPrompt = `You are a document sectioning assistant. Given numbered lines of a document ` +
	`excerpt, reply with JSON of the form {"sections":[{"title":"...","start_index":<line number>}]} ` +
	`identifying where each new section begins. start_index must be a line number inside the excerpt.`

func buildWindowPrompt(w domain.Window, negativeContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lines %d-%d:\n%s", w.StartLine, w.EndLine, numberLines(w))
	if negativeContext != "" {
		fmt.Fprintf(&b, "\n\nYour previous reply was rejected: %s\nReturn valid JSON this time.", negativeContext)
	}
	return b.String()
}

func numberLines(w domain.Window) string {
	lines := strings.Split(w.Text, "\n")
	var b strings.Builder
	lineNo := int(w.StartLine)
	for _, l := range lines {
		fmt.Fprintf(&b, "%d: %s\n", lineNo, l)
		lineNo++
	}
	return b.String()
}

// mergeWindowResults reconciles per-window section lists into the
// document's final section list, per the merging rules in the component
// design: non-final windows have their last (possibly truncated) section
// discarded; a window's first section is dropped as a duplicate when it
// starts exactly at the window boundary and repeats the prior title,
// otherwise it closes the previous open section.
func mergeWindowResults(windows []domain.Window, perWindow [][]windowSection, maxLineNo uint32) []domain.Section {
	var sections []domain.Section

	for k, list := range perWindow {
		isFinal := k == len(perWindow)-1
		if !isFinal && len(list) > 0 {
			list = list[:len(list)-1]
		}

		for _, s := range list {
			startLine := uint32(0)
			if s.StartIndex > 0 {
				startLine = uint32(s.StartIndex)
			}

			if len(sections) > 0 {
				last := &sections[len(sections)-1]
				if startLine == windows[k].StartLine && s.Title == last.Title {
					continue // duplicate continuation of the accumulated section
				}
				if startLine > 0 {
					last.EndLine = startLine - 1
				} else {
					last.EndLine = last.StartLine
				}
			}

			sections = append(sections, domain.Section{
				Title:     s.Title,
				StartLine: startLine,
				EndLine:   maxLineNo,
			})
		}
	}

	if len(sections) == 0 {
		sections = append(sections, domain.Section{Title: "Document", StartLine: 0, EndLine: maxLineNo})
	}

	sections[0].StartLine = 0
	sections[len(sections)-1].EndLine = maxLineNo
	return sections
}

// applySafeguard collapses the section list into a single "Consolidated
// Section" when the average section density is implausibly low, defending
// against pathological LLM outputs (e.g. one title per line).
func (e *Extractor) applySafeguard(sections []domain.Section, lines []domain.Line, maxLineNo uint32) []domain.Section {
	totalChars := 0
	for _, l := range lines {
		totalChars += len(l.Content)
	}

	avg := float64(totalChars) / float64(len(sections))
	if avg >= float64(e.cfg.MinAvgCharsPerSection) {
		return sections
	}

	logger.Warn("sectioning safeguard triggered", "sections", len(sections), "avg_chars", avg, "threshold", e.cfg.MinAvgCharsPerSection)
	return []domain.Section{{Title: domain.ConsolidatedSectionTitle, StartLine: 0, EndLine: maxLineNo}}
}
