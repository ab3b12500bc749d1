package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestChunkJSON(t *testing.T) {
	page := 3
	chunk := Chunk{
		DocID:         "doc-1",
		ChunkIndex:    2,
		SectionIndex:  0,
		Content:       "hello world",
		EmbeddingText: "Title\n\nSummary\n\nSection\n\nhello world",
		PageStart:     &page,
		IsVisual:      false,
		Metadata:      map[string]string{"lang": "en"},
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var parsed Chunk
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if parsed.DocID != chunk.DocID {
		t.Errorf("DocID = %v, want %v", parsed.DocID, chunk.DocID)
	}
	if parsed.PageStart == nil || *parsed.PageStart != page {
		t.Errorf("PageStart = %v, want %v", parsed.PageStart, page)
	}
}

func TestDocumentJSON(t *testing.T) {
	doc := Document{
		DocID:     "doc-1",
		Title:     "Title",
		Summary:   "Summary",
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var parsed Document
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if parsed.Title != doc.Title {
		t.Errorf("Title = %v, want %v", parsed.Title, doc.Title)
	}
}

func TestSegmentScoreOrdering(t *testing.T) {
	segs := []Segment{
		{DocID: "a", Score: 0.5},
		{DocID: "b", Score: 0.9},
	}
	if !(segs[1].Score > segs[0].Score) {
		t.Errorf("expected segs[1] to score higher")
	}
}

func TestConsolidatedSectionTitleConstant(t *testing.T) {
	if ConsolidatedSectionTitle != "Consolidated Section" {
		t.Errorf("ConsolidatedSectionTitle = %q, want %q", ConsolidatedSectionTitle, "Consolidated Section")
	}
}
