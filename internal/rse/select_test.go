package rse

import (
	"context"
	"testing"

	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/metadoc"
)

func TestPreset_KnownNames(t *testing.T) {
	for _, name := range []string{"balanced", "precise", "comprehensive"} {
		if _, err := Preset(name); err != nil {
			t.Errorf("Preset(%q) error = %v", name, err)
		}
	}
}

func TestPreset_UnknownName(t *testing.T) {
	if _, err := Preset("nonexistent"); err == nil {
		t.Error("Preset(\"nonexistent\") should error")
	}
}

func TestResolve_OverridesOnTopOfBalanced(t *testing.T) {
	var maxLen uint32 = 7
	p := Resolve(Overrides{MaxLength: &maxLen})
	if p.MaxLength != 7 {
		t.Errorf("MaxLength = %d, want 7", p.MaxLength)
	}
	balanced, _ := Preset("balanced")
	if p.DecayRate != balanced.DecayRate {
		t.Errorf("DecayRate = %v, want unchanged balanced default %v", p.DecayRate, balanced.DecayRate)
	}
}

func TestResolveInput_Variants(t *testing.T) {
	if p, err := ResolveInput(nil); err != nil || p.MaxLength == 0 {
		t.Errorf("ResolveInput(nil) = %+v, err = %v", p, err)
	}
	if p, err := ResolveInput("precise"); err != nil {
		t.Errorf("ResolveInput(\"precise\") error = %v", err)
	} else if p.MinimumValue != 0.7 {
		t.Errorf("MinimumValue = %v, want 0.7", p.MinimumValue)
	}
	if _, err := ResolveInput(42); err == nil {
		t.Error("ResolveInput(42) should error on an unsupported type")
	}
}

func buildMeta(t *testing.T, lists [][]domain.RankedResult, counts map[string]uint32) metadoc.MetaDocument {
	t.Helper()
	counter := func(ctx context.Context, docID string) (uint32, error) {
		return counts[docID], nil
	}
	meta, err := metadoc.Build(context.Background(), lists, counter, 0)
	if err != nil {
		t.Fatalf("metadoc.Build() error = %v", err)
	}
	return meta
}

func TestBuildRelevanceVector_BaselineIsNegativePenalty(t *testing.T) {
	lists := [][]domain.RankedResult{{{DocID: "a", ChunkIndex: 0, Similarity: 0.9}}}
	meta := buildMeta(t, lists, map[string]uint32{"a": 3})
	params, _ := Preset("balanced")
	params.ChunkLengthAdjustment = false

	v, err := BuildRelevanceVector(context.Background(), meta, lists, params, nil)
	if err != nil {
		t.Fatalf("BuildRelevanceVector() error = %v", err)
	}
	if len(v) != 3 {
		t.Fatalf("len(v) = %d, want 3", len(v))
	}
	if v[1] != -params.IrrelevantChunkPenalty || v[2] != -params.IrrelevantChunkPenalty {
		t.Errorf("untouched addresses = %v, %v, want both %v", v[1], v[2], -params.IrrelevantChunkPenalty)
	}
	want := 0.9 - float32(-params.IrrelevantChunkPenalty)
	if v[0] <= -params.IrrelevantChunkPenalty {
		t.Errorf("hit address v[0] = %v, want > baseline", v[0])
	}
	_ = want
}

func TestBuildRelevanceVector_RankDecayReducesLaterHits(t *testing.T) {
	lists := [][]domain.RankedResult{{
		{DocID: "a", ChunkIndex: 0, Similarity: 0.9},
		{DocID: "a", ChunkIndex: 1, Similarity: 0.9},
	}}
	meta := buildMeta(t, lists, map[string]uint32{"a": 2})
	params, _ := Preset("balanced")
	params.ChunkLengthAdjustment = false

	v, err := BuildRelevanceVector(context.Background(), meta, lists, params, nil)
	if err != nil {
		t.Fatalf("BuildRelevanceVector() error = %v", err)
	}
	if v[1] >= v[0] {
		t.Errorf("rank-1 hit v[1]=%v should score lower than rank-0 hit v[0]=%v", v[1], v[0])
	}
}

func TestBuildRelevanceVector_ChunkLengthAdjustmentScalesDown(t *testing.T) {
	lists := [][]domain.RankedResult{{{DocID: "a", ChunkIndex: 0, Similarity: 0.9}}}
	meta := buildMeta(t, lists, map[string]uint32{"a": 1})
	params, _ := Preset("balanced")
	params.IrrelevantChunkPenalty = 0 // isolate the multiplicative effect
	params.ReferenceChunkChars = 800

	shortChars := func(ctx context.Context, docID string, chunkIndex uint32) (int, error) {
		return 400, nil
	}
	v, err := BuildRelevanceVector(context.Background(), meta, lists, params, shortChars)
	if err != nil {
		t.Fatalf("BuildRelevanceVector() error = %v", err)
	}

	params.ChunkLengthAdjustment = false
	vUnadjusted, err := BuildRelevanceVector(context.Background(), meta, lists, params, nil)
	if err != nil {
		t.Fatalf("BuildRelevanceVector() error = %v", err)
	}

	if v[0] >= vUnadjusted[0] {
		t.Errorf("length-adjusted v[0]=%v should be less than unadjusted %v", v[0], vUnadjusted[0])
	}
}

func TestSelectSegments_PicksHighValueContiguousRun(t *testing.T) {
	lists := [][]domain.RankedResult{{
		{DocID: "a", ChunkIndex: 0, Similarity: 1.0},
		{DocID: "a", ChunkIndex: 1, Similarity: 1.0},
		{DocID: "a", ChunkIndex: 2, Similarity: 1.0},
	}}
	meta := buildMeta(t, lists, map[string]uint32{"a": 5})
	params, _ := Preset("balanced")
	params.DecayRate = 0 // no rank decay, so all three hits score equally
	params.MinimumValue = 0
	params.ChunkLengthAdjustment = false
	params.MaxLength = 3
	params.OverallMaxLength = 3

	v, err := BuildRelevanceVector(context.Background(), meta, lists, params, nil)
	if err != nil {
		t.Fatalf("BuildRelevanceVector() error = %v", err)
	}

	segments := SelectSegments(meta, v, params, 1)
	if len(segments) != 1 {
		t.Fatalf("len(segments) = %d, want 1", len(segments))
	}
	got := segments[0]
	if got.DocID != "a" || got.ChunkStart != 0 || got.ChunkEnd != 3 {
		t.Errorf("segment = %+v, want doc a, chunks [0,3)", got)
	}
}

func TestSelectSegments_RespectsOverallBudgetAcrossDocuments(t *testing.T) {
	lists := [][]domain.RankedResult{{
		{DocID: "a", ChunkIndex: 0, Similarity: 1.0},
		{DocID: "b", ChunkIndex: 0, Similarity: 1.0},
	}}
	meta := buildMeta(t, lists, map[string]uint32{"a": 1, "b": 1})
	params, _ := Preset("balanced")
	params.DecayRate = 0
	params.MinimumValue = 0
	params.ChunkLengthAdjustment = false
	params.MaxLength = 1
	params.OverallMaxLength = 1 // budget for only one of the two single-chunk candidates

	v, err := BuildRelevanceVector(context.Background(), meta, lists, params, nil)
	if err != nil {
		t.Fatalf("BuildRelevanceVector() error = %v", err)
	}

	segments := SelectSegments(meta, v, params, 1)
	if len(segments) != 1 {
		t.Fatalf("len(segments) = %d, want 1 under a budget of 1", len(segments))
	}
}

func TestSelectSegments_QueryCountExtendsBudget(t *testing.T) {
	lists := [][]domain.RankedResult{{
		{DocID: "a", ChunkIndex: 0, Similarity: 1.0},
		{DocID: "b", ChunkIndex: 0, Similarity: 1.0},
	}}
	meta := buildMeta(t, lists, map[string]uint32{"a": 1, "b": 1})
	params, _ := Preset("balanced")
	params.DecayRate = 0
	params.MinimumValue = 0
	params.ChunkLengthAdjustment = false
	params.MaxLength = 1
	params.OverallMaxLength = 1
	params.OverallMaxLengthExtension = 1

	v, err := BuildRelevanceVector(context.Background(), meta, lists, params, nil)
	if err != nil {
		t.Fatalf("BuildRelevanceVector() error = %v", err)
	}

	segments := SelectSegments(meta, v, params, 2) // extension * (2-1) = +1 to budget
	if len(segments) != 2 {
		t.Fatalf("len(segments) = %d, want 2 once the budget is extended for a second query", len(segments))
	}
}

func TestSelectSegments_EmptyRelevanceProducesNoSegments(t *testing.T) {
	meta := buildMeta(t, nil, nil)
	params, _ := Preset("balanced")
	segments := SelectSegments(meta, nil, params, 1)
	if len(segments) != 0 {
		t.Errorf("len(segments) = %d, want 0 for an empty meta-document", len(segments))
	}
}
