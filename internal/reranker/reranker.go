// Package reranker implements the Reranker collaborator contract
// (rerank(query, results) -> results, similarities in [0,1]). Adapted from
// this codebase's source-code-aware HeuristicReranker/MMRReranker pair:
// the code-type weighting and file-path/recency bonuses (which have no
// equivalent on a plain document chunk) are replaced with content-match
// scoring; the MMR diversity pass is unchanged.
package reranker

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/logger"
)

// Candidate is one pre-rerank search hit: enough of the chunk to score it
// against a query, plus its ANN similarity for the reranker's starting
// point.
type Candidate struct {
	DocID      string
	ChunkIndex uint32
	Content    string
	Embedding  []float32
	Similarity float32
}

// Reranker is the Reranker collaborator contract.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]domain.RankedResult, error)
}

// ---------------------------------------------------------------------------
// Heuristic reranker
// ---------------------------------------------------------------------------

// HeuristicReranker scores candidates via exact/partial query-token match
// against chunk content, then min-max normalizes into [0,1].
type HeuristicReranker struct{}

// NewHeuristicReranker creates a new heuristic reranker.
func NewHeuristicReranker() *HeuristicReranker {
	return &HeuristicReranker{}
}

// Rerank applies content-match heuristics and returns results sorted by
// descending similarity.
func (r *HeuristicReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]domain.RankedResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	queryLower := strings.ToLower(query)
	queryTokens := strings.Fields(queryLower)

	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		score := c.Similarity
		if score <= 0 {
			score = 0.01 // keep a nonzero floor so token matches can still surface a hit
		}
		contentLower := strings.ToLower(c.Content)

		if strings.Contains(contentLower, queryLower) {
			score *= 1.5
		}

		matchedTokens := 0
		for _, token := range queryTokens {
			if len(token) >= 3 && strings.Contains(contentLower, token) {
				matchedTokens++
			}
		}
		if len(queryTokens) > 0 && matchedTokens > 0 {
			tokenRatio := float32(matchedTokens) / float32(len(queryTokens))
			score *= 1.0 + 0.3*tokenRatio
		}

		scores[i] = score
	}

	normalizeInPlace(scores)

	results := make([]domain.RankedResult, len(candidates))
	for i, c := range candidates {
		results[i] = domain.RankedResult{DocID: c.DocID, ChunkIndex: c.ChunkIndex, Similarity: scores[i]}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	return results, nil
}

// normalizeInPlace min-max normalizes scores into [0,1]. A constant input
// (including all-zero) maps to all zeros.
func normalizeInPlace(scores []float32) {
	min, max := scores[0], scores[0]
	for _, s := range scores {
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	spread := max - min
	for i, s := range scores {
		if spread == 0 {
			scores[i] = 0
			continue
		}
		scores[i] = (s - min) / spread
	}
}

// ---------------------------------------------------------------------------
// MMR - Maximal Marginal Relevance
// ---------------------------------------------------------------------------

// MMRReranker wraps another Reranker and applies MMR to improve diversity:
// it iteratively selects the result that is both relevant to the query and
// dissimilar to the already-selected results.
//
// MMR score = lambda * relevance - (1-lambda) * max_similarity(candidate, selected)
type MMRReranker struct {
	inner  Reranker
	lambda float32
}

// NewMMRReranker creates an MMR reranker wrapping inner. lambda controls
// the relevance/diversity trade-off (0-1, default 0.7 outside that range).
func NewMMRReranker(inner Reranker, lambda float32) *MMRReranker {
	if lambda < 0 || lambda > 1 {
		lambda = 0.7
	}
	return &MMRReranker{inner: inner, lambda: lambda}
}

// Rerank first delegates to the inner reranker, then applies MMR selection
// over the candidates' embeddings.
func (m *MMRReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]domain.RankedResult, error) {
	ranked, err := m.inner.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return ranked, nil
	}

	byKey := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byKey[candidateKey(c.DocID, c.ChunkIndex)] = c
	}

	type scored = struct {
		result domain.RankedResult
		vector []float32
	}
	remaining := make([]scored, len(ranked))
	for i, rr := range ranked {
		remaining[i] = scored{result: rr, vector: byKey[candidateKey(rr.DocID, rr.ChunkIndex)].Embedding}
	}

	selected := make([]scored, 0, len(remaining))
	for len(remaining) > 0 {
		bestIdx := -1
		var bestMMR float32 = -1e9
		for i, c := range remaining {
			maxSim := maxSimilarity(c.vector, selected)
			mmrScore := m.lambda*c.result.Similarity - (1-m.lambda)*maxSim
			if bestIdx == -1 || mmrScore > bestMMR {
				bestMMR = mmrScore
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	out := make([]domain.RankedResult, len(selected))
	for i, s := range selected {
		out[i] = s.result
	}
	logger.Debug("MMR reranking complete", "input", len(candidates), "output", len(out))
	return out, nil
}

func candidateKey(docID string, chunkIndex uint32) string {
	return fmt.Sprintf("%s#%d", docID, chunkIndex)
}

func maxSimilarity(candidate []float32, selected []struct {
	result domain.RankedResult
	vector []float32
}) float32 {
	if len(candidate) == 0 {
		return 0
	}
	var max float32
	for _, sel := range selected {
		if len(sel.vector) == 0 {
			continue
		}
		sim := cosineSimilarity(candidate, sel.vector)
		if sim > max {
			max = sim
		}
	}
	return max
}

// cosineSimilarity computes cosine similarity between two float32 vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
