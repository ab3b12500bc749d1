package rse

import (
	"sort"

	"github.com/Guru2308/rag-code/internal/metadoc"
)

// Segment is a chosen, scored interval on the relevance vector, resolved
// back to its owning document's local chunk range.
type Segment struct {
	DocID      string
	ChunkStart uint32 // inclusive, local to the document
	ChunkEnd   uint32 // exclusive, local to the document
	MetaStart  uint32
	Score      float32
}

// candidate is an internal per-document DP result before the
// cross-document knapsack runs.
type candidate struct {
	docID     string
	docIndex  int
	chunkA    uint32 // local start
	chunkB    uint32 // local end, exclusive
	metaStart uint32
	score     float32
}

// SelectSegments runs the exact per-document DP, then the exact
// cross-document 0/1 knapsack, and returns chosen segments in descending
// score order. queryCount extends overall_max_length per the spec's
// multi-query breadth bonus.
func SelectSegments(meta metadoc.MetaDocument, relevance []float32, params Params, queryCount int) []Segment {
	overallMax := params.OverallMaxLength
	if queryCount > 1 {
		overallMax += params.OverallMaxLengthExtension * uint32(queryCount-1)
	}

	var candidates []candidate
	for docIndex, docID := range meta.UniqueDocIDs {
		start := meta.DocumentStartPoints[docID]
		end := meta.DocumentSplits[docIndex]
		local := relevance[start:end]

		for _, c := range perDocumentDP(local, params.MaxLength, params.MinimumValue) {
			candidates = append(candidates, candidate{
				docID:     docID,
				docIndex:  docIndex,
				chunkA:    uint32(c.start),
				chunkB:    uint32(c.end),
				metaStart: start + uint32(c.start),
				score:     c.score,
			})
		}
	}

	// Deterministic ordering for tie-breaking: earlier meta-address, then
	// lower document index.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].metaStart != candidates[j].metaStart {
			return candidates[i].metaStart < candidates[j].metaStart
		}
		return candidates[i].docIndex < candidates[j].docIndex
	})

	chosen := knapsack(candidates, overallMax)

	segments := make([]Segment, len(chosen))
	for i, c := range chosen {
		segments[i] = Segment{
			DocID:      c.docID,
			ChunkStart: c.chunkA,
			ChunkEnd:   c.chunkB,
			MetaStart:  c.metaStart,
			Score:      c.score,
		}
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Score > segments[j].Score
	})
	return segments
}

type segCandidate struct {
	start, end int
	score      float32
}

// perDocumentDP finds the set of disjoint sub-intervals of local (each of
// length <= maxLen) maximizing total score, via best[i] = max(best[i-1],
// max over l of best[i-l] + score(i-l, i)), with prefix sums giving
// score(a,b) in O(1). Lengths are tried longest first, so on an equal
// total one contiguous interval is kept rather than several adjacent
// shorter ones. Candidates scoring below minimumValue are dropped from the
// traceback.
func perDocumentDP(local []float32, maxLen uint32, minimumValue float32) []segCandidate {
	n := len(local)
	if n == 0 || maxLen == 0 {
		return nil
	}

	prefix := make([]float32, n+1)
	for i, v := range local {
		prefix[i+1] = prefix[i] + v
	}

	best := make([]float32, n+1)
	chosenLen := make([]int, n+1)
	maxL := int(maxLen)

	for i := 1; i <= n; i++ {
		best[i] = best[i-1]
		chosenLen[i] = 0
		limit := maxL
		if limit > i {
			limit = i
		}
		for l := limit; l >= 1; l-- {
			s := best[i-l] + (prefix[i] - prefix[i-l])
			if s > best[i] {
				best[i] = s
				chosenLen[i] = l
			}
		}
	}

	var candidates []segCandidate
	for i := n; i > 0; {
		l := chosenLen[i]
		if l == 0 {
			i--
			continue
		}
		start := i - l
		score := prefix[i] - prefix[start]
		if score >= minimumValue {
			candidates = append(candidates, segCandidate{start: start, end: i, score: score})
		}
		i = start
	}

	for l, r := 0, len(candidates)-1; l < r; l, r = l+1, r-1 {
		candidates[l], candidates[r] = candidates[r], candidates[l]
	}
	return candidates
}

// knapsack selects the subset of candidates (already non-overlapping,
// each from a distinct meta-address range) maximizing total score
// subject to a total length budget, via exact 0/1 knapsack DP. Items are
// assumed pre-sorted by (meta-address, document index) so ties resolve
// toward earlier, lower-indexed candidates.
func knapsack(items []candidate, capacity uint32) []candidate {
	if len(items) == 0 || capacity == 0 {
		return nil
	}

	n := len(items)
	cap := int(capacity)
	dp := make([][]float32, n+1)
	for i := range dp {
		dp[i] = make([]float32, cap+1)
	}

	for i := 1; i <= n; i++ {
		weight := int(items[i-1].chunkB - items[i-1].chunkA)
		value := items[i-1].score
		for w := 0; w <= cap; w++ {
			dp[i][w] = dp[i-1][w]
			if weight <= w {
				candidateValue := dp[i-1][w-weight] + value
				if candidateValue > dp[i][w] {
					dp[i][w] = candidateValue
				}
			}
		}
	}

	var chosen []candidate
	w := cap
	for i := n; i > 0; i-- {
		if dp[i][w] == dp[i-1][w] {
			continue
		}
		chosen = append(chosen, items[i-1])
		w -= int(items[i-1].chunkB - items[i-1].chunkA)
	}
	return chosen
}
