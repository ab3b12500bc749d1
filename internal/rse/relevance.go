package rse

import (
	"context"
	"math"

	"github.com/Guru2308/rag-code/internal/domain"
	"github.com/Guru2308/rag-code/internal/metadoc"
)

// ChunkCharLength returns the character length of the chunk's display
// content, used for the length-adjustment step.
type ChunkCharLength func(ctx context.Context, docID string, chunkIndex uint32) (int, error)

// BuildRelevanceVector synthesizes the per-meta-address relevance vector
// V from N reranked result lists: every address starts at
// -irrelevant_chunk_penalty, and each hit in each list adds a
// rank-decayed, similarity-floored contribution at its meta-address.
func BuildRelevanceVector(ctx context.Context, meta metadoc.MetaDocument, resultLists [][]domain.RankedResult, params Params, chunkChars ChunkCharLength) ([]float32, error) {
	v := make([]float32, meta.Length())
	for i := range v {
		v[i] = -params.IrrelevantChunkPenalty
	}

	for _, list := range resultLists {
		for rank, hit := range list {
			addr, ok := meta.MetaAddress(hit.DocID, hit.ChunkIndex)
			if !ok {
				continue
			}
			excess := float64(hit.Similarity) - float64(params.MinimumSimilarity)
			if excess < 0 {
				excess = 0
			}
			decay := math.Exp(-float64(params.DecayRate) * float64(rank))
			v[addr] += float32(excess * decay)
		}
	}

	if params.ChunkLengthAdjustment && params.ReferenceChunkChars > 0 {
		for i := range v {
			docID, chunkIndex, ok := meta.ResolveAddress(uint32(i))
			if !ok {
				continue
			}
			chars, err := chunkChars(ctx, docID, chunkIndex)
			if err != nil {
				return nil, err
			}
			factor := float32(chars) / float32(params.ReferenceChunkChars)
			if factor > 1 {
				factor = 1
			}
			v[i] *= factor
		}
	}

	return v, nil
}
