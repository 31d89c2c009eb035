package retrieval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/lexflow/types"
)

func TestFuse_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Fuse(nil, DefaultFusionAlpha))
}

func TestFuse_SingleCandidateUsesRawScores(t *testing.T) {
	t.Parallel()
	frags := []types.EvidenceFragment{
		{ID: "a", LexicalScore: 0.8, VectorDistance: 0.3},
	}
	out := Fuse(frags, 0.4)
	require.Len(t, out, 1)

	// alpha*lex + (1-alpha)*(-distance), no standardization possible.
	want := 0.4*0.8 + 0.6*(-0.3)
	assert.InDelta(t, want, out[0].FusedScore, 1e-9)
}

func TestFuse_VectorSignalDominatesAtLowAlpha(t *testing.T) {
	t.Parallel()
	// "far" wins on lexical, "near" wins on vector. With alpha 0.4 and
	// symmetric z-scores the vector side must decide the order.
	frags := []types.EvidenceFragment{
		{ID: "far", LexicalScore: 0.9, VectorDistance: 0.8},
		{ID: "near", LexicalScore: 0.1, VectorDistance: 0.1},
	}
	out := Fuse(frags, 0.4)
	require.Len(t, out, 2)
	assert.Equal(t, "near", out[0].ID)
	assert.Equal(t, "far", out[1].ID)
}

func TestFuse_LexicalBreaksVectorTies(t *testing.T) {
	t.Parallel()
	frags := []types.EvidenceFragment{
		{ID: "weak", LexicalScore: 0.1, VectorDistance: 0.5},
		{ID: "strong", LexicalScore: 0.9, VectorDistance: 0.5},
	}
	out := Fuse(frags, 0.4)
	require.Len(t, out, 2)
	assert.Equal(t, "strong", out[0].ID)
}

func TestFuse_SortedDescending(t *testing.T) {
	t.Parallel()
	frags := []types.EvidenceFragment{
		{ID: "a", LexicalScore: 0.2, VectorDistance: 0.7},
		{ID: "b", LexicalScore: 0.9, VectorDistance: 0.1},
		{ID: "c", LexicalScore: 0.5, VectorDistance: 0.4},
		{ID: "d", LexicalScore: 0.1, VectorDistance: 0.9},
	}
	out := Fuse(frags, 0.4)
	for i := 1; i < len(out); i++ {
		assert.GreaterOrEqual(t, out[i-1].FusedScore, out[i].FusedScore)
	}
}

func TestZScore_ConstantInputMapsToZeros(t *testing.T) {
	t.Parallel()
	out := zscore([]float64{3, 3, 3, 3})
	for _, v := range out {
		assert.Zero(t, v)
	}
}

func TestZScore_MeanZeroUnitVariance(t *testing.T) {
	t.Parallel()
	out := zscore([]float64{1, 2, 3, 4, 5})

	var mean float64
	for _, v := range out {
		mean += v
	}
	mean /= float64(len(out))
	assert.InDelta(t, 0, mean, 1e-9)

	var variance float64
	for _, v := range out {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(out))
	assert.InDelta(t, 1, math.Sqrt(variance), 1e-9)
}
