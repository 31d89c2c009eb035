package retrieval

import (
	"math"
	"sort"

	"github.com/BaSui01/lexflow/types"
)

// DefaultFusionAlpha is the lexical weight in the fused score. Below 0.5 the
// vector signal dominates.
const DefaultFusionAlpha = 0.4

// Fuse combines lexical scores and vector distances into a single FusedScore
// per fragment and returns the fragments sorted best-first.
//
// Vector distance is negated into a similarity proxy, then both signals are
// z-scored across the candidate set so their scales become comparable:
//
//	fused = alpha*z(lexical) + (1-alpha)*z(-distance)
//
// With fewer than two candidates standard deviation is undefined, so the raw
// signals are combined directly instead.
func Fuse(frags []types.EvidenceFragment, alpha float64) []types.EvidenceFragment {
	if len(frags) == 0 {
		return frags
	}

	lex := make([]float64, len(frags))
	sem := make([]float64, len(frags))
	for i, f := range frags {
		lex[i] = f.LexicalScore
		sem[i] = -f.VectorDistance
	}

	if len(frags) >= 2 {
		lex = zscore(lex)
		sem = zscore(sem)
	}

	for i := range frags {
		frags[i].FusedScore = alpha*lex[i] + (1-alpha)*sem[i]
	}

	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].FusedScore > frags[j].FusedScore
	})
	return frags
}

// zscore standardizes to mean 0 and unit variance. A constant input has no
// spread to standardize, so it maps to all zeros.
func zscore(xs []float64) []float64 {
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	sigma := math.Sqrt(variance / float64(len(xs)))

	out := make([]float64, len(xs))
	if sigma == 0 {
		return out
	}
	for i, x := range xs {
		out[i] = (x - mean) / sigma
	}
	return out
}
