package rerank

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"

	"github.com/BaSui01/lexflow/types"
)

type sliceModel struct{ scores []float64 }

func (m *sliceModel) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	return m.scores[:len(texts)], nil
}

func genFragsAndScores() gopter.Gen {
	return gen.SliceOf(gen.Float64Range(-10, 10))
}

func TestProperty_OutputBoundedByTopN(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("reranked output never exceeds top_n", prop.ForAll(
		func(scores []float64, topN int) bool {
			in := make([]types.EvidenceFragment, len(scores))
			for i := range in {
				in[i] = types.EvidenceFragment{ID: fmt.Sprintf("f%d", i), BodyText: "b"}
			}
			r := New(&sliceModel{scores: scores}, zap.NewNop())
			out := r.Rerank(context.Background(), "q", in, topN, 0)
			return len(out) <= topN
		},
		genFragsAndScores(),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

func TestProperty_ThresholdLaw(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("every returned fragment meets the threshold", prop.ForAll(
		func(scores []float64, threshold float64) bool {
			in := make([]types.EvidenceFragment, len(scores))
			for i := range in {
				in[i] = types.EvidenceFragment{ID: fmt.Sprintf("f%d", i), BodyText: "b"}
			}
			r := New(&sliceModel{scores: scores}, zap.NewNop())
			out := r.Rerank(context.Background(), "q", in, len(in), threshold)
			for _, f := range out {
				if f.RerankScore < threshold {
					return false
				}
			}
			return true
		},
		genFragsAndScores(),
		gen.Float64Range(0.01, 0.99),
	))

	properties.TestingRun(t)
}

func TestProperty_SortedDescending(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("output is sorted descending by rerank score", prop.ForAll(
		func(scores []float64) bool {
			in := make([]types.EvidenceFragment, len(scores))
			for i := range in {
				in[i] = types.EvidenceFragment{ID: fmt.Sprintf("f%d", i), BodyText: "b"}
			}
			r := New(&sliceModel{scores: scores}, zap.NewNop())
			out := r.Rerank(context.Background(), "q", in, len(in), 0)
			for i := 1; i < len(out); i++ {
				if out[i-1].RerankScore < out[i].RerankScore {
					return false
				}
			}
			return true
		},
		genFragsAndScores(),
	))

	properties.TestingRun(t)
}

func TestProperty_PassThroughPreservesOrder(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("nil model preserves input order up to top_n", prop.ForAll(
		func(n int, topN int) bool {
			in := make([]types.EvidenceFragment, n)
			for i := range in {
				in[i] = types.EvidenceFragment{ID: fmt.Sprintf("f%d", i), BodyText: "b"}
			}
			r := New(nil, zap.NewNop())
			out := r.Rerank(context.Background(), "q", in, topN, 0)

			want := n
			if topN < want {
				want = topN
			}
			if len(out) != want {
				return false
			}
			for i, f := range out {
				if f.ID != in[i].ID || f.RerankScore != NeutralScore {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 30),
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}

func TestProperty_SigmoidRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500

	properties := gopter.NewProperties(parameters)

	properties.Property("sigmoid maps any real into (0,1) monotonically", prop.ForAll(
		func(a, b float64) bool {
			sa, sb := sigmoid(a), sigmoid(b)
			if sa <= 0 || sa >= 1 || sb <= 0 || sb >= 1 {
				return false
			}
			if a < b && sa > sb {
				return false
			}
			return true
		},
		gen.Float64Range(-30, 30),
		gen.Float64Range(-30, 30),
	))

	properties.TestingRun(t)
}
