package retrieval

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/lexflow/types"
)

// PostgresProvider runs the hybrid search against Postgres with full-text
// search and pgvector. One parameterized query computes both signals:
// ts_rank for the lexical side and the <=> cosine distance for the vector
// side, ordered by distance with a pre-K limit.
type PostgresProvider struct {
	db       *gorm.DB
	embedder Embedder
	alpha    float64
	preK     int
	limit    int
	logger   *zap.Logger
}

// NewPostgresProvider wraps an open gorm connection.
func NewPostgresProvider(db *gorm.DB, embedder Embedder, alpha float64, preK, limit int, logger *zap.Logger) *PostgresProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresProvider{
		db:       db,
		embedder: embedder,
		alpha:    alpha,
		preK:     preK,
		limit:    limit,
		logger:   logger.With(zap.String("component", "postgres_store")),
	}
}

func (p *PostgresProvider) Name() string { return "postgres_store" }

// passageRow mirrors the hybrid query's select list.
type passageRow struct {
	ID         string
	Heading    string
	Text       string
	ParentText string
	Title      string
	Lex        float64
	Distance   float64
}

// Retrieve embeds the query, runs the hybrid SQL, then fuses scores in Go.
// Standardization happens client-side because z-scores are relative to the
// candidate set the query returns, not to the whole table.
func (p *PostgresProvider) Retrieve(ctx context.Context, query types.Query) ([]types.EvidenceFragment, error) {
	qEmb, err := p.embedder.Embed(ctx, query.Text)
	if err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "embed query").WithCause(err)
	}

	sqlText, args := p.buildQuery(query, VectorLiteral(qEmb))

	var rows []passageRow
	if err := p.db.WithContext(ctx).Raw(sqlText, args...).Scan(&rows).Error; err != nil {
		return nil, types.NewError(types.ErrStoreUnavailable, "hybrid search query").
			WithCause(err).WithProvider(p.Name())
	}
	if len(rows) == 0 {
		return nil, nil
	}

	cands := make([]types.EvidenceFragment, 0, len(rows))
	for _, r := range rows {
		body := r.ParentText
		if body == "" {
			body = r.Text
		}
		cands = append(cands, types.EvidenceFragment{
			ID:             r.ID,
			Title:          r.Title,
			Heading:        r.Heading,
			BodyText:       body,
			MatchText:      r.Text,
			Origin:         types.OriginLocalStore,
			LexicalScore:   r.Lex,
			VectorDistance: r.Distance,
		})
	}

	fused := Fuse(cands, p.alpha)
	if len(fused) > p.limit {
		fused = fused[:p.limit]
	}

	p.logger.Debug("hybrid search complete",
		zap.String("query", types.TruncateText(query.Text, 80)),
		zap.Int("candidates", len(rows)),
		zap.Int("results", len(fused)))
	return fused, nil
}

func (p *PostgresProvider) buildQuery(query types.Query, embLiteral string) (string, []any) {
	var b strings.Builder
	args := []any{query.Text, embLiteral}

	b.WriteString(`WITH q AS (
    SELECT websearch_to_tsquery('english', ?) AS qtsv,
           CAST(? AS vector) AS qemb
)
SELECT p.id, p.heading, p.text, p.parent_text, r.title,
       ts_rank(p.search_vector, (SELECT qtsv FROM q)) AS lex,
       (p.embedding <=> (SELECT qemb FROM q)) AS distance
FROM passages p
JOIN docs_raw r ON r.id = p.doc_id`)

	var conds []string
	if query.Filters.Year != 0 {
		conds = append(conds, "p.year = ?")
		args = append(args, query.Filters.Year)
	}
	if query.Filters.Category != "" {
		conds = append(conds, "p.category = ?")
		args = append(args, query.Filters.Category)
	}
	if len(conds) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}

	b.WriteString(`
ORDER BY p.embedding <=> (SELECT qemb FROM q)
LIMIT ?`)
	args = append(args, p.preK)

	return b.String(), args
}
