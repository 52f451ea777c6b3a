package vectorindex

import (
	"context"
	"fmt"

	"horse.fit/finwire/internal/db"
	"horse.fit/finwire/internal/globaltime"
)

// PGVector is the production Index over news.article_embeddings.
type PGVector struct {
	pool      *db.Pool
	modelName string
}

func NewPGVector(pool *db.Pool, modelName string) *PGVector {
	return &PGVector{pool: pool, modelName: modelName}
}

func (p *PGVector) Add(ctx context.Context, id string, vector []float64) error {
	literal, err := ToVectorLiteral(vector)
	if err != nil {
		return fmt.Errorf("encode embedding for article %s: %w", id, err)
	}

	const q = `
INSERT INTO news.article_embeddings (article_id, model_name, dimensions, embedding, embedded_at)
VALUES ($1, $2, $3, $4::vector, $5)
ON CONFLICT (article_id) DO UPDATE SET
	model_name = EXCLUDED.model_name,
	dimensions = EXCLUDED.dimensions,
	embedding = EXCLUDED.embedding,
	embedded_at = EXCLUDED.embedded_at
`
	if _, err := p.pool.Exec(ctx, q, id, p.modelName, len(vector), literal, globaltime.UTC()); err != nil {
		return fmt.Errorf("upsert embedding for article %s: %w", id, err)
	}
	return nil
}

func (p *PGVector) Query(ctx context.Context, vector []float64, topK int) ([]Neighbor, error) {
	if topK <= 0 {
		return nil, nil
	}

	literal, err := ToVectorLiteral(vector)
	if err != nil {
		return nil, fmt.Errorf("encode query vector: %w", err)
	}

	const q = `
SELECT
	ae.article_id,
	(ae.embedding <=> $1::vector)::DOUBLE PRECISION AS distance
FROM news.article_embeddings ae
ORDER BY ae.embedding <=> $1::vector ASC
LIMIT $2
`
	rows, err := p.pool.Query(ctx, q, literal, topK)
	if err != nil {
		return nil, fmt.Errorf("query nearest neighbors: %w", err)
	}
	defer rows.Close()

	neighbors := make([]Neighbor, 0, topK)
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.ID, &n.Distance); err != nil {
			return nil, fmt.Errorf("scan neighbor row: %w", err)
		}
		neighbors = append(neighbors, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate neighbor rows: %w", err)
	}
	return neighbors, nil
}
