// Package vectorindex stores article embeddings and answers nearest-neighbor
// queries by cosine distance.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Neighbor is one nearest-neighbor hit. Distance is cosine distance, so
// lower is closer and 1-Distance is the similarity score.
type Neighbor struct {
	ID       string
	Distance float64
}

// Index is the vector retrieval contract.
type Index interface {
	Add(ctx context.Context, id string, vector []float64) error
	Query(ctx context.Context, vector []float64, topK int) ([]Neighbor, error)
}

// ToVectorLiteral renders a vector as a pgvector text literal.
func ToVectorLiteral(values []float64) (string, error) {
	var builder strings.Builder
	builder.Grow(len(values) * 8)
	builder.WriteByte('[')
	for i, value := range values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return "", fmt.Errorf("vector has non-finite value at index %d", i)
		}
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
