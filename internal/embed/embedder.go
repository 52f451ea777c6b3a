// Package embed provides the embedding backends the pipeline can run
// against. All backends satisfy the same batch contract; callers select
// similarity thresholds off the Trained capability flag rather than
// inspecting backend internals.
package embed

import "context"

// Source produces fixed-dimensionality vectors comparable via cosine.
type Source interface {
	// Embed returns one vector per input text, in input order, from a
	// single batched call.
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	// Dimensions is the fixed vector width of this source.
	Dimensions() int
	// Trained reports whether the backend is a learned semantic model.
	// Degraded fallbacks return false and get a lower cosine threshold.
	Trained() bool
}
