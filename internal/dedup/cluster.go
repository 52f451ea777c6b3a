package dedup

import (
	"context"
	"fmt"

	"horse.fit/finwire/internal/embed"
	"horse.fit/finwire/internal/model"
	"horse.fit/finwire/internal/textnorm"
)

// prepared is the per-article working state of one clustering run. It is
// recomputed every run and never persisted.
type prepared struct {
	normalizedTitle string
	eventKey        string
	titleTokens     map[string]struct{}
	fullTokens      map[string]struct{}
	embedding       []float64
}

// Result is the outcome of one clustering run. Unique holds one
// representative per group in original batch order; Embeddings carries the
// representative vectors aligned with Unique so callers can index them
// without re-embedding; Groups lists the id membership of every group of
// size > 1.
type Result struct {
	Unique     []model.Article
	Embeddings [][]float64
	Groups     []model.DuplicateGroup
}

// Clusterer partitions article batches into duplicate groups.
type Clusterer struct {
	source embed.Source
	gate   *Gate
}

// NewClusterer wires an embedding source and a gate calibrated for it.
func NewClusterer(source embed.Source, gate *Gate) *Clusterer {
	return &Clusterer{source: source, gate: gate}
}

// NewClustererForSource builds a Clusterer whose gate threshold matches the
// source's trained/fallback capability.
func NewClustererForSource(source embed.Source) *Clusterer {
	return NewClusterer(source, NewGate(GateConfig{CosineThreshold: CosineThresholdFor(source.Trained())}))
}

// Partition groups a batch with a single greedy pass in original order.
// Each unconsumed article anchors a new group and absorbs every later
// unconsumed article the gate matches against the anchor. Membership is
// anchor-relative, so groups are not guaranteed transitively closed: two
// non-anchor members need not match each other. Known limitation, kept
// because it makes grouping stable and order-preserving.
//
// Embeddings for the whole batch come from one batched call before the
// O(n²) pairwise scan; the scan itself only reads precomputed vectors and
// token sets.
func (c *Clusterer) Partition(ctx context.Context, articles []model.Article) (Result, error) {
	if len(articles) == 0 {
		return Result{}, nil
	}

	preps, err := c.prepare(ctx, articles)
	if err != nil {
		return Result{}, err
	}

	n := len(articles)
	consumed := make([]bool, n)
	groups := make([][]int, 0, n)

	for i := 0; i < n; i++ {
		if consumed[i] {
			continue
		}
		group := []int{i}
		consumed[i] = true
		for j := i + 1; j < n; j++ {
			if consumed[j] {
				continue
			}
			if c.gate.IsDuplicate(preps[i], preps[j]) {
				consumed[j] = true
				group = append(group, j)
			}
		}
		groups = append(groups, group)
	}

	result := Result{
		Unique:     make([]model.Article, 0, len(groups)),
		Embeddings: make([][]float64, 0, len(groups)),
	}
	for _, group := range groups {
		result.Unique = append(result.Unique, articles[group[0]])
		result.Embeddings = append(result.Embeddings, preps[group[0]].embedding)
		if len(group) > 1 {
			ids := make(model.DuplicateGroup, 0, len(group))
			for _, idx := range group {
				ids = append(ids, articles[idx].ID)
			}
			result.Groups = append(result.Groups, ids)
		}
	}
	return result, nil
}

func (c *Clusterer) prepare(ctx context.Context, articles []model.Article) ([]*prepared, error) {
	preps := make([]*prepared, len(articles))
	texts := make([]string, len(articles))
	for i, a := range articles {
		normalizedTitle := textnorm.Normalize(a.Title)
		normalizedFull := textnorm.Normalize(a.Title + "\n" + a.Content)
		preps[i] = &prepared{
			normalizedTitle: normalizedTitle,
			eventKey:        textnorm.EventKey(normalizedTitle),
			titleTokens:     textnorm.TokenSet(normalizedTitle),
			fullTokens:      textnorm.TokenSet(normalizedFull),
		}
		texts[i] = normalizedFull
	}

	vectors, err := c.source.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("batch embed %d articles: %w", len(articles), err)
	}
	if len(vectors) != len(articles) {
		return nil, fmt.Errorf("embedding batch size mismatch: articles=%d vectors=%d", len(articles), len(vectors))
	}
	for i := range preps {
		preps[i].embedding = vectors[i]
	}
	return preps, nil
}
