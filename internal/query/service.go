// Package query scores articles against natural-language queries by fusing
// entity lookup signals with vector-similarity retrieval.
package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"horse.fit/finwire/internal/embed"
	"horse.fit/finwire/internal/explain"
	"horse.fit/finwire/internal/model"
	"horse.fit/finwire/internal/ner"
	"horse.fit/finwire/internal/store"
	"horse.fit/finwire/internal/vectorindex"
)

// Signal weights. Weights accumulate additively per article id; an article
// reached through several signals carries their sum.
const (
	companyWeight   = 0.6
	sectorWeight    = 0.5
	regulatorWeight = 0.5

	// Every company entity also adds this weight through a lookup of the
	// fixed sector below, regardless of the company's actual sector.
	// Longstanding behavior, kept as-is; open question for product
	// owners whether it should use the company's real sector.
	companySectorBoostWeight = 0.3
	companyBoostSector       = "Banking"
)

// DefaultTopK bounds result lists when the caller passes no limit.
const DefaultTopK = 10

// Service runs the multi-signal scoring pipeline.
type Service struct {
	recognizer ner.Recognizer
	store      store.Store
	source     embed.Source
	index      vectorindex.Index
	explainer  explain.Source
	logger     zerolog.Logger
}

func NewService(
	recognizer ner.Recognizer,
	st store.Store,
	source embed.Source,
	index vectorindex.Index,
	explainer explain.Source,
	logger zerolog.Logger,
) *Service {
	return &Service{
		recognizer: recognizer,
		store:      st,
		source:     source,
		index:      index,
		explainer:  explainer,
		logger:     logger.With().Str("component", "query").Logger(),
	}
}

// accumulator is the shared score map. It remembers first-insertion order
// so the stable sort can break score ties by collection order.
type accumulator struct {
	order []string
	hits  map[string]*model.SearchHit
}

func newAccumulator() *accumulator {
	return &accumulator{hits: map[string]*model.SearchHit{}}
}

func (a *accumulator) add(article model.Article, weight float64) {
	if hit, exists := a.hits[article.ID]; exists {
		hit.Score += weight
		return
	}
	a.order = append(a.order, article.ID)
	a.hits[article.ID] = &model.SearchHit{Article: article, Score: weight}
}

// Search extracts entities from the query, collects entity and vector
// signals, fuses them additively, attaches explanations, and returns the
// top topK hits by score descending. Ties keep collection order. A query
// with no matching signals returns an empty list.
func (s *Service) Search(ctx context.Context, queryText string, topK int) ([]model.SearchHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	acc := newAccumulator()

	entities := s.recognizer.Extract(queryText)
	if err := s.collectEntitySignals(ctx, entities, topK, acc); err != nil {
		return nil, err
	}
	if err := s.collectVectorSignals(ctx, queryText, topK, acc); err != nil {
		return nil, err
	}

	results := make([]model.SearchHit, 0, len(acc.order))
	for _, id := range acc.order {
		hit := *acc.hits[id]
		hit.Explanation = s.explainer.Explain(queryText, hit.Article.Title)
		results = append(results, hit)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	s.logger.Debug().
		Str("query", queryText).
		Int("entities", len(entities)).
		Int("results", len(results)).
		Msg("query scored")
	return results, nil
}

// collectEntitySignals adds weighted contributions from the recency-ordered
// entity lookups, companies first, then sectors, then regulators.
func (s *Service) collectEntitySignals(ctx context.Context, entities []model.Entity, limit int, acc *accumulator) error {
	var companies, sectors, regulators []model.Entity
	for _, e := range entities {
		switch e.Type {
		case model.EntityCompany:
			companies = append(companies, e)
		case model.EntitySector:
			sectors = append(sectors, e)
		case model.EntityRegulator:
			regulators = append(regulators, e)
		}
	}

	for _, company := range companies {
		articles, err := s.store.ByCompany(ctx, company.LookupName(), limit)
		if err != nil {
			return fmt.Errorf("company lookup %q: %w", company.LookupName(), err)
		}
		for _, article := range articles {
			acc.add(article, companyWeight)
		}

		boosted, err := s.store.BySector(ctx, companyBoostSector, limit)
		if err != nil {
			return fmt.Errorf("company sector boost lookup: %w", err)
		}
		for _, article := range boosted {
			acc.add(article, companySectorBoostWeight)
		}
	}

	for _, sector := range sectors {
		articles, err := s.store.BySector(ctx, sector.LookupName(), limit)
		if err != nil {
			return fmt.Errorf("sector lookup %q: %w", sector.LookupName(), err)
		}
		for _, article := range articles {
			acc.add(article, sectorWeight)
		}
	}

	for _, regulator := range regulators {
		articles, err := s.store.ByRegulator(ctx, regulator.LookupName(), limit)
		if err != nil {
			return fmt.Errorf("regulator lookup %q: %w", regulator.LookupName(), err)
		}
		for _, article := range articles {
			acc.add(article, regulatorWeight)
		}
	}

	return nil
}

// collectVectorSignals embeds the query once, queries the index once, and
// adds 1-distance per resolvable neighbor. Neighbors whose article is gone
// from the store are skipped. Scores are relative ranking values: a
// distance above 1 yields a negative contribution and no clamping is
// applied.
func (s *Service) collectVectorSignals(ctx context.Context, queryText string, topK int, acc *accumulator) error {
	vectors, err := s.source.Embed(ctx, []string{queryText})
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("query embedding count mismatch: got %d", len(vectors))
	}

	neighbors, err := s.index.Query(ctx, vectors[0], topK)
	if err != nil {
		return fmt.Errorf("vector query: %w", err)
	}

	for _, neighbor := range neighbors {
		article, err := s.store.GetArticle(ctx, neighbor.ID)
		if err != nil {
			return fmt.Errorf("resolve neighbor %s: %w", neighbor.ID, err)
		}
		if article == nil {
			continue
		}
		acc.add(*article, 1.0-neighbor.Distance)
	}
	return nil
}
