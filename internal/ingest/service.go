// Package ingest orchestrates the article ingestion pipeline: payload
// validation, language tagging, duplicate clustering, entity tagging, stock
// impact mapping, and persistence.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/finwire/internal/dedup"
	"horse.fit/finwire/internal/langdetect"
	"horse.fit/finwire/internal/model"
	"horse.fit/finwire/internal/ner"
	"horse.fit/finwire/internal/stockmap"
	"horse.fit/finwire/internal/store"
	"horse.fit/finwire/internal/vectorindex"
	payloadschema "horse.fit/finwire/schema"
)

// Result summarizes one ingest run.
type Result struct {
	RunID           string                 `json:"run_id"`
	Received        int                    `json:"received"`
	Ingested        int                    `json:"ingested"`
	Unique          int                    `json:"unique"`
	DuplicateGroups []model.DuplicateGroup `json:"duplicate_groups,omitempty"`
	Rejected        int                    `json:"rejected,omitempty"`
}

// Service runs ingest batches end to end.
type Service struct {
	clusterer  *dedup.Clusterer
	recognizer ner.Recognizer
	mapper     *stockmap.Mapper
	store      store.Store
	index      vectorindex.Index
	logger     zerolog.Logger
}

func NewService(
	clusterer *dedup.Clusterer,
	recognizer ner.Recognizer,
	mapper *stockmap.Mapper,
	st store.Store,
	index vectorindex.Index,
	logger zerolog.Logger,
) *Service {
	return &Service{
		clusterer:  clusterer,
		recognizer: recognizer,
		mapper:     mapper,
		store:      st,
		index:      index,
		logger:     logger.With().Str("component", "ingest").Logger(),
	}
}

// IngestPayloads validates raw JSON payloads and ingests the valid ones.
// Invalid payloads are logged, counted, and skipped rather than failing the
// batch.
func (s *Service) IngestPayloads(ctx context.Context, payloads []json.RawMessage) (Result, error) {
	articles := make([]model.Article, 0, len(payloads))
	rejected := 0
	for i, payload := range payloads {
		raw, err := payloadschema.ValidateNewsArticlePayload(payload)
		if err != nil {
			s.logger.Warn().Err(err).Int("payload_index", i).Msg("payload rejected")
			rejected++
			continue
		}
		articles = append(articles, raw.ToArticle())
	}

	result, err := s.IngestArticles(ctx, articles)
	if err != nil {
		return result, err
	}
	result.Rejected = rejected
	return result, nil
}

// IngestArticles clusters a batch, persists the unique representatives with
// their entities, stock impacts, and embeddings, and records duplicate
// groups. An empty batch is a no-op, not an error.
func (s *Service) IngestArticles(ctx context.Context, articles []model.Article) (Result, error) {
	result := Result{
		RunID:    uuid.NewString(),
		Received: len(articles),
	}
	if len(articles) == 0 {
		return result, nil
	}

	clustered, err := s.clusterer.Partition(ctx, articles)
	if err != nil {
		return result, fmt.Errorf("cluster batch: %w", err)
	}
	result.Unique = len(clustered.Unique)
	result.DuplicateGroups = clustered.Groups

	for i, article := range clustered.Unique {
		if article.Language == "" {
			article.Language = langdetect.DetectISO6391(article.Title + "\n" + article.Content)
		}

		// The gazetteer carries English surface forms, so entity
		// recognition and the impacts derived from it are English-only.
		// Non-English articles are still stored and indexed.
		var entities []model.Entity
		var impacts []model.StockImpact
		if article.Language == "en" {
			entities = s.recognizer.Extract(article.Title + "\n" + article.Content)
			impacts = s.mapper.Impacts(article.ID, entities)
		}

		if err := s.store.UpsertArticle(ctx, article); err != nil {
			return result, fmt.Errorf("upsert article %s: %w", article.ID, err)
		}
		if err := s.store.LinkArticleEntities(ctx, article.ID, entities); err != nil {
			return result, fmt.Errorf("link entities for %s: %w", article.ID, err)
		}
		if err := s.store.AddStockImpacts(ctx, impacts); err != nil {
			return result, fmt.Errorf("add stock impacts for %s: %w", article.ID, err)
		}
		if err := s.index.Add(ctx, article.ID, clustered.Embeddings[i]); err != nil {
			return result, fmt.Errorf("index embedding for %s: %w", article.ID, err)
		}
		result.Ingested++
	}

	if err := s.store.RecordDuplicateGroups(ctx, result.RunID, clustered.Groups); err != nil {
		return result, fmt.Errorf("record duplicate groups: %w", err)
	}

	s.logger.Info().
		Str("run_id", result.RunID).
		Int("received", result.Received).
		Int("unique", result.Unique).
		Int("duplicate_groups", len(result.DuplicateGroups)).
		Msg("ingest run complete")
	return result, nil
}
