// Package store persists articles, entities, and stock impacts and answers
// the recency-ordered lookups the query path scores against.
package store

import (
	"context"

	"horse.fit/finwire/internal/model"
)

// Store is the relational persistence contract. Lookup methods return
// articles ordered by published time descending.
type Store interface {
	UpsertArticle(ctx context.Context, article model.Article) error
	GetArticle(ctx context.Context, id string) (*model.Article, error)

	ByCompany(ctx context.Context, name string, limit int) ([]model.Article, error)
	BySector(ctx context.Context, name string, limit int) ([]model.Article, error)
	ByRegulator(ctx context.Context, name string, limit int) ([]model.Article, error)
	BySymbol(ctx context.Context, symbol string, limit int) ([]model.Article, error)

	LinkArticleEntities(ctx context.Context, articleID string, entities []model.Entity) error
	AddStockImpacts(ctx context.Context, impacts []model.StockImpact) error
	RecordDuplicateGroups(ctx context.Context, runID string, groups []model.DuplicateGroup) error

	ListEntities(ctx context.Context) ([]model.Entity, error)
	Stats(ctx context.Context) (model.Stats, error)
}
