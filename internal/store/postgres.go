package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"horse.fit/finwire/internal/db"
	"horse.fit/finwire/internal/globaltime"
	"horse.fit/finwire/internal/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const articleColumns = "a.article_id, a.title, a.content, a.source, a.url, a.category, a.language, a.published_at, a.metadata"

// Postgres is the production Store over the shared connection pool.
type Postgres struct {
	pool *db.Pool
}

func NewPostgres(pool *db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) UpsertArticle(ctx context.Context, article model.Article) error {
	var metadata []byte
	if article.Metadata != nil {
		raw, err := json.Marshal(article.Metadata)
		if err != nil {
			return fmt.Errorf("marshal article metadata: %w", err)
		}
		metadata = raw
	}

	const q = `
INSERT INTO news.articles (article_id, title, content, source, url, category, language, published_at, metadata, ingested_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $10)
ON CONFLICT (article_id) DO UPDATE SET
	title = EXCLUDED.title,
	content = EXCLUDED.content,
	source = EXCLUDED.source,
	url = EXCLUDED.url,
	category = EXCLUDED.category,
	language = EXCLUDED.language,
	published_at = EXCLUDED.published_at,
	metadata = EXCLUDED.metadata,
	ingested_at = EXCLUDED.ingested_at,
	updated_at = EXCLUDED.updated_at
`
	_, err := s.pool.Exec(ctx, q,
		article.ID, article.Title, article.Content, article.Source, article.URL,
		article.Category, article.Language, article.PublishedAt, metadata, globaltime.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert article %s: %w", article.ID, err)
	}
	return nil
}

func (s *Postgres) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	const q = `
SELECT a.article_id, a.title, a.content, a.source, a.url, a.category, a.language, a.published_at, a.metadata
FROM news.articles a
WHERE a.article_id = $1
  AND a.deleted_at IS NULL
`
	row := s.pool.QueryRow(ctx, q, id)
	article, err := scanArticleRow(row.Scan)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get article %s: %w", id, err)
	}
	return &article, nil
}

func (s *Postgres) ByCompany(ctx context.Context, name string, limit int) ([]model.Article, error) {
	return s.byEntity(ctx, model.EntityCompany, name, limit)
}

func (s *Postgres) ByRegulator(ctx context.Context, name string, limit int) ([]model.Article, error) {
	return s.byEntity(ctx, model.EntityRegulator, name, limit)
}

func (s *Postgres) byEntity(ctx context.Context, entityType model.EntityType, name string, limit int) ([]model.Article, error) {
	query, args, err := psql.
		Select("DISTINCT " + articleColumns).
		From("news.articles a").
		Join("news.article_entities ae ON ae.article_id = a.article_id").
		Join("news.entities e ON e.entity_id = ae.entity_id").
		Where(sq.Eq{"e.entity_type": string(entityType)}).
		Where(sq.Or{
			sq.And{
				sq.NotEq{"e.normalized": ""},
				sq.Expr("LOWER(e.normalized) = LOWER(?)", name),
			},
			sq.And{
				sq.Eq{"e.normalized": ""},
				sq.Expr("LOWER(e.name) = LOWER(?)", name),
			},
		}).
		Where("a.deleted_at IS NULL").
		OrderBy("a.published_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s lookup: %w", entityType, err)
	}
	return s.queryArticles(ctx, query, args...)
}

func (s *Postgres) BySector(ctx context.Context, name string, limit int) ([]model.Article, error) {
	query, args, err := psql.
		Select("DISTINCT " + articleColumns).
		From("news.articles a").
		LeftJoin("news.article_entities ae ON ae.article_id = a.article_id").
		LeftJoin("news.entities e ON e.entity_id = ae.entity_id").
		Where(sq.Or{
			sq.And{
				sq.Eq{"e.entity_type": string(model.EntitySector)},
				sq.Expr("LOWER(e.name) = LOWER(?)", name),
			},
			sq.And{
				sq.NotEq{"a.category": ""},
				sq.Expr("LOWER(a.category) = LOWER(?)", name),
			},
		}).
		Where("a.deleted_at IS NULL").
		OrderBy("a.published_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sector lookup: %w", err)
	}
	return s.queryArticles(ctx, query, args...)
}

func (s *Postgres) BySymbol(ctx context.Context, symbol string, limit int) ([]model.Article, error) {
	query, args, err := psql.
		Select("DISTINCT " + articleColumns).
		From("news.articles a").
		Join("news.stock_impacts si ON si.article_id = a.article_id").
		Where(sq.Eq{"si.symbol": symbol}).
		Where("a.deleted_at IS NULL").
		OrderBy("a.published_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build symbol lookup: %w", err)
	}
	return s.queryArticles(ctx, query, args...)
}

func (s *Postgres) LinkArticleEntities(ctx context.Context, articleID string, entities []model.Entity) error {
	if len(entities) == 0 {
		return nil
	}

	tx, err := s.pool.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin link transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const upsertEntity = `
INSERT INTO news.entities (entity_id, entity_type, name, normalized)
VALUES ($1, $2, $3, $4)
ON CONFLICT (entity_id) DO UPDATE SET
	entity_type = EXCLUDED.entity_type,
	name = EXCLUDED.name,
	normalized = EXCLUDED.normalized
`
	const insertLink = `
INSERT INTO news.article_entities (article_id, entity_id)
VALUES ($1, $2)
ON CONFLICT (article_id, entity_id) DO NOTHING
`
	for _, e := range entities {
		if _, err := tx.Exec(ctx, upsertEntity, e.ID, string(e.Type), e.Name, e.Normalized); err != nil {
			return fmt.Errorf("upsert entity %s: %w", e.ID, err)
		}
		if _, err := tx.Exec(ctx, insertLink, articleID, e.ID); err != nil {
			return fmt.Errorf("link entity %s to article %s: %w", e.ID, articleID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit link transaction: %w", err)
	}
	return nil
}

func (s *Postgres) AddStockImpacts(ctx context.Context, impacts []model.StockImpact) error {
	if len(impacts) == 0 {
		return nil
	}

	const q = `
INSERT INTO news.stock_impacts (article_id, symbol, confidence, impact_type)
VALUES ($1, $2, $3, $4)
ON CONFLICT (article_id, symbol) DO UPDATE SET
	confidence = EXCLUDED.confidence,
	impact_type = EXCLUDED.impact_type
`
	for _, impact := range impacts {
		if _, err := s.pool.Exec(ctx, q, impact.ArticleID, impact.Symbol, impact.Confidence, impact.Type); err != nil {
			return fmt.Errorf("insert stock impact %s/%s: %w", impact.ArticleID, impact.Symbol, err)
		}
	}
	return nil
}

func (s *Postgres) RecordDuplicateGroups(ctx context.Context, runID string, groups []model.DuplicateGroup) error {
	const q = `
INSERT INTO news.duplicate_groups (run_id, member_ids)
VALUES ($1, $2)
`
	for _, group := range groups {
		if _, err := s.pool.Exec(ctx, q, runID, strings.Join(group, ",")); err != nil {
			return fmt.Errorf("record duplicate group for run %s: %w", runID, err)
		}
	}
	return nil
}

func (s *Postgres) ListEntities(ctx context.Context) ([]model.Entity, error) {
	const q = `
SELECT e.entity_id, e.entity_type, e.name, e.normalized
FROM news.entities e
ORDER BY e.entity_type, e.name
`
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []model.Entity
	for rows.Next() {
		var e model.Entity
		var entityType string
		if err := rows.Scan(&e.ID, &entityType, &e.Name, &e.Normalized); err != nil {
			return nil, fmt.Errorf("scan entity row: %w", err)
		}
		e.Type = model.EntityType(entityType)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity rows: %w", err)
	}
	return out, nil
}

func (s *Postgres) Stats(ctx context.Context) (model.Stats, error) {
	const q = `
SELECT
	(SELECT COUNT(*) FROM news.articles a WHERE a.deleted_at IS NULL) AS article_count,
	(SELECT COUNT(*) FROM news.entities) AS entity_count,
	(SELECT COUNT(*) FROM news.stock_impacts) AS stock_impact_count,
	(SELECT COUNT(*) FROM news.duplicate_groups) AS duplicate_count,
	(SELECT MAX(a.ingested_at) FROM news.articles a WHERE a.deleted_at IS NULL) AS last_ingested_at
`
	var stats model.Stats
	var last *time.Time
	if err := s.pool.QueryRow(ctx, q).Scan(
		&stats.ArticleCount,
		&stats.EntityCount,
		&stats.StockImpactCount,
		&stats.DuplicateCount,
		&last,
	); err != nil {
		return model.Stats{}, fmt.Errorf("query stats: %w", err)
	}
	stats.LastIngestedAt = last
	return stats, nil
}

func (s *Postgres) queryArticles(ctx context.Context, query string, args ...any) ([]model.Article, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []model.Article
	for rows.Next() {
		article, err := scanArticleRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan article row: %w", err)
		}
		out = append(out, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article rows: %w", err)
	}
	return out, nil
}

func scanArticleRow(scan func(dest ...any) error) (model.Article, error) {
	var article model.Article
	var metadata []byte
	if err := scan(
		&article.ID,
		&article.Title,
		&article.Content,
		&article.Source,
		&article.URL,
		&article.Category,
		&article.Language,
		&article.PublishedAt,
		&metadata,
	); err != nil {
		return model.Article{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &article.Metadata); err != nil {
			return model.Article{}, fmt.Errorf("decode article metadata: %w", err)
		}
	}
	return article, nil
}
