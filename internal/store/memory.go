package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"horse.fit/finwire/internal/globaltime"
	"horse.fit/finwire/internal/model"
)

// Memory is an in-process Store for tests, demos, and single-node runs.
// Safe for concurrent use.
type Memory struct {
	mu sync.RWMutex

	articles     map[string]model.Article
	articleOrder []string
	entities     map[string]model.Entity
	entityOrder  []string
	links        map[string][]string
	impacts      []model.StockImpact
	groupCount   int64
	lastIngested *time.Time
}

func NewMemory() *Memory {
	return &Memory{
		articles: map[string]model.Article{},
		entities: map[string]model.Entity{},
		links:    map[string][]string{},
	}
}

func (m *Memory) UpsertArticle(_ context.Context, article model.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.articles[article.ID]; !exists {
		m.articleOrder = append(m.articleOrder, article.ID)
	}
	m.articles[article.ID] = article
	now := globaltime.UTC()
	m.lastIngested = &now
	return nil
}

func (m *Memory) GetArticle(_ context.Context, id string) (*model.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	article, ok := m.articles[id]
	if !ok {
		return nil, nil
	}
	return &article, nil
}

func (m *Memory) ByCompany(ctx context.Context, name string, limit int) ([]model.Article, error) {
	return m.byEntity(ctx, model.EntityCompany, name, limit)
}

func (m *Memory) ByRegulator(ctx context.Context, name string, limit int) ([]model.Article, error) {
	return m.byEntity(ctx, model.EntityRegulator, name, limit)
}

// BySector matches articles linked to a sector entity by surface name, or
// whose category equals the sector.
func (m *Memory) BySector(_ context.Context, name string, limit int) ([]model.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Article
	for _, id := range m.articleOrder {
		article := m.articles[id]
		matched := article.Category != "" && strings.EqualFold(article.Category, name)
		if !matched {
			for _, entityID := range m.links[id] {
				e := m.entities[entityID]
				if e.Type == model.EntitySector && strings.EqualFold(e.Name, name) {
					matched = true
					break
				}
			}
		}
		if matched {
			out = append(out, article)
		}
	}
	return truncateByRecency(out, limit), nil
}

func (m *Memory) BySymbol(_ context.Context, symbol string, limit int) ([]model.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]struct{}{}
	var out []model.Article
	for _, impact := range m.impacts {
		if impact.Symbol != symbol {
			continue
		}
		if _, dup := seen[impact.ArticleID]; dup {
			continue
		}
		seen[impact.ArticleID] = struct{}{}
		if article, ok := m.articles[impact.ArticleID]; ok {
			out = append(out, article)
		}
	}
	return truncateByRecency(out, limit), nil
}

func (m *Memory) byEntity(_ context.Context, entityType model.EntityType, name string, limit int) ([]model.Article, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Article
	for _, id := range m.articleOrder {
		for _, entityID := range m.links[id] {
			e := m.entities[entityID]
			if e.Type != entityType {
				continue
			}
			if strings.EqualFold(e.LookupName(), name) {
				out = append(out, m.articles[id])
				break
			}
		}
	}
	return truncateByRecency(out, limit), nil
}

func (m *Memory) LinkArticleEntities(_ context.Context, articleID string, entities []model.Entity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entities {
		if _, exists := m.entities[e.ID]; !exists {
			m.entityOrder = append(m.entityOrder, e.ID)
		}
		m.entities[e.ID] = e

		linked := false
		for _, existing := range m.links[articleID] {
			if existing == e.ID {
				linked = true
				break
			}
		}
		if !linked {
			m.links[articleID] = append(m.links[articleID], e.ID)
		}
	}
	return nil
}

func (m *Memory) AddStockImpacts(_ context.Context, impacts []model.StockImpact) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.impacts = append(m.impacts, impacts...)
	return nil
}

func (m *Memory) RecordDuplicateGroups(_ context.Context, _ string, groups []model.DuplicateGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.groupCount += int64(len(groups))
	return nil
}

func (m *Memory) ListEntities(_ context.Context) ([]model.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Entity, 0, len(m.entityOrder))
	for _, id := range m.entityOrder {
		out = append(out, m.entities[id])
	}
	return out, nil
}

func (m *Memory) Stats(_ context.Context) (model.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return model.Stats{
		ArticleCount:     int64(len(m.articles)),
		EntityCount:      int64(len(m.entities)),
		StockImpactCount: int64(len(m.impacts)),
		DuplicateCount:   m.groupCount,
		LastIngestedAt:   m.lastIngested,
	}, nil
}

// truncateByRecency orders articles by published time descending and
// applies the limit. Published times are compared as text, matching the
// relational store's ORDER BY on the published_at column; the order is
// chronological only for timestamp formats that sort lexicographically.
func truncateByRecency(articles []model.Article, limit int) []model.Article {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt > articles[j].PublishedAt
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles
}
