package model

import "time"

// Article is an immutable news item as produced by ingestion. The core
// pipeline consumes articles but never mutates them.
type Article struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Source      string         `json:"source"`
	PublishedAt string         `json:"published_at"`
	URL         string         `json:"url"`
	Category    string         `json:"category,omitempty"`
	Language    string         `json:"language,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// EntityType partitions recognized entities by their lookup path.
type EntityType string

const (
	EntityCompany   EntityType = "COMPANY"
	EntitySector    EntityType = "SECTOR"
	EntityRegulator EntityType = "REGULATOR"
)

// Entity is a recognized named entity. Normalized carries the canonical
// lookup form when it differs from the surface name.
type Entity struct {
	ID         string     `json:"id"`
	Type       EntityType `json:"type"`
	Name       string     `json:"name"`
	Normalized string     `json:"normalized,omitempty"`
}

// LookupName returns the canonical form used for store lookups.
func (e Entity) LookupName() string {
	if e.Normalized != "" {
		return e.Normalized
	}
	return e.Name
}

// StockImpact links an article to a traded symbol with a confidence grade.
type StockImpact struct {
	ArticleID  string  `json:"article_id"`
	Symbol     string  `json:"symbol"`
	Confidence float64 `json:"confidence"`
	Type       string  `json:"type"`
}

// SearchHit is one ranked query result. Score is an additive accumulator:
// every contributing signal increments it, nothing ever decrements or caps
// it, so it is a relative ranking value rather than a probability.
type SearchHit struct {
	Article     Article `json:"article"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation,omitempty"`
}

// DuplicateGroup lists the article ids of one duplicate cluster in batch
// order. The first id is the group's representative (its anchor).
type DuplicateGroup []string

// Stats summarizes store contents for the stats endpoints.
type Stats struct {
	ArticleCount     int64      `json:"article_count"`
	EntityCount      int64      `json:"entity_count"`
	StockImpactCount int64      `json:"stock_impact_count"`
	DuplicateCount   int64      `json:"duplicate_count"`
	LastIngestedAt   *time.Time `json:"last_ingested_at,omitempty"`
}
