package db

import (
	"encoding/json"
	"time"
)

// Article maps news.articles.
type Article struct {
	ArticleID   string          `gorm:"column:article_id;type:text;primaryKey"`
	Title       string          `gorm:"column:title;type:text;not null"`
	Content     string          `gorm:"column:content;type:text;not null;default:''"`
	Source      string          `gorm:"column:source;type:text;not null;default:''"`
	URL         string          `gorm:"column:url;type:text;not null;default:''"`
	Category    string          `gorm:"column:category;type:text;not null;default:''"`
	Language    string          `gorm:"column:language;type:text;not null;default:''"`
	PublishedAt string          `gorm:"column:published_at;type:text;not null;default:''"`
	Metadata    json.RawMessage `gorm:"column:metadata;type:jsonb"`
	IngestedAt  time.Time       `gorm:"column:ingested_at;type:timestamptz;not null;default:now()"`
	DeletedAt   *time.Time      `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt   time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Article) TableName() string { return "news.articles" }

// Entity maps news.entities.
type Entity struct {
	EntityID   string    `gorm:"column:entity_id;type:text;primaryKey"`
	EntityType string    `gorm:"column:entity_type;type:text;not null"`
	Name       string    `gorm:"column:name;type:text;not null"`
	Normalized string    `gorm:"column:normalized;type:text;not null;default:''"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (Entity) TableName() string { return "news.entities" }

// ArticleEntity maps news.article_entities.
type ArticleEntity struct {
	ArticleID string    `gorm:"column:article_id;type:text;primaryKey"`
	EntityID  string    `gorm:"column:entity_id;type:text;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (ArticleEntity) TableName() string { return "news.article_entities" }

// StockImpact maps news.stock_impacts.
type StockImpact struct {
	ArticleID  string    `gorm:"column:article_id;type:text;primaryKey"`
	Symbol     string    `gorm:"column:symbol;type:text;primaryKey"`
	Confidence float64   `gorm:"column:confidence;type:double precision;not null"`
	ImpactType string    `gorm:"column:impact_type;type:text;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (StockImpact) TableName() string { return "news.stock_impacts" }

// ArticleEmbedding maps news.article_embeddings.
type ArticleEmbedding struct {
	ArticleID  string    `gorm:"column:article_id;type:text;primaryKey"`
	ModelName  string    `gorm:"column:model_name;type:text;not null;default:''"`
	Dimensions int       `gorm:"column:dimensions;type:integer;not null"`
	Embedding  string    `gorm:"column:embedding;type:vector(384);not null"`
	EmbeddedAt time.Time `gorm:"column:embedded_at;type:timestamptz;not null;default:now()"`
}

func (ArticleEmbedding) TableName() string { return "news.article_embeddings" }

// DuplicateGroup maps news.duplicate_groups. MemberIDs is a comma-joined
// ordered id list; the first member is the group's representative.
type DuplicateGroup struct {
	GroupID   string    `gorm:"column:group_id;type:uuid;primaryKey;default:gen_random_uuid()"`
	RunID     string    `gorm:"column:run_id;type:uuid;not null"`
	MemberIDs string    `gorm:"column:member_ids;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (DuplicateGroup) TableName() string { return "news.duplicate_groups" }

// IngestRun maps news.ingest_runs.
type IngestRun struct {
	RunID           string     `gorm:"column:run_id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Source          string     `gorm:"column:source;type:text;not null;default:''"`
	StartedAt       time.Time  `gorm:"column:started_at;type:timestamptz;not null;default:now()"`
	FinishedAt      *time.Time `gorm:"column:finished_at;type:timestamptz"`
	Status          string     `gorm:"column:status;type:text;not null;default:running"`
	ItemsReceived   int        `gorm:"column:items_received;type:integer;not null;default:0"`
	ItemsIngested   int        `gorm:"column:items_ingested;type:integer;not null;default:0"`
	DuplicatesFound int        `gorm:"column:duplicates_found;type:integer;not null;default:0"`
	ErrorMessage    *string    `gorm:"column:error_message;type:text"`
}

func (IngestRun) TableName() string { return "news.ingest_runs" }

func autoMigrateModels() []any {
	return []any{
		&Article{},
		&Entity{},
		&ArticleEntity{},
		&StockImpact{},
		&ArticleEmbedding{},
		&DuplicateGroup{},
		&IngestRun{},
	}
}
