package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"FW_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"FW_DB_MAX_CONNS" default:"8"`

	// Embedding backend: "hashing", "service", or "openai".
	EmbeddingBackend    string `envconfig:"EMBEDDING_BACKEND" default:"hashing"`
	EmbeddingEndpoint   string `envconfig:"EMBEDDING_ENDPOINT" default:""`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:""`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"0"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL" default:""`

	// Vector index backend: "memory" or "pgvector". pgvector requires
	// DATABASE_URL.
	VectorBackend string `envconfig:"VECTOR_BACKEND" default:"memory"`

	// Store backend: "memory" or "postgres". postgres requires
	// DATABASE_URL.
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`

	// Comma-separated RSS feed URLs for watch mode.
	FeedURLs         string        `envconfig:"FEED_URLS" default:""`
	FeedPollInterval time.Duration `envconfig:"FEED_POLL_INTERVAL" default:"5m"`
	FeedFetchWorkers int           `envconfig:"FEED_FETCH_WORKERS" default:"4"`
	// FeedFullText fetches article pages for readability extraction when
	// the RSS summary is short.
	FeedFullText bool `envconfig:"FEED_FULL_TEXT" default:"false"`

	// Optional YAML table overrides. Empty means the embedded defaults.
	GazetteerPath     string `envconfig:"GAZETTEER_PATH" default:""`
	StockMappingsPath string `envconfig:"STOCK_MAPPINGS_PATH" default:""`

	QueryTopK int `envconfig:"QUERY_TOP_K" default:"10"`

	HTTPListenAddr     string `envconfig:"HTTP_LISTEN_ADDR" default:":8080"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBMinConns < 0 {
		return fmt.Errorf("FW_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("FW_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("FW_DB_MIN_CONNS (%d) cannot exceed FW_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	switch strings.ToLower(strings.TrimSpace(c.EmbeddingBackend)) {
	case "hashing", "service", "openai":
	default:
		return fmt.Errorf("EMBEDDING_BACKEND must be one of hashing, service, openai")
	}
	switch strings.ToLower(strings.TrimSpace(c.VectorBackend)) {
	case "memory":
	case "pgvector":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("VECTOR_BACKEND=pgvector requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("VECTOR_BACKEND must be one of memory, pgvector")
	}
	switch strings.ToLower(strings.TrimSpace(c.StoreBackend)) {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, postgres")
	}
	if c.FeedPollInterval < time.Second {
		return fmt.Errorf("FEED_POLL_INTERVAL must be >= 1s")
	}
	if c.FeedFetchWorkers < 1 {
		return fmt.Errorf("FEED_FETCH_WORKERS must be >= 1")
	}
	if c.QueryTopK < 1 {
		return fmt.Errorf("QUERY_TOP_K must be >= 1")
	}
	return nil
}

func (c *Config) FeedURLList() []string {
	return splitCommaList(c.FeedURLs)
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}
	return splitCommaList(c.CORSAllowedOrigins)
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, exists := seen[item]; exists {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
