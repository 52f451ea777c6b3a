package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/finwire/internal/cli"
	"horse.fit/finwire/internal/config"
	"horse.fit/finwire/internal/db"
	"horse.fit/finwire/internal/dedup"
	"horse.fit/finwire/internal/embed"
	"horse.fit/finwire/internal/explain"
	"horse.fit/finwire/internal/feed"
	"horse.fit/finwire/internal/ingest"
	"horse.fit/finwire/internal/logging"
	"horse.fit/finwire/internal/ner"
	"horse.fit/finwire/internal/query"
	"horse.fit/finwire/internal/stockmap"
	"horse.fit/finwire/internal/store"
	"horse.fit/finwire/internal/vectorindex"
)

// components is the wired service graph every command runs against.
type components struct {
	cfg    *config.Config
	logger zerolog.Logger

	pool       *db.Pool
	source     embed.Source
	store      store.Store
	index      vectorindex.Index
	recognizer ner.Recognizer
	mapper     *stockmap.Mapper
	fetcher    *feed.Fetcher
	feedURLs   []string

	ingest *ingest.Service
	query  *query.Service
}

func (c *components) Close() {
	if c.pool != nil {
		_ = c.pool.Close()
	}
}

// buildComponents assembles the backends selected by configuration. The
// database pool is opened only when a postgres-backed store or index is
// requested.
func buildComponents(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*components, error) {
	source, err := buildEmbedSource(cfg)
	if err != nil {
		return nil, err
	}

	c := &components{cfg: cfg, logger: logger, source: source}

	storeBackend := strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	vectorBackend := strings.ToLower(strings.TrimSpace(cfg.VectorBackend))

	if storeBackend == "postgres" || vectorBackend == "pgvector" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		c.pool = pool
	}

	switch storeBackend {
	case "postgres":
		c.store = store.NewPostgres(c.pool)
	default:
		c.store = store.NewMemory()
	}

	switch vectorBackend {
	case "pgvector":
		c.index = vectorindex.NewPGVector(c.pool, embeddingModelName(cfg))
	default:
		c.index = vectorindex.NewMemory()
	}

	if c.recognizer, err = buildRecognizer(cfg); err != nil {
		c.Close()
		return nil, err
	}
	if c.mapper, err = buildMapper(cfg); err != nil {
		c.Close()
		return nil, err
	}

	c.fetcher = feed.NewFetcher(feed.FetcherOptions{
		Workers:  cfg.FeedFetchWorkers,
		FullText: cfg.FeedFullText,
	}, logger)
	c.feedURLs = cfg.FeedURLList()
	if len(c.feedURLs) == 0 {
		c.feedURLs = feed.DefaultFeeds
	}

	c.ingest = ingest.NewService(
		dedup.NewClustererForSource(source),
		c.recognizer,
		c.mapper,
		c.store,
		c.index,
		logger,
	)
	c.query = query.NewService(c.recognizer, c.store, source, c.index, explain.NewTemplate(), logger)

	return c, nil
}

func buildEmbedSource(cfg *config.Config) (embed.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.EmbeddingBackend)) {
	case "hashing", "":
		return embed.NewHashingSource(cfg.EmbeddingDimensions), nil
	case "service":
		return embed.NewServiceSource(embed.ServiceOptions{
			Endpoint:   cfg.EmbeddingEndpoint,
			Dimensions: cfg.EmbeddingDimensions,
		}), nil
	case "openai":
		return embed.NewOpenAISource(embed.OpenAIOptions{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.EmbeddingModel,
			Dimensions: cfg.EmbeddingDimensions,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding backend %q", cfg.EmbeddingBackend)
	}
}

func buildRecognizer(cfg *config.Config) (ner.Recognizer, error) {
	if path := strings.TrimSpace(cfg.GazetteerPath); path != "" {
		gazetteer, err := ner.LoadGazetteer(path)
		if err != nil {
			return nil, fmt.Errorf("load gazetteer %s: %w", path, err)
		}
		return ner.NewKeywordRecognizer(gazetteer), nil
	}
	return ner.NewKeywordRecognizer(ner.DefaultGazetteer()), nil
}

func buildMapper(cfg *config.Config) (*stockmap.Mapper, error) {
	if path := strings.TrimSpace(cfg.StockMappingsPath); path != "" {
		mapper, err := stockmap.LoadMapper(path)
		if err != nil {
			return nil, fmt.Errorf("load stock mappings %s: %w", path, err)
		}
		return mapper, nil
	}
	return stockmap.NewDefaultMapper(), nil
}

func embeddingModelName(cfg *config.Config) string {
	if name := strings.TrimSpace(cfg.EmbeddingModel); name != "" {
		return name
	}
	return strings.ToLower(strings.TrimSpace(cfg.EmbeddingBackend))
}

// loadRuntime loads the environment file, configuration, and logger shared
// by every command.
func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}
