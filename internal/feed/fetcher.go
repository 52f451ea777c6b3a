package feed

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"horse.fit/finwire/internal/model"
	"horse.fit/finwire/internal/reader"
)

// FetcherOptions configures the concurrent feed fetcher.
type FetcherOptions struct {
	// Workers bounds how many feeds are fetched at once.
	Workers int
	// RequestInterval spaces outbound requests across all workers.
	RequestInterval time.Duration
	Timeout         time.Duration
	HTTPClient      *http.Client
	// FullText fetches the article page and replaces short RSS summaries
	// with readability-extracted text. Every page fetch goes through the
	// shared rate limiter.
	FullText bool
}

// fullTextMinContentChars is the summary length below which the article
// page is fetched for full text.
const fullTextMinContentChars = 280

// Fetcher pulls multiple RSS feeds concurrently through a bounded worker
// pool, with one shared rate limiter across all feeds.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	workers  int
	fullText bool
	logger   zerolog.Logger
}

func NewFetcher(opts FetcherOptions, logger zerolog.Logger) *Fetcher {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	interval := opts.RequestInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Fetcher{
		client:   client,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		workers:  workers,
		fullText: opts.FullText,
		logger:   logger.With().Str("component", "feed_fetcher").Logger(),
	}
}

// FetchAll fetches every feed and returns the combined article batch in
// feed-list order. A failing feed is logged and skipped so the remaining
// feeds still contribute.
func (f *Fetcher) FetchAll(ctx context.Context, feedURLs []string) ([]model.Article, error) {
	if len(feedURLs) == 0 {
		return nil, nil
	}

	pool, err := ants.NewPool(f.workers)
	if err != nil {
		return nil, fmt.Errorf("create feed worker pool: %w", err)
	}
	defer pool.Release()

	perFeed := make([][]model.Article, len(feedURLs))
	var wg sync.WaitGroup
	for i, feedURL := range feedURLs {
		wg.Add(1)
		idx := i
		url := feedURL
		if err := pool.Submit(func() {
			defer wg.Done()
			articles, err := f.fetchOne(ctx, url)
			if err != nil {
				f.logger.Warn().Err(err).Str("feed_url", url).Msg("feed fetch failed")
				return
			}
			perFeed[idx] = articles
		}); err != nil {
			wg.Done()
			f.logger.Warn().Err(err).Str("feed_url", url).Msg("feed task submit failed")
		}
	}
	wg.Wait()

	var combined []model.Article
	for _, articles := range perFeed {
		combined = append(combined, articles...)
	}
	return combined, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, feedURL string) ([]model.Article, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := fetchFeedBody(ctx, f.client, feedURL)
	if err != nil {
		return nil, err
	}

	articles, err := ParseRSS(body, feedURL)
	if err != nil {
		return nil, err
	}
	if f.fullText {
		f.enrichFullText(ctx, articles)
	}
	f.logger.Debug().Str("feed_url", feedURL).Int("articles", len(articles)).Msg("feed fetched")
	return articles, nil
}

// enrichFullText replaces short RSS summaries with readability-extracted
// page text. Extraction failures keep the summary.
func (f *Fetcher) enrichFullText(ctx context.Context, articles []model.Article) {
	for i := range articles {
		if articles[i].URL == "" {
			continue
		}
		if utf8.RuneCountInString(articles[i].Content) >= fullTextMinContentChars {
			continue
		}
		if err := f.limiter.Wait(ctx); err != nil {
			return
		}
		text, err := reader.FetchTextWithOptions(ctx, articles[i].URL, articles[i].Title, reader.FetchOptions{
			HTTPClient: f.client,
		})
		if err != nil {
			f.logger.Debug().Err(err).Str("url", articles[i].URL).Msg("full text fetch failed")
			continue
		}
		articles[i].Content = text
	}
}
