package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/finwire/internal/model"
)

// Batcher produces the next batch of raw articles to ingest.
type Batcher interface {
	FetchAll(ctx context.Context, feedURLs []string) ([]model.Article, error)
}

// Poller re-ingests the configured feeds on a fixed interval. Runs are
// strictly sequential: a tick that fires while a run is in flight waits for
// it. Failures are logged and the loop continues; cancelling the context
// stops scheduling without force-aborting an in-flight run.
type Poller struct {
	service  *Service
	batcher  Batcher
	feedURLs []string
	interval time.Duration
	logger   zerolog.Logger
}

func NewPoller(service *Service, batcher Batcher, feedURLs []string, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		service:  service,
		batcher:  batcher,
		feedURLs: feedURLs,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Logger(),
	}
}

// Run blocks until ctx is cancelled. The first run fires immediately.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info().
		Dur("interval", p.interval).
		Int("feeds", len(p.feedURLs)).
		Msg("poller started")

	p.runOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("poller stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *Poller) runOnce(ctx context.Context) {
	articles, err := p.batcher.FetchAll(ctx, p.feedURLs)
	if err != nil {
		p.logger.Error().Err(err).Msg("feed fetch failed; will retry next tick")
		return
	}
	if len(articles) == 0 {
		p.logger.Debug().Msg("no articles fetched")
		return
	}

	result, err := p.service.IngestArticles(ctx, articles)
	if err != nil {
		p.logger.Error().Err(err).Msg("ingest run failed; will retry next tick")
		return
	}
	p.logger.Info().
		Str("run_id", result.RunID).
		Int("received", result.Received).
		Int("ingested", result.Ingested).
		Msg("scheduled ingest complete")
}
