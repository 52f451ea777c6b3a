package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/finwire/internal/cli"
)

func runIngest(args []string) int {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 2*time.Minute, "Command timeout")
	file := fs.String("file", "", "JSON file holding an array of article payloads; empty means fetch the RSS feeds")
	feeds := fs.String("feeds", "", "Comma-separated feed URLs overriding the configured list")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "ingest does not accept positional arguments")
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	c, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("ingest command failed to build components")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	if *file != "" {
		return ingestFromFile(ctx, c, *file)
	}
	return ingestFromFeeds(ctx, c, *feeds)
}

func ingestFromFile(ctx context.Context, c *components, path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", path, err)
		return 1
	}

	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		fmt.Fprintf(os.Stderr, "%s must hold a JSON array of article payloads: %v\n", path, err)
		return 1
	}

	result, err := c.ingest.IngestPayloads(ctx, payloads)
	if err != nil {
		c.logger.Error().Err(err).Str("file", path).Msg("file ingest failed")
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"ingest run_id=%s received=%d unique=%d ingested=%d rejected=%d duplicate_groups=%d\n",
		result.RunID,
		result.Received,
		result.Unique,
		result.Ingested,
		result.Rejected,
		len(result.DuplicateGroups),
	)
	return 0
}

func ingestFromFeeds(ctx context.Context, c *components, feedsFlag string) int {
	feedURLs := c.feedURLs
	if trimmed := strings.TrimSpace(feedsFlag); trimmed != "" {
		feedURLs = nil
		for _, part := range strings.Split(trimmed, ",") {
			if url := strings.TrimSpace(part); url != "" {
				feedURLs = append(feedURLs, url)
			}
		}
	}
	if len(feedURLs) == 0 {
		fmt.Fprintln(os.Stderr, "no feeds configured; set FEED_URLS or pass --feeds")
		return 2
	}

	articles, err := c.fetcher.FetchAll(ctx, feedURLs)
	if err != nil {
		c.logger.Error().Err(err).Msg("feed fetch failed")
		fmt.Fprintf(os.Stderr, "Feed fetch failed: %v\n", err)
		return 1
	}

	result, err := c.ingest.IngestArticles(ctx, articles)
	if err != nil {
		c.logger.Error().Err(err).Msg("feed ingest failed")
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"ingest run_id=%s feeds=%d received=%d unique=%d ingested=%d duplicate_groups=%d\n",
		result.RunID,
		len(feedURLs),
		result.Received,
		result.Unique,
		result.Ingested,
		len(result.DuplicateGroups),
	)
	return 0
}
