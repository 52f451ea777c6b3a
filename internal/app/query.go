package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/finwire/internal/cli"
	"horse.fit/finwire/internal/query"
)

func runQuery(args []string) int {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Command timeout")
	topK := fs.Int("top-k", query.DefaultTopK, "Maximum results to return")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *topK <= 0 {
		fmt.Fprintln(os.Stderr, "--top-k must be > 0")
		return 2
	}

	queryText := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if queryText == "" {
		fmt.Fprintln(os.Stderr, "query text is required, e.g. finwire query RBI rate decision")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
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
		logger.Error().Err(err).Msg("query command failed to build components")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	hits, err := c.query.Search(ctx, queryText, *topK)
	if err != nil {
		logger.Error().Err(err).Str("query", queryText).Msg("query failed")
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(hits); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(hits))
	for _, hit := range hits {
		rows = append(rows, []string{
			fmt.Sprintf("%.3f", hit.Score),
			hit.Article.ID,
			truncateForTable(hit.Article.Title, 70),
			hit.Article.PublishedAt,
		})
	}
	if err := writeTable([]string{"score", "id", "title", "published_at"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
