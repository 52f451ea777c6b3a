package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/finwire/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
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
		logger.Error().Err(err).Msg("stats command failed to build components")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	stats, err := c.store.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	lastIngested := ""
	if stats.LastIngestedAt != nil {
		lastIngested = stats.LastIngestedAt.UTC().Format(time.RFC3339)
	}
	rows := [][]string{
		{"articles", fmt.Sprintf("%d", stats.ArticleCount)},
		{"entities", fmt.Sprintf("%d", stats.EntityCount)},
		{"stock_impacts", fmt.Sprintf("%d", stats.StockImpactCount)},
		{"duplicate_groups", fmt.Sprintf("%d", stats.DuplicateCount)},
		{"last_ingested_at", lastIngested},
	}
	if err := writeTable([]string{"metric", "value"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
