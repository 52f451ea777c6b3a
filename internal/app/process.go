package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"horse.fit/finwire/internal/cli"
	"horse.fit/finwire/internal/model"
	payloadschema "horse.fit/finwire/schema"
)

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", time.Minute, "Command timeout")
	file := fs.String("file", "-", "Article payload JSON file; - reads stdin")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	var (
		data []byte
		err  error
	)
	if *file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(*file)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read payload: %v\n", err)
		return 1
	}

	raw, err := payloadschema.ValidateNewsArticlePayload(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid payload: %v\n", err)
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
		logger.Error().Err(err).Msg("process command failed to build components")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	article := raw.ToArticle()
	result, err := c.ingest.IngestArticles(ctx, []model.Article{article})
	if err != nil {
		logger.Error().Err(err).Str("article_id", article.ID).Msg("process failed")
		fmt.Fprintf(os.Stderr, "Process failed: %v\n", err)
		return 1
	}

	fmt.Printf("process run_id=%s article_id=%s ingested=%d\n", result.RunID, article.ID, result.Ingested)
	return 0
}
