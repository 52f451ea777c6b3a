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

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 15*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
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
		logger.Error().Err(err).Msg("health check failed")
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		return 1
	}
	defer c.Close()

	stats, err := c.store.Stats(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("health check store probe failed")
		fmt.Fprintf(os.Stderr, "Store probe failed: %v\n", err)
		return 1
	}

	fmt.Printf(
		"ok store=%s vector=%s embedding=%s articles=%d\n",
		cfg.StoreBackend,
		cfg.VectorBackend,
		cfg.EmbeddingBackend,
		stats.ArticleCount,
	)
	return 0
}
