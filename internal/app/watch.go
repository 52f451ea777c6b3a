package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/finwire/internal/cli"
	"horse.fit/finwire/internal/ingest"
)

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	interval := fs.Duration("interval", 0, "Poll interval; 0 uses FEED_POLL_INTERVAL")

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

	pollInterval := *interval
	if pollInterval <= 0 {
		pollInterval = cfg.FeedPollInterval
	}
	if pollInterval < time.Second {
		fmt.Fprintln(os.Stderr, "--interval must be >= 1s")
		return 2
	}

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 15*time.Second)
	c, err := buildComponents(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error().Err(err).Msg("watch failed to build components")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		cancel()
	}()

	poller := ingest.NewPoller(c.ingest, c.fetcher, c.feedURLs, pollInterval, logger)
	poller.Run(ctx)
	return 0
}
