// Package app implements the finwire command line interface.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "process":
		return runProcess(args[1:])
	case "query":
		return runQuery(args[1:])
	case "stats":
		return runStats(args[1:])
	case "serve":
		return runServe(args[1:])
	case "watch":
		return runWatch(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "finwire CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  finwire <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health   Verify configuration and backend connectivity")
	fmt.Fprintln(os.Stderr, "  ingest   Fetch RSS feeds (or a payload file) and ingest the batch")
	fmt.Fprintln(os.Stderr, "  process  Validate and ingest a single article payload")
	fmt.Fprintln(os.Stderr, "  query    Score stored articles against a query")
	fmt.Fprintln(os.Stderr, "  stats    Show store counters")
	fmt.Fprintln(os.Stderr, "  serve    Start the Echo API server")
	fmt.Fprintln(os.Stderr, "  watch    Poll the configured feeds on an interval")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"finwire <command> -h\" for command-specific flags.")
}
